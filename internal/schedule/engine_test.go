package schedule

import (
	"testing"
	"time"
)

func TestEngineEmitsInTriggerOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now()
	if err := engine.Schedule(Trigger{ID: "later", At: now.Add(80 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule later: %v", err)
	}
	if err := engine.Schedule(Trigger{ID: "sooner", At: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule sooner: %v", err)
	}

	first := waitTrigger(t, engine.C(), time.Second)
	second := waitTrigger(t, engine.C(), time.Second)
	if first.ID != "sooner" || second.ID != "later" {
		t.Fatalf("unexpected order: first=%s second=%s", first.ID, second.ID)
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	at := time.Now().Add(20 * time.Millisecond)
	for i := 0; i < 25; i++ {
		if err := engine.Schedule(Trigger{ID: "tr", At: at}); err != nil {
			t.Fatalf("schedule trigger: %v", err)
		}
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped triggers > 0, got %d", engine.Dropped())
	}
}

func TestScheduleValidatesTriggerTime(t *testing.T) {
	engine := NewEngine(1)
	if err := engine.Schedule(Trigger{ID: "bad"}); err != ErrInvalidTriggerTime {
		t.Fatalf("expected ErrInvalidTriggerTime, got %v", err)
	}
}

func TestClearDropsPendingTriggers(t *testing.T) {
	engine := NewEngine(4)
	if err := engine.Schedule(Trigger{ID: "a", At: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if engine.Pending() != 1 {
		t.Fatalf("pending before clear: %d", engine.Pending())
	}
	engine.Clear()
	if engine.Pending() != 0 {
		t.Fatalf("pending after clear: %d", engine.Pending())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	engine.Stop()
	engine.Stop()
	if err := engine.Schedule(Trigger{ID: "late", At: time.Now().Add(time.Minute)}); err == nil {
		t.Fatalf("schedule after stop should fail")
	}
}

func waitTrigger(t *testing.T, ch <-chan Trigger, timeout time.Duration) Trigger {
	t.Helper()
	select {
	case tr := <-ch:
		return tr
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for trigger")
		return Trigger{}
	}
}
