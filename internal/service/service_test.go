package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/sandeepkv93/remind/internal/expand"
	"github.com/sandeepkv93/remind/internal/model"
	"github.com/sandeepkv93/remind/internal/schedule"
	"github.com/sandeepkv93/remind/internal/storage"
	"github.com/sandeepkv93/remind/internal/view"
)

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.Local)

func newService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.OpenFile(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store, Options{
		Expander: expand.New(nil),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return testNow },
	})
}

func mustCreate(t *testing.T, svc *Service, task model.Task) model.Task {
	t.Helper()
	created, err := svc.CreateTask(context.Background(), task)
	if err != nil {
		t.Fatalf("create %s: %v", task.Title, err)
	}
	return created
}

func mustGet(t *testing.T, svc *Service, id string) model.Task {
	t.Helper()
	got, err := svc.GetTask(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return got
}

func TestCreateTaskFillsGeneratedFields(t *testing.T) {
	svc := newService(t)
	created := mustCreate(t, svc, model.Task{Title: "call plumber", Date: "2024-06-12"})
	if created.ID == "" {
		t.Fatalf("id not assigned")
	}
	if created.CreatedAt != "2024-06-10 12:00" {
		t.Fatalf("createdAt: %q", created.CreatedAt)
	}
	if _, err := svc.CreateTask(context.Background(), model.Task{Title: "no date"}); err == nil {
		t.Fatalf("invalid task accepted")
	}
}

func TestCreateTaskStampsCompletionTimestamp(t *testing.T) {
	svc := newService(t)
	done := mustCreate(t, svc, model.Task{Title: "already done", Date: "2024-06-09", Completed: true})
	if done.CompletedTime != "2024-06-10 12:00" {
		t.Fatalf("timestamp not stamped on create: %q", done.CompletedTime)
	}

	open := mustCreate(t, svc, model.Task{Title: "open", Date: "2024-06-12", CompletedTime: "2024-06-01 08:00"})
	if open.CompletedTime != "" {
		t.Fatalf("stray timestamp kept on incomplete create: %q", open.CompletedTime)
	}
}

func TestUpdateTaskManagesCompletionTimestamp(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	created := mustCreate(t, svc, model.Task{Title: "t", Date: "2024-06-10"})

	created.Completed = true
	if err := svc.UpdateTask(ctx, created); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := mustGet(t, svc, created.ID); got.CompletedTime != "2024-06-10 12:00" {
		t.Fatalf("timestamp not stamped: %q", got.CompletedTime)
	}

	created.Completed = false
	if err := svc.UpdateTask(ctx, created); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := mustGet(t, svc, created.ID); got.CompletedTime != "" {
		t.Fatalf("timestamp not cleared: %q", got.CompletedTime)
	}
}

func TestSetCompletedCascadesDownOnly(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	parent := mustCreate(t, svc, model.Task{Title: "parent", Date: "2024-06-10"})
	childA := mustCreate(t, svc, model.Task{Title: "a", ParentID: parent.ID})
	childDone := mustCreate(t, svc, model.Task{
		Title: "b", ParentID: parent.ID,
		Completed: true, CompletedTime: "2024-06-01 08:00",
	})
	grand := mustCreate(t, svc, model.Task{Title: "g", ParentID: childA.ID})

	if err := svc.SetCompleted(ctx, parent.ID, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	for _, id := range []string{parent.ID, childA.ID, grand.ID} {
		if got := mustGet(t, svc, id); !got.Completed {
			t.Fatalf("%s not completed by cascade", got.Title)
		}
	}
	// An already completed child keeps its original timestamp.
	if got := mustGet(t, svc, childDone.ID); got.CompletedTime != "2024-06-01 08:00" {
		t.Fatalf("existing timestamp overwritten: %q", got.CompletedTime)
	}

	// Un-completing the parent leaves descendants alone.
	if err := svc.SetCompleted(ctx, parent.ID, false); err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	if got := mustGet(t, svc, parent.ID); got.Completed {
		t.Fatalf("parent still completed")
	}
	if got := mustGet(t, svc, childA.ID); !got.Completed {
		t.Fatalf("uncomplete cascaded to child")
	}
}

func TestDeleteTaskRemovesSubtree(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	parent := mustCreate(t, svc, model.Task{Title: "p", Date: "2024-06-10"})
	child := mustCreate(t, svc, model.Task{Title: "c", ParentID: parent.ID})
	other := mustCreate(t, svc, model.Task{Title: "o", Date: "2024-06-11"})

	if err := svc.DeleteTask(ctx, parent.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetTask(ctx, child.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("child survived: %v", err)
	}
	if _, err := svc.GetTask(ctx, other.ID); err != nil {
		t.Fatalf("unrelated task affected: %v", err)
	}
}

func seriesRule() *model.RepeatRule {
	return &model.RepeatRule{Enabled: true, Type: model.RepeatDaily}
}

func TestDeleteOccurrenceBecomesExclusion(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	head := mustCreate(t, svc, model.Task{Title: "s", Date: "2024-06-01", Repeat: seriesRule()})

	if err := svc.DeleteTask(ctx, model.OccurrenceID(head.ID, "2024-06-05")); err != nil {
		t.Fatalf("delete occurrence: %v", err)
	}
	got := mustGet(t, svc, head.ID)
	if !got.Repeat.IsExcluded("2024-06-05") {
		t.Fatalf("exclusion missing: %+v", got.Repeat.ExcludeDates)
	}
}

func TestExcludeValidates(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	head := mustCreate(t, svc, model.Task{Title: "s", Date: "2024-06-01", Repeat: seriesRule()})
	plain := mustCreate(t, svc, model.Task{Title: "p", Date: "2024-06-01"})

	if err := svc.Exclude(ctx, head.ID, "junk"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("bad date accepted: %v", err)
	}
	if err := svc.Exclude(ctx, plain.ID, "2024-06-05"); !errors.Is(err, ErrNotASeries) {
		t.Fatalf("non-series accepted: %v", err)
	}
	if err := svc.Exclude(ctx, head.ID, "2024-06-05"); err != nil {
		t.Fatalf("exclude: %v", err)
	}
	// Idempotent.
	if err := svc.Exclude(ctx, head.ID, "2024-06-05"); err != nil {
		t.Fatalf("re-exclude: %v", err)
	}
	if got := mustGet(t, svc, head.ID); len(got.Repeat.ExcludeDates) != 1 {
		t.Fatalf("duplicate exclusion: %v", got.Repeat.ExcludeDates)
	}
}

func TestModifyInstanceCleansIntermediateShifts(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	head := mustCreate(t, svc, model.Task{Title: "s", Date: "2024-06-01", Repeat: seriesRule()})

	title := "first edit"
	if err := svc.ModifyInstance(ctx, head.ID, "2024-06-05", model.InstanceModification{Title: &title}); err != nil {
		t.Fatalf("modify: %v", err)
	}
	got := mustGet(t, svc, head.ID)
	mod := got.Repeat.InstanceMods["2024-06-05"]
	if mod.Title == nil || *mod.Title != title {
		t.Fatalf("override lost: %+v", mod)
	}
	if mod.ModifiedAt == "" {
		t.Fatalf("modifiedAt not stamped")
	}

	// A second occurrence shifted onto the same target date drops the
	// record from the earlier shift.
	if err := svc.ModifyInstance(ctx, head.ID, "2024-06-05", model.InstanceModification{Date: "2024-06-20"}); err != nil {
		t.Fatalf("shift: %v", err)
	}
	if err := svc.ModifyInstance(ctx, head.ID, "2024-06-06", model.InstanceModification{Date: "2024-06-20"}); err != nil {
		t.Fatalf("second shift: %v", err)
	}
	got = mustGet(t, svc, head.ID)
	if _, stale := got.Repeat.InstanceMods["2024-06-05"]; stale {
		t.Fatalf("stale shift record kept: %+v", got.Repeat.InstanceMods)
	}
	if _, ok := got.Repeat.InstanceMods["2024-06-06"]; !ok {
		t.Fatalf("new shift record missing: %+v", got.Repeat.InstanceMods)
	}
}

func TestCompleteInstanceRoundTrip(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	head := mustCreate(t, svc, model.Task{Title: "s", Date: "2024-06-01", Repeat: seriesRule()})
	child := mustCreate(t, svc, model.Task{Title: "c", ParentID: head.ID})

	occID := model.OccurrenceID(head.ID, "2024-06-05")
	if err := svc.SetCompleted(ctx, occID, true); err != nil {
		t.Fatalf("complete occurrence: %v", err)
	}
	got := mustGet(t, svc, head.ID)
	if !got.Repeat.IsInstanceCompleted("2024-06-05") {
		t.Fatalf("completion missing: %v", got.Repeat.CompletedDates)
	}
	if got.Repeat.CompletedTimes["2024-06-05"] != "2024-06-10 12:00" {
		t.Fatalf("timestamp: %v", got.Repeat.CompletedTimes)
	}
	if got.Completed {
		t.Fatalf("head itself must stay open")
	}
	// Completing an occurrence finishes the head's subtasks.
	if kid := mustGet(t, svc, child.ID); !kid.Completed {
		t.Fatalf("cascade skipped the child")
	}

	if err := svc.SetCompleted(ctx, occID, false); err != nil {
		t.Fatalf("uncomplete occurrence: %v", err)
	}
	got = mustGet(t, svc, head.ID)
	if got.Repeat.IsInstanceCompleted("2024-06-05") || len(got.Repeat.CompletedTimes) != 0 {
		t.Fatalf("completion not removed: %+v", got.Repeat)
	}
}

func TestSplitSeries(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	head := mustCreate(t, svc, model.Task{
		Title:   "standup",
		Date:    "2024-06-01",
		EndDate: "2024-06-02",
		Repeat: &model.RepeatRule{
			Enabled:        true,
			Type:           model.RepeatDaily,
			ExcludeDates:   []string{"2024-06-03"},
			CompletedDates: []string{"2024-06-02"},
		},
	})

	newTitle := "standup (old)"
	newID, err := svc.SplitSeries(ctx, head.ID, "2024-06-15", HeadPatch{Title: &newTitle})
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	old := mustGet(t, svc, head.ID)
	if old.Repeat.Enabled {
		t.Fatalf("old head still repeating")
	}
	if old.Title != newTitle {
		t.Fatalf("head patch not applied: %q", old.Title)
	}
	if len(old.Repeat.ExcludeDates) != 1 || len(old.Repeat.CompletedDates) != 1 {
		t.Fatalf("exception history lost: %+v", old.Repeat)
	}
	if old.Repeat.EndDate != "2024-06-14" {
		t.Fatalf("old rule not capped: %q", old.Repeat.EndDate)
	}

	next := mustGet(t, svc, newID)
	if next.Date != "2024-06-15" || next.EndDate != "2024-06-16" {
		t.Fatalf("anchor/span: %s..%s", next.Date, next.EndDate)
	}
	if !next.Repeat.Enabled || next.Repeat.Type != model.RepeatDaily {
		t.Fatalf("rule not carried: %+v", next.Repeat)
	}
	if next.Repeat.ExcludeDates != nil || next.Repeat.CompletedDates != nil {
		t.Fatalf("exception history leaked into new series: %+v", next.Repeat)
	}
	if next.Title != "standup" {
		t.Fatalf("new head should keep the pre-patch title: %q", next.Title)
	}
}

func TestSkipFirstOccurrence(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	head := mustCreate(t, svc, model.Task{
		Title:   "review",
		Date:    "2024-06-01",
		EndDate: "2024-06-02",
		Repeat: &model.RepeatRule{
			Enabled:        true,
			Type:           model.RepeatDaily,
			Interval:       3,
			ExcludeDates:   []string{"2024-06-01"},
			CompletedDates: []string{"2024-06-01"},
			CompletedTimes: map[string]string{"2024-06-01": "2024-06-01 09:00"},
			InstanceMods: map[string]model.InstanceModification{
				"2024-06-01": {Date: "2024-06-02"},
			},
			NotifiedKeys: []string{"2024-06-01_09:00"},
		},
	})

	if err := svc.SkipFirstOccurrence(ctx, head.ID); err != nil {
		t.Fatalf("skip: %v", err)
	}
	got := mustGet(t, svc, head.ID)
	if got.Date != "2024-06-04" {
		t.Fatalf("anchor not advanced: %s", got.Date)
	}
	if got.EndDate != "2024-06-05" {
		t.Fatalf("span not preserved: %s", got.EndDate)
	}
	r := got.Repeat
	if len(r.ExcludeDates) != 0 || len(r.CompletedDates) != 0 ||
		len(r.CompletedTimes) != 0 || len(r.InstanceMods) != 0 || len(r.NotifiedKeys) != 0 {
		t.Fatalf("old-anchor records not purged: %+v", r)
	}
}

func TestSkipExhaustedSeries(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	head := mustCreate(t, svc, model.Task{
		Title: "once more",
		Date:  "2024-06-01",
		Repeat: &model.RepeatRule{
			Enabled:  true,
			Type:     model.RepeatDaily,
			EndType:  model.RepeatEndCount,
			EndCount: 1,
		},
	})
	if err := svc.SkipFirstOccurrence(ctx, head.ID); !errors.Is(err, ErrSeriesExhausted) {
		t.Fatalf("expected exhausted error, got %v", err)
	}
}

func TestListTabExpandsSeries(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	head := mustCreate(t, svc, model.Task{
		Title: "daily",
		Date:  "2024-06-08",
		Repeat: &model.RepeatRule{
			Enabled:        true,
			Type:           model.RepeatDaily,
			CompletedDates: []string{"2024-06-09"},
			CompletedTimes: map[string]string{"2024-06-09": "2024-06-09 08:00"},
		},
	})
	mustCreate(t, svc, model.Task{Title: "plain", Date: "2024-06-10"})

	entries, err := svc.ListTab(ctx, view.TabToday)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.ID())
	}
	// The overdue 06-08 occurrence and today's, plus the plain task; the
	// completed 06-09 occurrence stays out of "today".
	for _, want := range []string{
		model.OccurrenceID(head.ID, "2024-06-08"),
		model.OccurrenceID(head.ID, "2024-06-10"),
	} {
		if !slices.Contains(got, want) {
			t.Fatalf("missing %s in %v", want, got)
		}
	}
	if slices.Contains(got, model.OccurrenceID(head.ID, "2024-06-09")) {
		t.Fatalf("completed occurrence leaked into today: %v", got)
	}
	if slices.Contains(got, model.OccurrenceID(head.ID, "2024-06-11")) {
		t.Fatalf("future occurrence listed while today is due: %v", got)
	}
}

func TestListTabShowsFirstUpcomingWhenTodayDone(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	head := mustCreate(t, svc, model.Task{
		Title: "daily",
		Date:  "2024-06-10",
		Repeat: &model.RepeatRule{
			Enabled:        true,
			Type:           model.RepeatDaily,
			CompletedDates: []string{"2024-06-10"},
			CompletedTimes: map[string]string{"2024-06-10": "2024-06-10 09:00"},
		},
	})

	entries, err := svc.ListTab(ctx, view.TabTomorrow)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].ID() != model.OccurrenceID(head.ID, "2024-06-11") {
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID())
		}
		t.Fatalf("tomorrow: %v", ids)
	}
}

func TestListTabRejectsUnknownTab(t *testing.T) {
	svc := newService(t)
	if _, err := svc.ListTab(context.Background(), view.Tab("bogus")); !errors.Is(err, ErrInvalidTab) {
		t.Fatalf("expected ErrInvalidTab, got %v", err)
	}
}

func TestScheduleUpcomingAndMarkNotified(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	timed := mustCreate(t, svc, model.Task{Title: "timed", Date: "2024-06-11", Time: "09:00"})
	mustCreate(t, svc, model.Task{Title: "untimed", Date: "2024-06-11"})
	mustCreate(t, svc, model.Task{Title: "past", Date: "2024-06-01", Time: "09:00"})
	mustCreate(t, svc, model.Task{
		Title: "done", Date: "2024-06-12", Time: "09:00",
		Completed: true, CompletedTime: "2024-06-09 10:00",
	})

	eng := schedule.NewEngine(8)
	n, err := svc.ScheduleUpcoming(ctx, eng)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if n != 1 || eng.Pending() != 1 {
		t.Fatalf("expected exactly the timed future task, got %d (pending %d)", n, eng.Pending())
	}

	if err := svc.MarkNotified(ctx, schedule.Trigger{ID: timed.ID}); err != nil {
		t.Fatalf("mark notified: %v", err)
	}
	if got := mustGet(t, svc, timed.ID); !got.Notified {
		t.Fatalf("notified flag not set")
	}

	eng2 := schedule.NewEngine(8)
	if n, _ := svc.ScheduleUpcoming(ctx, eng2); n != 0 {
		t.Fatalf("notified task rescheduled: %d", n)
	}
}

func TestScheduleRebuildAfterStoreChange(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	timed := mustCreate(t, svc, model.Task{Title: "timed", Date: "2024-06-11", Time: "09:00"})

	changed := make(chan struct{}, 1)
	cancel := svc.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancel()

	eng := schedule.NewEngine(8)
	if n, err := svc.ScheduleUpcoming(ctx, eng); err != nil || n != 1 {
		t.Fatalf("seed: n=%d err=%v", n, err)
	}

	if err := svc.MarkNotified(ctx, schedule.Trigger{ID: timed.ID}); err != nil {
		t.Fatalf("mark notified: %v", err)
	}
	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("store change notification never fired")
	}

	eng.Clear()
	n, err := svc.ScheduleUpcoming(ctx, eng)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if n != 0 || eng.Pending() != 0 {
		t.Fatalf("notified trigger survived rebuild: n=%d pending=%d", n, eng.Pending())
	}
}

func TestMarkNotifiedOccurrenceKeys(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	head := mustCreate(t, svc, model.Task{
		Title: "series", Date: "2024-06-10", Time: "18:00",
		Repeat: seriesRule(),
	})

	tr := schedule.Trigger{
		ID:   model.OccurrenceID(head.ID, "2024-06-11"),
		Date: "2024-06-11",
		Time: "18:00",
	}
	if err := svc.MarkNotified(ctx, tr); err != nil {
		t.Fatalf("mark notified: %v", err)
	}
	got := mustGet(t, svc, head.ID)
	if !slices.Contains(got.Repeat.NotifiedKeys, "2024-06-11_18:00") {
		t.Fatalf("notified key missing: %v", got.Repeat.NotifiedKeys)
	}
}
