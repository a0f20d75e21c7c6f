package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sandeepkv93/remind/internal/commands"
	"github.com/sandeepkv93/remind/internal/config"
	"github.com/sandeepkv93/remind/internal/expand"
	"github.com/sandeepkv93/remind/internal/lunar"
	"github.com/sandeepkv93/remind/internal/model"
	"github.com/sandeepkv93/remind/internal/schedule"
	"github.com/sandeepkv93/remind/internal/service"
	"github.com/sandeepkv93/remind/internal/storage"
	"github.com/sandeepkv93/remind/internal/view"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "remind: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfgPath := os.Getenv("REMIND_CONFIG")
	if cfgPath == "" {
		cfgPath = config.DefaultConfigFileName
	}
	cfg, err := config.LoadOrCreate(cfgPath)
	if err != nil {
		return err
	}
	cfg, err = config.FromEnv(cfg)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := service.New(store, service.Options{
		Expander:     expand.New(lunar.New()),
		Logger:       logger,
		MaxInstances: cfg.MaxInstances,
		WindowMonths: cfg.WindowMonths,
	})

	cmd, err := commands.Parse(strings.Join(args, " "))
	if err != nil {
		return err
	}
	res, err := commands.Execute(cmd, handlers(svc, cfg, logger))
	if err != nil {
		return err
	}
	if res.Message != "" {
		fmt.Println(res.Message)
	}
	return nil
}

func openStore(cfg config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return storage.OpenSQLite(filepath.Join(cfg.DataDir, "reminders.db"), logger)
	default:
		return storage.OpenFile(cfg.DataDir, logger)
	}
}

func handlers(svc *service.Service, cfg config.Config, logger *slog.Logger) commands.Handlers {
	ctx := context.Background()
	return commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			t := model.Task{Title: a.Title, Date: a.Date, Time: a.Time}
			if a.Repeat != "" {
				t.Repeat = &model.RepeatRule{Enabled: true, Type: model.RepeatType(a.Repeat)}
			}
			created, err := svc.CreateTask(ctx, t)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("added %s", created.ID)}, nil
		},
		List: func(a commands.ListArgs) (commands.Result, error) {
			entries, err := svc.ListTab(ctx, view.Tab(a.Tab))
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: renderEntries(entries)}, nil
		},
		Complete: func(a commands.CompleteArgs) (commands.Result, error) {
			if err := svc.SetCompleted(ctx, a.ID, true); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("completed %s", a.ID)}, nil
		},
		Uncomplete: func(a commands.CompleteArgs) (commands.Result, error) {
			if err := svc.SetCompleted(ctx, a.ID, false); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("reopened %s", a.ID)}, nil
		},
		Exclude: func(a commands.ExcludeArgs) (commands.Result, error) {
			if err := svc.Exclude(ctx, a.SeriesID, a.Date); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("excluded %s on %s", a.SeriesID, a.Date)}, nil
		},
		Skip: func(a commands.SkipArgs) (commands.Result, error) {
			if err := svc.SkipFirstOccurrence(ctx, a.SeriesID); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("skipped %s", a.SeriesID)}, nil
		},
		Split: func(a commands.SplitArgs) (commands.Result, error) {
			newID, err := svc.SplitSeries(ctx, a.SeriesID, a.Anchor, service.HeadPatch{})
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("split %s, new series %s", a.SeriesID, newID)}, nil
		},
		Delete: func(a commands.DeleteArgs) (commands.Result, error) {
			if err := svc.DeleteTask(ctx, a.ID); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("deleted %s", a.ID)}, nil
		},
		Watch: func(commands.WatchArgs) (commands.Result, error) {
			return commands.Result{}, watch(ctx, svc, cfg, logger)
		},
	}
}

// watch runs the trigger loop until interrupted: it seeds the engine with the
// upcoming timed entries, prints each one as it fires and records the fire so
// a restart does not repeat it. Any store change rebuilds the queue from
// scratch.
func watch(ctx context.Context, svc *service.Service, cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := schedule.NewEngine(cfg.SchedulerBuffer)
	eng.Start()
	defer eng.Stop()

	reload := make(chan struct{}, 1)
	cancel := svc.Subscribe(func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	})
	defer cancel()

	n, err := svc.ScheduleUpcoming(ctx, eng)
	if err != nil {
		return err
	}
	fmt.Printf("watching %d upcoming reminders\n", n)

	for {
		select {
		case tr := <-eng.C():
			fmt.Printf("due %s %s %s\n", tr.Date, tr.Time, tr.ID)
			if err := svc.MarkNotified(ctx, tr); err != nil {
				logger.Warn("mark notified failed", "id", tr.ID, "error", err)
			}
		case <-reload:
			eng.Clear()
			if _, err := svc.ScheduleUpcoming(ctx, eng); err != nil {
				logger.Warn("reschedule failed", "error", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func renderEntries(entries []model.Entry) string {
	if len(entries) == 0 {
		return "nothing here"
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		mark := " "
		if e.Completed() {
			mark = "x"
		}
		fmt.Fprintf(&b, "[%s] %-12s %s %s", mark, e.StartDate(), e.ID(), e.Title())
	}
	return b.String()
}
