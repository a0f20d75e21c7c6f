package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/sandeepkv93/remind/internal/model"
)

const fileStoreName = "reminders.json"

// FileStore keeps the whole document in one JSON file, rewritten on every
// mutation. A single mutex serializes all access.
type FileStore struct {
	mu     sync.Mutex
	path   string
	tasks  map[string]model.Task
	logger *slog.Logger
	subs   signal
}

func OpenFile(dataDir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &FileStore{
		path:   filepath.Join(dataDir, fileStoreName),
		logger: logger,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.tasks = map[string]model.Task{}
			return nil
		}
		return fmt.Errorf("read store: %w", err)
	}
	s.tasks = decodeDocument(b, s.logger)
	return nil
}

// decodeDocument unmarshals entry by entry so one malformed stored task is
// skipped with a warning instead of discarding the whole document.
func decodeDocument(b []byte, logger *slog.Logger) map[string]model.Task {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		logger.Warn("reminder document is not a JSON object, starting empty", "err", err)
		return map[string]model.Task{}
	}
	tasks := make(map[string]model.Task, len(raw))
	for id, msg := range raw {
		var t model.Task
		if err := json.Unmarshal(msg, &t); err != nil {
			logger.Warn("skipping malformed stored task", "id", id, "err", err)
			continue
		}
		if t.ID == "" {
			t.ID = id
		}
		tasks[id] = t
	}
	return tasks
}

func (s *FileStore) saveLocked() error {
	b, err := json.MarshalIndent(s.tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

func (s *FileStore) ReadAll(ctx context.Context) (map[string]model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneDoc(s.tasks), nil
}

func (s *FileStore) WriteAll(ctx context.Context, tasks map[string]model.Task) error {
	return s.Mutate(ctx, func(doc map[string]model.Task) error {
		for id := range doc {
			delete(doc, id)
		}
		for id, t := range tasks {
			doc[id] = t.Clone()
		}
		return nil
	})
}

func (s *FileStore) Mutate(ctx context.Context, fn func(map[string]model.Task) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	next := cloneDoc(s.tasks)
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return err
	}
	prev := s.tasks
	s.tasks = next
	if err := s.saveLocked(); err != nil {
		s.tasks = prev
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.subs.notify()
	return nil
}

func (s *FileStore) Subscribe(fn func()) (cancel func()) {
	return s.subs.subscribe(fn)
}

func (s *FileStore) Close() error {
	return nil
}
