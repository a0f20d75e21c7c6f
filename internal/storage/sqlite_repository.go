package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sandeepkv93/remind/internal/model"
)

// SQLiteRepository stores each task as a JSON row while keeping the
// whole-document read/write semantics of the Store contract. Mutations run
// inside a transaction, serialized by a store-level mutex.
type SQLiteRepository struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
	subs   signal
}

func NewSQLiteRepository(db *sql.DB, logger *slog.Logger) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reminders (
			id   TEXT PRIMARY KEY,
			data TEXT NOT NULL
		)`); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func OpenSQLite(path string, logger *slog.Logger) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) ReadAll(ctx context.Context) (map[string]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readAllLocked(ctx)
}

func (r *SQLiteRepository) readAllLocked(ctx context.Context) (map[string]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, data FROM reminders`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]model.Task)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var t model.Task
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			r.logger.Warn("skipping malformed stored task", "id", id, "err", err)
			continue
		}
		if t.ID == "" {
			t.ID = id
		}
		out[id] = t
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) WriteAll(ctx context.Context, tasks map[string]model.Task) error {
	r.mu.Lock()
	err := r.writeAllLocked(ctx, tasks)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.subs.notify()
	return nil
}

func (r *SQLiteRepository) writeAllLocked(ctx context.Context, tasks map[string]model.Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders`); err != nil {
		_ = tx.Rollback()
		return err
	}
	for id, t := range tasks {
		data, err := json.Marshal(t)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode task %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO reminders (id, data) VALUES (?, ?)`, id, string(data)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) Mutate(ctx context.Context, fn func(map[string]model.Task) error) error {
	r.mu.Lock()
	doc, err := r.readAllLocked(ctx)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if err := fn(doc); err != nil {
		r.mu.Unlock()
		return err
	}
	if err := r.writeAllLocked(ctx, doc); err != nil {
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()
	r.subs.notify()
	return nil
}

func (r *SQLiteRepository) Subscribe(fn func()) (cancel func()) {
	return r.subs.subscribe(fn)
}
