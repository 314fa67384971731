package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/exam-atlas/internal/platform/database"
)

// Reload outcomes recorded in the journal.
const (
	StatusPublished = "published"
	StatusUnchanged = "unchanged"
	StatusFailed    = "failed"
)

const journalTimeout = 5 * time.Second

// ReloadEvent records one reload attempt.
type ReloadEvent struct {
	SnapshotID      string
	Fingerprint     string
	Status          string
	Questions       int
	CurriculumItems int
	SkippedRecords  int
	Error           string
	Duration        time.Duration
	CreatedAt       time.Time
}

// Journal defines reload event recording.
type Journal interface {
	Record(ctx context.Context, event ReloadEvent) error
}

// NopJournal ignores all events.
type NopJournal struct{}

func (NopJournal) Record(context.Context, ReloadEvent) error {
	return nil
}

// MemoryJournal stores events in memory for tests.
type MemoryJournal struct {
	mu     sync.Mutex
	events []ReloadEvent
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		events: []ReloadEvent{},
	}
}

func (j *MemoryJournal) Record(_ context.Context, event ReloadEvent) error {
	if event.Status == "" {
		return fmt.Errorf("status is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	j.mu.Lock()
	j.events = append(j.events, event)
	j.mu.Unlock()

	return nil
}

func (j *MemoryJournal) Events() []ReloadEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]ReloadEvent{}, j.events...)
}

var journalSchema = []string{
	`CREATE TABLE IF NOT EXISTS exam_reloads (
		id               BIGSERIAL PRIMARY KEY,
		snapshot_id      TEXT NOT NULL DEFAULT '',
		fingerprint      TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL,
		questions        INTEGER NOT NULL DEFAULT 0,
		curriculum_items INTEGER NOT NULL DEFAULT 0,
		skipped_records  INTEGER NOT NULL DEFAULT 0,
		error            TEXT NOT NULL DEFAULT '',
		duration_ms      BIGINT NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS exam_reloads_created_at_idx ON exam_reloads (created_at DESC)`,
}

// PostgresJournal inserts events into the exam_reloads table.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournal creates the table if needed.
func NewPostgresJournal(ctx context.Context, pool *pgxpool.Pool) (*PostgresJournal, error) {
	if pool == nil {
		return nil, fmt.Errorf("journal pool is nil")
	}
	if err := database.Migrate(ctx, pool, journalSchema...); err != nil {
		return nil, fmt.Errorf("ensure journal schema: %w", err)
	}
	return &PostgresJournal{pool: pool}, nil
}

func (j *PostgresJournal) Record(ctx context.Context, event ReloadEvent) error {
	if j == nil || j.pool == nil {
		return fmt.Errorf("journal pool is nil")
	}
	if event.Status == "" {
		return fmt.Errorf("status is required")
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, journalTimeout)
	defer cancel()

	_, err := j.pool.Exec(ctx,
		`INSERT INTO exam_reloads
		   (snapshot_id, fingerprint, status, questions, curriculum_items, skipped_records, error, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.SnapshotID,
		event.Fingerprint,
		event.Status,
		event.Questions,
		event.CurriculumItems,
		event.SkippedRecords,
		event.Error,
		event.Duration.Milliseconds(),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert reload event: %w", err)
	}

	slog.Debug("reload event recorded",
		"status", event.Status,
		"snapshot_id", event.SnapshotID,
	)
	return nil
}
