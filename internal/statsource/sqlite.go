package statsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
)

// SQLite stores statistics in a local database file, for single-node
// deployments and the CLI.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path with WAL enabled.
func OpenSQLite(ctx context.Context, path string, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db, ttl: ttl, now: time.Now}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS exam_statistics (
	fingerprint TEXT PRIMARY KEY,
	total_questions INTEGER NOT NULL,
	unique_types INTEGER NOT NULL,
	unique_knowledge_points INTEGER NOT NULL,
	chapters_covered INTEGER NOT NULL,
	computed_at INTEGER NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Get(ctx context.Context, fingerprint string) (analysis.Statistics, bool, error) {
	var (
		stats    analysis.Statistics
		unixTime int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT total_questions, unique_types, unique_knowledge_points, chapters_covered, computed_at
		 FROM exam_statistics WHERE fingerprint = ?`,
		fingerprint,
	).Scan(&stats.TotalQuestions, &stats.UniqueTypes, &stats.UniqueKnowledgePoints, &stats.ChaptersCovered, &unixTime)
	if errors.Is(err, sql.ErrNoRows) {
		return analysis.Statistics{}, false, nil
	}
	if err != nil {
		return analysis.Statistics{}, false, fmt.Errorf("select statistics: %w", err)
	}
	if expired(time.Unix(unixTime, 0), s.ttl, s.now()) {
		return analysis.Statistics{}, false, nil
	}
	return stats, true, nil
}

func (s *SQLite) Put(ctx context.Context, fingerprint string, stats analysis.Statistics) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exam_statistics
		   (fingerprint, total_questions, unique_types, unique_knowledge_points, chapters_covered, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
		   total_questions = excluded.total_questions,
		   unique_types = excluded.unique_types,
		   unique_knowledge_points = excluded.unique_knowledge_points,
		   chapters_covered = excluded.chapters_covered,
		   computed_at = excluded.computed_at`,
		fingerprint,
		stats.TotalQuestions,
		stats.UniqueTypes,
		stats.UniqueKnowledgePoints,
		stats.ChaptersCovered,
		s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert statistics: %w", err)
	}
	return nil
}
