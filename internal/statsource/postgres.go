package statsource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/platform/database"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS exam_statistics (
		fingerprint             TEXT PRIMARY KEY,
		total_questions         INTEGER NOT NULL,
		unique_types            INTEGER NOT NULL,
		unique_knowledge_points INTEGER NOT NULL,
		chapters_covered        INTEGER NOT NULL,
		computed_at             TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Postgres stores statistics in the exam_statistics table.
type Postgres struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPostgres creates the table if needed and returns the source.
func NewPostgres(ctx context.Context, db *database.DB, ttl time.Duration) (*Postgres, error) {
	if db == nil || db.Pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if err := db.Migrate(ctx, postgresSchema...); err != nil {
		return nil, fmt.Errorf("ensure statistics schema: %w", err)
	}
	return &Postgres{pool: db.Pool, ttl: ttl}, nil
}

func (p *Postgres) Get(ctx context.Context, fingerprint string) (analysis.Statistics, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		stats      analysis.Statistics
		computedAt time.Time
	)
	err := p.pool.QueryRow(ctx,
		`SELECT total_questions, unique_types, unique_knowledge_points, chapters_covered, computed_at
		 FROM exam_statistics
		 WHERE fingerprint = $1`,
		fingerprint,
	).Scan(&stats.TotalQuestions, &stats.UniqueTypes, &stats.UniqueKnowledgePoints, &stats.ChaptersCovered, &computedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return analysis.Statistics{}, false, nil
	}
	if err != nil {
		return analysis.Statistics{}, false, fmt.Errorf("select statistics: %w", err)
	}
	if expired(computedAt, p.ttl, time.Now()) {
		return analysis.Statistics{}, false, nil
	}
	return stats, true, nil
}

func (p *Postgres) Put(ctx context.Context, fingerprint string, stats analysis.Statistics) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := p.pool.Exec(ctx,
		`INSERT INTO exam_statistics
		   (fingerprint, total_questions, unique_types, unique_knowledge_points, chapters_covered, computed_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (fingerprint) DO UPDATE SET
		   total_questions = EXCLUDED.total_questions,
		   unique_types = EXCLUDED.unique_types,
		   unique_knowledge_points = EXCLUDED.unique_knowledge_points,
		   chapters_covered = EXCLUDED.chapters_covered,
		   computed_at = EXCLUDED.computed_at`,
		fingerprint,
		stats.TotalQuestions,
		stats.UniqueTypes,
		stats.UniqueKnowledgePoints,
		stats.ChaptersCovered,
	)
	if err != nil {
		return fmt.Errorf("upsert statistics: %w", err)
	}
	return nil
}

func (p *Postgres) HealthCheck(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
