package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/exam-atlas/internal/curriculum"
)

// ErrStatisticsDiverged means a precomputed value disagrees with direct computation.
var ErrStatisticsDiverged = errors.New("precomputed statistics diverged")

// Statistics are the four dashboard summary numbers.
type Statistics struct {
	TotalQuestions        int `json:"totalQuestions"`
	UniqueTypes           int `json:"uniqueTypes"`
	UniqueKnowledgePoints int `json:"uniqueKnowledgePoints"`
	ChaptersCovered       int `json:"chaptersCovered"`
}

// ComputeStatistics derives the summary numbers directly from the inputs.
//
// UniqueTypes ignores questions without a type, whereas TypeCounts files
// them under "Unknown". Knowledge points are counted by raw label.
func ComputeStatistics(_ curriculum.Curriculum, questions []curriculum.Question) Statistics {
	types := map[string]struct{}{}
	kps := map[string]struct{}{}
	chapters := map[string]struct{}{}

	for _, q := range questions {
		if t, ok := q.Type.Get(); ok {
			types[t] = struct{}{}
		}
		if labels, ok := q.KnowledgePoints.Get(); ok {
			for _, kp := range labels {
				kps[kp] = struct{}{}
			}
		}
		for ch := range ExtractChapters(q.Refer) {
			chapters[ch] = struct{}{}
		}
	}

	return Statistics{
		TotalQuestions:        len(questions),
		UniqueTypes:           len(types),
		UniqueKnowledgePoints: len(kps),
		ChaptersCovered:       len(chapters),
	}
}

// StatisticsSource holds precomputed statistics keyed by dataset fingerprint.
type StatisticsSource interface {
	// Get returns found=false with a nil error on a miss.
	Get(ctx context.Context, fingerprint string) (stats Statistics, found bool, err error)
	Put(ctx context.Context, fingerprint string, stats Statistics) error
}

// StatisticsFacade serves statistics from a precomputed source and falls
// back to direct computation when the source misses or is unreachable.
type StatisticsFacade struct {
	source StatisticsSource
}

// NewStatisticsFacade creates a facade. A nil source always computes directly.
func NewStatisticsFacade(source StatisticsSource) *StatisticsFacade {
	return &StatisticsFacade{source: source}
}

// Statistics returns the summary for the dataset identified by fingerprint.
// Fallback is internal and never reported as an error.
func (f *StatisticsFacade) Statistics(ctx context.Context, fingerprint string, cur curriculum.Curriculum, questions []curriculum.Question) Statistics {
	if f == nil || f.source == nil {
		return ComputeStatistics(cur, questions)
	}

	stats, found, err := f.source.Get(ctx, fingerprint)
	switch {
	case err != nil:
		slog.Warn("precomputed statistics unavailable, computing directly",
			"fingerprint", fingerprint,
			"error", err,
		)
	case found:
		return stats
	}

	stats = ComputeStatistics(cur, questions)
	if err == nil {
		if err := f.source.Put(ctx, fingerprint, stats); err != nil {
			slog.Warn("failed to store precomputed statistics", "fingerprint", fingerprint, "error", err)
		}
	}
	return stats
}

// Verify checks the precomputed value for fingerprint against direct
// computation. A miss is not a divergence.
func (f *StatisticsFacade) Verify(ctx context.Context, fingerprint string, cur curriculum.Curriculum, questions []curriculum.Question) error {
	if f == nil || f.source == nil {
		return nil
	}

	stored, found, err := f.source.Get(ctx, fingerprint)
	if err != nil {
		return fmt.Errorf("reading precomputed statistics: %w", err)
	}
	if !found {
		return nil
	}

	direct := ComputeStatistics(cur, questions)
	if stored != direct {
		return fmt.Errorf("%w: fingerprint %s: stored %+v, computed %+v", ErrStatisticsDiverged, fingerprint, stored, direct)
	}
	return nil
}

// Repair overwrites the precomputed value with direct computation.
func (f *StatisticsFacade) Repair(ctx context.Context, fingerprint string, cur curriculum.Curriculum, questions []curriculum.Question) error {
	if f == nil || f.source == nil {
		return nil
	}
	if err := f.source.Put(ctx, fingerprint, ComputeStatistics(cur, questions)); err != nil {
		return fmt.Errorf("repairing precomputed statistics: %w", err)
	}
	return nil
}
