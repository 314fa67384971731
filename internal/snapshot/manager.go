package snapshot

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/curriculum"
)

// Source provides the two input documents.
type Source interface {
	LoadCurriculum(ctx context.Context) (*curriculum.CurriculumDocument, error)
	LoadQuestions(ctx context.Context) (*curriculum.QuestionDocument, error)
}

// Options configures a Manager. Zero values select defaults.
type Options struct {
	Engine             *analysis.Engine
	Facade             *analysis.StatisticsFacade
	Journal            Journal
	TopKnowledgePoints int
	// VerifyStatistics checks the precomputed statistics against direct
	// computation on every publish and repairs divergent values.
	VerifyStatistics bool
}

// Manager loads, derives and publishes snapshots.
type Manager struct {
	source Source
	opts   Options

	current atomic.Pointer[Snapshot]

	reloadMu sync.Mutex
	entropy  io.Reader
	now      func() time.Time

	subMu   sync.Mutex
	subs    map[int]chan Summary
	nextSub int
}

// NewManager creates a manager. Nothing is published until Reload succeeds.
func NewManager(source Source, opts Options) *Manager {
	if opts.Engine == nil {
		opts.Engine = analysis.NewEngine(analysis.Options{})
	}
	if opts.Journal == nil {
		opts.Journal = NopJournal{}
	}
	return &Manager{
		source:  source,
		opts:    opts,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
		subs:    map[int]chan Summary{},
	}
}

// Current returns the published snapshot or ErrNoSnapshot.
func (m *Manager) Current() (*Snapshot, error) {
	s := m.current.Load()
	if s == nil {
		return nil, ErrNoSnapshot
	}
	return s, nil
}

// Reload reads both documents, derives every aggregate and publishes the
// result. When the documents are unchanged the current snapshot is kept.
// Concurrent calls are serialized.
func (m *Manager) Reload(ctx context.Context) (*Snapshot, error) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	start := m.now()

	var (
		curDoc *curriculum.CurriculumDocument
		qDoc   *curriculum.QuestionDocument
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		curDoc, err = m.source.LoadCurriculum(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		qDoc, err = m.source.LoadQuestions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		m.record(ctx, ReloadEvent{
			Status:    StatusFailed,
			Error:     err.Error(),
			Duration:  m.now().Sub(start),
			CreatedAt: m.now(),
		})
		return nil, fmt.Errorf("loading inputs: %w", err)
	}

	fp := Fingerprint(curDoc.Raw, qDoc.Raw)
	if prev := m.current.Load(); prev != nil && prev.Fingerprint == fp {
		m.record(ctx, ReloadEvent{
			SnapshotID:  prev.ID,
			Fingerprint: fp,
			Status:      StatusUnchanged,
			Duration:    m.now().Sub(start),
			CreatedAt:   m.now(),
		})
		slog.Debug("inputs unchanged, keeping snapshot", "snapshot_id", prev.ID)
		return prev, nil
	}

	snap := m.build(ctx, fp, curDoc, qDoc)
	m.current.Store(snap)

	m.record(ctx, ReloadEvent{
		SnapshotID:      snap.ID,
		Fingerprint:     fp,
		Status:          StatusPublished,
		Questions:       len(snap.Questions),
		CurriculumItems: snap.Curriculum.ItemCount(),
		SkippedRecords:  snap.Summary().SkippedRecords,
		Duration:        m.now().Sub(start),
		CreatedAt:       m.now(),
	})
	slog.Info("snapshot published",
		"snapshot_id", snap.ID,
		"fingerprint", fp,
		"questions", len(snap.Questions),
		"chapters", len(snap.Curriculum.Chapters),
		"duration", m.now().Sub(start),
	)

	m.notify(snap.Summary())
	return snap, nil
}

func (m *Manager) build(ctx context.Context, fp string, curDoc *curriculum.CurriculumDocument, qDoc *curriculum.QuestionDocument) *Snapshot {
	cur, questions := curDoc.Curriculum, qDoc.Questions

	if m.opts.VerifyStatistics {
		m.reconcile(ctx, fp, cur, questions)
	}

	res := m.opts.Engine.Aggregate(cur, questions)
	stats := m.opts.Facade.Statistics(ctx, fp, cur, questions)

	return &Snapshot{
		ID:               ulid.MustNew(ulid.Timestamp(m.now()), m.entropy).String(),
		Fingerprint:      fp,
		LoadedAt:         m.now(),
		CurriculumPath:   curDoc.Path,
		QuestionsPath:    qDoc.Path,
		Curriculum:       cur,
		Questions:        questions,
		CurriculumReport: curDoc.Report,
		QuestionReport:   qDoc.Report,
		Result:           res,
		Statistics:       stats,
		Series:           analysis.BuildSeries(res, questions, m.opts.TopKnowledgePoints),
		Overview:         analysis.BuildOverview(cur, questions, res, stats),
	}
}

// reconcile replaces a divergent precomputed value before it is served.
func (m *Manager) reconcile(ctx context.Context, fp string, cur curriculum.Curriculum, questions []curriculum.Question) {
	err := m.opts.Facade.Verify(ctx, fp, cur, questions)
	switch {
	case err == nil:
		return
	case errors.Is(err, analysis.ErrStatisticsDiverged):
		slog.Warn("precomputed statistics diverged, repairing", "error", err)
		if err := m.opts.Facade.Repair(ctx, fp, cur, questions); err != nil {
			slog.Warn("statistics repair failed", "fingerprint", fp, "error", err)
		}
	default:
		slog.Warn("statistics verification skipped", "fingerprint", fp, "error", err)
	}
}

func (m *Manager) record(ctx context.Context, event ReloadEvent) {
	if err := m.opts.Journal.Record(ctx, event); err != nil {
		slog.Warn("failed to record reload event", "status", event.Status, "error", err)
	}
}

// Subscribe returns a channel that receives a Summary after every publish.
// Slow subscribers miss summaries rather than block reloads. The returned
// function unsubscribes and closes the channel.
func (m *Manager) Subscribe(buffer int) (<-chan Summary, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Summary, buffer)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) notify(s Summary) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Run reloads every interval until ctx is done. Failures are logged and the
// previous snapshot stays published. A non-positive interval returns at once.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Reload(ctx); err != nil && ctx.Err() == nil {
				slog.Error("periodic reload failed", "error", err)
			}
		}
	}
}
