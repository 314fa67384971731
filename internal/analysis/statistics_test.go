package analysis_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/curriculum"
)

// jsonSource stores statistics serialized, the way the external stores do.
type jsonSource struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	puts int
}

func newJSONSource() *jsonSource {
	return &jsonSource{data: map[string][]byte{}}
}

func (s *jsonSource) Get(_ context.Context, fp string) (analysis.Statistics, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	raw, ok := s.data[fp]
	if !ok {
		return analysis.Statistics{}, false, nil
	}
	var st analysis.Statistics
	if err := json.Unmarshal(raw, &st); err != nil {
		return analysis.Statistics{}, false, err
	}
	return st, true, nil
}

func (s *jsonSource) Put(_ context.Context, fp string, st analysis.Statistics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	s.data[fp] = raw
	return nil
}

type failingSource struct{ puts int }

func (f *failingSource) Get(context.Context, string) (analysis.Statistics, bool, error) {
	return analysis.Statistics{}, false, errors.New("connection refused")
}

func (f *failingSource) Put(context.Context, string, analysis.Statistics) error {
	f.puts++
	return errors.New("connection refused")
}

func TestComputeStatistics(t *testing.T) {
	got := analysis.ComputeStatistics(sampleCurriculum(), sampleQuestions())

	want := analysis.Statistics{
		TotalQuestions:        21,
		UniqueTypes:           4,
		UniqueKnowledgePoints: 8,
		ChaptersCovered:       3,
	}
	if got != want {
		t.Errorf("ComputeStatistics() = %+v, want %+v", got, want)
	}
}

func TestComputeStatistics_UnknownAsymmetry(t *testing.T) {
	questions := []curriculum.Question{
		{ID: "Q1", Type: curriculum.Some("Essay")},
		{ID: "Q2"},
	}

	stats := analysis.ComputeStatistics(curriculum.Curriculum{}, questions)
	res := analysis.Aggregate(sampleCurriculum(), questions)

	if stats.UniqueTypes != 1 {
		t.Errorf("UniqueTypes = %d, want 1 (absent type not counted)", stats.UniqueTypes)
	}
	if res.TypeCounts[analysis.UnknownType] != 1 {
		t.Errorf("TypeCounts[Unknown] = %d, want 1", res.TypeCounts[analysis.UnknownType])
	}
}

func TestComputeStatistics_Empty(t *testing.T) {
	got := analysis.ComputeStatistics(sampleCurriculum(), nil)
	if got != (analysis.Statistics{}) {
		t.Errorf("ComputeStatistics(nil) = %+v, want zero", got)
	}
}

func TestStatisticsFacade_PrecomputedMatchesDirect(t *testing.T) {
	cur := sampleCurriculum()
	questions := sampleQuestions()
	src := newJSONSource()

	direct := analysis.NewStatisticsFacade(nil).Statistics(t.Context(), "fp", cur, questions)
	facade := analysis.NewStatisticsFacade(src)

	first := facade.Statistics(t.Context(), "fp", cur, questions)
	second := facade.Statistics(t.Context(), "fp", cur, questions)

	if first != direct || second != direct {
		t.Errorf("facade = %+v / %+v, direct = %+v", first, second, direct)
	}
	if src.puts != 1 {
		t.Errorf("puts = %d, want 1 (second call served from the source)", src.puts)
	}
	if src.gets != 2 {
		t.Errorf("gets = %d, want 2", src.gets)
	}
}

func TestStatisticsFacade_ServesStoredValue(t *testing.T) {
	src := newJSONSource()
	stored := analysis.Statistics{TotalQuestions: 99}
	if err := src.Put(t.Context(), "fp", stored); err != nil {
		t.Fatal(err)
	}

	got := analysis.NewStatisticsFacade(src).Statistics(t.Context(), "fp", sampleCurriculum(), sampleQuestions())
	if got != stored {
		t.Errorf("Statistics() = %+v, want stored %+v", got, stored)
	}
}

func TestStatisticsFacade_FallsBackWhenSourceFails(t *testing.T) {
	src := &failingSource{}
	cur := sampleCurriculum()
	questions := sampleQuestions()

	got := analysis.NewStatisticsFacade(src).Statistics(t.Context(), "fp", cur, questions)

	if want := analysis.ComputeStatistics(cur, questions); got != want {
		t.Errorf("Statistics() = %+v, want %+v", got, want)
	}
	if src.puts != 0 {
		t.Errorf("puts = %d, want 0 after a failed read", src.puts)
	}
}

func TestStatisticsFacade_NilReceiver(t *testing.T) {
	var f *analysis.StatisticsFacade
	got := f.Statistics(t.Context(), "fp", sampleCurriculum(), sampleQuestions())
	if got.TotalQuestions != 21 {
		t.Errorf("TotalQuestions = %d, want 21", got.TotalQuestions)
	}
	if err := f.Verify(t.Context(), "fp", sampleCurriculum(), nil); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestStatisticsFacade_VerifyAndRepair(t *testing.T) {
	cur := sampleCurriculum()
	questions := sampleQuestions()
	src := newJSONSource()
	facade := analysis.NewStatisticsFacade(src)

	if err := facade.Verify(t.Context(), "fp", cur, questions); err != nil {
		t.Fatalf("Verify() on miss error = %v", err)
	}

	if err := src.Put(t.Context(), "fp", analysis.Statistics{TotalQuestions: 1}); err != nil {
		t.Fatal(err)
	}
	err := facade.Verify(t.Context(), "fp", cur, questions)
	if !errors.Is(err, analysis.ErrStatisticsDiverged) {
		t.Fatalf("Verify() error = %v, want ErrStatisticsDiverged", err)
	}

	if err := facade.Repair(t.Context(), "fp", cur, questions); err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if err := facade.Verify(t.Context(), "fp", cur, questions); err != nil {
		t.Errorf("Verify() after repair error = %v", err)
	}
}

func TestStatisticsFacade_VerifyReportsSourceError(t *testing.T) {
	facade := analysis.NewStatisticsFacade(&failingSource{})

	err := facade.Verify(t.Context(), "fp", sampleCurriculum(), sampleQuestions())
	if err == nil || errors.Is(err, analysis.ErrStatisticsDiverged) {
		t.Errorf("Verify() error = %v, want source error", err)
	}
	if err := facade.Repair(t.Context(), "fp", sampleCurriculum(), sampleQuestions()); err == nil {
		t.Error("Repair() expected error from failing source")
	}
}
