package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/curriculum"
	"github.com/p-n-ai/exam-atlas/internal/snapshot"
)

// Workbook sheet names, in tab order.
const (
	SheetSummary    = "Summary"
	SheetTypes      = "Types"
	SheetChapters   = "Chapters"
	SheetHeatmap    = "Heatmap"
	SheetTimeline   = "Timeline"
	SheetDifficulty = "Difficulty"
	SheetQuestions  = "Questions"
)

// Sheets lists every sheet of the workbook in tab order.
var Sheets = []string{SheetSummary, SheetTypes, SheetChapters, SheetHeatmap, SheetTimeline, SheetDifficulty, SheetQuestions}

// WriteWorkbook renders a snapshot as an XLSX workbook.
func WriteWorkbook(w io.Writer, snap *snapshot.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	b := &builder{f: f}
	if err := b.init(); err != nil {
		return err
	}

	b.summary(snap)
	b.types(snap)
	b.chapters(snap)
	b.heatmap(snap)
	b.timeline(snap)
	b.difficulty(snap)
	b.questions(snap)
	if b.err != nil {
		return b.err
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// builder records the first error so sheet code reads linearly.
type builder struct {
	f      *excelize.File
	header int
	err    error
}

func (b *builder) init() error {
	if err := b.f.SetSheetName("Sheet1", Sheets[0]); err != nil {
		return fmt.Errorf("renaming default sheet: %w", err)
	}
	for _, name := range Sheets[1:] {
		if _, err := b.f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}
	style, err := b.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	b.header = style
	return nil
}

// row writes values starting at column A of the 1-based row.
func (b *builder) row(sheet string, row int, values ...any) {
	if b.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		b.err = err
		return
	}
	if err := b.f.SetSheetRow(sheet, cell, &values); err != nil {
		b.err = fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
}

func (b *builder) headerRow(sheet string, values ...string) {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	b.row(sheet, 1, cells...)
	if b.err != nil || len(values) == 0 {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(values), 1)
	if err != nil {
		b.err = err
		return
	}
	if err := b.f.SetCellStyle(sheet, "A1", last, b.header); err != nil {
		b.err = fmt.Errorf("styling %s header: %w", sheet, err)
	}
}

func (b *builder) summary(snap *snapshot.Snapshot) {
	ov := snap.Overview
	b.headerRow(SheetSummary, "Metric", "Value")
	rows := [][]any{
		{"Total questions", ov.TotalQuestions},
		{"Question types", ov.UniqueTypes},
		{"Knowledge points", ov.UniqueKnowledgePoints},
		{"Chapters covered", ov.ChaptersCovered},
		{"Curriculum items", ov.CurriculumItems},
		{"Coverage rate", ov.CoverageRate},
		{"Knowledge coverage", ov.KnowledgeCoverage},
		{"Top chapter", ov.TopChapter},
		{"Top knowledge point", ov.TopKnowledgePoint},
		{"Dominant type", ov.DominantType},
		{"Average title length", ov.AverageTitleLength},
		{"Snapshot", snap.ID},
		{"Fingerprint", snap.Fingerprint},
		{"Loaded at", snap.LoadedAt.UTC().Format("2006-01-02 15:04:05")},
	}
	for i, r := range rows {
		b.row(SheetSummary, i+2, r...)
	}
	for i, rec := range ov.Recommendations {
		b.row(SheetSummary, len(rows)+3+i, "Recommendation", rec)
	}
	if b.err == nil {
		b.err = b.f.SetColWidth(SheetSummary, "A", "A", 24)
	}
}

func (b *builder) types(snap *snapshot.Snapshot) {
	b.headerRow(SheetTypes, "Type", "Count", "Percent")
	for i, c := range snap.Series.Types {
		b.row(SheetTypes, i+2, c.Label, c.Count, c.Percent)
	}
}

func (b *builder) chapters(snap *snapshot.Snapshot) {
	rank := make(map[string]int, len(snap.Series.ChapterImportance))
	for i, c := range snap.Series.ChapterImportance {
		rank[c.Label] = i + 1
	}

	b.headerRow(SheetChapters, "Chapter", "Title", "Questions", "Importance rank")
	for i, c := range snap.Series.Chapters {
		b.row(SheetChapters, i+2, c.Label, chapterTitle(snap.Curriculum, c.Label), c.Count, rank[c.Label])
	}
}

// chapterTitle resolves a cited chapter against the curriculum, where the
// citation may be written with leading zeros.
func chapterTitle(cur curriculum.Curriculum, id string) string {
	for _, ch := range cur.Chapters {
		if analysis.SameChapter(string(ch.Number), id) {
			return ch.Title
		}
	}
	return ""
}

func (b *builder) heatmap(snap *snapshot.Snapshot) {
	hm := snap.Series.Heatmap
	header := make([]string, 0, len(hm.Columns)+1)
	header = append(header, "Knowledge point")
	for _, ch := range hm.Columns {
		header = append(header, "Chapter "+ch)
	}
	b.headerRow(SheetHeatmap, header...)

	for i, kp := range hm.Rows {
		values := make([]any, 0, len(hm.Columns)+1)
		values = append(values, kp)
		for _, n := range hm.Cells[i] {
			values = append(values, n)
		}
		b.row(SheetHeatmap, i+2, values...)
	}
}

func (b *builder) timeline(snap *snapshot.Snapshot) {
	b.headerRow(SheetTimeline, "Chapter", "Chapter title", "Position", "Content", "Questions", "Question IDs")
	for i, item := range snap.Result.Timeline {
		ids := make([]string, len(item.Questions))
		for j, q := range item.Questions {
			ids[j] = q.ID
		}
		b.row(SheetTimeline, i+2,
			item.ChapterNumber, item.ChapterTitle, item.Position+1, item.Content, item.Count, strings.Join(ids, ", "))
	}
}

func (b *builder) difficulty(snap *snapshot.Snapshot) {
	b.headerRow(SheetDifficulty, "Difficulty", "Questions")
	for i, c := range snap.Series.Difficulty {
		b.row(SheetDifficulty, i+2, c.Label, c.Count)
	}
}

func (b *builder) questions(snap *snapshot.Snapshot) {
	b.headerRow(SheetQuestions, VariantFull.Header()...)
	for i, q := range snap.Questions {
		cols := VariantFull.Row(q)
		values := make([]any, len(cols))
		for j, c := range cols {
			values[j] = c
		}
		b.row(SheetQuestions, i+2, values...)
	}
}
