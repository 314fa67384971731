package export_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/curriculum"
	"github.com/p-n-ai/exam-atlas/internal/export"
	"github.com/p-n-ai/exam-atlas/internal/snapshot"
)

func sampleQuestions() []curriculum.Question {
	return []curriculum.Question{
		{
			ID:              "Q1",
			Title:           "Explain marshalling, with an example",
			Type:            curriculum.Some("论述题"),
			Source:          "2021.pdf",
			Refer:           curriculum.Some("Chapter 3, Chapter 2"),
			KnowledgePoints: curriculum.Some([]string{"Marshalling", "CORBA CDR"}),
		},
		{
			ID:    "Q2",
			Title: "Define a \"client\"",
			Type:  curriculum.Some("Short Answer"),
			Refer: curriculum.Some("Chapter 1"),
		},
		{ID: "Q3", Title: "Untyped"},
	}
}

func sampleSnapshot() *snapshot.Snapshot {
	cur := curriculum.Curriculum{Chapters: []curriculum.Chapter{
		{Number: "1", Title: "Characterization", Content: curriculum.Some([]string{"Client-Server Model"})},
		{Number: "2", Title: "IPC", Content: curriculum.Some([]string{"Marshalling"})},
		{Number: "3", Title: "Remote Invocation", Content: curriculum.Some([]string{"RMI"})},
	}}
	questions := sampleQuestions()
	res := analysis.Aggregate(cur, questions)
	stats := analysis.ComputeStatistics(cur, questions)
	return &snapshot.Snapshot{
		ID:          "01JTESTSNAPSHOT",
		Fingerprint: "abc123",
		LoadedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Curriculum:  cur,
		Questions:   questions,
		Result:      res,
		Statistics:  stats,
		Series:      analysis.BuildSeries(res, questions, 0),
		Overview:    analysis.BuildOverview(cur, questions, res, stats),
	}
}

func readCSV(t *testing.T, data string) [][]string {
	t.Helper()
	if !strings.HasPrefix(data, "\ufeff") {
		t.Fatal("csv output should start with a UTF-8 BOM")
	}
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(data, "\ufeff"))).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	return records
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in      string
		want    export.Variant
		wantErr bool
	}{
		{"", export.VariantCore, false},
		{"core", export.VariantCore, false},
		{" FULL ", export.VariantFull, false},
		{"wide", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := export.ParseVariant(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVariant() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseVariant() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteCSV_Core(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, sampleQuestions(), export.VariantCore); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	records := readCSV(t, buf.String())
	if len(records) != 4 {
		t.Fatalf("records = %d, want header + 3", len(records))
	}
	if strings.Join(records[0], ",") != "id,title,type,refer" {
		t.Errorf("header = %v", records[0])
	}
	want := []string{"Q1", "Explain marshalling, with an example", "Essay", "Chapter 3, Chapter 2"}
	if strings.Join(records[1], "|") != strings.Join(want, "|") {
		t.Errorf("row 1 = %v, want %v", records[1], want)
	}
	if records[2][1] != `Define a "client"` {
		t.Errorf("quoted title = %q", records[2][1])
	}
	if records[3][2] != analysis.UnknownType || records[3][3] != "" {
		t.Errorf("row 3 = %v, want Unknown type and empty refer", records[3])
	}
}

func TestWriteCSV_Full(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, sampleQuestions(), export.VariantFull); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	records := readCSV(t, buf.String())
	if len(records[0]) != 9 {
		t.Fatalf("full header = %v", records[0])
	}
	row := records[1]
	if row[3] != "论述题" {
		t.Errorf("original_type = %q", row[3])
	}
	if row[5] != "Marshalling; CORBA CDR" {
		t.Errorf("knowledge_points = %q", row[5])
	}
	if row[7] != "2; 3" {
		t.Errorf("chapters = %q, want 2; 3", row[7])
	}
	if row[8] != "36" {
		t.Errorf("title_length = %q, want 36", row[8])
	}
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, sampleSnapshot()); err != nil {
		t.Fatalf("WriteWorkbook() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if strings.Join(sheets, ",") != strings.Join(export.Sheets, ",") {
		t.Fatalf("sheets = %v, want %v", sheets, export.Sheets)
	}

	total, err := f.GetCellValue(export.SheetSummary, "B2")
	if err != nil || total != "3" {
		t.Errorf("Summary!B2 = %q, %v; want 3", total, err)
	}

	heat, err := f.GetRows(export.SheetHeatmap)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(heat[0], ",") != "Knowledge point,Chapter 2,Chapter 3" {
		t.Errorf("heatmap header = %v", heat[0])
	}
	// Rows sort by label: "CORBA CDR" before "Marshalling".
	if strings.Join(heat[2], ",") != "Marshalling,1,1" {
		t.Errorf("heatmap Marshalling row = %v", heat[2])
	}

	timeline, err := f.GetRows(export.SheetTimeline)
	if err != nil {
		t.Fatal(err)
	}
	if len(timeline) != 4 {
		t.Fatalf("timeline rows = %d, want header + 3", len(timeline))
	}
	if timeline[2][3] != "Marshalling" || timeline[2][4] != "1" || timeline[2][5] != "Q1" {
		t.Errorf("timeline row = %v", timeline[2])
	}

	questions, err := f.GetRows(export.SheetQuestions)
	if err != nil {
		t.Fatal(err)
	}
	if len(questions) != 4 {
		t.Errorf("question rows = %d, want header + 3", len(questions))
	}

	difficulty, err := f.GetRows(export.SheetDifficulty)
	if err != nil {
		t.Fatal(err)
	}
	if len(difficulty) != 5 {
		t.Errorf("difficulty rows = %d, want header + 4", len(difficulty))
	}
}

func TestWriteWorkbook_ChapterTitleWithLeadingZero(t *testing.T) {
	snap := sampleSnapshot()
	snap.Questions = []curriculum.Question{{ID: "Q9", Title: "Zero padded", Refer: curriculum.Some("Chapter 03")}}
	snap.Result = analysis.Aggregate(snap.Curriculum, snap.Questions)
	snap.Series = analysis.BuildSeries(snap.Result, snap.Questions, 0)

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, snap); err != nil {
		t.Fatalf("WriteWorkbook() error = %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(export.SheetChapters)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("chapter rows = %d, want header + 1", len(rows))
	}
	if rows[1][0] != "03" || rows[1][1] != "Remote Invocation" {
		t.Errorf("chapter row = %v, want [03 Remote Invocation ...]", rows[1])
	}
}
