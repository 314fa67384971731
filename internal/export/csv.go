// Package export writes the question set and its aggregates as CSV files
// and XLSX workbooks.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/curriculum"
)

// Variant selects the CSV column set.
type Variant string

const (
	// VariantCore has id, title, type and refer.
	VariantCore Variant = "core"
	// VariantFull adds the original type, knowledge points, source,
	// cited chapters and title length.
	VariantFull Variant = "full"
)

// utf8BOM lets spreadsheet applications detect the encoding.
const utf8BOM = "\ufeff"

var (
	coreHeader = []string{"id", "title", "type", "refer"}
	fullHeader = []string{"id", "title", "type", "original_type", "refer", "knowledge_points", "source", "chapters", "title_length"}
)

// ParseVariant accepts "core", "full" or "" (core).
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantCore:
		return VariantCore, nil
	case VariantFull:
		return VariantFull, nil
	default:
		return "", fmt.Errorf("unknown csv variant %q", s)
	}
}

// Header returns the column names of v.
func (v Variant) Header() []string {
	if v == VariantFull {
		return fullHeader
	}
	return coreHeader
}

// Row renders one question for v. Type is the canonical type.
func (v Variant) Row(q curriculum.Question) []string {
	row := []string{
		string(q.ID),
		q.Title,
		analysis.CanonicalType(q.Type),
		q.Refer.OrElse(""),
	}
	if v != VariantFull {
		return row
	}

	kps, _ := q.KnowledgePoints.Get()
	return []string{
		row[0],
		row[1],
		row[2],
		q.Type.OrElse(""),
		row[3],
		strings.Join(kps, "; "),
		q.Source,
		strings.Join(analysis.ExtractChapters(q.Refer).Sorted(), "; "),
		strconv.Itoa(utf8.RuneCountInString(q.Title)),
	}
}

// WriteCSV writes questions in input order, prefixed with a UTF-8 BOM.
func WriteCSV(w io.Writer, questions []curriculum.Question, v Variant) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("writing bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(v.Header()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, q := range questions {
		if err := cw.Write(v.Row(q)); err != nil {
			return fmt.Errorf("writing question %s: %w", q.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
