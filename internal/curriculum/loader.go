package curriculum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingInput means a source document could not be read at all.
	ErrMissingInput = errors.New("input unavailable")
	// ErrInvalidDocument means a document was read but its top-level shape is wrong.
	ErrInvalidDocument = errors.New("invalid document")
)

// Format is the encoding of a curriculum document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatForPath picks the curriculum format from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Report counts record-level defects tolerated while parsing.
type Report struct {
	SkippedRecords         int `json:"skippedRecords"`
	MissingKnowledgePoints int `json:"missingKnowledgePoints"`
	MissingRefer           int `json:"missingRefer"`
	MissingContent         int `json:"missingContent"`
	NullKnowledgePoints    int `json:"nullKnowledgePoints"`
}

// Empty reports whether no defects were seen.
func (r Report) Empty() bool {
	return r == Report{}
}

// CurriculumDocument is a parsed curriculum together with its source bytes.
type CurriculumDocument struct {
	Path       string
	Raw        []byte
	Curriculum Curriculum
	Report     Report
}

// QuestionDocument is a parsed question collection together with its source bytes.
type QuestionDocument struct {
	Path      string
	Raw       []byte
	Questions []Question
	Report    Report
}

// Loader reads the curriculum and question documents from the filesystem.
type Loader struct {
	curriculumPath string
	questionsPath  string
}

// NewLoader creates a loader for the two input documents.
func NewLoader(curriculumPath, questionsPath string) *Loader {
	return &Loader{
		curriculumPath: curriculumPath,
		questionsPath:  questionsPath,
	}
}

// LoadCurriculum reads and parses the curriculum document.
func (l *Loader) LoadCurriculum(ctx context.Context) (*CurriculumDocument, error) {
	data, err := readInput(ctx, l.curriculumPath)
	if err != nil {
		return nil, err
	}

	cur, report, err := ParseCurriculum(data, FormatForPath(l.curriculumPath))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", l.curriculumPath, err)
	}
	logReport("curriculum", l.curriculumPath, report)

	slog.Info("curriculum loaded",
		"path", l.curriculumPath,
		"chapters", len(cur.Chapters),
		"items", cur.ItemCount(),
	)
	return &CurriculumDocument{Path: l.curriculumPath, Raw: data, Curriculum: cur, Report: report}, nil
}

// LoadQuestions reads and parses the question document.
func (l *Loader) LoadQuestions(ctx context.Context) (*QuestionDocument, error) {
	data, err := readInput(ctx, l.questionsPath)
	if err != nil {
		return nil, err
	}

	questions, report, err := ParseQuestions(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", l.questionsPath, err)
	}
	logReport("questions", l.questionsPath, report)

	slog.Info("questions loaded", "path", l.questionsPath, "questions", len(questions))
	return &QuestionDocument{Path: l.questionsPath, Raw: data, Questions: questions, Report: report}, nil
}

// ParseCurriculum decodes and validates a curriculum document.
func ParseCurriculum(data []byte, format Format) (Curriculum, Report, error) {
	var (
		cur    Curriculum
		report Report
	)

	switch format {
	case FormatYAML:
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return cur, report, fmt.Errorf("%w: curriculum: %v", ErrInvalidDocument, err)
		}
		if err := validate(curriculumSchemaLoader, gojsonschema.NewGoLoader(generic), "curriculum"); err != nil {
			return cur, report, err
		}
		if err := yaml.Unmarshal(data, &cur); err != nil {
			return cur, report, fmt.Errorf("%w: curriculum: %v", ErrInvalidDocument, err)
		}
	default:
		if err := validate(curriculumSchemaLoader, gojsonschema.NewBytesLoader(data), "curriculum"); err != nil {
			return cur, report, err
		}
		if err := json.Unmarshal(data, &cur); err != nil {
			return cur, report, fmt.Errorf("%w: curriculum: %v", ErrInvalidDocument, err)
		}
	}

	for _, ch := range cur.Chapters {
		if !ch.Content.Present() {
			report.MissingContent++
		}
	}
	return cur, report, nil
}

// ParseQuestions decodes and validates a question document. Records that
// cannot be decoded are skipped and counted in the report.
func ParseQuestions(data []byte) ([]Question, Report, error) {
	var report Report

	if err := validate(questionsSchemaLoader, gojsonschema.NewBytesLoader(data), "questions"); err != nil {
		return nil, report, err
	}

	var wire struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, report, fmt.Errorf("%w: questions: %v", ErrInvalidDocument, err)
	}

	questions := make([]Question, 0, len(wire.Questions))
	for _, raw := range wire.Questions {
		var q Question
		if err := json.Unmarshal(raw, &q); err != nil {
			report.SkippedRecords++
			continue
		}
		if !q.KnowledgePoints.Present() {
			report.MissingKnowledgePoints++
		}
		report.NullKnowledgePoints += nullLabels(raw)
		if !q.Refer.Present() {
			report.MissingRefer++
		}
		questions = append(questions, q)
	}
	return questions, report, nil
}

// nullLabels counts the null entries Question decoding dropped from a
// record's knowledge_points.
func nullLabels(record json.RawMessage) int {
	var wire struct {
		KnowledgePoints json.RawMessage `json:"knowledge_points"`
	}
	if err := json.Unmarshal(record, &wire); err != nil {
		return 0
	}
	_, n := decodeLabels(wire.KnowledgePoints)
	return n
}

func readInput(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no path configured", ErrMissingInput)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingInput, err)
	}
	return data, nil
}

func logReport(kind, path string, r Report) {
	if r.Empty() {
		return
	}
	slog.Warn("malformed records tolerated",
		"document", kind,
		"path", path,
		"skipped", r.SkippedRecords,
		"missing_knowledge_points", r.MissingKnowledgePoints,
		"missing_refer", r.MissingRefer,
		"missing_content", r.MissingContent,
		"null_knowledge_points", r.NullKnowledgePoints,
	)
}
