package curriculum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Curriculum is the fixed chapter taxonomy of a course.
type Curriculum struct {
	Chapters []Chapter `json:"distributedSystemsCurriculum" yaml:"distributedSystemsCurriculum"`
}

// Chapter is one curriculum chapter and its ordered knowledge-point labels.
type Chapter struct {
	Number  ID            `json:"chapterNumber" yaml:"chapterNumber"`
	Title   string        `json:"chapterTitle" yaml:"chapterTitle"`
	Content Opt[[]string] `json:"content,omitzero" yaml:"content,omitempty"`
}

// Items returns the chapter's content labels, or nil when content is absent.
func (c Chapter) Items() []string {
	items, _ := c.Content.Get()
	return items
}

// ItemCount returns the number of content items across all chapters.
func (c Curriculum) ItemCount() int {
	n := 0
	for _, ch := range c.Chapters {
		n += len(ch.Items())
	}
	return n
}

// Question is one extracted exam question.
type Question struct {
	ID              ID            `json:"id"`
	Title           string        `json:"title"`
	Type            Opt[string]   `json:"type,omitzero"`
	Answer          Opt[string]   `json:"answer,omitzero"`
	Source          string        `json:"source"`
	Refer           Opt[string]   `json:"refer,omitzero"`
	KnowledgePoints Opt[[]string] `json:"knowledge_points,omitzero"`
}

func (q *Question) UnmarshalJSON(data []byte) error {
	type plain Question
	var wire struct {
		plain
		KnowledgePoints json.RawMessage `json:"knowledge_points"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*q = Question(wire.plain)
	q.KnowledgePoints, _ = decodeLabels(wire.KnowledgePoints)
	return nil
}

// decodeLabels reads a knowledge-point list. Null entries are dropped and
// counted; a value that is not a list of strings reads as absent.
func decodeLabels(raw json.RawMessage) (Opt[[]string], int) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return None[[]string](), 0
	}
	var entries []*string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return None[[]string](), 0
	}
	labels := make([]string, 0, len(entries))
	dropped := 0
	for _, e := range entries {
		if e == nil {
			dropped++
			continue
		}
		labels = append(labels, *e)
	}
	return Some(labels), dropped
}

// QuestionSet is the question collection document.
type QuestionSet struct {
	Questions []Question `json:"questions"`
}

// ID identifies a question or chapter. Source documents carry both string
// and numeric identifiers; numbers are kept in their literal JSON form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(strings.TrimSpace(n.String()))
	return nil
}

func (id *ID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: identifier must be a scalar", node.Line)
	}
	*id = ID(strings.TrimSpace(node.Value))
	return nil
}
