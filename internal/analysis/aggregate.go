// Package analysis correlates extracted exam questions with the curriculum
// taxonomy and derives the statistics shown on the dashboard.
package analysis

import (
	"slices"
	"strconv"
	"strings"

	"github.com/p-n-ai/exam-atlas/internal/curriculum"
)

// UnknownType labels questions without a type in TypeCounts.
const UnknownType = "Unknown"

// PaletteSize is the number of timeline colors the dashboard cycles through.
const PaletteSize = 10

// QuestionRef is the serializable view of a related question.
type QuestionRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Type   string `json:"type,omitempty"`
	Source string `json:"source,omitempty"`
}

// ContentItem is one (chapter, content label) pair of the curriculum with
// the questions related to it. The label alone is not unique across chapters.
type ContentItem struct {
	ChapterNumber string        `json:"chapterNumber"`
	ChapterTitle  string        `json:"chapterTitle"`
	Content       string        `json:"content"`
	Position      int           `json:"position"`
	ColorIndex    int           `json:"colorIndex"`
	Questions     []QuestionRef `json:"questions"`
	Count         int           `json:"count"`
}

// Result bundles every aggregate derived from one curriculum and question set.
type Result struct {
	Timeline         []ContentItem             `json:"timelineItems"`
	TypeCounts       map[string]int            `json:"typeCounts"`
	ChapterCounts    map[string]int            `json:"chapterCounts"`
	KnowledgeHeatmap map[string]map[string]int `json:"knowledgeHeatmap"`
	Difficulty       map[Difficulty]int        `json:"difficultyBuckets"`
}

// Options tunes the engine.
type Options struct {
	// SkipEmptyLabels stops content labels or knowledge points that
	// normalize to the empty string from relating to every question.
	SkipEmptyLabels bool
}

// Engine computes Results. It holds no state between calls.
type Engine struct {
	opts Options
}

// NewEngine creates an aggregation engine.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Aggregate runs the default engine.
func Aggregate(cur curriculum.Curriculum, questions []curriculum.Question) Result {
	return NewEngine(Options{}).Aggregate(cur, questions)
}

// prepared holds the per-question values every aggregate needs.
type prepared struct {
	ref      QuestionRef
	kps      []string
	kpsOK    bool
	normKPs  []string
	chapters ChapterSet
}

// Aggregate derives the timeline, type, chapter, heatmap and difficulty
// aggregates. When either input is empty every aggregate is empty or zero.
// Inputs are never modified.
func (e *Engine) Aggregate(cur curriculum.Curriculum, questions []curriculum.Question) Result {
	res := emptyResult()
	if len(cur.Chapters) == 0 || len(questions) == 0 {
		res.Timeline = e.timeline(cur, nil)
		return res
	}

	prep := make([]prepared, len(questions))
	for i, q := range questions {
		prep[i] = e.prepare(q)
	}

	res.Timeline = e.timeline(cur, prep)

	for i, q := range questions {
		p := prep[i]

		res.TypeCounts[q.Type.OrElse(UnknownType)]++
		res.Difficulty[ClassifyDifficulty(q.Type)]++

		for ch := range p.chapters {
			res.ChapterCounts[ch]++
		}

		if !p.kpsOK || len(p.chapters) == 0 {
			continue
		}
		// Every (knowledge point, chapter) pair of the question counts.
		for _, kp := range p.kps {
			row := res.KnowledgeHeatmap[kp]
			if row == nil {
				row = make(map[string]int, len(p.chapters))
				res.KnowledgeHeatmap[kp] = row
			}
			for ch := range p.chapters {
				row[ch]++
			}
		}
	}

	return res
}

func (e *Engine) prepare(q curriculum.Question) prepared {
	p := prepared{
		ref: QuestionRef{
			ID:     string(q.ID),
			Title:  q.Title,
			Type:   q.Type.OrElse(""),
			Source: q.Source,
		},
		chapters: ExtractChapters(q.Refer),
	}
	p.kps, p.kpsOK = q.KnowledgePoints.Get()
	if !p.kpsOK {
		return p
	}
	p.normKPs = make([]string, 0, len(p.kps))
	for _, kp := range p.kps {
		n := Normalize(kp)
		if n == "" && e.opts.SkipEmptyLabels {
			continue
		}
		p.normKPs = append(p.normKPs, n)
	}
	return p
}

func (e *Engine) timeline(cur curriculum.Curriculum, prep []prepared) []ContentItem {
	items := make([]ContentItem, 0, cur.ItemCount())
	for ordinal, ch := range cur.Chapters {
		color := colorIndex(string(ch.Number), ordinal)
		for pos, label := range ch.Items() {
			item := ContentItem{
				ChapterNumber: string(ch.Number),
				ChapterTitle:  ch.Title,
				Content:       label,
				Position:      pos,
				ColorIndex:    color,
				Questions:     []QuestionRef{},
			}

			key := Normalize(label)
			if key != "" || !e.opts.SkipEmptyLabels {
				for _, p := range prep {
					if p.kpsOK && relatedNormalized(key, p.normKPs) {
						item.Questions = append(item.Questions, p.ref)
					}
				}
			}
			slices.SortStableFunc(item.Questions, compareRefs)
			item.Count = len(item.Questions)
			items = append(items, item)
		}
	}
	return items
}

func emptyResult() Result {
	res := Result{
		Timeline:         []ContentItem{},
		TypeCounts:       map[string]int{},
		ChapterCounts:    map[string]int{},
		KnowledgeHeatmap: map[string]map[string]int{},
		Difficulty:       make(map[Difficulty]int, len(Difficulties)),
	}
	for _, d := range Difficulties {
		res.Difficulty[d] = 0
	}
	return res
}

// colorIndex follows the chapter number when it is numeric so a chapter
// keeps its color when the curriculum is reordered.
func colorIndex(number string, ordinal int) int {
	if n, err := strconv.Atoi(number); err == nil && n >= 0 {
		return n % PaletteSize
	}
	return ordinal % PaletteSize
}

// compareRefs gives related-question lists an order independent of input order.
func compareRefs(a, b QuestionRef) int {
	if c := strings.Compare(a.ID, b.ID); c != 0 {
		return c
	}
	if c := strings.Compare(a.Title, b.Title); c != 0 {
		return c
	}
	if c := strings.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	return strings.Compare(a.Source, b.Source)
}
