package analysis

import (
	"cmp"
	"slices"

	"github.com/p-n-ai/exam-atlas/internal/curriculum"
)

// DefaultTopKnowledgePoints is the length of the knowledge-point ranking.
const DefaultTopKnowledgePoints = 20

// Count is one labelled bar, slice or point of a chart.
type Count struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent,omitempty"`
}

// Heatmap is the knowledge-point x chapter matrix in dense form.
type Heatmap struct {
	Rows    []string `json:"rows"`
	Columns []string `json:"columns"`
	Cells   [][]int  `json:"cells"`
}

// ChapterTimeline groups timeline items under their chapter.
type ChapterTimeline struct {
	ChapterNumber string  `json:"chapterNumber"`
	ChapterTitle  string  `json:"chapterTitle"`
	ColorIndex    int     `json:"colorIndex"`
	Items         []Count `json:"items"`
	Total         int     `json:"total"`
}

// Series is the chart-ready view of a Result.
type Series struct {
	Types              []Count           `json:"types"`
	Chapters           []Count           `json:"chapters"`
	ChapterImportance  []Count           `json:"chapterImportance"`
	TopKnowledgePoints []Count           `json:"topKnowledgePoints"`
	Heatmap            Heatmap           `json:"heatmap"`
	Difficulty         []Count           `json:"difficulty"`
	Timeline           []ChapterTimeline `json:"timeline"`
}

// BuildSeries orders a Result for charting. topN <= 0 selects
// DefaultTopKnowledgePoints.
func BuildSeries(res Result, questions []curriculum.Question, topN int) Series {
	if topN <= 0 {
		topN = DefaultTopKnowledgePoints
	}

	s := Series{
		Types:              countsByFrequency(res.TypeCounts),
		Chapters:           chapterCounts(res.ChapterCounts),
		TopKnowledgePoints: countsByFrequency(KnowledgeFrequency(questions)),
		Heatmap:            denseHeatmap(res.KnowledgeHeatmap),
		Timeline:           groupTimeline(res.Timeline),
	}

	total := 0
	for _, c := range s.Types {
		total += c.Count
	}
	for i := range s.Types {
		s.Types[i].Percent = percent(s.Types[i].Count, total)
	}

	s.ChapterImportance = slices.Clone(s.Chapters)
	slices.SortStableFunc(s.ChapterImportance, func(a, b Count) int {
		return cmp.Compare(b.Count, a.Count)
	})

	if len(s.TopKnowledgePoints) > topN {
		s.TopKnowledgePoints = s.TopKnowledgePoints[:topN]
	}

	s.Difficulty = make([]Count, 0, len(Difficulties))
	for _, d := range Difficulties {
		s.Difficulty = append(s.Difficulty, Count{Label: string(d), Count: res.Difficulty[d]})
	}

	return s
}

// KnowledgeFrequency counts raw knowledge-point labels across questions.
func KnowledgeFrequency(questions []curriculum.Question) map[string]int {
	freq := map[string]int{}
	for _, q := range questions {
		labels, _ := q.KnowledgePoints.Get()
		for _, kp := range labels {
			freq[kp]++
		}
	}
	return freq
}

// countsByFrequency sorts by count descending, then label ascending.
func countsByFrequency(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for label, n := range m {
		out = append(out, Count{Label: label, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return out
}

func chapterCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for ch, n := range m {
		out = append(out, Count{Label: ch, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		return CompareChapterIDs(a.Label, b.Label)
	})
	return out
}

func denseHeatmap(m map[string]map[string]int) Heatmap {
	cols := map[string]struct{}{}
	rows := make([]string, 0, len(m))
	for kp, row := range m {
		rows = append(rows, kp)
		for ch := range row {
			cols[ch] = struct{}{}
		}
	}
	slices.Sort(rows)

	columns := make([]string, 0, len(cols))
	for ch := range cols {
		columns = append(columns, ch)
	}
	SortChapterIDs(columns)

	cells := make([][]int, len(rows))
	for i, kp := range rows {
		cells[i] = make([]int, len(columns))
		for j, ch := range columns {
			cells[i][j] = m[kp][ch]
		}
	}
	return Heatmap{Rows: rows, Columns: columns, Cells: cells}
}

func groupTimeline(items []ContentItem) []ChapterTimeline {
	var out []ChapterTimeline
	for _, it := range items {
		// Items arrive grouped by chapter in curriculum order.
		if len(out) == 0 || out[len(out)-1].ChapterNumber != it.ChapterNumber || it.Position == 0 {
			out = append(out, ChapterTimeline{
				ChapterNumber: it.ChapterNumber,
				ChapterTitle:  it.ChapterTitle,
				ColorIndex:    it.ColorIndex,
				Items:         []Count{},
			})
		}
		last := &out[len(out)-1]
		last.Items = append(last.Items, Count{Label: it.Content, Count: it.Count})
		last.Total += it.Count
	}
	if out == nil {
		out = []ChapterTimeline{}
	}
	return out
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}
