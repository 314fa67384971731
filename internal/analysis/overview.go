package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/p-n-ai/exam-atlas/internal/curriculum"
)

// uncategorized is the placeholder extraction writes when it finds no topic.
const uncategorized = "Uncategorized"

// longTitleRunes is the average title length above which questions are
// flagged as reading-heavy.
const longTitleRunes = 500

// Overview is the headline panel of the dashboard.
type Overview struct {
	Statistics
	TopChapter         string   `json:"topChapter,omitempty"`
	TopKnowledgePoint  string   `json:"topKnowledgePoint,omitempty"`
	DominantType       string   `json:"dominantType,omitempty"`
	CurriculumItems    int      `json:"curriculumItems"`
	CoverageRate       float64  `json:"coverageRate"`
	KnowledgeCoverage  float64  `json:"knowledgeCoverage"`
	AverageTitleLength float64  `json:"averageTitleLength"`
	Recommendations    []string `json:"recommendations"`
}

// BuildOverview derives the headline panel. Ties pick the lowest chapter
// number or the lexicographically smallest label.
func BuildOverview(cur curriculum.Curriculum, questions []curriculum.Question, res Result, stats Statistics) Overview {
	ov := Overview{
		Statistics:      stats,
		CurriculumItems: cur.ItemCount(),
		Recommendations: []string{},
	}

	chapters := chapterCounts(res.ChapterCounts)
	if top := maxCount(chapters); top != nil {
		ov.TopChapter = top.Label
	}
	kps := countsByFrequency(KnowledgeFrequency(questions))
	if len(kps) > 0 {
		ov.TopKnowledgePoint = kps[0].Label
	}
	types := countsByFrequency(res.TypeCounts)
	if len(types) > 0 {
		ov.DominantType = types[0].Label
	}

	if ov.CurriculumItems > 0 {
		ov.CoverageRate = float64(stats.UniqueKnowledgePoints) / float64(ov.CurriculumItems)
	}

	if len(questions) > 0 {
		covered, titleRunes := 0, 0
		for _, q := range questions {
			if hasKnowledge(q) {
				covered++
			}
			titleRunes += utf8.RuneCountInString(q.Title)
		}
		ov.KnowledgeCoverage = float64(covered) / float64(len(questions))
		ov.AverageTitleLength = float64(titleRunes) / float64(len(questions))
	}

	if len(types) > 0 {
		total := 0
		for _, t := range types {
			total += t.Count
		}
		ov.Recommendations = append(ov.Recommendations,
			fmt.Sprintf("Focus on %s questions (%.1f%% of the set)", types[0].Label, percent(types[0].Count, total)))
	}
	if len(kps) > 0 {
		top := make([]string, 0, 3)
		for _, kp := range kps[:min(3, len(kps))] {
			top = append(top, kp.Label)
		}
		ov.Recommendations = append(ov.Recommendations,
			"High-frequency knowledge points: "+strings.Join(top, ", "))
	}
	if ov.AverageTitleLength > longTitleRunes {
		ov.Recommendations = append(ov.Recommendations,
			"Questions are long on average; practise reading comprehension under time pressure")
	}

	return ov
}

func maxCount(counts []Count) *Count {
	var best *Count
	for i := range counts {
		if best == nil || counts[i].Count > best.Count {
			best = &counts[i]
		}
	}
	return best
}

func hasKnowledge(q curriculum.Question) bool {
	kps, ok := q.KnowledgePoints.Get()
	if !ok || len(kps) == 0 {
		return false
	}
	return !(len(kps) == 1 && kps[0] == uncategorized)
}
