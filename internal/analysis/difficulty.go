package analysis

import (
	"strings"

	"github.com/p-n-ai/exam-atlas/internal/curriculum"
)

// Difficulty is a heuristic difficulty bucket derived from a question type.
type Difficulty string

const (
	DifficultyEasy    Difficulty = "Easy"
	DifficultyMedium  Difficulty = "Medium"
	DifficultyHard    Difficulty = "Hard"
	DifficultyUnknown Difficulty = "Unknown"
)

// Difficulties lists every bucket in display order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyUnknown}

var (
	easyMarkers = []string{"short", "true", "multiple"}
	hardMarkers = []string{"essay", "calculation"}
)

// ClassifyDifficulty buckets a question by case-insensitive substring tests
// on its type. Easy markers win over hard ones. Anything else, including an
// absent type or the literal "Unknown", is Medium; the Unknown bucket is
// reported but never assigned.
func ClassifyDifficulty(questionType curriculum.Opt[string]) Difficulty {
	t := strings.ToLower(questionType.OrElse(""))
	switch {
	case containsAny(t, easyMarkers):
		return DifficultyEasy
	case containsAny(t, hardMarkers):
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
