package analysis

import (
	"strings"

	"github.com/p-n-ai/exam-atlas/internal/curriculum"
)

// IsRelated reports whether a curriculum content label corresponds to any
// of a question's knowledge points. After normalization either side may
// contain the other. Absent knowledge points never relate.
//
// An empty normalized label on either side contains, and is contained by,
// everything. No length guard is applied here; see Options.SkipEmptyLabels.
func IsRelated(contentLabel string, knowledgePoints curriculum.Opt[[]string]) bool {
	kps, ok := knowledgePoints.Get()
	if !ok {
		return false
	}
	normalized := make([]string, len(kps))
	for i, kp := range kps {
		normalized[i] = Normalize(kp)
	}
	return relatedNormalized(Normalize(contentLabel), normalized)
}

// relatedNormalized is IsRelated over labels that are already normalized.
func relatedNormalized(content string, kps []string) bool {
	for _, kp := range kps {
		if strings.Contains(content, kp) || strings.Contains(kp, content) {
			return true
		}
	}
	return false
}
