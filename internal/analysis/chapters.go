package analysis

import (
	"regexp"
	"slices"
	"strings"

	"github.com/p-n-ai/exam-atlas/internal/curriculum"
)

var chapterPattern = regexp.MustCompile(`Chapter (\d+)`)

// ChapterSet is a set of chapter identifiers cited by one question.
type ChapterSet map[string]struct{}

// ExtractChapters returns every distinct chapter identifier cited in a
// refer text through the literal "Chapter N" form. The digit run is kept
// as written. Absent or empty text yields an empty set.
func ExtractChapters(refer curriculum.Opt[string]) ChapterSet {
	set := ChapterSet{}
	text, ok := refer.Get()
	if !ok || text == "" {
		return set
	}
	for _, m := range chapterPattern.FindAllStringSubmatch(text, -1) {
		set[m[1]] = struct{}{}
	}
	return set
}

// Has reports whether id is in the set.
func (s ChapterSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the identifiers in ascending numeric order.
func (s ChapterSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	SortChapterIDs(ids)
	return ids
}

// SortChapterIDs orders chapter identifiers numerically, so "2" precedes
// "10". Identifiers that are not digit runs sort after numeric ones.
func SortChapterIDs(ids []string) {
	slices.SortFunc(ids, CompareChapterIDs)
}

// CompareChapterIDs compares two chapter identifiers numerically without
// parsing them into fixed-width integers.
func CompareChapterIDs(a, b string) int {
	an, bn := isDigits(a), isDigits(b)
	switch {
	case an && !bn:
		return -1
	case !an && bn:
		return 1
	case !an && !bn:
		return strings.Compare(a, b)
	}

	ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	// "03" and "3" are the same chapter number; keep the order total.
	return strings.Compare(a, b)
}

// SameChapter reports whether two identifiers name the same chapter, so
// "03" and "3" match.
func SameChapter(a, b string) bool {
	if isDigits(a) && isDigits(b) {
		return strings.TrimLeft(a, "0") == strings.TrimLeft(b, "0")
	}
	return a == b
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
