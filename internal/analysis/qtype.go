package analysis

import (
	"strings"

	"github.com/p-n-ai/exam-atlas/internal/curriculum"
)

// Canonical question types used by exports.
const (
	TypeMultipleChoice = "Multiple Choice"
	TypeFillInBlank    = "Fill in Blank"
	TypeShortAnswer    = "Short Answer"
	TypeEssay          = "Essay"
	TypeCalculation    = "Calculation"
	TypeProgramming    = "Programming"
	TypeTrueFalse      = "True/False"
	TypeOther          = "Other"
)

// typeAliases is checked in order; the first alias contained in the
// lowercased raw type wins.
var typeAliases = []struct {
	alias string
	canon string
}{
	{"multiple choice", TypeMultipleChoice},
	{"choice", TypeMultipleChoice},
	{"mcq", TypeMultipleChoice},
	{"选择", TypeMultipleChoice},
	{"fill in blank", TypeFillInBlank},
	{"fill-in", TypeFillInBlank},
	{"fill", TypeFillInBlank},
	{"blank", TypeFillInBlank},
	{"填空", TypeFillInBlank},
	{"short answer", TypeShortAnswer},
	{"brief answer", TypeShortAnswer},
	{"简答", TypeShortAnswer},
	{"essay", TypeEssay},
	{"discussion", TypeEssay},
	{"long answer", TypeEssay},
	{"论述", TypeEssay},
	{"论证", TypeEssay},
	{"calculation", TypeCalculation},
	{"compute", TypeCalculation},
	{"计算", TypeCalculation},
	{"programming", TypeProgramming},
	{"coding", TypeProgramming},
	{"code", TypeProgramming},
	{"编程", TypeProgramming},
	{"代码", TypeProgramming},
	{"true/false", TypeTrueFalse},
	{"true false", TypeTrueFalse},
	{"boolean", TypeTrueFalse},
	{"判断", TypeTrueFalse},
	{"对错", TypeTrueFalse},
}

// CanonicalType maps a free-form question type onto the fixed export
// vocabulary. An absent type is UnknownType.
func CanonicalType(raw curriculum.Opt[string]) string {
	t, ok := raw.Get()
	if !ok {
		return UnknownType
	}
	t = strings.ToLower(strings.TrimSpace(t))
	for _, a := range typeAliases {
		if strings.Contains(t, a.alias) {
			return a.canon
		}
	}
	return TypeOther
}
