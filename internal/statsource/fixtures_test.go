package statsource

import "github.com/p-n-ai/exam-atlas/internal/curriculum"

func curriculumFixture() curriculum.Curriculum {
	return curriculum.Curriculum{Chapters: []curriculum.Chapter{
		{Number: "1", Title: "Characterization", Content: curriculum.Some([]string{"Resource Sharing"})},
	}}
}
