package analysis_test

import (
	"fmt"

	"github.com/p-n-ai/exam-atlas/internal/curriculum"
)

func sampleCurriculum() curriculum.Curriculum {
	return curriculum.Curriculum{Chapters: []curriculum.Chapter{
		{
			Number:  "1",
			Title:   "Characterization of Distributed Systems",
			Content: curriculum.Some([]string{"Resource Sharing", "Client-Server Model", "Fault Tolerance"}),
		},
		{
			Number:  "2",
			Title:   "Interprocess Communication",
			Content: curriculum.Some([]string{"Marshalling", "Request-Reply Protocol", "Multicast"}),
		},
		{
			Number:  "3",
			Title:   "Distributed Objects & Remote Invocation",
			Content: curriculum.Some([]string{"Remote Method Invocation", "Distributed Garbage Collection"}),
		},
	}}
}

// sampleQuestions returns 21 synthetic questions spanning chapters 1-3 and
// the types Short Answer, Essay, Calculation and Multiple Choice, plus one
// question without a type and one without knowledge points.
func sampleQuestions() []curriculum.Question {
	types := []string{"Short Answer", "Essay", "Calculation", "Multiple Choice"}
	kps := [][]string{
		{"Client-Server", "fault tolerance"},
		{"Marshalling"},
		{"multicast", "Request-reply protocol"},
		{"Remote method invocation (RMI)"},
		{"Distributed Garbage Collection", "Marshalling"},
		{"resource sharing"},
	}
	refers := []string{
		"Chapter 1",
		"Chapter 2",
		"Chapter 2, Chapter 3",
		"Chapter 3",
		"Chapter 3 and Chapter 2",
		"Chapter 1; Chapter 1",
	}

	var qs []curriculum.Question
	for i := range 19 {
		qs = append(qs, curriculum.Question{
			ID:              curriculum.ID(fmt.Sprintf("Q%03d", i+1)),
			Title:           fmt.Sprintf("Synthetic question %d", i+1),
			Type:            curriculum.Some(types[i%len(types)]),
			Source:          fmt.Sprintf("exam-%d.pdf", 2018+i%4),
			Refer:           curriculum.Some(refers[i%len(refers)]),
			KnowledgePoints: curriculum.Some(kps[i%len(kps)]),
		})
	}
	qs = append(qs,
		curriculum.Question{
			ID:              "Q020",
			Title:           "Question without a type",
			Source:          "exam-2022.pdf",
			Refer:           curriculum.Some("Chapter 2"),
			KnowledgePoints: curriculum.Some([]string{"Marshalling"}),
		},
		curriculum.Question{
			ID:     "Q021",
			Title:  "Question without knowledge points",
			Type:   curriculum.Some("Essay"),
			Source: "exam-2022.pdf",
			Refer:  curriculum.Some("Chapter 1"),
		},
	)
	return qs
}
