// Package snapshot publishes immutable views of the loaded curriculum,
// question set and everything derived from them. Readers always see one
// complete snapshot; a failed reload leaves the previous one in place.
package snapshot

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"hash"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/curriculum"
)

// ErrNoSnapshot is returned before the first successful reload.
var ErrNoSnapshot = errors.New("no snapshot published")

// Snapshot is never modified after publication.
type Snapshot struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	LoadedAt    time.Time `json:"loadedAt"`

	CurriculumPath   string                `json:"curriculumPath"`
	QuestionsPath    string                `json:"questionsPath"`
	Curriculum       curriculum.Curriculum `json:"-"`
	Questions        []curriculum.Question `json:"-"`
	CurriculumReport curriculum.Report     `json:"curriculumReport"`
	QuestionReport   curriculum.Report     `json:"questionReport"`

	Result     analysis.Result     `json:"-"`
	Statistics analysis.Statistics `json:"statistics"`
	Series     analysis.Series     `json:"-"`
	Overview   analysis.Overview   `json:"-"`
}

// Summary is what subscribers are told about a newly published snapshot.
type Summary struct {
	ID             string              `json:"id"`
	Fingerprint    string              `json:"fingerprint"`
	LoadedAt       time.Time           `json:"loadedAt"`
	Statistics     analysis.Statistics `json:"statistics"`
	SkippedRecords int                 `json:"skippedRecords"`
}

func (s *Snapshot) Summary() Summary {
	return Summary{
		ID:             s.ID,
		Fingerprint:    s.Fingerprint,
		LoadedAt:       s.LoadedAt,
		Statistics:     s.Statistics,
		SkippedRecords: s.CurriculumReport.SkippedRecords + s.QuestionReport.SkippedRecords,
	}
}

// Fingerprint identifies a dataset by the raw bytes of both documents.
// Each part is length-prefixed so moving bytes between them changes the result.
func Fingerprint(curriculumRaw, questionsRaw []byte) string {
	h, _ := blake2b.New256(nil) // only fails for keys longer than 64 bytes
	writeFramed(h, curriculumRaw)
	writeFramed(h, questionsRaw)
	return hex.EncodeToString(h.Sum(nil))
}

func writeFramed(h hash.Hash, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	h.Write(n[:])
	h.Write(b)
}
