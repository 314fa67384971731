package curriculum

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Only the top-level shape is enforced here. Record-level problems are
// tolerated and reported through Report instead of failing the document.
const curriculumSchema = `{
  "type": "object",
  "required": ["distributedSystemsCurriculum"],
  "properties": {
    "distributedSystemsCurriculum": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["chapterNumber"],
        "properties": {
          "chapterNumber": {"type": ["string", "integer"]},
          "chapterTitle": {"type": "string"}
        }
      }
    }
  }
}`

const questionsSchema = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {"type": "array"}
  }
}`

var (
	curriculumSchemaLoader = gojsonschema.NewStringLoader(curriculumSchema)
	questionsSchemaLoader  = gojsonschema.NewStringLoader(questionsSchema)
)

func validate(schema, doc gojsonschema.JSONLoader, kind string) error {
	result, err := gojsonschema.Validate(schema, doc)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, kind, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalidDocument, kind, strings.Join(msgs, "; "))
}
