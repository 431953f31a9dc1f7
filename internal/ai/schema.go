package ai

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/abelaba/job-parser/internal/domain"
)

const extractSchema = `{
  "type": "object",
  "properties": {
    "jobTitle":    {"type": ["string", "null"]},
    "country":     {"type": ["string", "null"]},
    "company":     {"type": ["string", "null"]},
    "description": {"type": ["string", "null"]}
  }
}`

const compareSchema = `{
  "type": "object",
  "required": ["matchScore"],
  "properties": {
    "matchScore":      {"type": ["number", "string"]},
    "missingSkills":   {"type": ["array", "null"], "items": {"type": "string"}},
    "experienceGap":   {"type": ["array", "null"], "items": {"type": "string"}},
    "recommendations": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

var (
	extractLoader = gojsonschema.NewStringLoader(extractSchema)
	compareLoader = gojsonschema.NewStringLoader(compareSchema)
)

// validateJSON checks a model answer against schema before it is decoded.
func validateJSON(schema gojsonschema.JSONLoader, content string) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(content))
	if err != nil {
		return &domain.ParseError{Message: "response is not valid JSON", Cause: err}
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return &domain.ParseError{Message: "unexpected response shape: " + strings.Join(msgs, "; ")}
}
