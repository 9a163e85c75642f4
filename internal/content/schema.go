package content

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Structural contracts for provider output. A response that fails its schema
// is treated exactly like a transport failure: the orchestrator moves on to
// the next provider.

const enhancementSchema = `{
	"type": "object",
	"required": ["proposedName", "proposedDescription", "rationale"],
	"properties": {
		"proposedName": {"type": "string", "minLength": 1},
		"proposedDescription": {"type": "string", "minLength": 1},
		"rationale": {"type": "string"},
		"demographicInsights": {"type": "array", "items": {"type": "string"}}
	}
}`

const suggestionsSchema = `{
	"type": "object",
	"required": ["suggestions"],
	"properties": {
		"suggestions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "description", "estimatedPrice"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"description": {"type": "string", "minLength": 1},
					"estimatedPrice": {"type": "number", "minimum": 0},
					"category": {"type": "string"},
					"inspirationSource": {"type": "string"}
				}
			}
		}
	}
}`

const explanationSchema = `{
	"type": "object",
	"required": ["explanation"],
	"properties": {
		"explanation": {"type": "string", "minLength": 1}
	}
}`

func mustCompile(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("content: bad schema: %v", err))
	}
	return schema
}

var (
	enhancementContract = mustCompile(enhancementSchema)
	suggestionsContract = mustCompile(suggestionsSchema)
	explanationContract = mustCompile(explanationSchema)
)

func validateAgainst(schema *gojsonschema.Schema, document string) error {
	result, err := schema.Validate(gojsonschema.NewStringLoader(document))
	if err != nil {
		return fmt.Errorf("output is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("output violates contract: %s", strings.Join(problems, "; "))
}

// stripCodeFence removes a surrounding markdown fence when a provider wraps
// its JSON despite instructions.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
