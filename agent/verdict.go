package agent

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hupe1980/triage/core"
)

const verdictSchema = `{
  "type": "object",
  "properties": {
    "approved": {"type": "boolean"},
    "solution": {"type": "string"}
  },
  "required": ["approved", "solution"]
}`

var compiledVerdictSchema = jsonschema.MustCompileString("verdict.json", verdictSchema)

// ParseVerdict extracts a Resolver verdict from a message body. The body may
// wrap the JSON object in a markdown code fence or surround it with prose.
// It returns nil when no object matching the verdict schema is found.
func ParseVerdict(text string) *core.Verdict {
	raw := extractObject(stripFence(text))
	if raw == "" {
		return nil
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil
	}
	if err := compiledVerdictSchema.Validate(doc); err != nil {
		return nil
	}

	var v core.Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return &v
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	body := s[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:] // drop the info string, e.g. "json"
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
