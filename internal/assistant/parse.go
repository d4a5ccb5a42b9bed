package assistant

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/conversation"
)

// ResultKind tags a parse outcome.
type ResultKind int

const (
	// Raw means the payload could not be read as a recommendation and is
	// shown verbatim.
	Raw ResultKind = iota
	// Parsed means Recommendation holds the decoded payload.
	Parsed
)

func (k ResultKind) String() string {
	if k == Parsed {
		return "parsed"
	}
	return "raw"
}

// Parse methods, in the order they are tried.
const (
	MethodJSON      = "json"
	MethodFenced    = "json_fenced"
	MethodExtracted = "json_extracted"
	MethodFallback  = "fallback"
)

// Result is Parsed(Recommendation) or Raw(text). Raw always carries the
// untouched model output.
type Result struct {
	Kind           ResultKind
	Recommendation *conversation.Recommendation
	Raw            string
	Method         string
}

const recommendationSchemaURL = "https://orderbot.local/schemas/recommendation.json"

const recommendationSchema = `{
  "type": "object",
  "required": ["text", "items", "conclusion"],
  "properties": {
    "text": {"type": "string"},
    "conclusion": {"type": "string"},
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": ["number", "string"]},
          "name": {"type": "string"},
          "price": {"type": ["number", "string"]}
        }
      }
    }
  }
}`

var (
	fencePattern    = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	embeddedPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// Parser decodes model output into a recommendation, degrading to raw text
// whenever the payload is not a complete recommendation.
type Parser struct {
	schema *jsonschema.Schema
}

// NewParser compiles the recommendation schema.
func NewParser() (*Parser, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(recommendationSchemaURL, strings.NewReader(recommendationSchema)); err != nil {
		return nil, fmt.Errorf("failed to add recommendation schema: %w", err)
	}
	schema, err := c.Compile(recommendationSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile recommendation schema: %w", err)
	}
	return &Parser{schema: schema}, nil
}

// Parse never fails; anything it cannot decode comes back as Raw.
func (p *Parser) Parse(raw string) Result {
	trimmed := strings.TrimSpace(raw)

	if rec, err := p.decode(trimmed); err == nil {
		return Result{Kind: Parsed, Recommendation: rec, Raw: raw, Method: MethodJSON}
	}

	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		if rec, err := p.decode(m[1]); err == nil {
			return Result{Kind: Parsed, Recommendation: rec, Raw: raw, Method: MethodFenced}
		}
	}

	if m := embeddedPattern.FindString(trimmed); m != "" {
		if rec, err := p.decode(m); err == nil {
			return Result{Kind: Parsed, Recommendation: rec, Raw: raw, Method: MethodExtracted}
		}
	}

	return Result{Kind: Raw, Raw: raw, Method: MethodFallback}
}

func (p *Parser) decode(s string) (*conversation.Recommendation, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after recommendation")
	}
	if err := p.schema.Validate(doc); err != nil {
		return nil, err
	}

	var rec conversation.Recommendation
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
