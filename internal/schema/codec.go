package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed shapes/*.json
var shapeFiles embed.FS

// Shape names the structure a completion response must follow and carries
// its JSON Schema. The zero Shape asks for free text. Level and priority
// fields are matched case-insensitively, like the record types parse them;
// records always encode them lowercase.
type Shape struct {
	Name   string
	Schema string
}

func (s Shape) IsZero() bool { return s.Name == "" }

var (
	ShapeResumeProfile    = mustShape("resume_profile")
	ShapeJobProfile       = mustShape("job_profile")
	ShapeSkillEquivalence = mustShape("skill_equivalence")
	ShapeSkillsSummary    = mustShape("skills_summary")
	ShapeRationale        = mustShape("rationale")
	ShapeSuggestions      = mustShape("suggestions")
)

func mustShape(name string) Shape {
	data, err := shapeFiles.ReadFile("shapes/" + name + ".json")
	if err != nil {
		panic(fmt.Sprintf("loading response shape %s: %v", name, err))
	}
	return Shape{Name: name, Schema: string(data)}
}

// Encode serializes a record as indented JSON. Map keys are sorted, so equal
// records always encode to the same bytes.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses data into out, rejecting unknown fields, then validates it.
func Decode(data []byte, out Validatable) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &Violation{Invariant: "well-formed document", Err: err}
	}
	return out.Validate()
}

// DecodeResponse treats raw completion output as untrusted: it strips code
// fences, checks the document against the shape's JSON Schema and decodes it
// into out. Records built from the result still go through their own
// Validate before use.
func DecodeResponse(raw string, shape Shape, out any) error {
	if shape.IsZero() {
		return &Violation{Invariant: "response shape is required for structured decoding"}
	}

	cleaned := StripFences(raw)
	if cleaned == "" {
		return &Violation{Path: shape.Name, Invariant: "non-empty response"}
	}

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return &Violation{Path: shape.Name, Invariant: "well-formed JSON", Err: err}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(shape.Schema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return &Violation{Path: shape.Name, Invariant: "loadable response schema", Err: err}
	}
	if !result.Valid() {
		first := result.Errors()[0]
		field := first.Field()
		if field == "(root)" || field == "" {
			field = shape.Name
		} else {
			field = shape.Name + "." + field
		}
		return &Violation{Path: field, Invariant: first.Description()}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		DecodeHook: mapstructure.TextUnmarshallerHookFunc(),
		Result:     out,
	})
	if err != nil {
		return fmt.Errorf("build %s decoder: %w", shape.Name, err)
	}
	if err := decoder.Decode(doc); err != nil {
		return &Violation{Path: shape.Name, Invariant: "decodable into record", Err: err}
	}
	return nil
}

// StripFences removes Markdown code fences models like to wrap JSON in.
func StripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
