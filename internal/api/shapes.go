package api

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// Shape is a structural matcher for one JSON payload layout. Specificity is
// the number of required leaf fields; when several shapes are candidates for
// the same body the more specific one is tried first.
type Shape struct {
	name        string
	specificity int
	schema      *gojsonschema.Schema
}

// NewShape compiles a JSON Schema document into a Shape.
func NewShape(name string, specificity int, schema string) (*Shape, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile shape %s: %w", name, err)
	}
	return &Shape{name: name, specificity: specificity, schema: compiled}, nil
}

// MustShape is NewShape for package-level shape tables.
func MustShape(name string, specificity int, schema string) *Shape {
	s, err := NewShape(name, specificity, schema)
	if err != nil {
		panic(err)
	}
	return s
}

// Name identifies the shape in errors and logs.
func (s *Shape) Name() string { return s.name }

// Specificity reports how many required fields the shape pins down.
func (s *Shape) Specificity() int { return s.specificity }

// Matches reports whether body structurally fits the shape. An error means
// the body could not be evaluated at all.
func (s *Shape) Matches(body []byte) (bool, error) {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return false, err
	}
	return result.Valid(), nil
}

const wafBlockedSchema = `{
  "type": "object",
  "required": ["error"],
  "properties": {
    "error": {
      "type": "object",
      "required": ["message", "waf_code"],
      "properties": {
        "message": {"type": "string"},
        "waf_code": {"type": "integer", "minimum": 0, "maximum": 4294967295}
      }
    }
  }
}`

const plainErrorSchema = `{
  "type": "object",
  "required": ["error"],
  "properties": {
    "error": {
      "type": "object",
      "required": ["message"],
      "properties": {
        "message": {"type": "string"}
      }
    }
  }
}`

type errorShape struct {
	shape   *Shape
	variant Variant
}

// errorShapes is ordered by specificity, highest first. The plain shape is a
// structural subset of the WAF shape, so the order decides the variant.
var errorShapes = bySpecificity([]errorShape{
	{shape: MustShape("plain-error", 1, plainErrorSchema), variant: VariantPlain},
	{shape: MustShape("waf-blocked", 2, wafBlockedSchema), variant: VariantWafBlocked},
})

func bySpecificity(shapes []errorShape) []errorShape {
	sort.SliceStable(shapes, func(i, j int) bool {
		return shapes[i].shape.specificity > shapes[j].shape.specificity
	})
	return shapes
}
