package tuple

import "fmt"

// Schema describes the ordered, named, typed columns of a Tuple stream.
type Schema struct {
	Names []string
	Types []Type
}

// NewSchema builds a schema from parallel names/types slices.
func NewSchema(names []string, types []Type) (*Schema, error) {
	if len(names) != len(types) {
		return nil, fmt.Errorf("tuple: schema names (%d) and types (%d) length mismatch", len(names), len(types))
	}
	return &Schema{Names: names, Types: types}, nil
}

// Concat returns the schema formed by concatenating this schema's columns
// with another's, used by join operators whose output schema is the
// field-wise concatenation of both children's schemas.
func (s *Schema) Concat(other *Schema) *Schema {
	names := make([]string, 0, len(s.Names)+len(other.Names))
	types := make([]Type, 0, len(s.Types)+len(other.Types))
	names = append(names, s.Names...)
	names = append(names, other.Names...)
	types = append(types, s.Types...)
	types = append(types, other.Types...)
	return &Schema{Names: names, Types: types}
}

// NumFields returns the number of columns in the schema.
func (s *Schema) NumFields() int {
	return len(s.Names)
}
