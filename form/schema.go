// Package form owns the fixed study-ticket schema and the mutable field state
// being filled in during a session.
package form

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field describes one schema entry. AllowedValues, when set, restricts the
// values considered valid for the field.
type Field struct {
	Name          string   `yaml:"name" json:"Field Name"`
	Description   string   `yaml:"description" json:"Description"`
	AllowedValues []string `yaml:"allowed_values,omitempty" json:"allowed_values,omitempty"`
}

// Schema is the immutable ordered field list. It is loaded once and never
// mutated afterwards; trackers only toggle values for keys it defines.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from an ordered field list.
func NewSchema(fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema has no fields")
	}
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return nil, fmt.Errorf("schema field %d has empty name", i)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate schema field %q", name)
		}
		index[name] = i
	}
	return &Schema{fields: fields, index: index}, nil
}

// DefaultSchema returns the built-in study-ticket schema.
func DefaultSchema() *Schema {
	s, err := NewSchema([]Field{
		{Name: "Client", Description: "Name of requester"},
		{Name: "Problem", Description: "What needs to be studied"},
		{Name: "Discipline", Description: "Scientific area"},
		{Name: "Technique Area", Description: "Specific technique"},
		{Name: "Study Director", Description: "Director name"},
		{Name: "Study Director Site", Description: "Lab location"},
		{Name: "Priority", Description: "Urgency level", AllowedValues: []string{"Low", "Medium", "High", "Critical"}},
		{Name: "Date Results Required", Description: "Deadline for results"},
		{Name: "Sample Type", Description: "Type of sample"},
		{Name: "Sample ID", Description: "Unique sample identifier"},
		{Name: "Project Code", Description: "Project or cost center code"},
		{Name: "Special Instructions", Description: "Special handling instructions"},
	})
	if err != nil {
		panic(err)
	}
	return s
}

type schemaDoc struct {
	Fields []Field `yaml:"fields"`
}

// LoadSchema reads a YAML schema document:
//
//	fields:
//	  - name: Client
//	    description: Name of requester
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var doc schemaDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return NewSchema(doc.Fields)
}

// Fields returns the ordered field list.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the ordered field names.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Has reports whether name belongs to the schema.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Size returns the number of schema fields.
func (s *Schema) Size() int {
	return len(s.fields)
}

// Validate reports whether value is acceptable for the named field. Unknown
// fields and blank values are invalid; fields with an allowed-value list
// accept only listed values.
func (s *Schema) Validate(name, value string) bool {
	i, ok := s.index[name]
	if !ok {
		return false
	}
	if strings.TrimSpace(value) == "" {
		return false
	}
	allowed := s.fields[i].AllowedValues
	if len(allowed) == 0 {
		return true
	}
	for _, v := range allowed {
		if v == value {
			return true
		}
	}
	return false
}
