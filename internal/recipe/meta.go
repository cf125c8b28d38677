// Package recipe holds the recipe registry: named analysis flows with their
// parameter schemas, permission flags, and (in worker processes) executables.
package recipe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
)

// Executable is a recipe body. Only worker processes bind executables; the
// API service works from metadata alone.
type Executable func(ctx context.Context, params domain.Params) (any, error)

// Meta describes one recipe. Read-only to the orchestration core.
type Meta struct {
	Name             string
	Description      string
	AdminOnly        bool
	RestrictedFields map[string]bool
	Schema           Schema
	Executable       Executable
}

func (m Meta) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("recipe name is required")
	}
	for field, spec := range m.Schema {
		if strings.TrimSpace(field) == "" {
			return fmt.Errorf("recipe %q: schema contains an unnamed field", m.Name)
		}
		if !spec.Type.known() {
			return fmt.Errorf("recipe %q: field %q has unknown type %q", m.Name, field, spec.Type)
		}
	}
	return nil
}

// FieldType enumerates the parameter types a recipe schema may declare.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeDate   FieldType = "date"
	TypeList   FieldType = "list"
)

func (t FieldType) known() bool {
	switch t {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeDate, TypeList:
		return true
	}
	return false
}

// Field is one declared parameter.
type Field struct {
	Type     FieldType `yaml:"type"`
	Title    string    `yaml:"title"`
	Required bool      `yaml:"required"`
	Default  any       `yaml:"default"`
}

// Schema maps parameter names to their declarations. A nil schema means the
// recipe accepts arbitrary parameters unchanged.
type Schema map[string]Field

// Describe renders the schema for error diagnostics, one line per field.
func (s Schema) Describe() map[string]string {
	if s == nil {
		return nil
	}
	out := make(map[string]string, len(s))
	for name, field := range s {
		desc := string(field.Type)
		if field.Required {
			desc += ", required"
		}
		if field.Title != "" {
			desc += ": " + field.Title
		}
		out[name] = desc
	}
	return out
}

// FieldNames returns the declared parameter names in sorted order.
func (s Schema) FieldNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// emailField finds the schema's email notification list field, if declared.
func (s Schema) emailField() (string, bool) {
	for name, field := range s {
		if strings.EqualFold(name, "email_to") && field.Type == TypeList {
			return name, true
		}
	}
	return "", false
}
