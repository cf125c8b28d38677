package recipe

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// The recipe book is a YAML file describing every recipe the kitchen serves:
//
//	recipes:
//	  - name: online-news-query
//	    description: Query online news collections
//	    admin_only: false
//	    restricted_fields:
//	      full_text: true
//	    params:
//	      QUERY: {type: string, title: Search query, required: true}
//	      START: {type: date, title: Start date, required: true}
//	      EMAIL_TO: {type: list, title: Email notification list}

type bookFile struct {
	Recipes []bookEntry `yaml:"recipes"`
}

type bookEntry struct {
	Name             string           `yaml:"name"`
	Description      string           `yaml:"description"`
	AdminOnly        bool             `yaml:"admin_only"`
	RestrictedFields map[string]bool  `yaml:"restricted_fields"`
	Params           map[string]Field `yaml:"params"`
}

// LoadBook reads the recipe book and builds the registry from it.
func LoadBook(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe book: %w", err)
	}
	return ParseBook(raw)
}

func ParseBook(raw []byte) (*Registry, error) {
	var book bookFile
	if err := yaml.Unmarshal(raw, &book); err != nil {
		return nil, fmt.Errorf("parse recipe book: %w", err)
	}
	metas := make([]Meta, 0, len(book.Recipes))
	for _, entry := range book.Recipes {
		var schema Schema
		if len(entry.Params) > 0 {
			schema = Schema(entry.Params)
		}
		metas = append(metas, Meta{
			Name:             entry.Name,
			Description:      entry.Description,
			AdminOnly:        entry.AdminOnly,
			RestrictedFields: entry.RestrictedFields,
			Schema:           schema,
		})
	}
	return NewRegistry(metas...)
}
