package annotate

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/semlayer/semlayer/internal/semantic"
)

// ErrUnknownPrivacyLevel is returned when an annotation names an unknown privacy level
var ErrUnknownPrivacyLevel = errors.New("unknown privacy level")

// Document is the YAML form of a set of annotations:
//
//	tables:
//	  users:
//	    description: Registered users
//	    synonyms: [accounts, customers]
//	    columns:
//	      email:
//	        description: Login email
//	        privacy_level: confidential
//	    relationships:
//	      posts:
//	        description: Posts written by the user
//	glossary:
//	  MAU: Monthly active users
type Document struct {
	Tables   map[string]TableDocument `yaml:"tables"`
	Glossary map[string]string        `yaml:"glossary"`
}

// TableDocument is the YAML form of a table annotation
type TableDocument struct {
	Description        string                          `yaml:"description"`
	Synonyms           []string                        `yaml:"synonyms"`
	SQLFilters         []string                        `yaml:"sql_filters"`
	ApplicationContext *string                         `yaml:"application_context"`
	BusinessContext    *string                         `yaml:"business_context"`
	Columns            map[string]ColumnDocument       `yaml:"columns"`
	Relationships      map[string]RelationshipDocument `yaml:"relationships"`
}

// ColumnDocument is the YAML form of a column annotation
type ColumnDocument struct {
	Description      string   `yaml:"description"`
	PrivacyLevel     string   `yaml:"privacy_level"`
	SampleValues     []string `yaml:"sample_values"`
	Synonyms         []string `yaml:"synonyms"`
	ApplicationRules []string `yaml:"application_rules"`
}

// RelationshipDocument is the YAML form of a relationship annotation
type RelationshipDocument struct {
	Description string `yaml:"description"`
}

// LoadFile reads a YAML annotation file into a new catalog
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations file: %w", err)
	}

	catalog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

// Parse reads YAML annotations into a new catalog. A table entry without a description
// still registers its column and relationship annotations.
func Parse(data []byte) (*Catalog, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse annotations: %w", err)
	}

	catalog := NewCatalog()
	if err := doc.apply(catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (d *Document) apply(catalog *Catalog) error {
	for table, t := range d.Tables {
		if t.Description != "" {
			err := catalog.Table(table, TableInfo{
				Description:        t.Description,
				Synonyms:           t.Synonyms,
				SQLFilters:         t.SQLFilters,
				ApplicationContext: t.ApplicationContext,
				BusinessContext:    t.BusinessContext,
			})
			if err != nil {
				return fmt.Errorf("table %s: %w", table, err)
			}
		}

		for column, c := range t.Columns {
			info := ColumnInfo{
				Description:      c.Description,
				SampleValues:     c.SampleValues,
				Synonyms:         c.Synonyms,
				ApplicationRules: c.ApplicationRules,
			}
			if c.PrivacyLevel != "" {
				level, err := semantic.ParsePrivacyLevel(c.PrivacyLevel)
				if err != nil {
					return fmt.Errorf("table %s column %s: %w: %s", table, column, ErrUnknownPrivacyLevel, c.PrivacyLevel)
				}
				info.PrivacyLevel = &level
			}
			catalog.Column(table, column, info)
		}

		for name, r := range t.Relationships {
			catalog.Relationship(table, name, RelationshipInfo{Description: r.Description})
		}
	}

	for term, definition := range d.Glossary {
		catalog.GlossaryTerm(term, definition)
	}

	return nil
}
