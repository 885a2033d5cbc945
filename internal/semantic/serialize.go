package semantic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// layerJSON and friends fix the field names and field order of the serialized layer.
// Downstream tooling depends on this shape.
type layerJSON struct {
	Tables        map[string]tableJSON `json:"tables"`
	Relationships []relationshipJSON   `json:"relationships"`
}

type tableJSON struct {
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	PrimaryKey         *string      `json:"primary_key"`
	Synonyms           []string     `json:"synonyms"`
	SQLFilters         []string     `json:"sql_filters"`
	ApplicationContext *string      `json:"application_context"`
	BusinessContext    *string      `json:"business_context"`
	Columns            []columnJSON `json:"columns"`
}

type columnJSON struct {
	Name             string   `json:"name"`
	DataType         string   `json:"data_type"`
	Description      string   `json:"description"`
	PrivacyLevel     string   `json:"privacy_level"`
	SampleValues     []string `json:"sample_values"`
	Synonyms         []string `json:"synonyms"`
	IsForeignKey     bool     `json:"is_foreign_key"`
	References       *string  `json:"references"`
	ApplicationRules []string `json:"application_rules"`
}

type relationshipJSON struct {
	FromTable        string `json:"from_table"`
	ToTable          string `json:"to_table"`
	JoinCondition    string `json:"join_condition"`
	RelationshipType string `json:"relationship_type"`
	Description      string `json:"description"`
}

// ToMap converts the layer into a nested map using only JSON-native values
// (map[string]any, []any, string, bool and nil). Enums become their string tags and
// absent optional values are nil.
func (l *Layer) ToMap() map[string]any {
	tables := make(map[string]any, len(l.Tables))
	for name, table := range l.Tables {
		columns := make([]any, 0, len(table.Columns))
		for _, c := range table.Columns {
			columns = append(columns, map[string]any{
				"name":              c.Name,
				"data_type":         c.DataType,
				"description":       c.Description,
				"privacy_level":     c.PrivacyLevel.String(),
				"sample_values":     stringList(c.SampleValues),
				"synonyms":          stringList(c.Synonyms),
				"is_foreign_key":    c.IsForeignKey,
				"references":        optionalString(c.References),
				"application_rules": stringList(c.ApplicationRules),
			})
		}

		tables[name] = map[string]any{
			"name":                table.Name,
			"description":         table.Description,
			"primary_key":         optionalString(table.PrimaryKey),
			"synonyms":            stringList(table.Synonyms),
			"sql_filters":         stringList(table.SQLFilters),
			"application_context": optionalString(table.ApplicationContext),
			"business_context":    optionalString(table.BusinessContext),
			"columns":             columns,
		}
	}

	relationships := make([]any, 0, len(l.Relationships))
	for _, r := range l.Relationships {
		relationships = append(relationships, map[string]any{
			"from_table":        r.FromTable,
			"to_table":          r.ToTable,
			"join_condition":    r.JoinCondition,
			"relationship_type": r.RelationshipType.String(),
			"description":       r.Description,
		})
	}

	return map[string]any{
		"tables":        tables,
		"relationships": relationships,
	}
}

// ToJSON renders the layer as JSON indented with four spaces
func (l *Layer) ToJSON() (string, error) {
	data, err := l.marshal()
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(data, "\n")), nil
}

// SaveToFile writes the layer as indented JSON, creating or truncating the file
func (l *Layer) SaveToFile(path string) error {
	data, err := l.marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write semantic layer to %s: %w", path, err)
	}
	return nil
}

// FromJSON parses a serialized layer. The glossary is not part of the serialized form
// and comes back empty.
func FromJSON(data []byte) (*Layer, error) {
	var doc layerJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse semantic layer: %w", err)
	}

	layer := NewLayer()
	for _, t := range doc.Tables {
		table := Table{
			Name:               t.Name,
			Description:        t.Description,
			Columns:            make([]Column, 0, len(t.Columns)),
			PrimaryKey:         t.PrimaryKey,
			Synonyms:           t.Synonyms,
			SQLFilters:         t.SQLFilters,
			ApplicationContext: t.ApplicationContext,
			BusinessContext:    t.BusinessContext,
		}
		for _, c := range t.Columns {
			level, err := ParsePrivacyLevel(c.PrivacyLevel)
			if err != nil {
				return nil, fmt.Errorf("table %s column %s: %w", t.Name, c.Name, err)
			}
			table.Columns = append(table.Columns, Column{
				Name:             c.Name,
				DataType:         c.DataType,
				Description:      c.Description,
				PrivacyLevel:     level,
				SampleValues:     c.SampleValues,
				Synonyms:         c.Synonyms,
				IsForeignKey:     c.IsForeignKey,
				References:       c.References,
				ApplicationRules: c.ApplicationRules,
			})
		}
		layer.AddTable(table)
	}

	for i, r := range doc.Relationships {
		relType, err := ParseRelationshipType(r.RelationshipType)
		if err != nil {
			return nil, fmt.Errorf("relationship %d: %w", i, err)
		}
		layer.AddRelationship(Relationship{
			FromTable:        r.FromTable,
			ToTable:          r.ToTable,
			JoinCondition:    r.JoinCondition,
			RelationshipType: relType,
			Description:      r.Description,
		})
	}

	return layer, nil
}

// Load reads a layer previously written by SaveToFile
func Load(path string) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read semantic layer from %s: %w", path, err)
	}
	return FromJSON(data)
}

func (l *Layer) marshal() ([]byte, error) {
	doc := layerJSON{
		Tables:        make(map[string]tableJSON, len(l.Tables)),
		Relationships: make([]relationshipJSON, 0, len(l.Relationships)),
	}

	for name, t := range l.Tables {
		columns := make([]columnJSON, 0, len(t.Columns))
		for _, c := range t.Columns {
			columns = append(columns, columnJSON{
				Name:             c.Name,
				DataType:         c.DataType,
				Description:      c.Description,
				PrivacyLevel:     c.PrivacyLevel.String(),
				SampleValues:     c.SampleValues,
				Synonyms:         c.Synonyms,
				IsForeignKey:     c.IsForeignKey,
				References:       c.References,
				ApplicationRules: c.ApplicationRules,
			})
		}
		doc.Tables[name] = tableJSON{
			Name:               t.Name,
			Description:        t.Description,
			PrimaryKey:         t.PrimaryKey,
			Synonyms:           t.Synonyms,
			SQLFilters:         t.SQLFilters,
			ApplicationContext: t.ApplicationContext,
			BusinessContext:    t.BusinessContext,
			Columns:            columns,
		}
	}

	for _, r := range l.Relationships {
		doc.Relationships = append(doc.Relationships, relationshipJSON{
			FromTable:        r.FromTable,
			ToTable:          r.ToTable,
			JoinCondition:    r.JoinCondition,
			RelationshipType: r.RelationshipType.String(),
			Description:      r.Description,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode semantic layer: %w", err)
	}
	return buf.Bytes(), nil
}

func stringList(values []string) any {
	if values == nil {
		return nil
	}
	list := make([]any, len(values))
	for i, v := range values {
		list[i] = v
	}
	return list
}

func optionalString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
