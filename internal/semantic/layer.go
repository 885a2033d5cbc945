// Package semantic defines the semantic layer: tables, columns and relationships enriched
// with human-readable descriptions, synonyms, privacy levels and business context.
// A Layer is what the extraction bridge produces and what downstream tools consume.
package semantic

import (
	"fmt"
	"sort"
	"strings"
)

// PrivacyLevel classifies how sensitive the data in a column is
type PrivacyLevel int

const (
	PrivacyPublic PrivacyLevel = iota
	PrivacyRestricted
	PrivacyConfidential
)

// String returns the serialized tag of the privacy level
func (p PrivacyLevel) String() string {
	switch p {
	case PrivacyPublic:
		return "public"
	case PrivacyRestricted:
		return "restricted"
	case PrivacyConfidential:
		return "confidential"
	default:
		return "unknown"
	}
}

// ParsePrivacyLevel converts a tag such as "confidential" to a PrivacyLevel.
// Matching is case-insensitive.
func ParsePrivacyLevel(s string) (PrivacyLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return PrivacyPublic, nil
	case "restricted":
		return PrivacyRestricted, nil
	case "confidential":
		return PrivacyConfidential, nil
	default:
		return 0, fmt.Errorf("unknown privacy level: %s", s)
	}
}

// RelationshipType is the cardinality of a relationship between two tables
type RelationshipType int

const (
	OneToMany RelationshipType = iota
	ManyToOne
	ManyToMany
)

// String returns the serialized tag of the relationship type
func (r RelationshipType) String() string {
	switch r {
	case OneToMany:
		return "one-to-many"
	case ManyToOne:
		return "many-to-one"
	case ManyToMany:
		return "many-to-many"
	default:
		return "unknown"
	}
}

// ParseRelationshipType converts a tag such as "many-to-one" to a RelationshipType
func ParseRelationshipType(s string) (RelationshipType, error) {
	switch s {
	case "one-to-many":
		return OneToMany, nil
	case "many-to-one":
		return ManyToOne, nil
	case "many-to-many":
		return ManyToMany, nil
	default:
		return 0, fmt.Errorf("unknown relationship type: %s", s)
	}
}

// Column is a database column with its semantic metadata.
// References is set if and only if IsForeignKey is true.
type Column struct {
	Name             string
	DataType         string
	Description      string
	PrivacyLevel     PrivacyLevel
	SampleValues     []string
	Synonyms         []string
	IsForeignKey     bool
	References       *string // table.column
	ApplicationRules []string
}

// Table is a database table with its columns and semantic metadata
type Table struct {
	Name               string
	Description        string
	Columns            []Column
	PrimaryKey         *string
	Synonyms           []string
	SQLFilters         []string
	ApplicationContext *string
	BusinessContext    *string
}

// Column returns the column with the given name
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Relationship links two tables through a textual SQL join condition
type Relationship struct {
	FromTable        string
	ToTable          string
	JoinCondition    string
	RelationshipType RelationshipType
	Description      string
}

// Layer is the aggregate semantic metadata for a set of tables.
//
// A Layer is not safe for concurrent use. Tables and Relationships are rebuilt in place
// by the bridge on every sync; ApplicationGlossary belongs to the caller and is never
// touched by a sync.
type Layer struct {
	Tables              map[string]Table
	Relationships       []Relationship
	ApplicationGlossary map[string]string
}

// NewLayer creates an empty Layer
func NewLayer() *Layer {
	return &Layer{
		Tables:              make(map[string]Table),
		Relationships:       make([]Relationship, 0),
		ApplicationGlossary: make(map[string]string),
	}
}

// AddTable registers a table, replacing any table with the same name
func (l *Layer) AddTable(t Table) {
	if l.Tables == nil {
		l.Tables = make(map[string]Table)
	}
	l.Tables[t.Name] = t
}

// AddRelationship appends a relationship. Duplicates are kept.
func (l *Layer) AddRelationship(r Relationship) {
	l.Relationships = append(l.Relationships, r)
}

// SetGlossaryTerm records a glossary definition
func (l *Layer) SetGlossaryTerm(term, definition string) {
	if l.ApplicationGlossary == nil {
		l.ApplicationGlossary = make(map[string]string)
	}
	l.ApplicationGlossary[term] = definition
}

// Reset clears tables and relationships, leaving the glossary alone
func (l *Layer) Reset() {
	clear(l.Tables)
	if l.Tables == nil {
		l.Tables = make(map[string]Table)
	}
	l.Relationships = make([]Relationship, 0)
}

// TableNames returns the table names in sorted order
func (l *Layer) TableNames() []string {
	names := make([]string, 0, len(l.Tables))
	for name := range l.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
