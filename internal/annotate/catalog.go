// Package annotate attaches descriptive metadata to model declarations.
//
// Annotations live in a Catalog, a side-table keyed by table name, (table, column) and
// (table, relationship). They are registered when models are declared and read later by
// the extraction bridge, which applies its own defaults for anything missing.
package annotate

import (
	"errors"
	"sync"

	"github.com/semlayer/semlayer/internal/semantic"
)

// ErrEmptyDescription is returned when a table annotation has no description
var ErrEmptyDescription = errors.New("table annotation requires a description")

// TableInfo is the descriptive metadata for a table
type TableInfo struct {
	Description        string
	Synonyms           []string
	SQLFilters         []string
	ApplicationContext *string
	BusinessContext    *string
}

// ColumnInfo is the descriptive metadata for a column. A nil PrivacyLevel means the
// column was not classified.
type ColumnInfo struct {
	Description      string
	PrivacyLevel     *semantic.PrivacyLevel
	SampleValues     []string
	Synonyms         []string
	ApplicationRules []string
}

// RelationshipInfo is the descriptive metadata for a relationship
type RelationshipInfo struct {
	Description string
}

// TableAnnotated is implemented by model types that describe their own table
type TableAnnotated interface {
	SemanticTable() TableInfo
}

type columnKey struct {
	table  string
	column string
}

type relationshipKey struct {
	table string
	name  string
}

// Catalog holds annotations for any number of tables. It is safe for concurrent use.
type Catalog struct {
	tables        map[string]TableInfo
	columns       map[columnKey]ColumnInfo
	relationships map[relationshipKey]RelationshipInfo
	glossary      map[string]string
	mu            sync.RWMutex
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		tables:        make(map[string]TableInfo),
		columns:       make(map[columnKey]ColumnInfo),
		relationships: make(map[relationshipKey]RelationshipInfo),
		glossary:      make(map[string]string),
	}
}

// Table annotates a table. The description is required; nothing else is checked and
// the table's columns are never inspected. A later call for the same table replaces
// the earlier one.
func (c *Catalog) Table(table string, info TableInfo) error {
	if info.Description == "" {
		return ErrEmptyDescription
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tables[table] = info
	return nil
}

// Column annotates a column of a table
func (c *Catalog) Column(table, column string, info ColumnInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.columns[columnKey{table: table, column: column}] = info
}

// Relationship annotates a named relationship declared on a table
func (c *Catalog) Relationship(table, name string, info RelationshipInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.relationships[relationshipKey{table: table, name: name}] = info
}

// GlossaryTerm records an application glossary entry
func (c *Catalog) GlossaryTerm(term, definition string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.glossary[term] = definition
}

// TableInfo returns the annotation for a table
func (c *Catalog) TableInfo(table string) (TableInfo, bool) {
	if c == nil {
		return TableInfo{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.tables[table]
	return info, ok
}

// ColumnInfo returns the annotation for a column
func (c *Catalog) ColumnInfo(table, column string) (ColumnInfo, bool) {
	if c == nil {
		return ColumnInfo{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.columns[columnKey{table: table, column: column}]
	return info, ok
}

// RelationshipInfo returns the annotation for a relationship
func (c *Catalog) RelationshipInfo(table, name string) (RelationshipInfo, bool) {
	if c == nil {
		return RelationshipInfo{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.relationships[relationshipKey{table: table, name: name}]
	return info, ok
}

// Glossary returns a copy of the glossary entries
func (c *Catalog) Glossary() map[string]string {
	result := make(map[string]string)
	if c == nil {
		return result
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, v := range c.glossary {
		result[k] = v
	}
	return result
}

// Merge copies every annotation from other into c, replacing existing entries
func (c *Catalog) Merge(other *Catalog) {
	if other == nil || other == c {
		return
	}

	other.mu.RLock()
	defer other.mu.RUnlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range other.tables {
		c.tables[k] = v
	}
	for k, v := range other.columns {
		c.columns[k] = v
	}
	for k, v := range other.relationships {
		c.relationships[k] = v
	}
	for k, v := range other.glossary {
		c.glossary[k] = v
	}
}

// Privacy returns a pointer to level, for use in ColumnInfo literals
func Privacy(level semantic.PrivacyLevel) *semantic.PrivacyLevel {
	return &level
}
