// Package bridge extracts a semantic layer from mapped models.
//
// A Bridge walks a SchemaSource, looks up annotations in a Catalog, normalizes column
// types and synthesizes join conditions and cardinality for every relationship. Missing
// annotations never fail a sync; they degrade to generated descriptions.
package bridge

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/semlayer/semlayer/internal/annotate"
	"github.com/semlayer/semlayer/internal/semantic"
	"github.com/semlayer/semlayer/internal/sqltype"
)

// Option configures a Bridge
type Option func(*Bridge)

// WithLogger sets the logger used during sync
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Bridge keeps a semantic layer in sync with a schema source.
// A Bridge is not safe for concurrent use.
type Bridge struct {
	source  SchemaSource
	catalog *annotate.Catalog
	layer   *semantic.Layer
	models  map[string]Model
	logger  *zap.Logger
}

// New creates a bridge over source. A nil catalog means no model is annotated.
func New(source SchemaSource, catalog *annotate.Catalog, opts ...Option) *Bridge {
	b := &Bridge{
		source:  source,
		catalog: catalog,
		layer:   semantic.NewLayer(),
		models:  make(map[string]Model),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SemanticLayer returns the current layer without extracting anything
func (b *Bridge) SemanticLayer() *semantic.Layer {
	return b.layer
}

// Sync rebuilds the tables and relationships of the layer from the source and returns
// the layer. The glossary is left untouched. Repeated syncs over an unchanged source
// produce the same layer.
func (b *Bridge) Sync() *semantic.Layer {
	b.layer.Reset()
	clear(b.models)

	var models []Model
	if b.source != nil {
		models = b.source.Models()
	}

	for _, model := range models {
		b.models[model.Table] = model

		b.logger.Debug("extracting model",
			zap.String("model", model.Name),
			zap.String("table", model.Table),
			zap.Int("columns", len(model.Columns)),
			zap.Int("relationships", len(model.Relationships)),
		)

		b.layer.AddTable(b.extractTable(model))
		for _, rel := range b.extractRelationships(model) {
			b.layer.AddRelationship(rel)
		}
	}

	b.logger.Info("semantic layer synced",
		zap.Int("models", len(models)),
		zap.Int("tables", len(b.layer.Tables)),
		zap.Int("relationships", len(b.layer.Relationships)),
	)

	return b.layer
}

func (b *Bridge) extractTable(model Model) semantic.Table {
	table := semantic.Table{
		Name:        model.Table,
		Description: fmt.Sprintf("Table: %s", model.Table),
		Columns:     make([]semantic.Column, 0, len(model.Columns)),
	}

	if info, ok := b.catalog.TableInfo(model.Table); ok {
		if info.Description != "" {
			table.Description = info.Description
		}
		table.Synonyms = info.Synonyms
		table.SQLFilters = info.SQLFilters
		table.ApplicationContext = info.ApplicationContext
		table.BusinessContext = info.BusinessContext
	}

	if len(model.PrimaryKeys) > 0 {
		pk := model.PrimaryKeys[0]
		table.PrimaryKey = &pk
	}

	for _, col := range model.Columns {
		table.Columns = append(table.Columns, b.extractColumn(model.Table, col))
	}

	return table
}

func (b *Bridge) extractColumn(table string, col ColumnDef) semantic.Column {
	column := semantic.Column{
		Name:         col.Name,
		DataType:     sqltype.Canonical(col.Type),
		Description:  fmt.Sprintf("Column: %s", col.Name),
		PrivacyLevel: semantic.PrivacyPublic,
	}

	if info, ok := b.catalog.ColumnInfo(table, col.Name); ok {
		if info.Description != "" {
			column.Description = info.Description
		}
		if info.PrivacyLevel != nil {
			column.PrivacyLevel = *info.PrivacyLevel
		}
		column.SampleValues = info.SampleValues
		column.Synonyms = info.Synonyms
		column.ApplicationRules = info.ApplicationRules
	}

	if len(col.ForeignKeys) > 0 {
		ref := col.ForeignKeys[0].String()
		column.IsForeignKey = true
		column.References = &ref
	}

	return column
}

func (b *Bridge) extractRelationships(model Model) []semantic.Relationship {
	relationships := make([]semantic.Relationship, 0, len(model.Relationships))

	for _, def := range model.Relationships {
		rel := semantic.Relationship{
			FromTable:        model.Table,
			ToTable:          def.TargetTable,
			JoinCondition:    JoinCondition(def.Pairs),
			RelationshipType: semantic.ManyToOne,
			Description:      fmt.Sprintf("Relationship between %s and %s", model.Table, def.TargetTable),
		}
		if def.Collection {
			rel.RelationshipType = semantic.OneToMany
		}
		if info, ok := b.catalog.RelationshipInfo(model.Table, def.Name); ok && info.Description != "" {
			rel.Description = info.Description
		}
		relationships = append(relationships, rel)
	}

	return relationships
}
