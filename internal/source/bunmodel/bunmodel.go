// Package bunmodel exposes bun models as a bridge.SchemaSource. bun's own table registry
// provides columns, primary keys and relations; `semantic` struct tags on the models
// provide annotations.
package bunmodel

import (
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/schema"

	"github.com/semlayer/semlayer/internal/annotate"
	"github.com/semlayer/semlayer/internal/bridge"
	"github.com/semlayer/semlayer/internal/sqltype"
)

// Open creates a PostgreSQL bun.DB. No connection is made until the first query.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))

	db := bun.NewDB(sqldb, pgdialect.New())

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	return db
}

// Source is the set of models registered with a bun.DB
type Source struct {
	db     *bun.DB
	models []any
}

// New registers models with db and returns them as a source. Models are pointers to
// structs such as (*User)(nil). Many-to-many join models must come before the models
// that use them.
func New(db *bun.DB, models ...any) *Source {
	db.RegisterModel(models...)
	return &Source{db: db, models: models}
}

func (s *Source) table(model any) *schema.Table {
	typ := reflect.TypeOf(model)
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return s.db.Table(typ)
}

// Annotate reads the struct-tag annotations of every model into catalog
func (s *Source) Annotate(catalog *annotate.Catalog) error {
	for _, model := range s.models {
		t := s.table(model)
		if err := annotate.FromStruct(t.Name, model, catalog); err != nil {
			return fmt.Errorf("model %s: %w", t.TypeName, err)
		}
	}
	return nil
}

// Catalog reads the models' struct-tag annotations, then lays file on top. Entries in
// file replace the struct-tag entries for the same table, column or relationship.
func (s *Source) Catalog(file *annotate.Catalog) (*annotate.Catalog, error) {
	catalog := annotate.NewCatalog()
	if err := s.Annotate(catalog); err != nil {
		return nil, err
	}
	catalog.Merge(file)
	return catalog, nil
}

// Models implements bridge.SchemaSource in registration order
func (s *Source) Models() []bridge.Model {
	models := make([]bridge.Model, 0, len(s.models))
	for _, model := range s.models {
		models = append(models, modelOf(s.table(model)))
	}
	return models
}

func modelOf(t *schema.Table) bridge.Model {
	relations := sortedRelations(t)

	implied := make(map[string][]bridge.ColumnRef)
	for _, rel := range relations {
		if rel.Type != schema.BelongsToRelation {
			continue
		}
		for i := range min(len(rel.BasePKs), len(rel.JoinPKs)) {
			name := rel.BasePKs[i].Name
			implied[name] = append(implied[name], bridge.ColumnRef{Table: rel.JoinTable.Name, Column: rel.JoinPKs[i].Name})
		}
	}

	model := bridge.Model{
		Name:    t.TypeName,
		Table:   t.Name,
		Columns: make([]bridge.ColumnDef, 0, len(t.Fields)),
	}

	for _, f := range t.Fields {
		model.Columns = append(model.Columns, bridge.ColumnDef{
			Name:        f.Name,
			Type:        sqltype.Parse(sqlTypeOf(f)),
			ForeignKeys: implied[f.Name],
		})
	}
	for _, pk := range t.PKs {
		model.PrimaryKeys = append(model.PrimaryKeys, pk.Name)
	}

	for _, rel := range relations {
		model.Relationships = append(model.Relationships, relationOf(t, rel))
	}
	return model
}

func sqlTypeOf(f *schema.Field) string {
	typ := f.DiscoveredSQLType
	if f.UserSQLType != "" {
		typ = f.UserSQLType
	}
	if f.Tag.HasOption("array") && !strings.HasSuffix(typ, "[]") {
		typ += "[]"
	}
	return typ
}

func relationOf(t *schema.Table, rel *schema.Relation) bridge.RelationDef {
	def := bridge.RelationDef{
		Name:        rel.Field.GoName,
		TargetTable: rel.JoinTable.Name,
		Collection:  rel.Type == schema.HasManyRelation || rel.Type == schema.ManyToManyRelation,
	}

	if rel.Type == schema.ManyToManyRelation && rel.M2MTable != nil {
		def.Pairs = append(def.Pairs, fieldPairs(t.Name, rel.BasePKs, rel.M2MTable.Name, rel.M2MBasePKs)...)
		def.Pairs = append(def.Pairs, fieldPairs(rel.JoinTable.Name, rel.JoinPKs, rel.M2MTable.Name, rel.M2MJoinPKs)...)
		return def
	}

	def.Pairs = fieldPairs(t.Name, rel.BasePKs, rel.JoinTable.Name, rel.JoinPKs)
	return def
}

func fieldPairs(localTable string, local []*schema.Field, remoteTable string, remote []*schema.Field) []bridge.JoinPair {
	n := min(len(local), len(remote))
	pairs := make([]bridge.JoinPair, 0, n)
	for i := range n {
		pairs = append(pairs, bridge.JoinPair{
			Local:  bridge.ColumnRef{Table: localTable, Column: local[i].Name},
			Remote: bridge.ColumnRef{Table: remoteTable, Column: remote[i].Name},
		})
	}
	return pairs
}

// sortedRelations returns the relations of t in struct declaration order
func sortedRelations(t *schema.Table) []*schema.Relation {
	relations := make([]*schema.Relation, 0, len(t.Relations))
	for _, rel := range t.Relations {
		relations = append(relations, rel)
	}
	sort.Slice(relations, func(a, b int) bool {
		return indexLess(relations[a].Field.Index, relations[b].Field.Index)
	})
	return relations
}

func indexLess(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
