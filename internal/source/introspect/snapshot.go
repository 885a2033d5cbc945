package introspect

import (
	"sort"

	"github.com/semlayer/semlayer/internal/bridge"
	"github.com/semlayer/semlayer/internal/sqltype"
)

// Table is an introspected base table
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKeys []string
	ForeignKeys []ForeignKey
}

// Column is an introspected column with its type as reported by the database
type Column struct {
	Name     string
	DataType string
}

// ForeignKey is a foreign-key constraint. Columns and RefColumns pair up by position.
type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
}

// Snapshot is the in-memory result of introspecting a database. It implements
// bridge.SchemaSource with one model per table, ordered by table name.
//
// Each foreign key yields a many-to-one relationship on the owning table, named after
// the constraint, and a one-to-many relationship on the referenced table named after
// the owning table. A second foreign key from the same owning table gets the constraint
// name as a suffix.
type Snapshot struct {
	tables []*Table
}

// NewSnapshot creates a snapshot of tables
func NewSnapshot(tables []*Table) *Snapshot {
	sorted := make([]*Table, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Name < sorted[b].Name
	})
	return &Snapshot{tables: sorted}
}

// Tables returns the introspected tables ordered by name
func (s *Snapshot) Tables() []*Table {
	return s.tables
}

// Models implements bridge.SchemaSource
func (s *Snapshot) Models() []bridge.Model {
	reverse := make(map[string][]bridge.RelationDef)
	for _, owner := range s.tables {
		used := make(map[string]bool)
		for _, fk := range owner.ForeignKeys {
			name := owner.Name
			key := fk.RefTable + "\x00" + owner.Name
			if used[key] {
				name = owner.Name + "_" + fk.Name
			}
			used[key] = true

			reverse[fk.RefTable] = append(reverse[fk.RefTable], bridge.RelationDef{
				Name:        name,
				TargetTable: owner.Name,
				Collection:  true,
				Pairs:       pairs(fk.RefTable, fk.RefColumns, owner.Name, fk.Columns),
			})
		}
	}

	models := make([]bridge.Model, 0, len(s.tables))
	for _, t := range s.tables {
		model := bridge.Model{
			Name:        t.Name,
			Table:       t.Name,
			Columns:     make([]bridge.ColumnDef, 0, len(t.Columns)),
			PrimaryKeys: t.PrimaryKeys,
		}

		for _, c := range t.Columns {
			col := bridge.ColumnDef{Name: c.Name, Type: sqltype.Parse(c.DataType)}
			for _, fk := range t.ForeignKeys {
				for idx, fkCol := range fk.Columns {
					if fkCol == c.Name && idx < len(fk.RefColumns) {
						col.ForeignKeys = append(col.ForeignKeys, bridge.ColumnRef{Table: fk.RefTable, Column: fk.RefColumns[idx]})
					}
				}
			}
			model.Columns = append(model.Columns, col)
		}

		for _, fk := range t.ForeignKeys {
			model.Relationships = append(model.Relationships, bridge.RelationDef{
				Name:        fk.Name,
				TargetTable: fk.RefTable,
				Pairs:       pairs(t.Name, fk.Columns, fk.RefTable, fk.RefColumns),
			})
		}
		model.Relationships = append(model.Relationships, reverse[t.Name]...)

		models = append(models, model)
	}
	return models
}

func pairs(localTable string, localColumns []string, remoteTable string, remoteColumns []string) []bridge.JoinPair {
	n := min(len(localColumns), len(remoteColumns))
	result := make([]bridge.JoinPair, 0, n)
	for i := range n {
		result = append(result, bridge.JoinPair{
			Local:  bridge.ColumnRef{Table: localTable, Column: localColumns[i]},
			Remote: bridge.ColumnRef{Table: remoteTable, Column: remoteColumns[i]},
		})
	}
	return result
}
