package bridge

import "github.com/semlayer/semlayer/internal/sqltype"

// SchemaSource exposes the mapped models of an application. Models must be fully resolved
// in memory: the bridge calls Models once per sync and performs no I/O of its own.
type SchemaSource interface {
	Models() []Model
}

// Model describes one mapped model and the table it persists to
type Model struct {
	Name          string
	Table         string
	Columns       []ColumnDef
	PrimaryKeys   []string
	Relationships []RelationDef
}

// ColumnDef is a mapped column in declaration order
type ColumnDef struct {
	Name        string
	Type        sqltype.Type
	ForeignKeys []ColumnRef
}

// RelationDef is a relationship declared on a model. Collection is true when the
// relationship yields many target rows. Pairs are the (local, remote) column pairs of the
// join, in order.
type RelationDef struct {
	Name        string
	TargetTable string
	Collection  bool
	Pairs       []JoinPair
}

// ColumnRef names a column of a table
type ColumnRef struct {
	Table  string
	Column string
}

func (r ColumnRef) String() string {
	return r.Table + "." + r.Column
}

// JoinPair is one equality of a join condition
type JoinPair struct {
	Local  ColumnRef
	Remote ColumnRef
}

// StaticSource is a SchemaSource backed by a fixed list of models
type StaticSource []Model

// Models returns the models in order
func (s StaticSource) Models() []Model {
	return s
}
