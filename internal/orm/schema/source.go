package schema

import (
	"github.com/semlayer/semlayer/internal/bridge"
	"github.com/semlayer/semlayer/internal/sqltype"
)

// Models returns the registered resources as bridge models in registration order.
// A belongs_to relationship also marks its local foreign-key columns as referencing
// the target.
func (r *Registry) Models() []bridge.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := resolver{schemas: r.schemas}
	models := make([]bridge.Model, 0, len(r.order))

	for _, name := range r.order {
		schema := r.schemas[name]
		models = append(models, res.model(schema))
	}
	return models
}

func (r resolver) model(schema *ResourceSchema) bridge.Model {
	implied := make(map[string][]bridge.ColumnRef)
	for _, rel := range schema.Relationships {
		if rel.Type != RelationshipBelongsTo {
			continue
		}
		targetTable := r.tableOf(rel.TargetResource)
		fks, refs := r.belongsToKeys(rel)
		for i := range min(len(fks), len(refs)) {
			implied[fks[i]] = append(implied[fks[i]], bridge.ColumnRef{Table: targetTable, Column: refs[i]})
		}
	}

	model := bridge.Model{
		Name:          schema.Name,
		Table:         schema.TableName,
		Columns:       make([]bridge.ColumnDef, 0, len(schema.Fields)),
		PrimaryKeys:   schema.PrimaryKeys(),
		Relationships: make([]bridge.RelationDef, 0, len(schema.Relationships)),
	}

	for _, field := range schema.Fields {
		col := bridge.ColumnDef{Name: field.Name, Type: SQLType(field.Type)}
		for _, ref := range field.References {
			if table, column, ok := splitReference(ref); ok {
				col.ForeignKeys = append(col.ForeignKeys, bridge.ColumnRef{Table: table, Column: column})
			}
		}
		for _, ref := range implied[field.Name] {
			if !containsRef(col.ForeignKeys, ref) {
				col.ForeignKeys = append(col.ForeignKeys, ref)
			}
		}
		model.Columns = append(model.Columns, col)
	}

	for _, rel := range schema.Relationships {
		model.Relationships = append(model.Relationships, r.relationDef(schema, rel))
	}

	return model
}

func containsRef(refs []bridge.ColumnRef, ref bridge.ColumnRef) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}

// SQLType maps a field type to its native column type
func SQLType(spec *TypeSpec) sqltype.Type {
	if spec == nil {
		return nil
	}

	switch spec.BaseType {
	case TypeString:
		s := sqltype.String{Length: 255}
		if spec.Length != nil {
			s.Length = *spec.Length
		}
		return s
	case TypeText, TypeMarkdown:
		return sqltype.Text{}
	case TypeInt:
		return sqltype.Integer{}
	case TypeSmallInt:
		return sqltype.SmallInteger{}
	case TypeBigInt:
		return sqltype.BigInteger{}
	case TypeFloat:
		return sqltype.Float{}
	case TypeDecimal:
		n := sqltype.Numeric{}
		if spec.Precision != nil && spec.Scale != nil {
			n.Precision, n.Scale = *spec.Precision, *spec.Scale
		}
		return n
	case TypeBool:
		return sqltype.Boolean{}
	case TypeTimestamp:
		return sqltype.DateTime{Timezone: true}
	case TypeDate:
		return sqltype.Date{}
	case TypeTime:
		return sqltype.Time{}
	case TypeUUID:
		return sqltype.Custom{Name: "UUID"}
	case TypeULID:
		// ULIDs are stored as 26-character strings
		return sqltype.String{Length: 26}
	case TypeEmail, TypeURL, TypePhone:
		return sqltype.String{Length: 255}
	case TypeJSON:
		return sqltype.Custom{Name: "JSON"}
	case TypeJSONB:
		return sqltype.Custom{Name: "JSONB"}
	case TypeEnum:
		return sqltype.Custom{Name: "ENUM"}
	default:
		return sqltype.Custom{Name: spec.BaseType.String()}
	}
}
