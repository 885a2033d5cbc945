package schema

import (
	"errors"
	"fmt"

	"github.com/semlayer/semlayer/internal/bridge"
)

// RelationshipValidator checks relationships across all registered resources
type RelationshipValidator struct {
	schemas map[string]*ResourceSchema
	errors  []error
}

// NewRelationshipValidator creates a new relationship validator
func NewRelationshipValidator(schemas map[string]*ResourceSchema) *RelationshipValidator {
	return &RelationshipValidator{
		schemas: schemas,
		errors:  make([]error, 0),
	}
}

// Validate validates all relationships
func (v *RelationshipValidator) Validate() error {
	v.errors = make([]error, 0)

	for _, schema := range v.schemas {
		for _, rel := range schema.Relationships {
			if _, exists := v.schemas[rel.TargetResource]; !exists {
				v.errors = append(v.errors, fmt.Errorf("resource %s: relationship %s: %w %s",
					schema.Name, rel.FieldName, ErrUnknownResource, rel.TargetResource))
			}
			if rel.ThroughResource != "" {
				if _, exists := v.schemas[rel.ThroughResource]; !exists {
					v.errors = append(v.errors, fmt.Errorf("resource %s: relationship %s: through %w %s",
						schema.Name, rel.FieldName, ErrUnknownResource, rel.ThroughResource))
				}
			}
		}
	}

	return errors.Join(v.errors...)
}

// Errors returns all validation errors
func (v *RelationshipValidator) Errors() []error {
	return v.errors
}

// resolver turns declared relationships into join pairs. Unregistered targets fall back
// to their conventional table name.
type resolver struct {
	schemas map[string]*ResourceSchema
}

func (r resolver) tableOf(resource string) string {
	if s, ok := r.schemas[resource]; ok {
		return s.TableName
	}
	return toTableName(resource)
}

func (r resolver) primaryKeysOf(resource string) []string {
	if s, ok := r.schemas[resource]; ok {
		if pks := s.PrimaryKeys(); len(pks) > 0 {
			return pks
		}
	}
	return []string{"id"}
}

func foreignKeyOf(resource string) string {
	return toSnakeCase(resource) + "_id"
}

// relationDef resolves rel, declared on owner, into a bridge relationship
func (r resolver) relationDef(owner *ResourceSchema, rel *Relationship) bridge.RelationDef {
	targetTable := r.tableOf(rel.TargetResource)
	def := bridge.RelationDef{
		Name:        rel.FieldName,
		TargetTable: targetTable,
		Collection:  rel.Type.IsCollection(),
	}

	switch rel.Type {
	case RelationshipBelongsTo:
		fks, refs := r.belongsToKeys(rel)
		for i := range min(len(fks), len(refs)) {
			def.Pairs = append(def.Pairs, bridge.JoinPair{
				Local:  bridge.ColumnRef{Table: owner.TableName, Column: fks[i]},
				Remote: bridge.ColumnRef{Table: targetTable, Column: refs[i]},
			})
		}

	case RelationshipHasOne, RelationshipHasMany:
		fks := rel.ForeignKeys
		if len(fks) == 0 {
			fks = []string{foreignKeyOf(owner.Name)}
		}
		refs := rel.References
		if len(refs) == 0 {
			refs = r.primaryKeysOf(owner.Name)
		}
		for i := range min(len(fks), len(refs)) {
			def.Pairs = append(def.Pairs, bridge.JoinPair{
				Local:  bridge.ColumnRef{Table: owner.TableName, Column: refs[i]},
				Remote: bridge.ColumnRef{Table: targetTable, Column: fks[i]},
			})
		}

	case RelationshipHasManyThrough:
		joinTable := rel.JoinTable
		if joinTable == "" && rel.ThroughResource != "" {
			joinTable = r.tableOf(rel.ThroughResource)
		}
		if joinTable == "" {
			joinTable = toSnakeCase(owner.Name) + "_" + toSnakeCase(rel.TargetResource) + "s"
		}

		sourceFk := foreignKeyOf(owner.Name)
		if len(rel.ForeignKeys) > 0 {
			sourceFk = rel.ForeignKeys[0]
		}
		targetFk := rel.AssociationKey
		if targetFk == "" {
			targetFk = foreignKeyOf(rel.TargetResource)
		}

		def.Pairs = []bridge.JoinPair{
			{
				Local:  bridge.ColumnRef{Table: owner.TableName, Column: r.primaryKeysOf(owner.Name)[0]},
				Remote: bridge.ColumnRef{Table: joinTable, Column: sourceFk},
			},
			{
				Local:  bridge.ColumnRef{Table: targetTable, Column: r.primaryKeysOf(rel.TargetResource)[0]},
				Remote: bridge.ColumnRef{Table: joinTable, Column: targetFk},
			},
		}
	}

	return def
}

// belongsToKeys returns the local foreign-key columns and the target columns they reference
func (r resolver) belongsToKeys(rel *Relationship) ([]string, []string) {
	fks := rel.ForeignKeys
	if len(fks) == 0 {
		fks = []string{foreignKeyOf(rel.TargetResource)}
	}
	refs := rel.References
	if len(refs) == 0 {
		refs = r.primaryKeysOf(rel.TargetResource)
	}
	return fks, refs
}
