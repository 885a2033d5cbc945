package schema

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelsDocument is the YAML form of a models file:
//
//	models:
//	  - name: User
//	    fields:
//	      - {name: id, type: "int!", primary: true}
//	      - {name: username, type: "string(50)"}
//	    relationships:
//	      - {name: posts, type: has_many, target: Post}
//	  - name: Post
//	    fields:
//	      - {name: id, type: "int!", primary: true}
//	      - {name: user_id, type: int, references: [users.id]}
//	    relationships:
//	      - {name: author, type: belongs_to, target: User, foreign_keys: [user_id]}
type ModelsDocument struct {
	Models []ModelNode `yaml:"models"`
}

// ModelNode is one model entry. Table defaults to the pluralized snake_case name.
type ModelNode struct {
	Name          string             `yaml:"name"`
	Table         string             `yaml:"table"`
	Documentation string             `yaml:"documentation"`
	Fields        []FieldNode        `yaml:"fields"`
	Relationships []RelationshipNode `yaml:"relationships"`
}

// FieldNode is one field entry
type FieldNode struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Primary    bool     `yaml:"primary"`
	References []string `yaml:"references"`
}

// RelationshipNode is one relationship entry
type RelationshipNode struct {
	Name           string   `yaml:"name"`
	Type           string   `yaml:"type"`
	Target         string   `yaml:"target"`
	ForeignKeys    []string `yaml:"foreign_keys"`
	References     []string `yaml:"references"`
	Through        string   `yaml:"through"`
	JoinTable      string   `yaml:"join_table"`
	AssociationKey string   `yaml:"association_key"`
}

// Builder builds ResourceSchemas from model nodes
type Builder struct {
	errors []error
}

// NewBuilder creates a new schema builder
func NewBuilder() *Builder {
	return &Builder{
		errors: make([]error, 0),
	}
}

// Build converts a ModelNode to a ResourceSchema. Invalid fields and relationships are
// skipped and reported through Errors and the returned error.
func (b *Builder) Build(node ModelNode) (*ResourceSchema, error) {
	schema := NewResourceSchema(node.Name)
	schema.Documentation = node.Documentation
	if node.Table != "" {
		schema.TableName = node.Table
	}

	var errs []error
	for _, fieldNode := range node.Fields {
		field, err := b.buildField(fieldNode)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s.%s: %w", node.Name, fieldNode.Name, err))
			continue
		}
		schema.AddField(field)
	}

	for _, relNode := range node.Relationships {
		rel, err := b.buildRelationship(relNode)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s.%s: %w", node.Name, relNode.Name, err))
			continue
		}
		schema.AddRelationship(rel)
	}

	b.errors = append(b.errors, errs...)
	if len(errs) > 0 {
		return schema, errors.Join(errs...)
	}
	return schema, nil
}

func (b *Builder) buildField(node FieldNode) (*Field, error) {
	typeSpec, err := ParseTypeSpec(node.Type)
	if err != nil {
		return nil, err
	}

	return &Field{
		Name:       node.Name,
		Type:       typeSpec,
		Primary:    node.Primary,
		References: node.References,
	}, nil
}

func (b *Builder) buildRelationship(node RelationshipNode) (*Relationship, error) {
	relType, err := ParseRelationType(node.Type)
	if err != nil {
		return nil, err
	}

	return &Relationship{
		Type:            relType,
		TargetResource:  node.Target,
		FieldName:       node.Name,
		ForeignKeys:     node.ForeignKeys,
		References:      node.References,
		ThroughResource: node.Through,
		JoinTable:       node.JoinTable,
		AssociationKey:  node.AssociationKey,
	}, nil
}

// Errors returns all errors collected by Build
func (b *Builder) Errors() []error {
	return b.errors
}

// ParseModels builds a registry from a YAML models document. Every model is registered
// in file order and relationships are validated once all models are known.
func ParseModels(data []byte) (*Registry, error) {
	var doc ModelsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse models: %w", err)
	}

	builder := NewBuilder()
	registry := NewRegistry()

	for _, node := range doc.Models {
		schema, err := builder.Build(node)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(schema); err != nil {
			return nil, err
		}
	}

	if err := registry.ValidateAll(); err != nil {
		return nil, err
	}
	return registry, nil
}

// LoadModelsFile reads a YAML models file into a new registry
func LoadModelsFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read models file: %w", err)
	}

	registry, err := ParseModels(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return registry, nil
}
