// Package schema is an in-memory registry of mapped models: resources with ordered
// fields, primary and foreign keys, and relationships between resources. A Registry is a
// bridge.SchemaSource.
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// PrimitiveType represents the built-in field types of a model file
type PrimitiveType int

const (
	// Text types
	TypeString PrimitiveType = iota
	TypeText
	TypeMarkdown

	// Numeric types
	TypeInt
	TypeSmallInt
	TypeBigInt
	TypeFloat
	TypeDecimal

	// Boolean
	TypeBool

	// Time types
	TypeTimestamp
	TypeDate
	TypeTime

	// Unique identifiers
	TypeUUID
	TypeULID

	// Validated types
	TypeEmail
	TypeURL
	TypePhone

	// JSON types
	TypeJSON
	TypeJSONB

	// Enum
	TypeEnum
)

var primitiveNames = map[PrimitiveType]string{
	TypeString:    "string",
	TypeText:      "text",
	TypeMarkdown:  "markdown",
	TypeInt:       "int",
	TypeSmallInt:  "smallint",
	TypeBigInt:    "bigint",
	TypeFloat:     "float",
	TypeDecimal:   "decimal",
	TypeBool:      "bool",
	TypeTimestamp: "timestamp",
	TypeDate:      "date",
	TypeTime:      "time",
	TypeUUID:      "uuid",
	TypeULID:      "ulid",
	TypeEmail:     "email",
	TypeURL:       "url",
	TypePhone:     "phone",
	TypeJSON:      "json",
	TypeJSONB:     "jsonb",
	TypeEnum:      "enum",
}

// String returns the string representation of the primitive type
func (p PrimitiveType) String() string {
	if name, ok := primitiveNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePrimitiveType converts a string to a PrimitiveType
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	for p, name := range primitiveNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown primitive type: %s", s)
}

// TypeSpec is a field type with nullability and optional parameters
type TypeSpec struct {
	BaseType PrimitiveType
	Nullable bool // ! = false, ? = true

	// Type parameters (e.g., string(50), decimal(10,2))
	Length    *int
	Precision *int
	Scale     *int
}

// String returns a string representation of the TypeSpec
func (t *TypeSpec) String() string {
	s := t.BaseType.String()
	if t.Length != nil {
		s = fmt.Sprintf("%s(%d)", s, *t.Length)
	}
	if t.Precision != nil && t.Scale != nil {
		s = fmt.Sprintf("%s(%d,%d)", s, *t.Precision, *t.Scale)
	}

	if t.Nullable {
		s += "?"
	} else {
		s += "!"
	}
	return s
}

// ParseTypeSpec parses a field type such as "string(50)!", "decimal(10,2)?" or "uuid".
// Types without a suffix are non-nullable.
func ParseTypeSpec(s string) (*TypeSpec, error) {
	s = strings.TrimSpace(s)
	spec := &TypeSpec{}

	switch {
	case strings.HasSuffix(s, "?"):
		spec.Nullable = true
		s = strings.TrimSuffix(s, "?")
	case strings.HasSuffix(s, "!"):
		s = strings.TrimSuffix(s, "!")
	}

	base := s
	var params []int
	if open := strings.IndexByte(s, '('); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return nil, fmt.Errorf("invalid type %q: unclosed parameter list", s)
		}
		base = s[:open]
		for _, part := range strings.Split(s[open+1:len(s)-1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("invalid type %q: %w", s, err)
			}
			params = append(params, n)
		}
	}

	baseType, err := ParsePrimitiveType(strings.TrimSpace(base))
	if err != nil {
		return nil, err
	}
	spec.BaseType = baseType

	switch {
	case len(params) == 0:
	case baseType == TypeString && len(params) == 1:
		spec.Length = &params[0]
	case baseType == TypeDecimal && len(params) == 2:
		spec.Precision = &params[0]
		spec.Scale = &params[1]
	default:
		return nil, fmt.Errorf("invalid type %q: unexpected parameters for %s", s, baseType)
	}

	return spec, nil
}

// Field is a mapped column. References lists foreign-key targets as "table.column".
type Field struct {
	Name       string
	Type       *TypeSpec
	Primary    bool
	References []string
}

// RelationType represents the type of relationship
type RelationType int

const (
	RelationshipBelongsTo RelationType = iota
	RelationshipHasMany
	RelationshipHasManyThrough
	RelationshipHasOne
)

// String returns the string representation of the relationship type
func (r RelationType) String() string {
	switch r {
	case RelationshipBelongsTo:
		return "belongs_to"
	case RelationshipHasMany:
		return "has_many"
	case RelationshipHasManyThrough:
		return "has_many_through"
	case RelationshipHasOne:
		return "has_one"
	default:
		return "unknown"
	}
}

// ParseRelationType converts a string to a RelationType
func ParseRelationType(s string) (RelationType, error) {
	switch s {
	case "belongs_to":
		return RelationshipBelongsTo, nil
	case "has_many":
		return RelationshipHasMany, nil
	case "has_many_through":
		return RelationshipHasManyThrough, nil
	case "has_one":
		return RelationshipHasOne, nil
	default:
		return 0, fmt.Errorf("unknown relationship type: %s", s)
	}
}

// IsCollection reports whether the relationship yields many target rows
func (r RelationType) IsCollection() bool {
	return r == RelationshipHasMany || r == RelationshipHasManyThrough
}

// Relationship is a named relationship from one resource to another.
//
// For belongs_to, ForeignKeys are columns of the owning resource and References are
// columns of the target. For has_one and has_many, ForeignKeys are columns of the target
// and References are columns of the owner. Empty lists fall back to "<resource>_id" and
// the primary key.
type Relationship struct {
	Type           RelationType
	TargetResource string
	FieldName      string

	ForeignKeys []string
	References  []string

	// For has_many_through
	ThroughResource string
	JoinTable       string
	AssociationKey  string
}

// ResourceSchema is a mapped model. Fields and relationships keep declaration order.
type ResourceSchema struct {
	Name          string
	Documentation string
	TableName     string

	Fields        []*Field
	Relationships []*Relationship
}

// NewResourceSchema creates a new ResourceSchema persisted to the pluralized snake_case
// table name
func NewResourceSchema(name string) *ResourceSchema {
	return &ResourceSchema{
		Name:          name,
		Fields:        make([]*Field, 0),
		Relationships: make([]*Relationship, 0),
		TableName:     toTableName(name),
	}
}

// AddField appends a field
func (r *ResourceSchema) AddField(field *Field) *ResourceSchema {
	r.Fields = append(r.Fields, field)
	return r
}

// AddRelationship appends a relationship
func (r *ResourceSchema) AddRelationship(rel *Relationship) *ResourceSchema {
	r.Relationships = append(r.Relationships, rel)
	return r
}

// Field returns the field with the given name
func (r *ResourceSchema) Field(name string) (*Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// HasField returns true if the resource has a field with the given name
func (r *ResourceSchema) HasField(name string) bool {
	_, exists := r.Field(name)
	return exists
}

// PrimaryKeys returns the names of the primary-key fields in declaration order
func (r *ResourceSchema) PrimaryKeys() []string {
	var keys []string
	for _, f := range r.Fields {
		if f.Primary {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

// toTableName converts a resource name to its table name ("BlogPost" -> "blog_posts")
func toTableName(resourceName string) string {
	return pluralize(toSnakeCase(resourceName))
}

// pluralize adds simple pluralization
func pluralize(s string) string {
	if s == "" {
		return s
	}
	if strings.HasSuffix(s, "s") ||
		strings.HasSuffix(s, "x") ||
		strings.HasSuffix(s, "z") {
		return s + "es"
	}
	if strings.HasSuffix(s, "y") {
		return s[:len(s)-1] + "ies"
	}
	return s + "s"
}

// toSnakeCase converts a string to snake_case
func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			// Underscore at a camelCase boundary or at the end of an acronym ("HTTPServer" -> "http_server")
			if prev >= 'a' && prev <= 'z' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}
