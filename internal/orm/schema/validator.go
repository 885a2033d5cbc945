package schema

import (
	"fmt"
	"strings"
)

// ValidationError represents a schema validation error with context
type ValidationError struct {
	Resource string
	Field    string
	Message  string
	Hint     string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Resource != "" {
		b.WriteString(e.Resource)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// SchemaValidator checks the shape of a single resource schema
type SchemaValidator struct {
	errors []*ValidationError
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		errors: make([]*ValidationError, 0),
	}
}

// ValidateStructural validates a single resource schema without cross-resource checks.
// A resource without a primary key is valid.
func (v *SchemaValidator) ValidateStructural(schema *ResourceSchema) error {
	v.errors = make([]*ValidationError, 0)

	if schema.Name == "" {
		v.errors = append(v.errors, &ValidationError{Message: "resource name is required"})
	}
	if schema.TableName == "" {
		v.errors = append(v.errors, &ValidationError{
			Resource: schema.Name,
			Message:  "table name is required",
		})
	}

	v.validateFields(schema)
	v.validateRelationships(schema)

	if len(v.errors) > 0 {
		var errMsgs []string
		for _, err := range v.errors {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("schema validation failed with %d errors:\n%s",
			len(v.errors), strings.Join(errMsgs, "\n"))
	}

	return nil
}

func (v *SchemaValidator) validateFields(schema *ResourceSchema) {
	seen := make(map[string]bool, len(schema.Fields))

	for _, field := range schema.Fields {
		if field.Name == "" {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Message:  "field name is required",
			})
			continue
		}
		if seen[field.Name] {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    field.Name,
				Message:  "duplicate field",
			})
		}
		seen[field.Name] = true

		if field.Type == nil {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    field.Name,
				Message:  "field type is required",
			})
			continue
		}

		if field.Primary && field.Type.Nullable {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    field.Name,
				Message:  "primary key must be non-nullable (!)",
				Hint:     fmt.Sprintf("Change %s: %s to %s: %s!", field.Name, field.Type.String(), field.Name, strings.TrimSuffix(field.Type.String(), "?")),
			})
		}

		for _, ref := range field.References {
			if _, _, ok := splitReference(ref); !ok {
				v.errors = append(v.errors, &ValidationError{
					Resource: schema.Name,
					Field:    field.Name,
					Message:  fmt.Sprintf("invalid reference %q", ref),
					Hint:     "References are written as table.column, e.g. users.id",
				})
			}
		}
	}
}

func (v *SchemaValidator) validateRelationships(schema *ResourceSchema) {
	seen := make(map[string]bool, len(schema.Relationships))

	for _, rel := range schema.Relationships {
		if rel.FieldName == "" {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Message:  "relationship name is required",
			})
			continue
		}
		if seen[rel.FieldName] {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    rel.FieldName,
				Message:  "duplicate relationship",
			})
		}
		seen[rel.FieldName] = true

		if rel.TargetResource == "" {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    rel.FieldName,
				Message:  "relationship target is required",
			})
		}

		if len(rel.ForeignKeys) > 0 && len(rel.References) > 0 && len(rel.ForeignKeys) != len(rel.References) {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    rel.FieldName,
				Message: fmt.Sprintf("%d foreign keys but %d references",
					len(rel.ForeignKeys), len(rel.References)),
				Hint: "Composite keys list one reference per foreign key column",
			})
		}

		if rel.Type == RelationshipBelongsTo {
			for _, fk := range rel.ForeignKeys {
				if !schema.HasField(fk) {
					v.errors = append(v.errors, &ValidationError{
						Resource: schema.Name,
						Field:    rel.FieldName,
						Message:  fmt.Sprintf("foreign key %s is not a field of %s", fk, schema.Name),
					})
				}
			}
		}
	}
}

// Errors returns the errors of the last validation
func (v *SchemaValidator) Errors() []*ValidationError {
	return v.errors
}

// splitReference splits "table.column"
func splitReference(ref string) (string, string, bool) {
	i := strings.LastIndexByte(ref, '.')
	if i <= 0 || i == len(ref)-1 {
		return "", "", false
	}
	return ref[:i], ref[i+1:], true
}
