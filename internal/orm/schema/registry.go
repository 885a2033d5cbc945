package schema

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateResource is returned when a resource name is registered twice
var ErrDuplicateResource = errors.New("resource is already registered")

// ErrUnknownResource is returned when a relationship targets a resource that is not registered
var ErrUnknownResource = errors.New("unknown resource")

// Registry manages the mapped models of an application in registration order
type Registry struct {
	schemas   map[string]*ResourceSchema
	order     []string
	validator *SchemaValidator
	mu        sync.RWMutex
}

// NewRegistry creates a new schema registry
func NewRegistry() *Registry {
	return &Registry{
		schemas:   make(map[string]*ResourceSchema),
		validator: NewSchemaValidator(),
	}
}

// Register registers a new resource schema. Relationship targets are not checked here
// so resources can be registered in any order; see ValidateAll.
func (r *Registry) Register(schema *ResourceSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[schema.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateResource, schema.Name)
	}

	if err := r.validator.ValidateStructural(schema); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", schema.Name, err)
	}

	r.schemas[schema.Name] = schema
	r.order = append(r.order, schema.Name)
	return nil
}

// All returns the registered schemas in registration order
func (r *Registry) All() []*ResourceSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*ResourceSchema, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.schemas[name])
	}
	return result
}

// List returns the resource names in registration order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// ValidateAll checks every relationship against the registered resources
func (r *Registry) ValidateAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	relValidator := NewRelationshipValidator(r.schemas)
	if err := relValidator.Validate(); err != nil {
		return fmt.Errorf("relationship validation failed: %w", err)
	}
	return nil
}

// RegistryStats summarizes the registry
type RegistryStats struct {
	TotalResources     int
	TotalFields        int
	TotalRelationships int
	TotalForeignKeys   int
}

// GetStats returns statistics about the registry
func (r *Registry) GetStats() *RegistryStats {
	stats := &RegistryStats{}
	for _, schema := range r.All() {
		stats.TotalResources++
		stats.TotalFields += len(schema.Fields)
		stats.TotalRelationships += len(schema.Relationships)
		for _, f := range schema.Fields {
			if len(f.References) > 0 {
				stats.TotalForeignKeys++
			}
		}
	}
	return stats
}
