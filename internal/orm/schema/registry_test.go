package schema

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intField(name string, primary bool) *Field {
	return &Field{Name: name, Type: &TypeSpec{BaseType: TypeInt}, Primary: primary}
}

func TestRegistry(t *testing.T) {
	t.Run("register schema", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(NewResourceSchema("Post").AddField(intField("id", true))))

		all := registry.All()
		require.Len(t, all, 1)
		assert.Equal(t, "posts", all[0].TableName)
		assert.Equal(t, []string{"Post"}, registry.List())
	})

	t.Run("duplicate registration", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(NewResourceSchema("Post")))

		err := registry.Register(NewResourceSchema("Post"))
		assert.ErrorIs(t, err, ErrDuplicateResource)
		assert.Len(t, registry.All(), 1)
	})

	t.Run("list keeps registration order", func(t *testing.T) {
		registry := NewRegistry()
		for _, name := range []string{"User", "Post", "Comment", "Attachment"} {
			require.NoError(t, registry.Register(NewResourceSchema(name)))
		}

		assert.Equal(t, []string{"User", "Post", "Comment", "Attachment"}, registry.List())

		all := registry.All()
		require.Len(t, all, 4)
		assert.Equal(t, "comments", all[2].TableName)
	})

	t.Run("invalid schema is not registered", func(t *testing.T) {
		registry := NewRegistry()
		schema := NewResourceSchema("Post").
			AddField(&Field{Name: "id", Type: &TypeSpec{BaseType: TypeInt, Nullable: true}, Primary: true})

		err := registry.Register(schema)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "primary key must be non-nullable")
		assert.Empty(t, registry.List())
	})
}

func TestRegistry_ValidateAll(t *testing.T) {
	t.Run("forward references resolve", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(NewResourceSchema("Post").
			AddField(intField("id", true)).
			AddField(intField("user_id", false)).
			AddRelationship(&Relationship{Type: RelationshipBelongsTo, TargetResource: "User", FieldName: "author", ForeignKeys: []string{"user_id"}})))
		require.NoError(t, registry.Register(NewResourceSchema("User").AddField(intField("id", true))))

		assert.NoError(t, registry.ValidateAll())
	})

	t.Run("unknown target", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(NewResourceSchema("Post").
			AddRelationship(&Relationship{Type: RelationshipHasMany, TargetResource: "Comment", FieldName: "comments"})))

		err := registry.ValidateAll()
		assert.ErrorIs(t, err, ErrUnknownResource)
		assert.Contains(t, err.Error(), "Comment")
	})

	t.Run("unknown through resource", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(NewResourceSchema("Tag")))
		require.NoError(t, registry.Register(NewResourceSchema("Post").
			AddRelationship(&Relationship{Type: RelationshipHasManyThrough, TargetResource: "Tag", FieldName: "tags", ThroughResource: "Tagging"})))

		assert.ErrorIs(t, registry.ValidateAll(), ErrUnknownResource)
	})
}

func TestRegistry_Stats(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewResourceSchema("User").AddField(intField("id", true))))
	require.NoError(t, registry.Register(NewResourceSchema("Post").
		AddField(intField("id", true)).
		AddField(&Field{Name: "user_id", Type: &TypeSpec{BaseType: TypeInt}, References: []string{"users.id"}}).
		AddRelationship(&Relationship{Type: RelationshipBelongsTo, TargetResource: "User", FieldName: "author"})))

	stats := registry.GetStats()
	assert.Equal(t, 2, stats.TotalResources)
	assert.Equal(t, 3, stats.TotalFields)
	assert.Equal(t, 1, stats.TotalRelationships)
	assert.Equal(t, 1, stats.TotalForeignKeys)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		wg.Add(2)
		go func(name string) {
			defer wg.Done()
			_ = registry.Register(NewResourceSchema(name))
		}(name)
		go func() {
			defer wg.Done()
			registry.Models()
		}()
	}
	wg.Wait()

	assert.Len(t, registry.List(), 5)
	assert.Len(t, registry.Models(), 5)
}
