package schema

import (
	"testing"
)

func TestParseTypeSpec(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"int", "int!", false},
		{"int!", "int!", false},
		{"string(50)?", "string(50)?", false},
		{"decimal(10, 2)", "decimal(10,2)!", false},
		{"timestamp?", "timestamp?", false},
		{"uuid", "uuid!", false},
		{"varchar", "", true},
		{"string(abc)", "", true},
		{"string(50", "", true},
		{"int(4)", "", true},
		{"decimal(10)", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			spec, err := ParseTypeSpec(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got %s", tt.input, spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if spec.String() != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, spec.String())
			}
		})
	}
}

func TestPrimitiveTypeRoundTrip(t *testing.T) {
	for p, name := range primitiveNames {
		parsed, err := ParsePrimitiveType(name)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", name, err)
		}
		if parsed != p {
			t.Errorf("expected %v, got %v", p, parsed)
		}
	}

	if _, err := ParsePrimitiveType("blob"); err == nil {
		t.Error("expected error for unknown type")
	}
	if PrimitiveType(999).String() != "unknown" {
		t.Error("expected unknown for out of range type")
	}
}

func TestRelationType(t *testing.T) {
	for _, rt := range []RelationType{RelationshipBelongsTo, RelationshipHasMany, RelationshipHasManyThrough, RelationshipHasOne} {
		parsed, err := ParseRelationType(rt.String())
		if err != nil || parsed != rt {
			t.Errorf("round trip failed for %s", rt)
		}
	}

	if !RelationshipHasMany.IsCollection() || !RelationshipHasManyThrough.IsCollection() {
		t.Error("has_many and has_many_through are collections")
	}
	if RelationshipBelongsTo.IsCollection() || RelationshipHasOne.IsCollection() {
		t.Error("belongs_to and has_one are not collections")
	}
	if _, err := ParseRelationType("many_to_many"); err == nil {
		t.Error("expected error for unknown relationship type")
	}
}

func TestResourceSchema(t *testing.T) {
	schema := NewResourceSchema("BlogPost")
	if schema.TableName != "blog_posts" {
		t.Errorf("expected blog_posts, got %s", schema.TableName)
	}

	schema.AddField(&Field{Name: "tenant_id", Type: &TypeSpec{BaseType: TypeInt}, Primary: true}).
		AddField(&Field{Name: "id", Type: &TypeSpec{BaseType: TypeInt}, Primary: true}).
		AddField(&Field{Name: "title", Type: &TypeSpec{BaseType: TypeString}}).
		AddRelationship(&Relationship{Type: RelationshipBelongsTo, TargetResource: "Tenant", FieldName: "tenant"})

	pks := schema.PrimaryKeys()
	if len(pks) != 2 || pks[0] != "tenant_id" || pks[1] != "id" {
		t.Errorf("expected [tenant_id id], got %v", pks)
	}
	if !schema.HasField("title") || schema.HasField("body") {
		t.Error("HasField mismatch")
	}
}

func TestToTableName(t *testing.T) {
	tests := map[string]string{
		"User":       "users",
		"Category":   "categories",
		"Box":        "boxes",
		"Address":    "addresses",
		"HTTPServer": "http_servers",
		"UserID":     "user_ids",
	}
	for input, expected := range tests {
		if got := toTableName(input); got != expected {
			t.Errorf("toTableName(%s) = %s, expected %s", input, got, expected)
		}
	}
}
