package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semlayer/semlayer/internal/semantic"
)

func sampleLayer() *semantic.Layer {
	layer := semantic.NewLayer()
	pk := "id"
	ref := "users.id"
	layer.AddTable(semantic.Table{
		Name:        "users",
		Description: "Registered users",
		PrimaryKey:  &pk,
		Synonyms:    []string{"accounts", "members"},
		Columns: []semantic.Column{
			{Name: "id", DataType: "INTEGER", Description: "Column: id"},
			{Name: "email", DataType: "VARCHAR", Description: "Login email", PrivacyLevel: semantic.PrivacyConfidential},
		},
	})
	layer.AddTable(semantic.Table{
		Name:        "posts",
		Description: "Table: posts",
		PrimaryKey:  &pk,
		Columns: []semantic.Column{
			{Name: "id", DataType: "INTEGER", Description: "Column: id"},
			{Name: "user_id", DataType: "INTEGER", Description: "Column: user_id", IsForeignKey: true, References: &ref},
		},
	})
	layer.AddRelationship(semantic.Relationship{
		FromTable:        "posts",
		ToTable:          "users",
		JoinCondition:    "posts.user_id = users.id",
		RelationshipType: semantic.ManyToOne,
	})
	layer.SetGlossaryTerm("MAU", "Monthly active users")
	return layer
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"Name", "Type"}, &TableOptions{NoColor: true})
	table.AddRow("id", "uuid")
	table.AddRow("description", "text")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Name         Type", lines[0])
	assert.Equal(t, strings.Repeat("─", 11)+"  "+strings.Repeat("─", 4), lines[1])
	assert.Equal(t, "id           uuid", lines[2])
	assert.Equal(t, "description  text", lines[3])
	assert.Equal(t, 2, table.Len())
}

func TestTable_Truncate(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"A"}, &TableOptions{NoColor: true, MaxCellWidth: 5})
	table.AddRow("abcdefgh")
	table.AddRow("abc")
	table.Render()

	assert.Contains(t, buf.String(), "abcd…")
	assert.NotContains(t, buf.String(), "abcde")
}

func TestTable_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, nil, nil).Render()
	assert.Empty(t, buf.String())
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("Name", "users")
	kv.AddRow("Empty", "")
	kv.AddRow("Primary key", "id")
	kv.Render()

	assert.Equal(t, "Name:        users\nPrimary key: id\n", buf.String())
}

func TestRenderLayer(t *testing.T) {
	var buf bytes.Buffer
	RenderLayer(&buf, sampleLayer(), true)
	out := buf.String()

	assert.Contains(t, out, "Tables (2)")
	assert.Contains(t, out, "Relationships (1)")
	assert.Contains(t, out, "posts.user_id = users.id")
	assert.Contains(t, out, "many-to-one")
	assert.Contains(t, out, "MAU: Monthly active users")
	assert.Less(t, strings.Index(out, "posts "), strings.Index(out, "users "), "tables are sorted")
	assert.NotContains(t, out, "\x1b[", "no escape codes with color disabled")
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	layer := sampleLayer()
	RenderTable(&buf, layer.Tables["users"], true)
	out := buf.String()

	assert.Contains(t, out, "Description: Registered users")
	assert.Contains(t, out, "Synonyms:    accounts, members")
	assert.Contains(t, out, "confidential")
	assert.NotContains(t, out, "Business")

	buf.Reset()
	RenderTable(&buf, layer.Tables["posts"], true)
	assert.Contains(t, buf.String(), "users.id")
}

func TestFindSimilar(t *testing.T) {
	tables := []string{"users", "posts", "user_roles", "orders"}

	assert.Equal(t, []string{"users"}, FindSimilar("usres", tables, nil))
	assert.Equal(t, []string{"posts"}, FindSimilar("POST", tables, nil))
	assert.Empty(t, FindSimilar("POST", tables, &FuzzyMatchOptions{CaseSensitive: true, MaxDistance: 1}))
	assert.Empty(t, FindSimilar("invoices", tables, nil))
	assert.Len(t, FindSimilar("x", []string{"a", "b", "c", "d"}, &FuzzyMatchOptions{MaxSuggestions: 2}), 2)
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"café", "cafe", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b), "%s -> %s", tt.a, tt.b)
	}
}

func TestTableNotFound(t *testing.T) {
	msg := TableNotFound("usres", []string{"users", "posts"}, true)
	assert.Contains(t, msg, "TABLE NOT FOUND: Cannot find table 'usres'.")
	assert.Contains(t, msg, "Did you mean: users?")
	assert.Contains(t, msg, "→ See all tables: semlayer show")

	msg = TableNotFound("invoices", []string{"users"}, true)
	assert.NotContains(t, msg, "Did you mean")
}

func TestFormatSuccessAndWarning(t *testing.T) {
	assert.Equal(t, "✓ done", FormatSuccess("done", true))
	assert.Contains(t, Warning("no annotations file", true), "no annotations file")

	var buf bytes.Buffer
	WriteSuccess(&buf, "wrote layer", true)
	assert.Equal(t, "✓ wrote layer\n", buf.String())
}
