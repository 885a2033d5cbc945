package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/semlayer/semlayer/internal/annotate"
	"github.com/semlayer/semlayer/internal/semantic"
	"github.com/semlayer/semlayer/internal/sqltype"
)

func usersAndPosts() StaticSource {
	return StaticSource{
		{
			Name:        "User",
			Table:       "users",
			PrimaryKeys: []string{"id"},
			Columns: []ColumnDef{
				{Name: "id", Type: sqltype.Integer{}},
				{Name: "username", Type: sqltype.String{Length: 50}},
			},
			Relationships: []RelationDef{
				{
					Name:        "posts",
					TargetTable: "posts",
					Collection:  true,
					Pairs: []JoinPair{{
						Local:  ColumnRef{Table: "users", Column: "id"},
						Remote: ColumnRef{Table: "posts", Column: "user_id"},
					}},
				},
			},
		},
		{
			Name:        "Post",
			Table:       "posts",
			PrimaryKeys: []string{"id"},
			Columns: []ColumnDef{
				{Name: "id", Type: sqltype.Integer{}},
				{Name: "title", Type: sqltype.String{Length: 100}},
				{Name: "user_id", Type: sqltype.Integer{}, ForeignKeys: []ColumnRef{{Table: "users", Column: "id"}}},
			},
			Relationships: []RelationDef{
				{
					Name:        "author",
					TargetTable: "users",
					Pairs: []JoinPair{{
						Local:  ColumnRef{Table: "posts", Column: "user_id"},
						Remote: ColumnRef{Table: "users", Column: "id"},
					}},
				},
			},
		},
	}
}

func usersAndPostsCatalog(t *testing.T) *annotate.Catalog {
	t.Helper()

	catalog := annotate.NewCatalog()
	require.NoError(t, catalog.Table("users", annotate.TableInfo{Description: "Standard user account table"}))
	catalog.Column("users", "username", annotate.ColumnInfo{
		Description:  "The unique login name of the user",
		PrivacyLevel: annotate.Privacy(semantic.PrivacyPublic),
	})
	catalog.Relationship("posts", "author", annotate.RelationshipInfo{Description: "The user who wrote this post"})
	return catalog
}

func TestSync_UsersAndPosts(t *testing.T) {
	b := New(usersAndPosts(), usersAndPostsCatalog(t))
	layer := b.Sync()

	require.Contains(t, layer.Tables, "users")
	require.Contains(t, layer.Tables, "posts")

	users := layer.Tables["users"]
	assert.Equal(t, "Standard user account table", users.Description)
	require.NotNil(t, users.PrimaryKey)
	assert.Equal(t, "id", *users.PrimaryKey)

	username, ok := users.Column("username")
	require.True(t, ok)
	assert.Equal(t, "The unique login name of the user", username.Description)
	assert.Equal(t, "VARCHAR", username.DataType)
	assert.Equal(t, semantic.PrivacyPublic, username.PrivacyLevel)

	require.Len(t, layer.Relationships, 2)

	usersToPosts := layer.Relationships[0]
	assert.Equal(t, "users", usersToPosts.FromTable)
	assert.Equal(t, "posts", usersToPosts.ToTable)
	assert.Equal(t, semantic.OneToMany, usersToPosts.RelationshipType)
	assert.Equal(t, "users.id = posts.user_id", usersToPosts.JoinCondition)
	assert.Equal(t, "Relationship between users and posts", usersToPosts.Description)

	postToUser := layer.Relationships[1]
	assert.Equal(t, "posts", postToUser.FromTable)
	assert.Equal(t, "users", postToUser.ToTable)
	assert.Equal(t, semantic.ManyToOne, postToUser.RelationshipType)
	assert.Equal(t, "posts.user_id = users.id", postToUser.JoinCondition)
	assert.Equal(t, "The user who wrote this post", postToUser.Description)
}

func TestSync_Defaults(t *testing.T) {
	b := New(usersAndPosts(), nil)
	layer := b.Sync()

	posts := layer.Tables["posts"]
	assert.Equal(t, "Table: posts", posts.Description)
	assert.Nil(t, posts.Synonyms)
	assert.Nil(t, posts.SQLFilters)
	assert.Nil(t, posts.ApplicationContext)
	assert.Nil(t, posts.BusinessContext)

	title, ok := posts.Column("title")
	require.True(t, ok)
	assert.Equal(t, "Column: title", title.Description)
	assert.Equal(t, semantic.PrivacyPublic, title.PrivacyLevel)
	assert.Nil(t, title.SampleValues)
	assert.Nil(t, title.Synonyms)
	assert.Nil(t, title.ApplicationRules)
	assert.False(t, title.IsForeignKey)
	assert.Nil(t, title.References)

	assert.Equal(t, "Relationship between posts and users", layer.Relationships[1].Description)
}

func TestSync_ColumnOrderAndForeignKeys(t *testing.T) {
	layer := New(usersAndPosts(), nil).Sync()

	posts := layer.Tables["posts"]
	names := make([]string, len(posts.Columns))
	for i, c := range posts.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "title", "user_id"}, names)

	for _, table := range layer.Tables {
		for _, col := range table.Columns {
			assert.Equal(t, col.IsForeignKey, col.References != nil, "%s.%s", table.Name, col.Name)
		}
	}

	userID, _ := posts.Column("user_id")
	assert.True(t, userID.IsForeignKey)
	assert.Equal(t, "users.id", *userID.References)
}

func TestSync_MultiTargetForeignKeyUsesFirst(t *testing.T) {
	source := StaticSource{{
		Table: "audit",
		Columns: []ColumnDef{{
			Name: "actor_id",
			Type: sqltype.BigInteger{},
			ForeignKeys: []ColumnRef{
				{Table: "users", Column: "id"},
				{Table: "admins", Column: "id"},
			},
		}},
	}}

	col := New(source, nil).Sync().Tables["audit"].Columns[0]
	assert.Equal(t, "INTEGER", col.DataType)
	assert.Equal(t, "users.id", *col.References)
}

func TestSync_CompositeJoin(t *testing.T) {
	source := StaticSource{{
		Table:       "sales",
		PrimaryKeys: []string{"store_id", "product_id"},
		Columns: []ColumnDef{
			{Name: "store_id", Type: sqltype.Integer{}},
			{Name: "product_id", Type: sqltype.Integer{}},
		},
		Relationships: []RelationDef{{
			Name:        "product",
			TargetTable: "products",
			Pairs: []JoinPair{
				{Local: ColumnRef{"sales", "store_id"}, Remote: ColumnRef{"products", "store_id"}},
				{Local: ColumnRef{"sales", "product_id"}, Remote: ColumnRef{"products", "product_id"}},
			},
		}},
	}}

	layer := New(source, nil).Sync()

	assert.Equal(t, "store_id", *layer.Tables["sales"].PrimaryKey)
	require.Len(t, layer.Relationships, 1)
	assert.Equal(t,
		"sales.store_id = products.store_id AND sales.product_id = products.product_id",
		layer.Relationships[0].JoinCondition)
}

func TestSync_NoPairsYieldsEmptyCondition(t *testing.T) {
	source := StaticSource{{
		Table:         "things",
		Relationships: []RelationDef{{Name: "others", TargetTable: "others", Collection: true}},
	}}

	layer := New(source, nil).Sync()
	require.Len(t, layer.Relationships, 1)
	assert.Equal(t, "", layer.Relationships[0].JoinCondition)
	assert.Nil(t, layer.Tables["things"].PrimaryKey)
	assert.Empty(t, layer.Tables["things"].Columns)
}

func TestSync_Idempotent(t *testing.T) {
	b := New(usersAndPosts(), usersAndPostsCatalog(t))

	first := b.Sync().ToMap()
	layer := b.Sync()

	assert.Equal(t, first, layer.ToMap())
	assert.Len(t, layer.Relationships, 2)
	assert.Same(t, layer, b.SemanticLayer())
}

func TestSync_EmptySource(t *testing.T) {
	for name, source := range map[string]SchemaSource{
		"nil source":   nil,
		"empty source": StaticSource{},
	} {
		t.Run(name, func(t *testing.T) {
			layer := New(source, nil).Sync()
			assert.Empty(t, layer.Tables)
			assert.Empty(t, layer.Relationships)
		})
	}
}

func TestSync_DuplicateTableLastWins(t *testing.T) {
	source := StaticSource{
		{Name: "UserV1", Table: "users", Columns: []ColumnDef{{Name: "id", Type: sqltype.Integer{}}}},
		{Name: "UserV2", Table: "users", Columns: []ColumnDef{{Name: "uuid", Type: sqltype.Custom{Name: "UUID"}}}},
	}

	b := New(source, nil)
	layer := b.Sync()

	require.Len(t, layer.Tables, 1)
	users := layer.Tables["users"]
	require.Len(t, users.Columns, 1)
	assert.Equal(t, "uuid", users.Columns[0].Name)
	assert.Equal(t, "UUID", users.Columns[0].DataType)
	assert.Equal(t, "UserV2", b.models["users"].Name)
}

func TestSync_GlossaryPreserved(t *testing.T) {
	b := New(usersAndPosts(), nil)
	b.SemanticLayer().SetGlossaryTerm("MAU", "Monthly active users")

	b.Sync()
	layer := b.Sync()

	assert.Equal(t, "Monthly active users", layer.ApplicationGlossary["MAU"])
}

func TestSync_SourceChangesAreReflected(t *testing.T) {
	source := usersAndPosts()
	b := New(source[:1], nil)
	require.Len(t, b.Sync().Tables, 1)

	b.source = source
	layer := b.Sync()
	assert.Len(t, layer.Tables, 2)
	assert.Contains(t, b.models, "posts")
}

func TestSync_TypeMapping(t *testing.T) {
	types := []struct {
		typ      sqltype.Type
		expected string
	}{
		{sqltype.String{}, "VARCHAR"},
		{sqltype.Text{}, "TEXT"},
		{sqltype.SmallInteger{}, "INTEGER"},
		{sqltype.Float{}, "FLOAT"},
		{sqltype.Numeric{Precision: 12, Scale: 2}, "DECIMAL"},
		{sqltype.Boolean{}, "BOOLEAN"},
		{sqltype.DateTime{Timezone: true}, "TIMESTAMP"},
		{sqltype.Date{}, "DATE"},
		{sqltype.Custom{Name: "JSONB"}, "JSONB"},
		{nil, ""},
	}

	columns := make([]ColumnDef, len(types))
	for i, tt := range types {
		columns[i] = ColumnDef{Name: "c" + string(rune('a'+i)), Type: tt.typ}
	}

	layer := New(StaticSource{{Table: "typed", Columns: columns}}, nil).Sync()
	for i, tt := range types {
		assert.Equal(t, tt.expected, layer.Tables["typed"].Columns[i].DataType)
	}
}

func TestSync_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	b := New(usersAndPosts(), nil, WithLogger(zap.New(core)))

	b.Sync()

	assert.Equal(t, 2, logs.FilterMessage("extracting model").Len())
	summary := logs.FilterMessage("semantic layer synced").All()
	require.Len(t, summary, 1)
	assert.Equal(t, int64(2), summary[0].ContextMap()["tables"])
}

func TestJoinCondition(t *testing.T) {
	assert.Equal(t, "", JoinCondition(nil))
	assert.Equal(t, "a.x = b.y", JoinCondition([]JoinPair{
		{Local: ColumnRef{"a", "x"}, Remote: ColumnRef{"b", "y"}},
	}))
}
