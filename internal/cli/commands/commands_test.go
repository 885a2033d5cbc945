package commands

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"

	"github.com/semlayer/semlayer/internal/cli/config"
	"github.com/semlayer/semlayer/internal/semantic"
	"github.com/semlayer/semlayer/internal/server"
)

const shopModels = `
models:
  - name: Customer
    fields:
      - {name: id, type: "int!", primary: true}
      - {name: email, type: "email!"}
    relationships:
      - {name: orders, type: has_many, target: Order}
  - name: Order
    fields:
      - {name: id, type: "int!", primary: true}
      - {name: customer_id, type: "int!"}
      - {name: total, type: "decimal(10,2)!"}
    relationships:
      - {name: customer, type: belongs_to, target: Customer, foreign_keys: [customer_id]}
`

const shopAnnotations = `
tables:
  customers:
    description: People who buy things
    columns:
      email:
        description: Contact address
        privacy_level: confidential
  orders:
    relationships:
      customer:
        description: The customer who placed the order
glossary:
  AOV: Average order value
`

type project struct {
	dir    string
	config string
	output string
}

func newProject(t *testing.T, extra string) project {
	t.Helper()
	dir := t.TempDir()
	p := project{
		dir:    dir,
		config: filepath.Join(dir, "semlayer.yml"),
		output: filepath.Join(dir, "semantic_layer.json"),
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.yml"), []byte(shopModels), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "annotations.yml"), []byte(shopAnnotations), 0o644))

	content := fmt.Sprintf(`source:
  kind: models
  models_file: %s
annotations:
  file: %s
output:
  path: %s
log:
  level: error
%s`, filepath.Join(dir, "models.yml"), filepath.Join(dir, "annotations.yml"), p.output, extra)
	require.NoError(t, os.WriteFile(p.config, []byte(content), 0o644))
	return p
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "semlayer", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"version", "init", "sync", "show", "serve"} {
		assert.Contains(t, names, expected)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	defer func() { Version = "dev" }()

	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.0.0-test")
	assert.Contains(t, out, "Go version")
}

func TestSyncCommand_File(t *testing.T) {
	p := newProject(t, "")

	out, _, err := run(t, "sync", "--config", p.config, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 tables and 2 relationships")

	layer, err := semantic.Load(p.output)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, layer.TableNames())
	assert.Equal(t, "People who buy things", layer.Tables["customers"].Description)
	assert.Equal(t, "Table: orders", layer.Tables["orders"].Description)

	email, ok := layer.Tables["customers"].Column("email")
	require.True(t, ok)
	assert.Equal(t, semantic.PrivacyConfidential, email.PrivacyLevel)
	assert.Equal(t, "VARCHAR", email.DataType)

	customerID, ok := layer.Tables["orders"].Column("customer_id")
	require.True(t, ok)
	assert.True(t, customerID.IsForeignKey)
	assert.Equal(t, "customers.id", *customerID.References)

	descriptions := map[string]string{}
	for _, r := range layer.Relationships {
		descriptions[r.FromTable+"->"+r.ToTable] = r.Description
	}
	assert.Equal(t, "The customer who placed the order", descriptions["orders->customers"])
	assert.Equal(t, "Relationship between customers and orders", descriptions["customers->orders"])
}

func TestSyncCommand_Stdout(t *testing.T) {
	p := newProject(t, "")

	out, _, err := run(t, "sync", "--config", p.config, "--out", "-")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "tables")
	assert.Contains(t, doc, "relationships")

	_, err = os.Stat(p.output)
	assert.True(t, os.IsNotExist(err), "stdout output writes no file")
}

func TestSyncCommand_EmptySourceWarns(t *testing.T) {
	p := newProject(t, "")
	require.NoError(t, os.WriteFile(filepath.Join(p.dir, "models.yml"), []byte("models: []\n"), 0o644))

	out, stderr, err := run(t, "sync", "--config", p.config, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 0 tables and 0 relationships")
	assert.Contains(t, stderr, "no tables found")
}

func TestSyncCommand_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	p := newProject(t, "redis:\n  key: shop:layer\n")

	out, _, err := run(t, "sync", "--config", p.config, "--redis-addr", mr.Addr(), "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Published to redis key shop:layer")

	stored, err := mr.Get("shop:layer")
	require.NoError(t, err)
	layer, err := semantic.FromJSON([]byte(stored))
	require.NoError(t, err)
	assert.Len(t, layer.Tables, 2)
}

func TestServeCommand_ListenFailureReleasesRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	p := newProject(t, fmt.Sprintf("redis:\n  addr: %s\n  key: shop:layer\n", mr.Addr()))

	_, _, err = run(t, "serve", "--config", p.config, "--addr", "256.0.0.1:99999")
	require.Error(t, err)

	assert.True(t, mr.Exists("shop:layer"), "the startup sync publishes before listening")
	require.Eventually(t, func() bool {
		return mr.CurrentConnectionCount() == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSyncCommand_RedisWithoutAddr(t *testing.T) {
	p := newProject(t, "")
	_, _, err := run(t, "sync", "--config", p.config, "--redis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.addr")
}

func TestSyncCommand_SQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "shop.db")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE customers (id INTEGER PRIMARY KEY, email VARCHAR(255) NOT NULL);
		CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			customer_id INTEGER NOT NULL REFERENCES customers(id),
			placed_at DATETIME
		);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	configPath := filepath.Join(dir, "semlayer.yml")
	output := filepath.Join(dir, "layer.json")
	content := fmt.Sprintf("source:\n  kind: sqlite\n  dsn: %s\noutput:\n  path: %s\nlog:\n  level: error\n", dbPath, output)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	_, _, err = run(t, "sync", "--config", configPath)
	require.NoError(t, err)

	layer, err := semantic.Load(output)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, layer.TableNames())

	placedAt, ok := layer.Tables["orders"].Column("placed_at")
	require.True(t, ok)
	assert.Equal(t, "TIMESTAMP", placedAt.DataType)

	types := map[string]semantic.RelationshipType{}
	for _, r := range layer.Relationships {
		types[r.FromTable+"->"+r.ToTable] = r.RelationshipType
	}
	assert.Equal(t, semantic.ManyToOne, types["orders->customers"])
	assert.Equal(t, semantic.OneToMany, types["customers->orders"])
}

func TestSyncCommand_Errors(t *testing.T) {
	t.Run("missing models file", func(t *testing.T) {
		p := newProject(t, "")
		require.NoError(t, os.Remove(filepath.Join(p.dir, "models.yml")))
		_, _, err := run(t, "sync", "--config", p.config)
		assert.Error(t, err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "semlayer.yml")
		require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644))
		_, _, err := run(t, "sync", "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log.level")
	})

	t.Run("bad annotation privacy", func(t *testing.T) {
		p := newProject(t, "")
		bad := "tables:\n  customers:\n    columns:\n      email:\n        privacy_level: secret\n"
		require.NoError(t, os.WriteFile(filepath.Join(p.dir, "annotations.yml"), []byte(bad), 0o644))
		_, _, err := run(t, "sync", "--config", p.config)
		assert.Error(t, err)
	})
}

func TestShowCommand(t *testing.T) {
	p := newProject(t, "")
	_, _, err := run(t, "sync", "--config", p.config)
	require.NoError(t, err)

	t.Run("tables", func(t *testing.T) {
		out, _, err := run(t, "show", "--config", p.config, "--no-color")
		require.NoError(t, err)
		assert.Contains(t, out, "Tables (2)")
		assert.Contains(t, out, "People who buy things")
		assert.Contains(t, out, "orders.customer_id = customers.id")
	})

	t.Run("explicit file", func(t *testing.T) {
		out, _, err := run(t, "show", p.output, "--no-color", "--table", "customers")
		require.NoError(t, err)
		assert.Contains(t, out, "Contact address")
		assert.Contains(t, out, "confidential")
	})

	t.Run("json table", func(t *testing.T) {
		out, _, err := run(t, "show", "--config", p.config, "--table", "orders", "--format", "json")
		require.NoError(t, err)
		layer, err := semantic.FromJSON([]byte(out))
		require.NoError(t, err)
		assert.Equal(t, []string{"orders"}, layer.TableNames())
	})

	t.Run("unknown table suggests", func(t *testing.T) {
		_, stderr, err := run(t, "show", "--config", p.config, "--table", "ordres", "--no-color")
		require.Error(t, err)
		assert.Contains(t, stderr, "Did you mean: orders?")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := run(t, "show", "--config", p.config, "--format", "xml")
		assert.Error(t, err)
	})

	t.Run("missing layer", func(t *testing.T) {
		_, _, err := run(t, "show", filepath.Join(p.dir, "nope.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "semlayer sync")
	})
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	out, _, err := run(t, "init", "--yes", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Created")

	cfg, err := config.LoadFile(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, config.SourceModels, cfg.Source.Kind)
	assert.Equal(t, "models.yml", cfg.Source.ModelsFile)
	assert.Equal(t, "annotations.yml", cfg.Annotations.File)
	assert.Equal(t, "semlayer:layer", cfg.Redis.Key)

	_, _, err = run(t, "init", "--yes", "--dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, _, err = run(t, "init", "--yes", "--force", "--dir", dir)
	assert.NoError(t, err)

	_, _, err = run(t, "init", "--yes", "--dir", filepath.Join(dir, "missing", "deeper"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "does not exist"))
}

func TestWatchInputs(t *testing.T) {
	p := newProject(t, "")
	cfg, err := config.LoadFile(p.config)
	require.NoError(t, err)

	ctx := context.Background()
	logger := zap.NewNop()
	b, err := newBridge(ctx, cfg, logger)
	require.NoError(t, err)
	b.Sync()

	api := server.NewAPI(b)
	h := api.Routes()

	fw, err := watchInputs(ctx, cfg, api, logger)
	require.NoError(t, err)
	defer fw.Stop()

	description := func() string {
		req := httptest.NewRequest(http.MethodGet, "/layer/tables/customers", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		var table map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &table); err != nil {
			return ""
		}
		desc, _ := table["description"].(string)
		return desc
	}
	require.Equal(t, "People who buy things", description())

	updated := strings.Replace(shopAnnotations, "People who buy things", "Paying customers", 1)
	require.NoError(t, os.WriteFile(filepath.Join(p.dir, "annotations.yml"), []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		return description() == "Paying customers"
	}, 5*time.Second, 20*time.Millisecond)
}
