package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

const sqliteTablesQuery = `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`

const sqliteColumnsQuery = `SELECT name, type, pk FROM pragma_table_info(?) ORDER BY cid`

const sqliteForeignKeysQuery = `SELECT id, "table", "from", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`

func (i *Introspector) loadSQLite(ctx context.Context) ([]*Table, error) {
	rows, err := i.db.QueryContext(ctx, sqliteTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	var tables []*Table
	err = scanRows(rows, func() error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		tables = append(tables, &Table{Name: name})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	i.logger.Debug("loaded tables", zap.Int("count", len(tables)))

	for _, t := range tables {
		if err := i.loadSQLiteColumns(ctx, t); err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
	}

	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}
	for _, t := range tables {
		if err := i.loadSQLiteForeignKeys(ctx, t, byName); err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
	}

	return tables, nil
}

func (i *Introspector) loadSQLiteColumns(ctx context.Context, t *Table) error {
	rows, err := i.db.QueryContext(ctx, sqliteColumnsQuery, t.Name)
	if err != nil {
		return fmt.Errorf("failed to list columns: %w", err)
	}

	pkPositions := make(map[int]string)
	err = scanRows(rows, func() error {
		var (
			name, dataType string
			pk             int
		)
		if err := rows.Scan(&name, &dataType, &pk); err != nil {
			return err
		}
		t.Columns = append(t.Columns, Column{Name: name, DataType: dataType})
		if pk > 0 {
			pkPositions[pk] = name
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to list columns: %w", err)
	}

	for pos := 1; pos <= len(pkPositions); pos++ {
		if name, ok := pkPositions[pos]; ok {
			t.PrimaryKeys = append(t.PrimaryKeys, name)
		}
	}
	return nil
}

func (i *Introspector) loadSQLiteForeignKeys(ctx context.Context, t *Table, byName map[string]*Table) error {
	rows, err := i.db.QueryContext(ctx, sqliteForeignKeysQuery, t.Name)
	if err != nil {
		return fmt.Errorf("failed to list foreign keys: %w", err)
	}

	lastID := -1
	err = scanRows(rows, func() error {
		var (
			id             int
			refTable, from string
			to             sql.NullString
		)
		if err := rows.Scan(&id, &refTable, &from, &to); err != nil {
			return err
		}

		if id != lastID {
			t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
				Name:     fmt.Sprintf("fk_%s_%d", t.Name, id),
				RefTable: refTable,
			})
			lastID = id
		}
		fk := &t.ForeignKeys[len(t.ForeignKeys)-1]

		refColumn := to.String
		if !to.Valid || refColumn == "" {
			// REFERENCES without a column list targets the primary key
			if ref, ok := byName[refTable]; ok && len(fk.Columns) < len(ref.PrimaryKeys) {
				refColumn = ref.PrimaryKeys[len(fk.Columns)]
			}
		}
		fk.Columns = append(fk.Columns, from)
		fk.RefColumns = append(fk.RefColumns, refColumn)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to list foreign keys: %w", err)
	}

	i.logger.Debug("loaded foreign keys", zap.String("table", t.Name), zap.Int("count", len(t.ForeignKeys)))
	return nil
}
