package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const pgTablesQuery = `SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`

const pgColumnsQuery = `SELECT table_name, column_name, data_type, udt_name,
	character_maximum_length, numeric_precision, numeric_scale
FROM information_schema.columns
WHERE table_schema = $1
ORDER BY table_name, ordinal_position`

const pgPrimaryKeysQuery = `SELECT tc.table_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
	ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = $1
ORDER BY tc.table_name, kcu.ordinal_position`

const pgForeignKeysQuery = `SELECT kcu.table_name, kcu.constraint_name, kcu.column_name,
	ref.table_name, ref.column_name
FROM information_schema.referential_constraints rc
JOIN information_schema.key_column_usage kcu
	ON kcu.constraint_name = rc.constraint_name AND kcu.constraint_schema = rc.constraint_schema
JOIN information_schema.key_column_usage ref
	ON ref.constraint_name = rc.unique_constraint_name
	AND ref.constraint_schema = rc.unique_constraint_schema
	AND ref.ordinal_position = kcu.position_in_unique_constraint
WHERE kcu.table_schema = $1
ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position`

func (i *Introspector) loadPostgres(ctx context.Context) ([]*Table, error) {
	byName := make(map[string]*Table)
	var tables []*Table

	rows, err := i.db.QueryContext(ctx, pgTablesQuery, i.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	err = scanRows(rows, func() error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		t := &Table{Name: name}
		byName[name] = t
		tables = append(tables, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	i.logger.Debug("loaded tables", zap.String("schema", i.schema), zap.Int("count", len(tables)))

	rows, err = i.db.QueryContext(ctx, pgColumnsQuery, i.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	columns := 0
	err = scanRows(rows, func() error {
		var (
			table, name, dataType, udtName string
			length, precision, scale       sql.NullInt64
		)
		if err := rows.Scan(&table, &name, &dataType, &udtName, &length, &precision, &scale); err != nil {
			return err
		}
		t, ok := byName[table]
		if !ok {
			// views and other relations
			return nil
		}
		t.Columns = append(t.Columns, Column{
			Name:     name,
			DataType: postgresTypeName(dataType, udtName, length, precision, scale),
		})
		columns++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	i.logger.Debug("loaded columns", zap.Int("count", columns))

	rows, err = i.db.QueryContext(ctx, pgPrimaryKeysQuery, i.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list primary keys: %w", err)
	}
	err = scanRows(rows, func() error {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return err
		}
		if t, ok := byName[table]; ok {
			t.PrimaryKeys = append(t.PrimaryKeys, column)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list primary keys: %w", err)
	}

	rows, err = i.db.QueryContext(ctx, pgForeignKeysQuery, i.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list foreign keys: %w", err)
	}
	foreignKeys := 0
	err = scanRows(rows, func() error {
		var table, constraint, column, refTable, refColumn string
		if err := rows.Scan(&table, &constraint, &column, &refTable, &refColumn); err != nil {
			return err
		}
		t, ok := byName[table]
		if !ok {
			return nil
		}
		if n := len(t.ForeignKeys); n > 0 && t.ForeignKeys[n-1].Name == constraint {
			fk := &t.ForeignKeys[n-1]
			fk.Columns = append(fk.Columns, column)
			fk.RefColumns = append(fk.RefColumns, refColumn)
			return nil
		}
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
			Name:       constraint,
			Columns:    []string{column},
			RefTable:   refTable,
			RefColumns: []string{refColumn},
		})
		foreignKeys++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list foreign keys: %w", err)
	}
	i.logger.Debug("loaded foreign keys", zap.Int("count", foreignKeys))

	return tables, nil
}

// postgresTypeName rebuilds a full type name such as "character varying(50)" or
// "numeric(10,2)" from information_schema columns
func postgresTypeName(dataType, udtName string, length, precision, scale sql.NullInt64) string {
	switch dataType {
	case "USER-DEFINED":
		return udtName
	case "ARRAY":
		return strings.TrimPrefix(udtName, "_") + "[]"
	case "character varying", "character":
		if length.Valid {
			return fmt.Sprintf("%s(%d)", dataType, length.Int64)
		}
	case "numeric":
		if precision.Valid {
			return fmt.Sprintf("numeric(%d,%d)", precision.Int64, scale.Int64)
		}
	}
	return dataType
}

// scanRows calls scan for each row and closes rows
func scanRows(rows *sql.Rows, scan func() error) error {
	defer rows.Close()

	for rows.Next() {
		if err := scan(); err != nil {
			return err
		}
	}
	return rows.Err()
}
