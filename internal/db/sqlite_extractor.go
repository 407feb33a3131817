package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tordrt/daogen/internal/schema"
)

// SQLiteSchemaName is the schema name given to SQLite tables.
const SQLiteSchemaName = "main"

// SQLiteExtractor handles schema extraction from SQLite
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{
		client: client,
	}
}

// Dialect implements Extractor.
func (e *SQLiteExtractor) Dialect() schema.Dialect { return schema.DialectSQLite }

// ExtractTables extracts the specified tables.
// If tables is empty, extracts all tables in the database
func (e *SQLiteExtractor) ExtractTables(ctx context.Context, tables []string) ([]TableInfo, error) {
	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	var extracted []TableInfo
	for _, tableName := range tableNames {
		table, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		extracted = append(extracted, table)
	}

	return extracted, nil
}

// getTableNames returns the list of tables to extract
func (e *SQLiteExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

// extractTable reads columns and the primary key from PRAGMA table_info in
// one pass, then marks single-column unique indexes.
func (e *SQLiteExtractor) extractTable(ctx context.Context, tableName string) (TableInfo, error) {
	table := TableInfo{Name: tableName, Schema: SQLiteSchemaName}

	rows, err := e.client.GetDB().QueryContext(ctx, "PRAGMA table_info("+quoteSQLiteIdent(tableName)+")")
	if err != nil {
		return table, fmt.Errorf("failed to extract columns: %w", err)
	}
	defer rows.Close()

	type pkColumn struct {
		name  string
		order int
	}
	var pkColumns []pkColumn

	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return table, err
		}

		col := Column{Name: name, Type: colType, Nullable: notNull == 0}
		if defaultValue.Valid {
			col.Default = &defaultValue.String
		}
		if pk > 0 {
			pkColumns = append(pkColumns, pkColumn{name: name, order: pk})
		}
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return table, err
	}
	if len(table.Columns) == 0 {
		return table, fmt.Errorf("table %s not found", tableName)
	}

	table.PrimaryKey = make([]string, len(pkColumns))
	for _, pk := range pkColumns {
		table.PrimaryKey[pk.order-1] = pk.name
	}

	unique, err := e.uniqueColumns(ctx, tableName)
	if err != nil {
		return table, fmt.Errorf("failed to extract unique constraints: %w", err)
	}
	for i := range table.Columns {
		table.Columns[i].IsUnique = unique[table.Columns[i].Name]
	}

	return table, nil
}

// uniqueColumns returns the columns covered by a single-column unique index
// that does not back the primary key.
func (e *SQLiteExtractor) uniqueColumns(ctx context.Context, tableName string) (map[string]bool, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, "PRAGMA index_list("+quoteSQLiteIdent(tableName)+")")
	if err != nil {
		return nil, err
	}

	var indexes []string
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if unique == 1 && origin != "pk" {
			indexes = append(indexes, name)
		}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make(map[string]bool)
	for _, index := range indexes {
		columns, err := e.indexColumns(ctx, index)
		if err != nil {
			return nil, err
		}
		if len(columns) == 1 {
			result[columns[0]] = true
		}
	}
	return result, nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, "PRAGMA index_info("+quoteSQLiteIdent(index)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}
	return columns, rows.Err()
}
