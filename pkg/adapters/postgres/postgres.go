// Package postgres implements the PostgreSQL provider adapter: ad-hoc
// queries and table operations against user-supplied databases.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/lib/pq"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/protocol"
)

const (
	OperationQuery      = "postgres.query"
	OperationGetRows    = "postgres.getRows"
	OperationListTables = "postgres.listTables"
	OperationInsert     = "postgres.insert"
	OperationUpdate     = "postgres.update"
	OperationDelete     = "postgres.delete"

	defaultSchema  = "public"
	defaultRowsMax = 100
)

// Adapter opens a fresh connection per operation. The target database comes
// from the node input or the user's postgres credential, never from the
// engine's own store.
type Adapter struct{}

func NewAdapter() *Adapter {
	return &Adapter{}
}

func (a *Adapter) ProviderID() string {
	return "postgres"
}

func (a *Adapter) SupportedOperations() []string {
	return []string{
		OperationListTables, OperationGetRows, OperationQuery,
		OperationInsert, OperationUpdate, OperationDelete,
	}
}

func (a *Adapter) Execute(ctx context.Context, operation string, input map[string]any, credential *models.Credential, _ *models.ExecutionContext) (map[string]any, error) {
	connectionString, err := connectionString(input, credential)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	defer func() { _ = db.Close() }()

	db.SetMaxOpenConns(1)

	switch operation {
	case OperationListTables:
		return a.listTables(ctx, db, input)
	case OperationGetRows:
		return a.getRows(ctx, db, input)
	case OperationQuery:
		return a.query(ctx, db, input)
	case OperationInsert:
		return a.insert(ctx, db, input)
	case OperationUpdate:
		return a.update(ctx, db, input)
	case OperationDelete:
		return a.delete(ctx, db, input)
	default:
		return nil, &protocol.DispatchError{Provider: a.ProviderID(), Operation: operation}
	}
}

func connectionString(input map[string]any, credential *models.Credential) (string, error) {
	if cs, ok := input["connectionString"].(string); ok && cs != "" {
		return cs, nil
	}

	if credential != nil && credential.Type == models.CredentialTypeAPIKey {
		if key := credential.APIKey(); key != "" {
			return key, nil
		}
	}

	host, _ := input["host"].(string)
	database, _ := input["database"].(string)

	if host != "" && database != "" {
		port := 5432
		if v, ok := input["port"].(float64); ok && v > 0 {
			port = int(v)
		}

		user := "postgres"
		if v, ok := input["user"].(string); ok && v != "" {
			user = v
		}

		password, _ := input["password"].(string)

		return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s",
			user, url.QueryEscape(password), host, port, database), nil
	}

	return "", protocol.Validationf("PostgreSQL connection string or connection details required")
}

func (a *Adapter) listTables(ctx context.Context, db *sql.DB, input map[string]any) (map[string]any, error) {
	schema := schemaOr(input)

	rows, err := db.QueryContext(ctx, `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = $1
		ORDER BY table_name
	`, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	defer func() { _ = rows.Close() }()

	type tableInfo struct {
		name      string
		tableType string
	}

	var infos []tableInfo

	for rows.Next() {
		var info tableInfo
		if err := rows.Scan(&info.name, &info.tableType); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}

		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	tables := make([]any, 0, len(infos))

	for _, info := range infos {
		entry := map[string]any{
			"name":     info.name,
			"type":     info.tableType,
			"rowCount": nil,
		}

		var count int64

		countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s.%s`, quoteIdent(schema), quoteIdent(info.name))
		if err := db.QueryRowContext(ctx, countQuery).Scan(&count); err == nil {
			entry["rowCount"] = count
		}

		tables = append(tables, entry)
	}

	return map[string]any{
		"schema": schema,
		"tables": tables,
		"count":  len(tables),
	}, nil
}

func (a *Adapter) getRows(ctx context.Context, db *sql.DB, input map[string]any) (map[string]any, error) {
	table, _ := input["table"].(string)
	if table == "" {
		return nil, protocol.Validationf("table name is required")
	}

	schema := schemaOr(input)

	limit := defaultRowsMax
	if v, ok := input["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	offset := 0
	if v, ok := input["offset"].(float64); ok && v > 0 {
		offset = int(v)
	}

	query := fmt.Sprintf(`SELECT * FROM %s.%s`, quoteIdent(schema), quoteIdent(table))
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s.%s`, quoteIdent(schema), quoteIdent(table))

	if where, ok := input["where"].(string); ok && where != "" {
		query += " WHERE " + where
		countQuery += " WHERE " + where
	}

	if orderBy, ok := input["orderBy"].(string); ok && orderBy != "" {
		direction := "ASC"
		if v, _ := input["orderDirection"].(string); strings.EqualFold(v, "DESC") {
			direction = "DESC"
		}

		query += fmt.Sprintf(" ORDER BY %s %s", quoteIdent(orderBy), direction)
	}

	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	resultRows, err := queryToMaps(ctx, db, query)
	if err != nil {
		return nil, err
	}

	var totalCount int64
	if err := db.QueryRowContext(ctx, countQuery).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}

	columns, err := a.columnInfo(ctx, db, schema, table)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"table":      table,
		"schema":     schema,
		"rows":       resultRows,
		"columns":    columns,
		"count":      len(resultRows),
		"totalCount": totalCount,
		"limit":      limit,
		"offset":     offset,
	}, nil
}

func (a *Adapter) columnInfo(ctx context.Context, db *sql.DB, schema, table string) ([]any, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}

	defer func() { _ = rows.Close() }()

	columns := make([]any, 0)

	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column row: %w", err)
		}

		columns = append(columns, map[string]any{
			"name":     name,
			"type":     dataType,
			"nullable": nullable == "YES",
		})
	}

	return columns, rows.Err()
}

func (a *Adapter) query(ctx context.Context, db *sql.DB, input map[string]any) (map[string]any, error) {
	query, _ := input["query"].(string)
	if query == "" {
		return nil, protocol.Validationf("SQL query is required")
	}

	rows, err := queryToMaps(ctx, db, query)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"rows":  rows,
		"count": len(rows),
		"query": query,
	}, nil
}

func (a *Adapter) insert(ctx context.Context, db *sql.DB, input map[string]any) (map[string]any, error) {
	table, _ := input["table"].(string)
	data, _ := input["data"].(map[string]any)

	if table == "" || len(data) == 0 {
		return nil, protocol.Validationf("table name and data are required")
	}

	schema := schemaOr(input)

	columns := make([]string, 0, len(data))
	placeholders := make([]string, 0, len(data))
	values := make([]any, 0, len(data))

	i := 1
	for column, value := range data {
		columns = append(columns, quoteIdent(column))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i))
		values = append(values, value)
		i++
	}

	query := fmt.Sprintf(`INSERT INTO %s.%s (%s) VALUES (%s) RETURNING *`,
		quoteIdent(schema), quoteIdent(table),
		strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	rows, err := queryToMaps(ctx, db, query, values...)
	if err != nil {
		return nil, err
	}

	var inserted any
	if len(rows) > 0 {
		inserted = rows[0]
	}

	return map[string]any{
		"inserted": inserted,
		"table":    table,
		"success":  true,
	}, nil
}

func (a *Adapter) update(ctx context.Context, db *sql.DB, input map[string]any) (map[string]any, error) {
	table, _ := input["table"].(string)
	data, _ := input["data"].(map[string]any)
	where, _ := input["where"].(string)

	if table == "" || len(data) == 0 || where == "" {
		return nil, protocol.Validationf("table name, data, and WHERE clause are required")
	}

	schema := schemaOr(input)

	assignments := make([]string, 0, len(data))
	values := make([]any, 0, len(data))

	i := 1
	for column, value := range data {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", quoteIdent(column), i))
		values = append(values, value)
		i++
	}

	query := fmt.Sprintf(`UPDATE %s.%s SET %s WHERE %s RETURNING *`,
		quoteIdent(schema), quoteIdent(table), strings.Join(assignments, ", "), where)

	rows, err := queryToMaps(ctx, db, query, values...)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"updated": rows,
		"count":   len(rows),
		"table":   table,
		"success": true,
	}, nil
}

func (a *Adapter) delete(ctx context.Context, db *sql.DB, input map[string]any) (map[string]any, error) {
	table, _ := input["table"].(string)
	where, _ := input["where"].(string)

	if table == "" || where == "" {
		return nil, protocol.Validationf("table name and WHERE clause are required")
	}

	schema := schemaOr(input)

	query := fmt.Sprintf(`DELETE FROM %s.%s WHERE %s RETURNING *`,
		quoteIdent(schema), quoteIdent(table), where)

	rows, err := queryToMaps(ctx, db, query)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"deleted": rows,
		"count":   len(rows),
		"table":   table,
		"success": true,
	}, nil
}

// queryToMaps runs a query and materializes every row as a column-keyed map.
func queryToMaps(ctx context.Context, db *sql.DB, query string, args ...any) ([]any, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := make([]any, 0)

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))

		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

func schemaOr(input map[string]any) string {
	if v, ok := input["schema"].(string); ok && v != "" {
		return v
	}

	return defaultSchema
}

// quoteIdent double-quotes an identifier, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
