package mis

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
)

// Row is one result record keyed by column name, in the driver's value types
// except that byte slices are returned as strings.
type Row map[string]any

var (
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	sortRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*(\s+(?i:asc|desc))?$`)
)

// Connection wraps one live session to an external database.
type Connection struct {
	db     *sqlx.DB
	driver DriverType
}

// Wrap adopts an already opened handle.
func Wrap(db *sqlx.DB, driver DriverType) *Connection {
	return &Connection{db: db, driver: driver}
}

func (c *Connection) Driver() DriverType { return c.driver }

// Close disconnects; it is safe to call more than once.
func (c *Connection) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func (c *Connection) handle() (*sqlx.DB, error) {
	if c.db == nil {
		return nil, common.ConnectionError(constants.ErrCodeConnectionUnreachable, sql.ErrConnDone)
	}
	return c.db, nil
}

// Get selects rows of table matching all conditions. sort is an ORDER BY list,
// fields empty means every column and limit 0 means unlimited.
func (c *Connection) Get(ctx context.Context, table string, conditions map[string]any, sortBy string, fields []string, limit int) ([]Row, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}

	cols := "*"
	if len(fields) > 0 {
		for _, f := range fields {
			if err := checkIdent(f); err != nil {
				return nil, err
			}
		}
		cols = strings.Join(fields, ", ")
	}

	where, args, err := whereClause(conditions)
	if err != nil {
		return nil, err
	}

	var order string
	if sortBy != "" {
		for _, part := range strings.Split(sortBy, ",") {
			if !sortRe.MatchString(strings.TrimSpace(part)) {
				return nil, common.ConfigError(constants.ErrCodeInvalidIdentifier, "invalid sort %q", sortBy)
			}
		}
		order = " ORDER BY " + sortBy
	}

	query := c.limitQuery(fmt.Sprintf("SELECT %s FROM %s%s%s", cols, table, where, order), cols, limit)
	return c.query(ctx, query, args, limit)
}

func (c *Connection) GetOne(ctx context.Context, table string, conditions map[string]any, sortBy string, fields []string) (Row, error) {
	rows, err := c.Get(ctx, table, conditions, sortBy, fields, 1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (c *Connection) GetMany(ctx context.Context, table string, conditions map[string]any, sortBy string, fields []string) ([]Row, error) {
	return c.Get(ctx, table, conditions, sortBy, fields, 0)
}

// GetSQL runs a raw select written with ? placeholders. limit caps the rows
// read from the cursor; the statement itself is not rewritten.
func (c *Connection) GetSQL(ctx context.Context, query string, params []any, limit int) ([]Row, error) {
	return c.query(ctx, query, params, limit)
}

func (c *Connection) GetSQLOne(ctx context.Context, query string, params []any) (Row, error) {
	rows, err := c.GetSQL(ctx, query, params, 1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (c *Connection) GetSQLMany(ctx context.Context, query string, params []any) ([]Row, error) {
	return c.GetSQL(ctx, query, params, 0)
}

// Insert adds one row and returns its id column.
func (c *Connection) Insert(ctx context.Context, table string, data map[string]any) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, common.ConfigError(constants.ErrCodeConfigMalformed, "insert into %s without data", table)
	}
	db, err := c.handle()
	if err != nil {
		return 0, err
	}

	keys := sortedKeys(data)
	args := make([]any, 0, len(keys)+1)
	marks := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := checkIdent(k); err != nil {
			return 0, err
		}
		args = append(args, data[k])
		marks = append(marks, "?")
	}
	cols := strings.Join(keys, ", ")
	values := strings.Join(marks, ", ")

	var id int64
	switch c.driver {
	case PgSQL:
		query := db.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id", table, cols, values))
		err = db.QueryRowxContext(ctx, query, args...).Scan(&id)
	case SQLSrv:
		query := db.Rebind(fmt.Sprintf("INSERT INTO %s (%s) OUTPUT INSERTED.id VALUES (%s)", table, cols, values))
		err = db.QueryRowxContext(ctx, query, args...).Scan(&id)
	case OCI:
		query := db.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id INTO ?", table, cols, values))
		args = append(args, sql.Out{Dest: &id})
		_, err = db.ExecContext(ctx, query, args...)
	default:
		var res sql.Result
		res, err = db.ExecContext(ctx, db.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, cols, values)), args...)
		if err == nil {
			id, err = res.LastInsertId()
		}
	}
	if err != nil {
		return 0, common.ConnectionError(constants.ErrCodeQueryFailed, err)
	}
	return id, nil
}

// Update sets data on every row matching conditions. Unconditional updates are refused.
func (c *Connection) Update(ctx context.Context, table string, conditions map[string]any, data map[string]any) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	if len(conditions) == 0 {
		return common.ConfigError(constants.ErrCodeConfigMalformed, "update of %s without conditions", table)
	}
	if len(data) == 0 {
		return nil
	}
	db, err := c.handle()
	if err != nil {
		return err
	}

	keys := sortedKeys(data)
	sets := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+len(conditions))
	for _, k := range keys {
		if err := checkIdent(k); err != nil {
			return err
		}
		sets = append(sets, k+" = ?")
		args = append(args, data[k])
	}

	where, whereArgs, err := whereClause(conditions)
	if err != nil {
		return err
	}
	args = append(args, whereArgs...)

	query := db.Rebind(fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), where))
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return common.ConnectionError(constants.ErrCodeQueryFailed, err)
	}
	return nil
}

func (c *Connection) query(ctx context.Context, query string, args []any, limit int) ([]Row, error) {
	db, err := c.handle()
	if err != nil {
		return nil, err
	}
	res, err := Query(ctx, db, query, args, limit)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// QuerySQL is GetSQL keeping the column order of the result.
func (c *Connection) QuerySQL(ctx context.Context, query string, params []any, limit int) (*Result, error) {
	db, err := c.handle()
	if err != nil {
		return nil, err
	}
	return Query(ctx, db, query, params, limit)
}

// Result is a row set with its columns in select order.
type Result struct {
	Columns []string
	Rows    []Row
}

// Query runs a ? placeholder select on any sqlx handle, including the
// platform database itself.
func Query(ctx context.Context, db *sqlx.DB, query string, args []any, limit int) (*Result, error) {
	rows, err := db.QueryxContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return nil, common.ConnectionError(constants.ErrCodeQueryFailed, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, common.ConnectionError(constants.ErrCodeQueryFailed, err)
	}

	res := &Result{Columns: cols}
	for rows.Next() {
		row := make(map[string]any, len(cols))
		if err := rows.MapScan(row); err != nil {
			return nil, common.ConnectionError(constants.ErrCodeQueryFailed, err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		res.Rows = append(res.Rows, row)
		if limit > 0 && len(res.Rows) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, common.ConnectionError(constants.ErrCodeQueryFailed, err)
	}
	return res, nil
}

func (c *Connection) limitQuery(query, cols string, limit int) string {
	if limit <= 0 {
		return query
	}
	switch c.driver {
	case SQLSrv:
		return strings.Replace(query, "SELECT "+cols, fmt.Sprintf("SELECT TOP %d %s", limit, cols), 1)
	case OCI:
		return fmt.Sprintf("%s FETCH FIRST %d ROWS ONLY", query, limit)
	default:
		return fmt.Sprintf("%s LIMIT %d", query, limit)
	}
}

func whereClause(conditions map[string]any) (string, []any, error) {
	if len(conditions) == 0 {
		return "", nil, nil
	}
	keys := sortedKeys(conditions)
	parts := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		if err := checkIdent(k); err != nil {
			return "", nil, err
		}
		if conditions[k] == nil {
			parts = append(parts, k+" IS NULL")
			continue
		}
		parts = append(parts, k+" = ?")
		args = append(args, conditions[k])
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func checkIdent(name string) error {
	if !identRe.MatchString(name) {
		return common.ConfigError(constants.ErrCodeInvalidIdentifier, "invalid identifier %q", name)
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
