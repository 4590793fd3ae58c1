// Package mis connects db sections to external (MIS) databases.
package mis

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	go_ora "github.com/sijms/go-ora/v2"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/logging"
)

// DriverType names the kind of external database.
type DriverType string

const (
	MariaDB DriverType = "mariadb"
	MySQL   DriverType = "mysql"
	PgSQL   DriverType = "pgsql"
	SQLSrv  DriverType = "sqlsrv"
	OCI     DriverType = "oci"
)

const connectTimeout = 10 * time.Second

type driverSpec struct {
	sqlName string
	dsn     func(host, user, pass, database string) (string, error)
}

var drivers = map[DriverType]driverSpec{
	MariaDB: {sqlName: "mysql", dsn: mysqlDSN},
	MySQL:   {sqlName: "mysql", dsn: mysqlDSN},
	PgSQL:   {sqlName: "postgres", dsn: pgsqlDSN},
	SQLSrv:  {sqlName: "sqlserver", dsn: sqlsrvDSN},
	OCI:     {sqlName: "oracle", dsn: ociDSN},
}

func init() {
	// go-ora registers as "oracle", which sqlx does not know.
	sqlx.BindDriver("oracle", sqlx.NAMED)
}

// DriverTypes lists the supported drivers in a stable order.
func DriverTypes() []DriverType {
	return []DriverType{MariaDB, MySQL, PgSQL, SQLSrv, OCI}
}

// ParseDriverType rejects anything outside the supported set.
func ParseDriverType(s string) (DriverType, error) {
	d := DriverType(s)
	if _, ok := drivers[d]; !ok {
		return "", common.ConfigError(constants.ErrCodeUnknownDriver, "unsupported external database driver %q", s)
	}
	return d, nil
}

// Connect opens and pings a live session. Unknown drivers are configuration
// errors; every other failure is reported as an unreachable connection.
func Connect(ctx context.Context, driver, host, user, pass, database string) (*Connection, error) {
	d, err := ParseDriverType(driver)
	if err != nil {
		return nil, err
	}
	spec := drivers[d]

	dsn, err := spec.dsn(host, user, pass, database)
	if err != nil {
		return nil, common.ConnectionError(constants.ErrCodeConnectionUnreachable, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, connectTimeout)
		defer cancel()
	}

	db, err := sqlx.ConnectContext(ctx, spec.sqlName, dsn)
	if err != nil {
		logging.Warn("External database unreachable", "driver", d, "host", host, "database", database, "error", err.Error())
		return nil, common.ConnectionError(constants.ErrCodeConnectionUnreachable, err)
	}
	// one session per connection object, nothing shared across requests
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return Wrap(db, d), nil
}

// With runs fn on a fresh connection and always releases it.
func With(ctx context.Context, driver, host, user, pass, database string, fn func(*Connection) error) error {
	conn, err := Connect(ctx, driver, host, user, pass, database)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

func mysqlDSN(host, user, pass, database string) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = withDefaultPort(host, 3306)
	cfg.DBName = database
	cfg.ParseTime = true
	cfg.Timeout = connectTimeout
	return cfg.FormatDSN(), nil
}

func pgsqlDSN(host, user, pass, database string) (string, error) {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     withDefaultPort(host, 5432),
		Path:     "/" + database,
		RawQuery: "sslmode=disable&connect_timeout=10",
	}
	return u.String(), nil
}

func sqlsrvDSN(host, user, pass, database string) (string, error) {
	q := url.Values{}
	q.Set("database", database)
	q.Set("dial timeout", "10")
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(user, pass),
		Host:     withDefaultPort(host, 1433),
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

// ociDSN treats database as the service name.
func ociDSN(host, user, pass, database string) (string, error) {
	server, portStr, err := net.SplitHostPort(withDefaultPort(host, 1521))
	if err != nil {
		return "", fmt.Errorf("invalid oracle host %q: %w", host, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("invalid oracle port %q: %w", portStr, err)
	}
	return go_ora.BuildUrl(server, port, database, user, pass, nil), nil
}

func withDefaultPort(host string, port int) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
