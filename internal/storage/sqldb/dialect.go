package sqldb

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/aanand-mishra/e-learning-api/internal/config"
	"github.com/go-sql-driver/mysql"
)

// dialect captures what differs between the supported drivers. Queries are
// always written with "?" placeholders and rebound here when needed.
type dialect struct {
	driver string

	// numbered drivers want $1, $2, ... instead of ?.
	numbered bool

	// returning drivers have no LastInsertId and need INSERT ... RETURNING.
	returning bool

	dsn    func(config.Storage) string
	schema []string
}

var dialects = map[string]dialect{
	config.DriverSQLite: {
		driver: config.DriverSQLite,
		dsn:    sqliteDSN,
		schema: sqliteSchema,
	},
	config.DriverMySQL: {
		driver: config.DriverMySQL,
		dsn:    mysqlDSN,
		schema: mysqlSchema,
	},
	config.DriverPostgres: {
		driver:    config.DriverPostgres,
		numbered:  true,
		returning: true,
		dsn:       postgresDSN,
		schema:    postgresSchema,
	},
}

// rebind rewrites ? placeholders for drivers that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqliteDSN turns foreign keys on (SQLite leaves them off per connection)
// and waits on a locked database instead of failing immediately.
func sqliteDSN(cfg config.Storage) string {
	sep := "?"
	if strings.Contains(cfg.Path, "?") {
		sep = "&"
	}
	return cfg.Path + sep + "_foreign_keys=1&_busy_timeout=5000"
}

// mysqlDSN sets ClientFoundRows so RowsAffected counts matched rows. Without
// it an UPDATE that writes identical values reports 0 and looks like a miss.
func mysqlDSN(cfg config.Storage) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	c.DBName = cfg.Name
	c.ClientFoundRows = true
	return c.FormatDSN()
}

func postgresDSN(cfg config.Storage) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:   "/" + cfg.Name,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return u.String()
}

// Columns are nullable on purpose: an update under the replace policy
// writes NULL into every column the client left out.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS courses (
		course_id          INTEGER PRIMARY KEY AUTOINCREMENT,
		course_name        TEXT,
		course_description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		student_id        INTEGER PRIMARY KEY AUTOINCREMENT,
		student_firstName TEXT,
		student_lastName  TEXT,
		student_email     TEXT,
		student_password  TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		enrollment_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id      INTEGER REFERENCES students (student_id),
		course_id       INTEGER REFERENCES courses (course_id),
		enrollment_date TEXT,
		completion_date TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS test_results (
		test_result_id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id     INTEGER REFERENCES students (student_id),
		test_score     REAL,
		test_date      TEXT
	)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS courses (
		course_id          INTEGER NOT NULL PRIMARY KEY AUTO_INCREMENT,
		course_name        VARCHAR(255),
		course_description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		student_id        INTEGER NOT NULL PRIMARY KEY AUTO_INCREMENT,
		student_firstName VARCHAR(255),
		student_lastName  VARCHAR(255),
		student_email     VARCHAR(255),
		student_password  VARCHAR(255)
	)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		enrollment_id   INTEGER NOT NULL PRIMARY KEY AUTO_INCREMENT,
		student_id      INTEGER,
		course_id       INTEGER,
		enrollment_date DATE,
		completion_date DATE,
		FOREIGN KEY (student_id) REFERENCES students (student_id),
		FOREIGN KEY (course_id) REFERENCES courses (course_id)
	)`,
	`CREATE TABLE IF NOT EXISTS test_results (
		test_result_id INTEGER NOT NULL PRIMARY KEY AUTO_INCREMENT,
		student_id     INTEGER,
		test_score     DOUBLE,
		test_date      DATE,
		FOREIGN KEY (student_id) REFERENCES students (student_id)
	)`,
}

// Dates are TEXT here: pgx hands DATE columns back as time.Time, which
// would come out of the API as a full RFC 3339 timestamp.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS courses (
		course_id          BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		course_name        TEXT,
		course_description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		student_id        BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		student_firstName TEXT,
		student_lastName  TEXT,
		student_email     TEXT,
		student_password  TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		enrollment_id   BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		student_id      BIGINT REFERENCES students (student_id),
		course_id       BIGINT REFERENCES courses (course_id),
		enrollment_date TEXT,
		completion_date TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS test_results (
		test_result_id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		student_id     BIGINT REFERENCES students (student_id),
		test_score     DOUBLE PRECISION,
		test_date      TEXT
	)`,
}

func lookupDialect(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported storage driver %q", driver)
	}
	return d, nil
}
