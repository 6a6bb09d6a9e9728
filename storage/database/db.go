package database

import (
	"database/sql"
	"embed"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"
	_ "modernc.org/sqlite"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
)

// Drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed migrations/*.sql
var MigrationsFS embed.FS

const MigrationsDir = "migrations"

// Open connects to the SQL database of the configuration and waits for it to answer.
func Open(conf *core.Config) (*sqlx.DB, error) {
	driver := conf.Database.Driver
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, errors.Errorf("unsupported SQL driver %q", driver)
	}

	db, err := sqlx.Open(driver, conf.Database.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if driver == DriverSQLite {
		// sqlite serializes writers
		db.SetMaxOpenConns(1)
	}
	if err = ping(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// SetDialect points goose at the SQL flavour of driver.
func SetDialect(driver string) error {
	dialect := driver
	if driver == DriverSQLite {
		dialect = "sqlite3"
	}
	return errors.Wrap(goose.SetDialect(dialect), "setting migration dialect")
}

// Migrate applies every pending migration.
func Migrate(db *sqlx.DB) error {
	if err := SetDialect(db.DriverName()); err != nil {
		return err
	}
	if err := goose.RunFS("up", db.DB, MigrationsFS, MigrationsDir); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
