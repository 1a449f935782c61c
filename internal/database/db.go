package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/travel-booking/internal/config"
)

// Open connects to the configured store and verifies the connection.
// mysql is the production default; postgres mirrors the hosted backend the
// original deployment ran on and sqlite serves single-node setups and tests.
func Open(cfg config.Config) (*sqlx.DB, error) {
	driver, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		// one writer at a time; busy_timeout in the DSN covers the rest
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (creating if needed) a sqlite database file.
func OpenSQLite(path string) (*sqlx.DB, error) {
	return Open(config.Config{DBDriver: "sqlite", DBName: path})
}

func dataSource(cfg config.Config) (driver, dsn string, err error) {
	switch cfg.DBDriver {
	case "", "mysql":
		auth := cfg.DBUser
		if cfg.DBPass != "" {
			auth = fmt.Sprintf("%s:%s", cfg.DBUser, cfg.DBPass)
		}
		// parseTime=true -> TIMESTAMP -> time.Time | loc=UTC keeps times consistent
		return "mysql", fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
			auth, cfg.DBHost, cfg.DBPort, cfg.DBName), nil
	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.DBUser, cfg.DBPass),
			Host:     cfg.DBHost + ":" + cfg.DBPort,
			Path:     cfg.DBName,
			RawQuery: "sslmode=disable",
		}
		return "postgres", u.String(), nil
	case "sqlite":
		return "sqlite", "file:" + cfg.DBName + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
	}
	return "", "", fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}
