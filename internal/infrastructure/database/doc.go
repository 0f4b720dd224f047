// Package database provides the SQLite store backing eblu's connection
// history.
//
// It wraps database/sql with WAL-mode SQLite, restricts the pool to a
// single connection (SQLite allows one writer), and applies embedded
// schema migrations at startup. Migration files live in the top-level
// migrations package and are named <version>_<name>.up.sql; each one
// runs in its own transaction and is recorded in schema_migrations.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive-only: new columns must be nullable or carry
// a default, and existing columns are never dropped or renamed.
package database
