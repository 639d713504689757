// Package database opens the SQLite run log and applies its schema.
//
// The run log records every scan and simulate run, each command a back-end
// completed and the slot tables scans discovered. It is written by the
// engine while a run executes and read by the HTTP API.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// # Migrations
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Each migration runs in its own transaction
// and is recorded in schema_migrations; a failed migration leaves the ones
// before it applied.
//
// The path ":memory:" opens a private in-memory database, which tests use.
package database
