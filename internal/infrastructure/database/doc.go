// Package database provides SQLite connection management and schema
// migrations for Motion Core's persistent state.
//
// ┌─────────────────────────────────────────────────────────┐
// │                       database                          │
// │                                                         │
// │  Open(cfg) ──► *DB ──► Migrate(ctx) ──► ready           │
// │                 │                                       │
// │                 ├── HealthCheck(ctx)                    │
// │                 └── BeginTx(ctx, opts)                  │
// └─────────────────────────────────────────────────────────┘
//
// The database stores sequence definitions and device configuration.
// Run state is deliberately not persisted: an interrupted run does not
// survive a daemon restart, so the engine always starts idle.
//
// # Connection Settings
//
// SQLite runs in WAL mode with a busy timeout and foreign keys enabled.
// MaxOpenConns is pinned to 1: SQLite serialises writers anyway, and a
// single connection avoids SQLITE_BUSY churn under concurrent access
// from the API and the engine.
//
// # Migrations
//
// Migration files are embedded at build time via MigrationsFS and
// applied in version order, each in its own transaction. Filenames
// follow YYYYMMDD_HHMMSS_description.up.sql / .down.sql.
package database
