// Package store provides per-guild persistence using one SQLite file per guild.
//
// # Architecture
//
// Store owns a directory of guild_<id>.db files. Each guild is an isolated
// tenant: no query ever spans two files, and a failure in one guild's file
// never affects another guild.
//
// Files are provisioned lazily. Every operation first calls Ensure, which
// creates the file and its tables with CREATE TABLE IF NOT EXISTS and seeds
// the singleton guild_config row. Ensure remembers provisioned guilds; before
// trusting that memory it checks the file still exists, and Invalidate drops
// a guild from it explicitly. Concurrent Ensure calls for one guild share a
// single provisioning run.
//
// Handles come from internal/pool: one long-lived *sql.DB per guild, closed
// after an idle period or when too many guilds are open at once.
//
// # Data Models
//
//   - GuildConfig: singleton row (id = 1) plus a JSON extension map
//   - UserStat: message count, voice time and last-online per member
//   - Warning: append-only moderation records
//   - Ticket: support tickets, open or closed
//   - RoleConfig: self-assignable role menu entries
//   - LegacyImport: ledger of imported legacy snapshot files
//
// # SQLite Configuration
//
// Each handle is opened with:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//	PRAGMA busy_timeout=5000;
//
// and a single connection, so writes to one guild are serialized inside the
// process. Transactions start with BEGIN IMMEDIATE.
//
// # Error Handling
//
//   - ErrNotFound: requested entity does not exist
//   - *ProvisioningError: the guild file could not be created or opened
//
// GetConfig never fails because the row is missing; it returns
// DefaultGuildConfig instead.
package store
