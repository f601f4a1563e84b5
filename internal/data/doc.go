// Package data is the call surface the rest of the bot uses for persistence.
//
// Facade ties together per-guild storage (internal/store), the global guild
// registry and access lists (internal/global, internal/access) and legacy
// migration (internal/migrate). Provisioning is owned by the guild store:
// every store operation ensures its database exists, so RegisterTenant only
// sequences registration, an explicit Ensure and migration.
//
// Failures are logged here. IsAllowed fails open and GetConfig falls back
// to defaults; every other method returns a wrapped error.
package data
