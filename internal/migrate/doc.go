// Package migrate imports legacy single-file JSON snapshots into per-guild
// databases.
//
// A Runner executes six independent steps per guild (stats, warnings,
// ticket_config, roles_config, rules_config, user_preferences). Each step
// looks for its file in <dir>/<guild_id>/ first and then in <dir>/. A missing
// file is skipped silently; a malformed file fails only its own step.
//
// Every imported file is recorded by SHA-256 checksum in the guild's
// legacy_imports table, and a step whose snapshot is already recorded is
// skipped. Re-running migration, as the startup backfill does, therefore
// never overwrites stats, config or roles changed since the first import,
// and never duplicates warnings. A changed file is a new snapshot and is
// applied again. Stats and warnings commit together with their ledger row,
// and the ledger check runs inside that transaction.
//
// Shared files apply to every migrated guild unless Options.SharedGuildID
// names the one guild they belong to.
package migrate
