// Package global stores tenant-independent state in a single SQLite file:
// the registry of guilds the bot has seen (registered_guilds) and the guild
// whitelist/blacklist (access_lists).
//
// Registering a guild never provisions its database; that is the job of
// internal/store, invoked by internal/data.
package global
