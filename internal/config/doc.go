// Package config handles configuration loading for guildstore.
//
// # Overview
//
// Configuration is loaded from a YAML file. Every value has a default, so an
// empty file (or no file at all, see FromEnv) yields a usable configuration.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from GUILDSTORE_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/guildstore/config.yaml
//  3. ~/.config/guildstore/config.yaml
//
// # Environment Variables
//
// File contents may reference environment variables:
//
//	legacy:
//	  dir: "${BOT_DATA_DIR}"
//
// After the file is parsed, GUILDSTORE_* variables override individual keys:
//
//	GUILDSTORE_DATABASE_DIR, GUILDSTORE_LEGACY_DIR, GUILDSTORE_LEGACY_GUILD_ID,
//	GUILDSTORE_POOL_MAX_OPEN, GUILDSTORE_POOL_IDLE_TIMEOUT,
//	GUILDSTORE_LOG_LEVEL, GUILDSTORE_LOG_FORMAT
//
// # Configuration Sections
//
//	database:
//	  dir: "data/databases"   # guild_<id>.db files and global.db
//
//	legacy:
//	  dir: "data"             # stats.json, warns.json, ...
//	  guild_id: 0             # owner of the shared snapshots, 0 = any guild
//
//	pool:
//	  max_open: 64            # open tenant handles before idle ones are closed
//	  idle_timeout: "10m"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
