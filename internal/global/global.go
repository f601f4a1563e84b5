// ABOUTME: Shared SQLite database holding the guild registry and access lists
// ABOUTME: Tenant-independent; never touches per-guild files

package global

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidListType is returned for list types other than whitelist/blacklist
var ErrInvalidListType = errors.New("invalid list type")

// FileName is the name of the global database inside the database directory.
const FileName = "global.db"

// Guild is a registry row. Rows are never deleted.
type Guild struct {
	GuildID  int64
	Name     string
	JoinedAt time.Time
	LastSeen time.Time
}

// ListType selects an access list
type ListType string

const (
	Whitelist ListType = "whitelist"
	Blacklist ListType = "blacklist"
)

// ParseListType validates a list type name.
func ParseListType(s string) (ListType, error) {
	switch lt := ListType(strings.ToLower(strings.TrimSpace(s))); lt {
	case Whitelist, Blacklist:
		return lt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidListType, s)
}

// AccessEntry is a guild's membership in an access list.
type AccessEntry struct {
	GuildID   int64
	ListType  ListType
	Reason    string
	AddedBy   int64
	CreatedAt time.Time
}

// Store implements the global registry using SQLite
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (creating if needed) the global database at path.
// Parent directories are created if needed.
func New(path string) (*Store, error) {
	logger := slog.Default().With("component", "global")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("global store initialized", "path", path)
	return s, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS registered_guilds (
		guild_id   INTEGER PRIMARY KEY,
		guild_name TEXT NOT NULL,
		joined_at  TEXT NOT NULL,
		last_seen  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS access_lists (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id   INTEGER NOT NULL,
		user_id    INTEGER NOT NULL DEFAULT 0,
		list_type  TEXT NOT NULL,
		reason     TEXT NOT NULL DEFAULT '',
		added_by   INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,

		UNIQUE(guild_id, user_id, list_type),
		CHECK (list_type IN ('whitelist', 'blacklist'))
	);

	CREATE INDEX IF NOT EXISTS idx_access_lists_type ON access_lists(list_type);
`

// Close closes the database connection
func (s *Store) Close() error {
	s.logger.Info("closing global store")
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
