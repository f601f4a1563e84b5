// ABOUTME: SQLite implementation of per-guild storage using modernc.org/sqlite
// ABOUTME: One database file per guild, provisioned lazily with create-if-missing DDL

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"github.com/2389/guildstore/internal/pool"
)

// Options tunes the handle pool behind a Store.
type Options struct {
	MaxOpen     int
	IdleTimeout time.Duration
}

// Store owns one SQLite database per guild under a single directory.
type Store struct {
	dir    string
	pool   *pool.Pool
	group  singleflight.Group
	logger *slog.Logger

	mu    sync.Mutex
	ready map[int64]struct{} // guilds whose schema is known to exist
}

// New creates a store rooted at dir. The directory is created if needed; no
// guild database is touched until it is first used.
func New(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	if opts.MaxOpen <= 0 {
		opts.MaxOpen = 64
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 10 * time.Minute
	}

	s := &Store{
		dir:    dir,
		ready:  make(map[int64]struct{}),
		logger: slog.Default().With("component", "store"),
	}
	s.pool = pool.New(s.open, opts.MaxOpen, opts.IdleTimeout)

	s.logger.Info("guild store initialized", "dir", dir)
	return s, nil
}

// Path returns the database file of a guild.
func (s *Store) Path(guildID int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("guild_%d.db", guildID))
}

// open is the pool's OpenFunc. sql.Open does not touch the file.
func (s *Store) open(guildID int64) (*sql.DB, error) {
	dsn := s.Path(guildID) + "?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection per guild serializes writers inside the process.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Close releases every pooled handle.
func (s *Store) Close() error {
	s.logger.Info("closing guild store")
	return s.pool.Close()
}

// Ensure provisions the guild database if needed. It is idempotent and safe
// to call concurrently; concurrent calls for one guild share one run. A guild
// already marked ready is re-provisioned if its file has disappeared.
//
// The shared run is detached from the caller that started it, so one caller
// cancelling does not fail the others waiting on the same guild.
func (s *Store) Ensure(ctx context.Context, guildID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.isReady(guildID) {
		if _, err := os.Stat(s.Path(guildID)); err == nil {
			return nil
		}
		s.logger.Warn("guild database missing, reprovisioning", "guild_id", guildID)
		s.Invalidate(guildID)
	}

	_, err, _ := s.group.Do(strconv.FormatInt(guildID, 10), func() (any, error) {
		if s.isReady(guildID) {
			return nil, nil
		}
		if err := s.provision(context.WithoutCancel(ctx), guildID); err != nil {
			return nil, err
		}
		s.markReady(guildID)
		return nil, nil
	})
	if err != nil {
		s.logger.Error("provisioning guild database", "guild_id", guildID, "error", err)
		return err
	}
	return ctx.Err()
}

// Invalidate forgets that a guild was provisioned and closes its handle, so
// the next call re-runs provisioning against the file on disk.
func (s *Store) Invalidate(guildID int64) {
	s.mu.Lock()
	delete(s.ready, guildID)
	s.mu.Unlock()
	s.pool.Evict(guildID)
}

func (s *Store) isReady(guildID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ready[guildID]
	return ok
}

func (s *Store) markReady(guildID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready[guildID] = struct{}{}
}

func (s *Store) provision(ctx context.Context, guildID int64) error {
	path := s.Path(guildID)
	fail := func(err error) error {
		return &ProvisioningError{GuildID: guildID, Path: path, Err: err}
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fail(fmt.Errorf("creating database directory: %w", err))
	}

	// A handle opened before the file vanished would keep writing to the
	// unlinked inode.
	s.pool.Evict(guildID)

	db, release, err := s.pool.Acquire(guildID)
	if err != nil {
		return fail(err)
	}
	defer release()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fail(fmt.Errorf("creating schema: %w", err))
	}
	if err := runMigrations(ctx, db, s.logger); err != nil {
		return fail(fmt.Errorf("running migrations: %w", err))
	}
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO guild_config (id, updated_at) VALUES (1, ?)`,
		formatTime(time.Now()),
	); err != nil {
		return fail(fmt.Errorf("seeding guild_config: %w", err))
	}

	s.logger.Debug("provisioned guild database", "guild_id", guildID, "path", path)
	return nil
}

// conn provisions the guild if needed and returns its pooled handle.
func (s *Store) conn(ctx context.Context, guildID int64) (*sql.DB, func(), error) {
	if err := s.Ensure(ctx, guildID); err != nil {
		return nil, nil, err
	}
	db, release, err := s.pool.Acquire(guildID)
	if err != nil {
		return nil, nil, &ProvisioningError{GuildID: guildID, Path: s.Path(guildID), Err: err}
	}
	return db, release, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS user_stats (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     INTEGER NOT NULL UNIQUE,
		messages    INTEGER NOT NULL DEFAULT 0,
		voice_time  INTEGER NOT NULL DEFAULT 0,
		last_online TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS warnings (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL,
		reason     TEXT NOT NULL,
		author_id  INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_warnings_user ON warnings(user_id, created_at);

	CREATE TABLE IF NOT EXISTS tickets (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_id    TEXT NOT NULL UNIQUE,
		owner_id     INTEGER NOT NULL,
		channel_id   INTEGER NOT NULL,
		status       TEXT NOT NULL DEFAULT 'open',
		reason       TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL,
		closed_at    TEXT,
		closed_by    INTEGER,
		close_reason TEXT,

		CHECK (status IN ('open', 'closed'))
	);

	CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
	CREATE INDEX IF NOT EXISTS idx_tickets_owner ON tickets(owner_id);

	CREATE TABLE IF NOT EXISTS role_config (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		role_id     INTEGER NOT NULL UNIQUE,
		role_name   TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		emoji       TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	);

	-- Exactly one row, pinned to id 1
	CREATE TABLE IF NOT EXISTS guild_config (
		id                       INTEGER PRIMARY KEY CHECK (id = 1),
		embed_color              INTEGER NOT NULL DEFAULT 5793266,
		rules_channel_id         INTEGER,
		rules_message_id         INTEGER,
		verified_role_id         INTEGER,
		default_role_id          INTEGER,
		ticket_category_id       INTEGER,
		ticket_create_channel_id INTEGER,
		ticket_log_channel_id    INTEGER,
		mc_server_ip             TEXT,
		mc_server_port           INTEGER NOT NULL DEFAULT 25565,
		mc_status_channel_id     INTEGER,
		mc_notification_role_id  INTEGER,
		config_data              TEXT NOT NULL DEFAULT '{}',
		updated_at               TEXT NOT NULL
	);

	-- Legacy snapshot files already imported into this database
	CREATE TABLE IF NOT EXISTS legacy_imports (
		source      TEXT NOT NULL,
		checksum    TEXT NOT NULL,
		run_id      TEXT NOT NULL,
		imported_at TEXT NOT NULL,

		PRIMARY KEY (source, checksum)
	);
`

// runMigrations adds columns introduced after the first schema shipped.
// These are idempotent - safe to run multiple times.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	// SQLite doesn't support ADD COLUMN IF NOT EXISTS, so we check first
	migrations := []struct {
		table  string
		column string
		apply  string
	}{
		{
			table:  "guild_config",
			column: "roles_channel_id",
			apply:  `ALTER TABLE guild_config ADD COLUMN roles_channel_id INTEGER`,
		},
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRowContext(ctx,
			`SELECT 1 FROM pragma_table_info(?) WHERE name = ?`, m.table, m.column,
		).Scan(&exists)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking %s.%s: %w", m.table, m.column, err)
		}
		if _, err := db.ExecContext(ctx, m.apply); err != nil {
			return fmt.Errorf("adding %s column to %s: %w", m.column, m.table, err)
		}
		logger.Info("applied migration", "column", m.column, "table", m.table)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// nullInt stores zero IDs as NULL.
func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

// nullString returns nil for empty strings, otherwise the string
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func scanTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
