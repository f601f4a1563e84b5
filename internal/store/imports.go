// ABOUTME: Ledger of legacy snapshot files imported into a guild database
// ABOUTME: Lets non-idempotent imports (warnings) run at most once per file content

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LegacyImported reports whether a snapshot with this source name and
// checksum was already imported.
func (s *Store) LegacyImported(ctx context.Context, guildID int64, source, checksum string) (bool, error) {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return false, err
	}
	defer release()

	var found int
	err = db.QueryRowContext(ctx,
		`SELECT 1 FROM legacy_imports WHERE source = ? AND checksum = ?`, source, checksum,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking legacy import: %w", err)
	}
	return true, nil
}

// RecordLegacyImport marks a snapshot as imported. Recording the same
// snapshot twice succeeds silently.
func (s *Store) RecordLegacyImport(ctx context.Context, guildID int64, imp *LegacyImport) error {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return err
	}
	defer release()

	if err := recordImport(ctx, db, imp); err != nil {
		return err
	}
	s.logger.Debug("recorded legacy import", "guild_id", guildID, "source", imp.Source)
	return nil
}

// ListLegacyImports returns every recorded import, oldest first.
func (s *Store) ListLegacyImports(ctx context.Context, guildID int64) ([]*LegacyImport, error) {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, `
		SELECT source, checksum, run_id, imported_at
		FROM legacy_imports
		ORDER BY imported_at ASC, source ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying legacy imports: %w", err)
	}
	defer rows.Close()

	imports := []*LegacyImport{}
	for rows.Next() {
		var imp LegacyImport
		var importedAt string
		if err := rows.Scan(&imp.Source, &imp.Checksum, &imp.RunID, &importedAt); err != nil {
			return nil, fmt.Errorf("scanning legacy import: %w", err)
		}
		imp.ImportedAt, err = parseTime(importedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing imported_at: %w", err)
		}
		imports = append(imports, &imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating legacy imports: %w", err)
	}
	return imports, nil
}

// ImportWarnings inserts legacy warnings with their original timestamps and
// records the import, all in one transaction: either every warning of the
// snapshot lands together with its ledger row, or none does. The ledger is
// checked inside the same transaction, so concurrent imports of one snapshot
// insert it once; the others get ErrAlreadyImported.
func (s *Store) ImportWarnings(ctx context.Context, guildID int64, warnings []*Warning, imp *LegacyImport) error {
	err := s.importTx(ctx, guildID, imp, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO warnings (user_id, reason, author_id, created_at)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing warning insert: %w", err)
		}
		defer stmt.Close()

		for _, w := range warnings {
			if _, err := stmt.ExecContext(ctx, w.UserID, w.Reason, w.AuthorID, formatTime(w.CreatedAt)); err != nil {
				return fmt.Errorf("inserting warning for user %d: %w", w.UserID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("imported warnings", "guild_id", guildID, "count", len(warnings))
	return nil
}

// ImportUserStats overwrites member counters from a legacy snapshot and
// records the import in one transaction. A snapshot already in the ledger
// is not applied again, so live counters are never rolled back to it.
func (s *Store) ImportUserStats(ctx context.Context, guildID int64, stats []*UserStat, imp *LegacyImport) error {
	err := s.importTx(ctx, guildID, imp, func(tx *sql.Tx) error {
		for _, stat := range stats {
			if err := setUserStats(ctx, tx, stat); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("imported user stats", "guild_id", guildID, "count", len(stats))
	return nil
}

// importTx runs apply and records imp in one transaction, unless imp is
// already recorded. A nil imp skips the ledger.
func (s *Store) importTx(ctx context.Context, guildID int64, imp *LegacyImport, apply func(tx *sql.Tx) error) error {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return err
	}
	defer release()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if imp != nil {
		var found int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM legacy_imports WHERE source = ? AND checksum = ?`, imp.Source, imp.Checksum,
		).Scan(&found)
		if err == nil {
			return ErrAlreadyImported
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking legacy import: %w", err)
		}
	}

	if err := apply(tx); err != nil {
		return err
	}

	if imp != nil {
		if err := recordImport(ctx, tx, imp); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func recordImport(ctx context.Context, e execer, imp *LegacyImport) error {
	if imp.ImportedAt.IsZero() {
		imp.ImportedAt = time.Now()
	}
	_, err := e.ExecContext(ctx, `
		INSERT OR IGNORE INTO legacy_imports (source, checksum, run_id, imported_at)
		VALUES (?, ?, ?, ?)
	`, imp.Source, imp.Checksum, imp.RunID, formatTime(imp.ImportedAt))
	if err != nil {
		return fmt.Errorf("recording legacy import: %w", err)
	}
	return nil
}
