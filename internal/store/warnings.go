// ABOUTME: Append-only moderation warnings per guild member
// ABOUTME: AddWarning inserts and counts inside one transaction

package store

import (
	"context"
	"fmt"
	"time"
)

// AddWarning records a warning and returns the member's warning total,
// including the new one. Insert and count share one transaction, so the
// total is consistent with the inserted row under concurrent writers.
func (s *Store) AddWarning(ctx context.Context, guildID, userID int64, reason string, authorID int64) (int, error) {
	return s.insertWarning(ctx, guildID, &Warning{
		UserID:    userID,
		Reason:    reason,
		AuthorID:  authorID,
		CreatedAt: time.Now(),
	})
}

func (s *Store) insertWarning(ctx context.Context, guildID int64, w *Warning) (int, error) {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return 0, err
	}
	defer release()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, `
		INSERT INTO warnings (user_id, reason, author_id, created_at)
		VALUES (?, ?, ?, ?)
	`, w.UserID, w.Reason, w.AuthorID, formatTime(w.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("inserting warning: %w", err)
	}
	w.ID, _ = result.LastInsertId()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM warnings WHERE user_id = ?`, w.UserID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting warnings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing warning: %w", err)
	}

	s.logger.Debug("added warning", "guild_id", guildID, "user_id", w.UserID, "total", count)
	return count, nil
}

// GetWarnings returns a member's warnings, oldest first. Returns an empty
// slice if the member has none.
func (s *Store) GetWarnings(ctx context.Context, guildID, userID int64) ([]*Warning, error) {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, reason, author_id, created_at
		FROM warnings
		WHERE user_id = ?
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying warnings: %w", err)
	}
	defer rows.Close()

	warnings := []*Warning{}
	for rows.Next() {
		var w Warning
		var createdAt string
		if err := rows.Scan(&w.ID, &w.UserID, &w.Reason, &w.AuthorID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning warning row: %w", err)
		}
		w.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		warnings = append(warnings, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating warning rows: %w", err)
	}
	return warnings, nil
}

// RemoveWarning deletes a single warning by ID.
// Returns ErrNotFound if the warning doesn't exist.
func (s *Store) RemoveWarning(ctx context.Context, guildID, warningID int64) error {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return err
	}
	defer release()

	result, err := db.ExecContext(ctx, `DELETE FROM warnings WHERE id = ?`, warningID)
	if err != nil {
		return fmt.Errorf("deleting warning: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.logger.Debug("removed warning", "guild_id", guildID, "warning_id", warningID)
	return nil
}

// ClearWarnings deletes all of a member's warnings and reports how many
// were removed.
func (s *Store) ClearWarnings(ctx context.Context, guildID, userID int64) (int, error) {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return 0, err
	}
	defer release()

	result, err := db.ExecContext(ctx, `DELETE FROM warnings WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing warnings: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	s.logger.Debug("cleared warnings", "guild_id", guildID, "user_id", userID, "count", n)
	return int(n), nil
}
