// ABOUTME: Guild whitelist and blacklist storage
// ABOUTME: Idempotent upsert/delete keyed by (guild_id, user_id = 0, list_type)

package global

import (
	"context"
	"fmt"
	"time"
)

// AddToList puts a guild on an access list, or refreshes the reason and
// author if it is already there. This operation is idempotent.
func (s *Store) AddToList(ctx context.Context, guildID int64, listType ListType, reason string, addedBy int64) error {
	if _, err := ParseListType(string(listType)); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_lists (guild_id, user_id, list_type, reason, added_by, created_at)
		VALUES (?, 0, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id, list_type) DO UPDATE SET
			reason   = excluded.reason,
			added_by = excluded.added_by
	`, guildID, listType, reason, addedBy, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("adding to %s: %w", listType, err)
	}

	s.logger.Info("added guild to access list", "guild_id", guildID, "list", listType, "reason", reason, "added_by", addedBy)
	return nil
}

// RemoveFromList takes a guild off an access list. This operation is
// idempotent - removing an absent entry succeeds silently.
func (s *Store) RemoveFromList(ctx context.Context, guildID int64, listType ListType) error {
	if _, err := ParseListType(string(listType)); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM access_lists WHERE guild_id = ? AND user_id = 0 AND list_type = ?`,
		guildID, listType,
	)
	if err != nil {
		return fmt.Errorf("removing from %s: %w", listType, err)
	}

	s.logger.Info("removed guild from access list", "guild_id", guildID, "list", listType)
	return nil
}

// IsListed reports whether a guild is on an access list.
func (s *Store) IsListed(ctx context.Context, guildID int64, listType ListType) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM access_lists WHERE guild_id = ? AND user_id = 0 AND list_type = ?`,
		guildID, listType,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", listType, err)
	}
	return count > 0, nil
}

// ListSize returns the number of guilds on an access list.
func (s *Store) ListSize(ctx context.Context, listType ListType) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM access_lists WHERE user_id = 0 AND list_type = ?`, listType,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", listType, err)
	}
	return count, nil
}

// ListEntries returns the entries of an access list ordered by guild id.
func (s *Store) ListEntries(ctx context.Context, listType ListType) ([]*AccessEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, list_type, reason, added_by, created_at
		FROM access_lists
		WHERE user_id = 0 AND list_type = ?
		ORDER BY guild_id
	`, listType)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", listType, err)
	}
	defer rows.Close()

	entries := []*AccessEntry{}
	for rows.Next() {
		var e AccessEntry
		var createdAt string
		if err := rows.Scan(&e.GuildID, &e.ListType, &e.Reason, &e.AddedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning access entry: %w", err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating access entries: %w", err)
	}
	return entries, nil
}
