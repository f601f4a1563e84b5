// ABOUTME: Per-member activity counters (messages, voice time, last online)
// ABOUTME: Upserts keyed by user_id; increments for live traffic, overwrites for imports

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpdateUserStats adds the delta's counters to the member's stats, creating
// the row on first use. LastOnline replaces the stored value when set.
func (s *Store) UpdateUserStats(ctx context.Context, guildID, userID int64, delta StatsDelta) error {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return err
	}
	defer release()

	now := formatTime(time.Now())
	_, err = db.ExecContext(ctx, `
		INSERT INTO user_stats (user_id, messages, voice_time, last_online, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			messages    = messages + excluded.messages,
			voice_time  = voice_time + excluded.voice_time,
			last_online = COALESCE(excluded.last_online, last_online),
			updated_at  = excluded.updated_at
	`, userID, delta.Messages, delta.VoiceTime, nullTime(delta.LastOnline), now, now)
	if err != nil {
		return fmt.Errorf("updating user stats: %w", err)
	}

	s.logger.Debug("updated user stats", "guild_id", guildID, "user_id", userID)
	return nil
}

// SetUserStats overwrites the member's counters. Applying the same values
// twice leaves the row unchanged apart from updated_at.
func (s *Store) SetUserStats(ctx context.Context, guildID int64, stat *UserStat) error {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return err
	}
	defer release()

	if err := setUserStats(ctx, db, stat); err != nil {
		return err
	}

	s.logger.Debug("set user stats", "guild_id", guildID, "user_id", stat.UserID)
	return nil
}

func setUserStats(ctx context.Context, e execer, stat *UserStat) error {
	now := formatTime(time.Now())
	_, err := e.ExecContext(ctx, `
		INSERT INTO user_stats (user_id, messages, voice_time, last_online, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			messages    = excluded.messages,
			voice_time  = excluded.voice_time,
			last_online = COALESCE(excluded.last_online, last_online),
			updated_at  = excluded.updated_at
	`, stat.UserID, stat.Messages, stat.VoiceTime, nullTime(stat.LastOnline), now, now)
	if err != nil {
		return fmt.Errorf("setting user stats for user %d: %w", stat.UserID, err)
	}
	return nil
}

// GetUserStats returns a member's stats.
// Returns ErrNotFound if the member has no recorded activity.
func (s *Store) GetUserStats(ctx context.Context, guildID, userID int64) (*UserStat, error) {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return nil, err
	}
	defer release()

	row := db.QueryRowContext(ctx, `
		SELECT user_id, messages, voice_time, last_online, created_at, updated_at
		FROM user_stats
		WHERE user_id = ?
	`, userID)

	stat, err := scanUserStat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return stat, nil
}

// TopUserStats returns the most active members by message count.
// If limit is 0 or negative, a default limit of 10 is used.
func (s *Store) TopUserStats(ctx context.Context, guildID int64, limit int) ([]*UserStat, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 1000 {
		limit = 1000
	}

	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, `
		SELECT user_id, messages, voice_time, last_online, created_at, updated_at
		FROM user_stats
		ORDER BY messages DESC, voice_time DESC, user_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying user stats: %w", err)
	}
	defer rows.Close()

	stats := []*UserStat{}
	for rows.Next() {
		stat, err := scanUserStat(rows)
		if err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user stats rows: %w", err)
	}
	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUserStat(row scanner) (*UserStat, error) {
	var stat UserStat
	var lastOnline sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&stat.UserID, &stat.Messages, &stat.VoiceTime, &lastOnline, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning user stats: %w", err)
	}

	var err error
	if stat.LastOnline, err = scanTime(lastOnline); err != nil {
		return nil, fmt.Errorf("parsing last_online: %w", err)
	}
	if stat.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if stat.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &stat, nil
}
