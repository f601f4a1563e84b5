// ABOUTME: Guild registry: one row per guild ever seen
// ABOUTME: Upsert refreshes name and last_seen while keeping joined_at

package global

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RegisterGuild records a guild, or refreshes its name and last_seen if it is
// already known. It does not provision the guild's database.
func (s *Store) RegisterGuild(ctx context.Context, guildID int64, name string) error {
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registered_guilds (guild_id, guild_name, joined_at, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			guild_name = excluded.guild_name,
			last_seen  = excluded.last_seen
	`, guildID, name, now, now)
	if err != nil {
		return fmt.Errorf("registering guild: %w", err)
	}

	s.logger.Debug("registered guild", "guild_id", guildID, "name", name)
	return nil
}

// GetGuild retrieves a registry row.
// Returns ErrNotFound if the guild was never registered.
func (s *Store) GetGuild(ctx context.Context, guildID int64) (*Guild, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, guild_name, joined_at, last_seen
		FROM registered_guilds
		WHERE guild_id = ?
	`, guildID)

	var g Guild
	var joinedAt, lastSeen string
	err := row.Scan(&g.GuildID, &g.Name, &joinedAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying guild: %w", err)
	}
	if err := parseGuildTimes(&g, joinedAt, lastSeen); err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGuilds returns every registered guild ordered by guild id.
func (s *Store) ListGuilds(ctx context.Context) ([]*Guild, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, guild_name, joined_at, last_seen
		FROM registered_guilds
		ORDER BY guild_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying guilds: %w", err)
	}
	defer rows.Close()

	guilds := []*Guild{}
	for rows.Next() {
		var g Guild
		var joinedAt, lastSeen string
		if err := rows.Scan(&g.GuildID, &g.Name, &joinedAt, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning guild row: %w", err)
		}
		if err := parseGuildTimes(&g, joinedAt, lastSeen); err != nil {
			return nil, err
		}
		guilds = append(guilds, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating guild rows: %w", err)
	}
	return guilds, nil
}

func parseGuildTimes(g *Guild, joinedAt, lastSeen string) error {
	var err error
	g.JoinedAt, err = time.Parse(time.RFC3339, joinedAt)
	if err != nil {
		return fmt.Errorf("parsing joined_at: %w", err)
	}
	g.LastSeen, err = time.Parse(time.RFC3339, lastSeen)
	if err != nil {
		return fmt.Errorf("parsing last_seen: %w", err)
	}
	return nil
}
