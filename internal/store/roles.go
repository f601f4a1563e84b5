// ABOUTME: Self-assignable role menu entries per guild
// ABOUTME: Upsert by role_id, idempotent removal, map lookup keyed by role id

package store

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// AddRoleConfig adds a role menu entry or replaces the existing entry for the
// same role. This operation is idempotent; the original created_at is kept.
func (s *Store) AddRoleConfig(ctx context.Context, guildID int64, role *RoleConfig) error {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return err
	}
	defer release()

	createdAt := role.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO role_config (role_id, role_name, description, emoji, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(role_id) DO UPDATE SET
			role_name   = excluded.role_name,
			description = excluded.description,
			emoji       = excluded.emoji
	`, role.RoleID, role.Name, role.Description, role.Emoji, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("adding role config: %w", err)
	}

	s.logger.Debug("added role config", "guild_id", guildID, "role_id", role.RoleID)
	return nil
}

// RemoveRoleConfig removes a role menu entry. This operation is idempotent -
// removing a non-existent entry succeeds silently.
func (s *Store) RemoveRoleConfig(ctx context.Context, guildID, roleID int64) error {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return err
	}
	defer release()

	if _, err := db.ExecContext(ctx, `DELETE FROM role_config WHERE role_id = ?`, roleID); err != nil {
		return fmt.Errorf("removing role config: %w", err)
	}

	s.logger.Debug("removed role config", "guild_id", guildID, "role_id", roleID)
	return nil
}

// GetRoleConfig returns every role menu entry keyed by the decimal role id.
// Returns an empty map if the guild has none.
func (s *Store) GetRoleConfig(ctx context.Context, guildID int64) (map[string]*RoleConfig, error) {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, `
		SELECT role_id, role_name, description, emoji, created_at
		FROM role_config
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing role config: %w", err)
	}
	defer rows.Close()

	roles := map[string]*RoleConfig{}
	for rows.Next() {
		var role RoleConfig
		var createdAt string
		if err := rows.Scan(&role.RoleID, &role.Name, &role.Description, &role.Emoji, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning role config: %w", err)
		}
		role.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		roles[strconv.FormatInt(role.RoleID, 10)] = &role
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating role config: %w", err)
	}
	return roles, nil
}
