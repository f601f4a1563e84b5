// ABOUTME: Guild configuration singleton row and its typed partial update
// ABOUTME: Named columns plus a JSON extension map merged key by key

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type columnValue struct {
	column string
	value  any
}

// columns lists the named columns set by the update, in schema order.
func (u ConfigUpdate) columns() []columnValue {
	var cols []columnValue
	addInt := func(column string, v *int) {
		if v != nil {
			cols = append(cols, columnValue{column, *v})
		}
	}
	addID := func(column string, v *int64) {
		if v != nil {
			cols = append(cols, columnValue{column, nullInt(*v)})
		}
	}

	addInt("embed_color", u.EmbedColor)
	addID("rules_channel_id", u.RulesChannelID)
	addID("rules_message_id", u.RulesMessageID)
	addID("verified_role_id", u.VerifiedRoleID)
	addID("default_role_id", u.DefaultRoleID)
	addID("ticket_category_id", u.TicketCategoryID)
	addID("ticket_create_channel_id", u.TicketCreateChannelID)
	addID("ticket_log_channel_id", u.TicketLogChannelID)
	if u.MCServerIP != nil {
		cols = append(cols, columnValue{"mc_server_ip", nullString(*u.MCServerIP)})
	}
	addInt("mc_server_port", u.MCServerPort)
	addID("mc_status_channel_id", u.MCStatusChannelID)
	addID("mc_notification_role_id", u.MCNotificationRoleID)
	addID("roles_channel_id", u.RolesChannelID)
	return cols
}

// Columns returns the names of the columns the update sets.
func (u ConfigUpdate) Columns() []string {
	cols := u.columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.column
	}
	return names
}

// GetConfig returns the guild configuration. A missing row yields the
// built-in defaults rather than an error.
func (s *Store) GetConfig(ctx context.Context, guildID int64) (*GuildConfig, error) {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.readConfig(ctx, db, guildID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) readConfig(ctx context.Context, q queryRower, guildID int64) (*GuildConfig, error) {
	query := `
		SELECT embed_color, rules_channel_id, rules_message_id, verified_role_id, default_role_id,
		       ticket_category_id, ticket_create_channel_id, ticket_log_channel_id,
		       mc_server_ip, mc_server_port, mc_status_channel_id, mc_notification_role_id,
		       roles_channel_id, config_data, updated_at
		FROM guild_config
		WHERE id = 1
	`

	var cfg GuildConfig
	var rulesChannel, rulesMessage, verifiedRole, defaultRole sql.NullInt64
	var ticketCategory, ticketCreate, ticketLog sql.NullInt64
	var mcStatus, mcNotify, rolesChannel sql.NullInt64
	var mcIP sql.NullString
	var configData, updatedAt string

	err := q.QueryRowContext(ctx, query).Scan(
		&cfg.EmbedColor, &rulesChannel, &rulesMessage, &verifiedRole, &defaultRole,
		&ticketCategory, &ticketCreate, &ticketLog,
		&mcIP, &cfg.MCServerPort, &mcStatus, &mcNotify,
		&rolesChannel, &configData, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("guild_config row missing, using defaults", "guild_id", guildID)
		return DefaultGuildConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying guild config: %w", err)
	}

	cfg.RulesChannelID = rulesChannel.Int64
	cfg.RulesMessageID = rulesMessage.Int64
	cfg.VerifiedRoleID = verifiedRole.Int64
	cfg.DefaultRoleID = defaultRole.Int64
	cfg.TicketCategoryID = ticketCategory.Int64
	cfg.TicketCreateChannelID = ticketCreate.Int64
	cfg.TicketLogChannelID = ticketLog.Int64
	cfg.MCServerIP = mcIP.String
	cfg.MCStatusChannelID = mcStatus.Int64
	cfg.MCNotificationRoleID = mcNotify.Int64
	cfg.RolesChannelID = rolesChannel.Int64

	cfg.Extra, err = decodeExtra(configData)
	if err != nil {
		return nil, fmt.Errorf("decoding config_data: %w", err)
	}

	cfg.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &cfg, nil
}

// UpdateConfig applies a partial update. Named columns and the extension map
// are written in one transaction so concurrent updates never lose keys.
func (s *Store) UpdateConfig(ctx context.Context, guildID int64, update ConfigUpdate) error {
	if update.IsEmpty() {
		return nil
	}

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

	// The row is seeded on provisioning; re-seed in case it was removed.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO guild_config (id, updated_at) VALUES (1, ?)`,
		formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("seeding guild_config: %w", err)
	}

	sets := []string{"updated_at = ?"}
	args := []any{formatTime(time.Now())}
	for _, c := range update.columns() {
		sets = append(sets, c.column+" = ?")
		args = append(args, c.value)
	}

	if len(update.Extra) > 0 {
		var raw string
		if err := tx.QueryRowContext(ctx, `SELECT config_data FROM guild_config WHERE id = 1`).Scan(&raw); err != nil {
			return fmt.Errorf("reading config_data: %w", err)
		}
		extra, err := decodeExtra(raw)
		if err != nil {
			return fmt.Errorf("decoding config_data: %w", err)
		}
		for k, v := range update.Extra {
			if v == nil {
				delete(extra, k)
				continue
			}
			extra[k] = v
		}
		encoded, err := json.Marshal(extra)
		if err != nil {
			return fmt.Errorf("encoding config_data: %w", err)
		}
		sets = append(sets, "config_data = ?")
		args = append(args, string(encoded))
	}

	query := `UPDATE guild_config SET ` + strings.Join(sets, ", ") + ` WHERE id = 1`
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating guild config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing guild config: %w", err)
	}

	s.logger.Debug("updated guild config", "guild_id", guildID, "columns", len(sets)-1)
	return nil
}

func decodeExtra(raw string) (map[string]any, error) {
	extra := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return extra, nil
	}
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		return nil, err
	}
	if extra == nil {
		extra = map[string]any{}
	}
	return extra, nil
}
