// ABOUTME: The six legacy import steps, one per snapshot file
// ABOUTME: Natural-key data is upserted; warnings are inserted once per snapshot checksum

package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/2389/guildstore/internal/store"
)

func decode(snap *snapshot, v any) error {
	if err := json.Unmarshal(snap.data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", snap.source, err)
	}
	return nil
}

// record adds the snapshot to the guild's import ledger.
func (r *Runner) record(ctx context.Context, guildID int64, snap *snapshot) error {
	if err := r.target.RecordLegacyImport(ctx, guildID, snap.ledgerEntry()); err != nil {
		return fmt.Errorf("recording import: %w", err)
	}
	return nil
}

func importStats(ctx context.Context, r *Runner, guildID int64, snap *snapshot) (int, error) {
	var legacy legacyStats
	if err := decode(snap, &legacy); err != nil {
		return 0, err
	}

	stats := map[string]*store.UserStat{}
	get := func(key string) (*store.UserStat, error) {
		if st, ok := stats[key]; ok {
			return st, nil
		}
		id, err := parseID(key)
		if err != nil {
			return nil, err
		}
		st := &store.UserStat{UserID: id}
		stats[key] = st
		return st, nil
	}

	for key, n := range legacy.Messages {
		st, err := get(key)
		if err != nil {
			return 0, fmt.Errorf("messages: %w", err)
		}
		st.Messages = int64(n)
	}
	for key, n := range legacy.VoiceTime {
		st, err := get(key)
		if err != nil {
			return 0, fmt.Errorf("voice_time: %w", err)
		}
		st.VoiceTime = int64(n)
	}
	for key, raw := range legacy.LastOnline {
		st, err := get(key)
		if err != nil {
			return 0, fmt.Errorf("last_online: %w", err)
		}
		if raw == "" {
			continue
		}
		t, err := parseLegacyTime(raw)
		if err != nil {
			return 0, fmt.Errorf("last_online for %s: %w", key, err)
		}
		st.LastOnline = &t
	}

	list := make([]*store.UserStat, 0, len(stats))
	for _, key := range sortedKeys(stats) {
		list = append(list, stats[key])
	}
	if err := r.target.ImportUserStats(ctx, guildID, list, snap.ledgerEntry()); err != nil {
		return 0, err
	}
	return len(list), nil
}

func importWarnings(ctx context.Context, r *Runner, guildID int64, snap *snapshot) (int, error) {
	var legacy legacyWarns
	if err := decode(snap, &legacy); err != nil {
		return 0, err
	}

	var warnings []*store.Warning
	for _, key := range sortedKeys(legacy.Warnings) {
		userID, err := parseID(key)
		if err != nil {
			return 0, err
		}
		for i, raw := range legacy.Warnings[key] {
			w, err := parseWarning(raw)
			if err != nil {
				return 0, fmt.Errorf("warning %d of user %s: %w", i, key, err)
			}
			w.UserID = userID
			warnings = append(warnings, w)
		}
	}

	// The ledger check and the inserts share one transaction.
	if err := r.target.ImportWarnings(ctx, guildID, warnings, snap.ledgerEntry()); err != nil {
		return 0, err
	}
	return len(warnings), nil
}

func parseWarning(raw json.RawMessage) (*store.Warning, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if len(fields) < 2 {
		return nil, fmt.Errorf("expected [created_at, reason, author_id], got %d fields", len(fields))
	}

	var createdAt string
	if err := json.Unmarshal(fields[0], &createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	t, err := parseLegacyTime(createdAt)
	if err != nil {
		return nil, err
	}

	w := &store.Warning{CreatedAt: t}
	if err := json.Unmarshal(fields[1], &w.Reason); err != nil {
		return nil, fmt.Errorf("reason: %w", err)
	}
	if len(fields) > 2 {
		var author flexInt
		if err := json.Unmarshal(fields[2], &author); err != nil {
			return nil, fmt.Errorf("author_id: %w", err)
		}
		w.AuthorID = int64(author)
	}
	return w, nil
}

func importTicketConfig(ctx context.Context, r *Runner, guildID int64, snap *snapshot) (int, error) {
	var legacy legacyTicketConfig
	if err := decode(snap, &legacy); err != nil {
		return 0, err
	}

	update := store.ConfigUpdate{
		TicketCategoryID:      legacy.CategoryID.ptr(),
		TicketCreateChannelID: legacy.CreateChannelID.ptr(),
		TicketLogChannelID:    legacy.LogChannelID.ptr(),
		Extra:                 map[string]any{},
	}
	if legacy.TicketMessageID != 0 {
		update.Extra["ticket_message_id"] = idString(legacy.TicketMessageID)
	}
	if legacy.ArchiveCategoryID != 0 {
		update.Extra["archive_category_id"] = idString(legacy.ArchiveCategoryID)
	}
	if len(legacy.TicketReasons) > 0 && string(legacy.TicketReasons) != "null" {
		var reasons any
		if err := json.Unmarshal(legacy.TicketReasons, &reasons); err != nil {
			return 0, fmt.Errorf("ticket_reasons: %w", err)
		}
		update.Extra["ticket_reasons"] = reasons
	}

	tickets := make([]*store.Ticket, 0, len(legacy.ActiveTickets))
	for _, key := range sortedKeys(legacy.ActiveTickets) {
		t, err := legacyTicketToStore(key, legacy.ActiveTickets[key])
		if err != nil {
			return 0, fmt.Errorf("active ticket %s: %w", key, err)
		}
		tickets = append(tickets, t)
	}

	n := len(update.Columns())
	if err := r.target.UpdateConfig(ctx, guildID, update); err != nil {
		return 0, err
	}
	for _, t := range tickets {
		created, err := r.target.CreateTicket(ctx, guildID, t)
		if err != nil {
			return 0, err
		}
		if created {
			n++
		}
	}
	return n, r.record(ctx, guildID, snap)
}

func legacyTicketToStore(channelKey string, lt legacyTicket) (*store.Ticket, error) {
	channelID, err := parseID(channelKey)
	if err != nil {
		return nil, err
	}

	owner := lt.UserID
	if owner == 0 {
		owner = lt.OwnerID
	}
	if owner == 0 {
		return nil, fmt.Errorf("missing user_id")
	}

	t := &store.Ticket{
		TicketID:  string(lt.TicketID),
		OwnerID:   int64(owner),
		ChannelID: channelID,
		Status:    store.TicketStatusOpen,
		Reason:    lt.Reason,
	}
	if t.TicketID == "" {
		t.TicketID = "legacy-" + strconv.FormatInt(channelID, 10)
	}
	if lt.CreatedAt != "" {
		t.CreatedAt, err = parseLegacyTime(lt.CreatedAt)
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

func importRolesConfig(ctx context.Context, r *Runner, guildID int64, snap *snapshot) (int, error) {
	var legacy map[string]legacyRole
	if err := decode(snap, &legacy); err != nil {
		return 0, err
	}

	for _, key := range sortedKeys(legacy) {
		lr := legacy[key]
		roleID := int64(lr.ID)
		if roleID == 0 {
			id, err := parseID(key)
			if err != nil {
				return 0, fmt.Errorf("role: %w", err)
			}
			roleID = id
		}
		role := &store.RoleConfig{
			RoleID:      roleID,
			Name:        lr.Name,
			Description: lr.Description,
			Emoji:       lr.Emoji,
		}
		if err := r.target.AddRoleConfig(ctx, guildID, role); err != nil {
			return 0, err
		}
	}
	return len(legacy), r.record(ctx, guildID, snap)
}

func importRulesConfig(ctx context.Context, r *Runner, guildID int64, snap *snapshot) (int, error) {
	var legacy legacyRules
	if err := decode(snap, &legacy); err != nil {
		return 0, err
	}

	update := store.ConfigUpdate{
		RulesChannelID: legacy.RulesChannelID.ptr(),
		RulesMessageID: legacy.RulesMessageID.ptr(),
		VerifiedRoleID: legacy.VerifiedRoleID.ptr(),
		DefaultRoleID:  legacy.DefaultRoleID.ptr(),
	}
	if err := r.target.UpdateConfig(ctx, guildID, update); err != nil {
		return 0, err
	}
	return len(update.Columns()), r.record(ctx, guildID, snap)
}

func importUserPreferences(ctx context.Context, r *Runner, guildID int64, snap *snapshot) (int, error) {
	var legacy legacyPreferences
	if err := decode(snap, &legacy); err != nil {
		return 0, err
	}

	mc := legacy.Minecraft
	update := store.ConfigUpdate{
		MCStatusChannelID:    mc.Discord.StatusChannelID.ptr(),
		MCNotificationRoleID: mc.Discord.NotificationRoleID.ptr(),
	}
	if mc.Server.IP != "" {
		ip := mc.Server.IP
		update.MCServerIP = &ip
	}
	if mc.Server.Port != 0 {
		port := int(mc.Server.Port)
		update.MCServerPort = &port
	}
	if err := r.target.UpdateConfig(ctx, guildID, update); err != nil {
		return 0, err
	}
	return len(update.Columns()), r.record(ctx, guildID, snap)
}
