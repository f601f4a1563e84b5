// ABOUTME: Support tickets per guild
// ABOUTME: Create (idempotent by ticket_id), lookup, list by status, close

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const ticketColumns = `id, ticket_id, owner_id, channel_id, status, reason, created_at, closed_at, closed_by, close_reason`

// CreateTicket stores a new open ticket. A ticket with the same TicketID is
// left untouched, so importing the same ticket twice is harmless.
// Returns true if a row was inserted.
func (s *Store) CreateTicket(ctx context.Context, guildID int64, t *Ticket) (bool, error) {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return false, err
	}
	defer release()

	if t.Status == "" {
		t.Status = TicketStatusOpen
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	result, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO tickets (ticket_id, owner_id, channel_id, status, reason, created_at, closed_at, closed_by, close_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.TicketID, t.OwnerID, t.ChannelID, t.Status, t.Reason, formatTime(t.CreatedAt),
		nullTime(t.ClosedAt), nullInt(t.ClosedBy), nullString(t.CloseReason))
	if err != nil {
		return false, fmt.Errorf("inserting ticket: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return false, nil
	}
	t.ID, _ = result.LastInsertId()

	s.logger.Debug("created ticket", "guild_id", guildID, "ticket_id", t.TicketID, "owner_id", t.OwnerID)
	return true, nil
}

// GetTicket retrieves a ticket by its ticket id.
// Returns ErrNotFound if the ticket doesn't exist.
func (s *Store) GetTicket(ctx context.Context, guildID int64, ticketID string) (*Ticket, error) {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return nil, err
	}
	defer release()

	row := db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = ?`, ticketID)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// GetTicketByChannel retrieves the ticket bound to a channel.
// Returns ErrNotFound if the channel is not a ticket.
func (s *Store) GetTicketByChannel(ctx context.Context, guildID, channelID int64) (*Ticket, error) {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return nil, err
	}
	defer release()

	row := db.QueryRowContext(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE channel_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, channelID)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// ListTickets returns tickets with the given status, oldest first.
// An empty status lists every ticket.
func (s *Store) ListTickets(ctx context.Context, guildID int64, status string) ([]*Ticket, error) {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return nil, err
	}
	defer release()

	query := `SELECT ` + ticketColumns + ` FROM tickets`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tickets: %w", err)
	}
	defer rows.Close()

	tickets := []*Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ticket rows: %w", err)
	}
	return tickets, nil
}

// CloseTicket marks an open ticket closed.
// Returns ErrNotFound if no open ticket has this id.
func (s *Store) CloseTicket(ctx context.Context, guildID int64, ticketID string, closedBy int64, reason string) error {
	db, release, err := s.conn(ctx, guildID)
	if err != nil {
		return err
	}
	defer release()

	result, err := db.ExecContext(ctx, `
		UPDATE tickets
		SET status = ?, closed_at = ?, closed_by = ?, close_reason = ?
		WHERE ticket_id = ? AND status = ?
	`, TicketStatusClosed, formatTime(time.Now()), nullInt(closedBy), nullString(reason), ticketID, TicketStatusOpen)
	if err != nil {
		return fmt.Errorf("closing ticket: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("closed ticket", "guild_id", guildID, "ticket_id", ticketID, "closed_by", closedBy)
	return nil
}

func scanTicket(row scanner) (*Ticket, error) {
	var t Ticket
	var createdAt string
	var closedAt, closeReason sql.NullString
	var closedBy sql.NullInt64

	err := row.Scan(&t.ID, &t.TicketID, &t.OwnerID, &t.ChannelID, &t.Status, &t.Reason,
		&createdAt, &closedAt, &closedBy, &closeReason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning ticket: %w", err)
	}

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	t.ClosedAt, err = scanTime(closedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing closed_at: %w", err)
	}
	t.ClosedBy = closedBy.Int64
	t.CloseReason = closeReason.String
	return &t, nil
}
