// ABOUTME: Tests for support tickets
// ABOUTME: Covers create, duplicate ticket ids, lookup by id and channel, listing and closing

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetTicket(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ticket := &Ticket{TicketID: "0001", OwnerID: 42, ChannelID: 9001, Reason: "bug report"}
	created, err := store.CreateTicket(ctx, 9, ticket)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, ticket.ID)

	got, err := store.GetTicket(ctx, 9, "0001")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.OwnerID)
	assert.Equal(t, int64(9001), got.ChannelID)
	assert.Equal(t, TicketStatusOpen, got.Status)
	assert.Equal(t, "bug report", got.Reason)
	assert.Nil(t, got.ClosedAt)
	assert.Zero(t, got.ClosedBy)

	byChannel, err := store.GetTicketByChannel(ctx, 9, 9001)
	require.NoError(t, err)
	assert.Equal(t, "0001", byChannel.TicketID)
}

func TestCreateTicket_DuplicateIgnored(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.CreateTicket(ctx, 9, &Ticket{TicketID: "0001", OwnerID: 42, ChannelID: 1})
	require.NoError(t, err)

	created, err := store.CreateTicket(ctx, 9, &Ticket{TicketID: "0001", OwnerID: 43, ChannelID: 2})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.GetTicket(ctx, 9, "0001")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.OwnerID)
}

func TestGetTicket_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetTicket(ctx, 9, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetTicketByChannel(ctx, 9, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCloseTicket(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.CreateTicket(ctx, 9, &Ticket{TicketID: "0001", OwnerID: 42, ChannelID: 1})
	require.NoError(t, err)

	require.NoError(t, store.CloseTicket(ctx, 9, "0001", 7, "resolved"))

	got, err := store.GetTicket(ctx, 9, "0001")
	require.NoError(t, err)
	assert.Equal(t, TicketStatusClosed, got.Status)
	require.NotNil(t, got.ClosedAt)
	assert.Equal(t, int64(7), got.ClosedBy)
	assert.Equal(t, "resolved", got.CloseReason)

	// Closing twice reports not found.
	assert.ErrorIs(t, store.CloseTicket(ctx, 9, "0001", 7, "again"), ErrNotFound)
}

func TestListTickets(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := store.CreateTicket(ctx, 9, &Ticket{TicketID: id, OwnerID: 42, ChannelID: 1})
		require.NoError(t, err)
	}
	require.NoError(t, store.CloseTicket(ctx, 9, "b", 7, ""))

	open, err := store.ListTickets(ctx, 9, TicketStatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "a", open[0].TicketID)
	assert.Equal(t, "c", open[1].TicketID)

	closed, err := store.ListTickets(ctx, 9, TicketStatusClosed)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Empty(t, closed[0].CloseReason)

	all, err := store.ListTickets(ctx, 9, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
