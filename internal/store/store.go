// ABOUTME: Data types and errors for per-guild persistence
// ABOUTME: Defines GuildConfig, UserStat, Warning, Ticket, RoleConfig and ProvisioningError

package store

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrAlreadyImported is returned when a legacy snapshot with the same source
// and checksum is already in the import ledger.
var ErrAlreadyImported = errors.New("snapshot already imported")

// ProvisioningError is returned when a guild database cannot be created or
// opened. The guild stays unusable until a later call provisions it.
type ProvisioningError struct {
	GuildID int64
	Path    string
	Err     error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning guild %d database %s: %v", e.GuildID, e.Path, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Built-in configuration defaults, returned when a guild has no config row.
const (
	DefaultEmbedColor   = 0x5865F2
	DefaultMCServerPort = 25565
)

// GuildConfig is the singleton configuration row of a guild.
// Zero IDs mean "not configured".
type GuildConfig struct {
	EmbedColor            int
	RulesChannelID        int64
	RulesMessageID        int64
	VerifiedRoleID        int64
	DefaultRoleID         int64
	TicketCategoryID      int64
	TicketCreateChannelID int64
	TicketLogChannelID    int64
	MCServerIP            string
	MCServerPort          int
	MCStatusChannelID     int64
	MCNotificationRoleID  int64
	RolesChannelID        int64
	Extra                 map[string]any // config_data extension map
	UpdatedAt             time.Time
}

// DefaultGuildConfig returns the configuration of a freshly provisioned guild.
func DefaultGuildConfig() *GuildConfig {
	return &GuildConfig{
		EmbedColor:   DefaultEmbedColor,
		MCServerPort: DefaultMCServerPort,
		Extra:        map[string]any{},
	}
}

// ConfigUpdate is a partial update of GuildConfig. Nil fields are left
// untouched. Extra is merged key by key into the extension map; a key mapped
// to nil is removed.
type ConfigUpdate struct {
	EmbedColor            *int
	RulesChannelID        *int64
	RulesMessageID        *int64
	VerifiedRoleID        *int64
	DefaultRoleID         *int64
	TicketCategoryID      *int64
	TicketCreateChannelID *int64
	TicketLogChannelID    *int64
	MCServerIP            *string
	MCServerPort          *int
	MCStatusChannelID     *int64
	MCNotificationRoleID  *int64
	RolesChannelID        *int64
	Extra                 map[string]any
}

// IsEmpty reports whether the update changes nothing.
func (u ConfigUpdate) IsEmpty() bool {
	return len(u.columns()) == 0 && len(u.Extra) == 0
}

// UserStat holds activity counters for one member of a guild.
type UserStat struct {
	UserID     int64
	Messages   int64
	VoiceTime  int64 // seconds
	LastOnline *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StatsDelta is applied by UpdateUserStats: counters are added, LastOnline
// replaces the stored value when set.
type StatsDelta struct {
	Messages   int64
	VoiceTime  int64
	LastOnline *time.Time
}

// Warning is an append-only moderation record.
type Warning struct {
	ID        int64
	UserID    int64
	Reason    string
	AuthorID  int64
	CreatedAt time.Time
}

// TicketStatus constants
const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)

// Ticket is a support ticket channel.
type Ticket struct {
	ID          int64
	TicketID    string
	OwnerID     int64
	ChannelID   int64
	Status      string
	Reason      string
	CreatedAt   time.Time
	ClosedAt    *time.Time
	ClosedBy    int64
	CloseReason string
}

// RoleConfig describes a self-assignable role offered in the roles channel.
type RoleConfig struct {
	RoleID      int64
	Name        string
	Description string
	Emoji       string
	CreatedAt   time.Time
}

// LegacyImport records that a legacy snapshot file was imported.
type LegacyImport struct {
	Source     string
	Checksum   string
	RunID      string
	ImportedAt time.Time
}
