// ABOUTME: Single call surface over guild storage, the global registry and migrations
// ABOUTME: Every method logs its own failures so callers never need to

package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/2389/guildstore/internal/access"
	"github.com/2389/guildstore/internal/config"
	"github.com/2389/guildstore/internal/global"
	"github.com/2389/guildstore/internal/migrate"
	"github.com/2389/guildstore/internal/store"
)

// Facade is what the rest of the bot talks to. All methods take the guild
// id first and are safe for concurrent use. No method holds a lock across
// calls; AddWarning is the only read-after-write the facade makes atomic.
type Facade struct {
	guilds *store.Store
	global *global.Store
	gate   *access.Gate
	runner *migrate.Runner
	logger *slog.Logger
}

// Open builds a facade from configuration: guild databases and global.db
// live in database.dir, legacy snapshots are read from legacy.dir.
func Open(cfg *config.Config) (*Facade, error) {
	guilds, err := store.New(cfg.Database.Dir, store.Options{
		MaxOpen:     cfg.Pool.MaxOpen,
		IdleTimeout: cfg.Pool.IdleTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening guild store: %w", err)
	}

	glob, err := global.New(filepath.Join(cfg.Database.Dir, global.FileName))
	if err != nil {
		guilds.Close()
		return nil, fmt.Errorf("opening global store: %w", err)
	}

	runner := migrate.NewRunner(guilds, migrate.Options{
		Dir:           cfg.Legacy.Dir,
		SharedGuildID: cfg.Legacy.GuildID,
	})
	return New(guilds, glob, runner), nil
}

// New assembles a facade from already opened components.
func New(guilds *store.Store, glob *global.Store, runner *migrate.Runner) *Facade {
	return &Facade{
		guilds: guilds,
		global: glob,
		gate:   access.NewGate(glob),
		runner: runner,
		logger: slog.Default().With("component", "data"),
	}
}

// Close closes the global store and every guild handle.
func (f *Facade) Close() error {
	return errors.Join(f.guilds.Close(), f.global.Close())
}

// fail logs a failed operation and wraps its error. Missing entities are
// an expected outcome and only logged at debug level.
func (f *Facade) fail(op string, guildID int64, err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, global.ErrNotFound) {
		f.logger.Debug(op+": not found", "guild_id", guildID)
	} else {
		f.logger.Error(op+" failed", "guild_id", guildID, "error", err)
	}
	return fmt.Errorf("%s for guild %d: %w", op, guildID, err)
}

// RegisterTenant records the guild in the registry, provisions its database
// and imports any legacy snapshots. The returned error covers registration
// and provisioning; migration step failures are in the report.
func (f *Facade) RegisterTenant(ctx context.Context, guildID int64, name string) (*migrate.Report, error) {
	if err := f.global.RegisterGuild(ctx, guildID, name); err != nil {
		return nil, f.fail("register tenant", guildID, err)
	}
	if err := f.guilds.Ensure(ctx, guildID); err != nil {
		return nil, f.fail("provision tenant", guildID, err)
	}
	return f.MigrateAll(ctx, guildID), nil
}

// IsAllowed reports whether the guild may use the bot. If the access lists
// cannot be read the guild is allowed, so one broken global file does not
// turn every guild away.
func (f *Facade) IsAllowed(ctx context.Context, guildID int64) bool {
	allowed, err := f.gate.Allowed(ctx, guildID)
	if err != nil {
		f.logger.Error("access check failed, allowing", "guild_id", guildID, "error", err)
		return true
	}
	if !allowed {
		f.logger.Info("guild denied by access lists", "guild_id", guildID)
	}
	return allowed
}

// MigrateAll runs every legacy import step for the guild.
func (f *Facade) MigrateAll(ctx context.Context, guildID int64) *migrate.Report {
	report := f.runner.Run(ctx, guildID)
	if err := report.Err(); err != nil {
		f.logger.Warn("guild partially migrated", "guild_id", guildID, "run_id", report.RunID, "error", err)
	} else {
		f.logger.Info("guild migrated", "guild_id", guildID, "run_id", report.RunID, "imported_steps", report.Imported())
	}
	return report
}

// Backfill re-registers every known guild, provisioning and migrating each
// one. A failing guild is logged and skipped. Only a registry read failure
// or cancellation aborts the run.
func (f *Facade) Backfill(ctx context.Context) ([]*migrate.Report, error) {
	guilds, err := f.global.ListGuilds(ctx)
	if err != nil {
		return nil, f.fail("backfill", 0, err)
	}

	reports := make([]*migrate.Report, 0, len(guilds))
	for _, g := range guilds {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := f.RegisterTenant(ctx, g.GuildID, g.Name)
		if err != nil {
			continue
		}
		reports = append(reports, report)
	}

	f.logger.Info("backfill complete", "guilds", len(guilds), "migrated", len(reports))
	return reports, nil
}

// Guild returns a registry entry.
func (f *Facade) Guild(ctx context.Context, guildID int64) (*global.Guild, error) {
	g, err := f.global.GetGuild(ctx, guildID)
	if err != nil {
		return nil, f.fail("get guild", guildID, err)
	}
	return g, nil
}

// Guilds lists every registered guild.
func (f *Facade) Guilds(ctx context.Context) ([]*global.Guild, error) {
	guilds, err := f.global.ListGuilds(ctx)
	if err != nil {
		return nil, f.fail("list guilds", 0, err)
	}
	return guilds, nil
}

// GetConfig returns the guild configuration, or the built-in defaults if it
// cannot be read.
func (f *Facade) GetConfig(ctx context.Context, guildID int64) *store.GuildConfig {
	cfg, err := f.guilds.GetConfig(ctx, guildID)
	if err != nil {
		f.logger.Error("reading guild config, using defaults", "guild_id", guildID, "error", err)
		return store.DefaultGuildConfig()
	}
	return cfg
}

// UpdateConfig applies the non-nil fields of update to the guild configuration.
func (f *Facade) UpdateConfig(ctx context.Context, guildID int64, update store.ConfigUpdate) error {
	if err := f.guilds.UpdateConfig(ctx, guildID, update); err != nil {
		return f.fail("update config", guildID, err)
	}
	return nil
}

// AddWarning records a warning and returns the member's new total.
func (f *Facade) AddWarning(ctx context.Context, guildID, userID int64, reason string, authorID int64) (int, error) {
	n, err := f.guilds.AddWarning(ctx, guildID, userID, reason, authorID)
	if err != nil {
		return 0, f.fail("add warning", guildID, err)
	}
	return n, nil
}

// GetWarnings returns the member's warnings, oldest first.
func (f *Facade) GetWarnings(ctx context.Context, guildID, userID int64) ([]*store.Warning, error) {
	warnings, err := f.guilds.GetWarnings(ctx, guildID, userID)
	if err != nil {
		return nil, f.fail("get warnings", guildID, err)
	}
	return warnings, nil
}

// ClearWarnings deletes the member's warnings and returns how many were removed.
func (f *Facade) ClearWarnings(ctx context.Context, guildID, userID int64) (int, error) {
	n, err := f.guilds.ClearWarnings(ctx, guildID, userID)
	if err != nil {
		return 0, f.fail("clear warnings", guildID, err)
	}
	return n, nil
}

// UpdateUserStats adds delta to the member's activity counters.
func (f *Facade) UpdateUserStats(ctx context.Context, guildID, userID int64, delta store.StatsDelta) error {
	if err := f.guilds.UpdateUserStats(ctx, guildID, userID, delta); err != nil {
		return f.fail("update user stats", guildID, err)
	}
	return nil
}

// GetUserStats returns store.ErrNotFound (wrapped) for members with no
// recorded activity.
func (f *Facade) GetUserStats(ctx context.Context, guildID, userID int64) (*store.UserStat, error) {
	stat, err := f.guilds.GetUserStats(ctx, guildID, userID)
	if err != nil {
		return nil, f.fail("get user stats", guildID, err)
	}
	return stat, nil
}

// TopUserStats returns up to limit members ordered by message count.
func (f *Facade) TopUserStats(ctx context.Context, guildID int64, limit int) ([]*store.UserStat, error) {
	stats, err := f.guilds.TopUserStats(ctx, guildID, limit)
	if err != nil {
		return nil, f.fail("top user stats", guildID, err)
	}
	return stats, nil
}

// AddRoleConfig adds or replaces a self-assignable role.
func (f *Facade) AddRoleConfig(ctx context.Context, guildID int64, role *store.RoleConfig) error {
	if err := f.guilds.AddRoleConfig(ctx, guildID, role); err != nil {
		return f.fail("add role config", guildID, err)
	}
	return nil
}

// RemoveRoleConfig drops a role from the role menu.
func (f *Facade) RemoveRoleConfig(ctx context.Context, guildID, roleID int64) error {
	if err := f.guilds.RemoveRoleConfig(ctx, guildID, roleID); err != nil {
		return f.fail("remove role config", guildID, err)
	}
	return nil
}

// GetRoleConfig returns the role menu keyed by decimal role id.
func (f *Facade) GetRoleConfig(ctx context.Context, guildID int64) (map[string]*store.RoleConfig, error) {
	roles, err := f.guilds.GetRoleConfig(ctx, guildID)
	if err != nil {
		return nil, f.fail("get role config", guildID, err)
	}
	return roles, nil
}

// CreateTicket stores a new ticket. It reports false if the id is taken.
func (f *Facade) CreateTicket(ctx context.Context, guildID int64, t *store.Ticket) (bool, error) {
	created, err := f.guilds.CreateTicket(ctx, guildID, t)
	if err != nil {
		return false, f.fail("create ticket", guildID, err)
	}
	return created, nil
}

// GetTicket returns one ticket by id.
func (f *Facade) GetTicket(ctx context.Context, guildID int64, ticketID string) (*store.Ticket, error) {
	t, err := f.guilds.GetTicket(ctx, guildID, ticketID)
	if err != nil {
		return nil, f.fail("get ticket", guildID, err)
	}
	return t, nil
}

// ListTickets returns the guild's tickets, filtered by status when it is non-empty.
func (f *Facade) ListTickets(ctx context.Context, guildID int64, status string) ([]*store.Ticket, error) {
	tickets, err := f.guilds.ListTickets(ctx, guildID, status)
	if err != nil {
		return nil, f.fail("list tickets", guildID, err)
	}
	return tickets, nil
}

// CloseTicket marks an open ticket closed.
func (f *Facade) CloseTicket(ctx context.Context, guildID int64, ticketID string, closedBy int64, reason string) error {
	if err := f.guilds.CloseTicket(ctx, guildID, ticketID, closedBy, reason); err != nil {
		return f.fail("close ticket", guildID, err)
	}
	return nil
}

// AddToList puts the guild on an access list, replacing the reason and
// actor of an existing entry.
func (f *Facade) AddToList(ctx context.Context, guildID int64, listType global.ListType, reason string, addedBy int64) error {
	if err := f.global.AddToList(ctx, guildID, listType, reason, addedBy); err != nil {
		return f.fail("add to "+string(listType), guildID, err)
	}
	return nil
}

// RemoveFromList takes the guild off an access list.
func (f *Facade) RemoveFromList(ctx context.Context, guildID int64, listType global.ListType) error {
	if err := f.global.RemoveFromList(ctx, guildID, listType); err != nil {
		return f.fail("remove from "+string(listType), guildID, err)
	}
	return nil
}

// ListEntries returns every entry of one access list.
func (f *Facade) ListEntries(ctx context.Context, listType global.ListType) ([]*global.AccessEntry, error) {
	entries, err := f.global.ListEntries(ctx, listType)
	if err != nil {
		return nil, f.fail("list "+string(listType), 0, err)
	}
	return entries, nil
}
