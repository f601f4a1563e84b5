// ABOUTME: Translates legacy JSON snapshots into a guild's database
// ABOUTME: Six independent steps; a failing step is reported and the rest still run

package migrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/2389/guildstore/internal/store"
)

// Step names, in the order Run executes them.
const (
	StepStats           = "stats"
	StepWarnings        = "warnings"
	StepTicketConfig    = "ticket_config"
	StepRolesConfig     = "roles_config"
	StepRulesConfig     = "rules_config"
	StepUserPreferences = "user_preferences"
)

// Status is the outcome of one step.
type Status string

const (
	StatusSkipped  Status = "skipped"
	StatusImported Status = "imported"
	StatusFailed   Status = "failed"
)

// StepError reports a failed step. The file is empty when the failure
// happened before a legacy file was found.
type StepError struct {
	Step string
	File string
	Err  error
}

func (e *StepError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("migration step %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("migration step %s (%s): %v", e.Step, e.File, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// StepResult describes what one step did.
type StepResult struct {
	Step   string
	File   string // resolved legacy file, empty when none was found
	Status Status
	Count  int    // records written
	Note   string // why a step was skipped
	Shared bool   // File came from the shared directory, not the guild's own
	Err    error  // *StepError when Status is StatusFailed
}

// Report is the outcome of migrating one guild.
type Report struct {
	GuildID int64
	RunID   string
	Started time.Time
	Steps   []StepResult
}

// Err joins every step error. Nil means the migration fully succeeded,
// including the case where no legacy file existed at all.
func (r *Report) Err() error {
	var errs []error
	for _, s := range r.Steps {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return errors.Join(errs...)
}

// Imported reports how many steps wrote data.
func (r *Report) Imported() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == StatusImported {
			n++
		}
	}
	return n
}

// Target is the write side of the guild store used by migrations.
type Target interface {
	ImportUserStats(ctx context.Context, guildID int64, stats []*store.UserStat, imp *store.LegacyImport) error
	UpdateConfig(ctx context.Context, guildID int64, update store.ConfigUpdate) error
	AddRoleConfig(ctx context.Context, guildID int64, role *store.RoleConfig) error
	CreateTicket(ctx context.Context, guildID int64, t *store.Ticket) (bool, error)
	ImportWarnings(ctx context.Context, guildID int64, warnings []*store.Warning, imp *store.LegacyImport) error
	LegacyImported(ctx context.Context, guildID int64, source, checksum string) (bool, error)
	RecordLegacyImport(ctx context.Context, guildID int64, imp *store.LegacyImport) error
}

// Options locates the legacy snapshots.
type Options struct {
	// Dir holds shared snapshots and optional per-guild subdirectories
	// named by guild id.
	Dir string
	// SharedGuildID, when non-zero, is the only guild that shared snapshots
	// are imported into.
	SharedGuildID int64
}

// Runner migrates legacy snapshots into guild databases.
type Runner struct {
	target Target
	opts   Options
	logger *slog.Logger
}

// NewRunner creates a runner writing into target.
func NewRunner(target Target, opts Options) *Runner {
	return &Runner{
		target: target,
		opts:   opts,
		logger: slog.Default().With("component", "migrate"),
	}
}

type step struct {
	name  string
	file  string
	apply func(ctx context.Context, r *Runner, guildID int64, snap *snapshot) (int, error)
}

var steps = []step{
	{StepStats, "stats.json", importStats},
	{StepWarnings, "warns.json", importWarnings},
	{StepTicketConfig, "ticket_config.json", importTicketConfig},
	{StepRolesConfig, "roles_config.json", importRolesConfig},
	{StepRulesConfig, "rules_config.json", importRulesConfig},
	{StepUserPreferences, "user_preferences.json", importUserPreferences},
}

// snapshot is one legacy file read into memory.
type snapshot struct {
	source   string // base file name, the ledger key
	data     []byte
	checksum string
	runID    string
}

func (s *snapshot) ledgerEntry() *store.LegacyImport {
	return &store.LegacyImport{Source: s.source, Checksum: s.checksum, RunID: s.runID}
}

// Run executes every step for the guild. It never stops early on a step
// failure; only context cancellation cuts the remaining steps short, and
// those are reported as failed.
func (r *Runner) Run(ctx context.Context, guildID int64) *Report {
	report := &Report{
		GuildID: guildID,
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
	logger := r.logger.With("guild_id", guildID, "run_id", report.RunID)

	for _, st := range steps {
		res := r.runStep(ctx, st, guildID, report.RunID)
		report.Steps = append(report.Steps, res)

		switch res.Status {
		case StatusFailed:
			logger.Error("migration step failed", "step", st.name, "error", res.Err)
		case StatusImported:
			logger.Info("migration step imported", "step", st.name, "file", res.File, "records", res.Count)
			if res.Shared && r.opts.SharedGuildID == 0 {
				logger.Warn("shared legacy snapshot applied; set legacy.guild_id to restrict it to one guild",
					"step", st.name, "file", res.File)
			}
		default:
			logger.Debug("migration step skipped", "step", st.name, "reason", res.Note)
		}
	}

	return report
}

func (r *Runner) runStep(ctx context.Context, st step, guildID int64, runID string) StepResult {
	res := StepResult{Step: st.name}
	fail := func(err error) StepResult {
		res.Status = StatusFailed
		res.Err = &StepError{Step: st.name, File: res.File, Err: err}
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	path, shared, err := r.locate(guildID, st.file)
	if err != nil {
		return fail(err)
	}
	if path == "" {
		res.Status = StatusSkipped
		res.Note = "no legacy file"
		return res
	}
	res.File = path
	res.Shared = shared

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(fmt.Errorf("reading legacy file: %w", err))
	}
	sum := sha256.Sum256(data)
	snap := &snapshot{
		source:   st.file,
		data:     data,
		checksum: hex.EncodeToString(sum[:]),
		runID:    runID,
	}

	// Each snapshot is applied once; later runs must not overwrite data
	// written since. Changed file content is a new snapshot.
	done, err := r.target.LegacyImported(ctx, guildID, snap.source, snap.checksum)
	if err != nil {
		return fail(err)
	}
	if done {
		res.Status = StatusSkipped
		res.Note = "already imported"
		return res
	}

	n, err := st.apply(ctx, r, guildID, snap)
	if errors.Is(err, store.ErrAlreadyImported) {
		res.Status = StatusSkipped
		res.Note = "already imported"
		return res
	}
	if err != nil {
		return fail(err)
	}

	res.Status = StatusImported
	res.Count = n
	return res
}

// locate resolves a legacy file for the guild: its own subdirectory first,
// then the shared directory. Returns "" when neither has the file; shared
// reports that the file came from the shared directory.
func (r *Runner) locate(guildID int64, name string) (string, bool, error) {
	candidates := []string{filepath.Join(r.opts.Dir, strconv.FormatInt(guildID, 10), name)}
	if r.opts.SharedGuildID == 0 || r.opts.SharedGuildID == guildID {
		candidates = append(candidates, filepath.Join(r.opts.Dir, name))
	}

	for i, path := range candidates {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking legacy file: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("legacy file %s is a directory", path)
		}
		return path, i > 0, nil
	}
	return "", false, nil
}
