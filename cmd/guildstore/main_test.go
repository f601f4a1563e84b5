// ABOUTME: Tests for CLI argument parsing, config loading, logging and commands
// ABOUTME: Commands run against a facade backed by temporary databases

package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/guildstore/internal/config"
	"github.com/2389/guildstore/internal/data"
	"github.com/2389/guildstore/internal/migrate"
)

func TestParseGuildID(t *testing.T) {
	id, err := parseGuildID(" 123456789012345678 ")
	require.NoError(t, err)
	assert.Equal(t, int64(123456789012345678), id)

	for _, bad := range []string{"", "abc", "0", "-5"} {
		_, err := parseGuildID(bad)
		assert.Error(t, err, bad)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GUILDSTORE_CONFIG", "/etc/guildstore.yaml")
	assert.Equal(t, "/etc/guildstore.yaml", getConfigPath())

	t.Setenv("GUILDSTORE_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "guildstore", "config.yaml"), getConfigPath())
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GUILDSTORE_DATABASE_DIR", "/tmp/guilds")

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/guilds", cfg.Database.Dir)
	assert.Equal(t, 64, cfg.Pool.MaxOpen)
}

func TestLoadConfig_InvalidFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool: [unclosed"), 0644))

	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.Debug("hidden")
	logger.With("component", "store").WithGroup("req").Info("provisioned", "guild_id", 9)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "provisioned")
	assert.Contains(t, out, "component=")
	assert.Contains(t, out, "req.guild_id=")
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)

	logger.Debug("visible", "guild_id", 9)
	assert.Contains(t, buf.String(), `"msg":"visible"`)
	assert.Contains(t, buf.String(), `"guild_id":9`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func setupFacade(t *testing.T) *data.Facade {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Database.Dir = filepath.Join(base, "databases")
	cfg.Legacy.Dir = filepath.Join(base, "legacy")

	f, err := data.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func runCmd(t *testing.T, f *data.Facade, args ...string) (string, error) {
	t.Helper()
	cmd, ok := commands[args[0]]
	require.True(t, ok, "unknown command %s", args[0])
	require.GreaterOrEqual(t, len(args)-1, cmd.minArgs)

	var buf bytes.Buffer
	err := cmd.run(context.Background(), f, &buf, args[1:])
	return buf.String(), err
}

func TestCommands_AccessLists(t *testing.T) {
	f := setupFacade(t)

	out, err := runCmd(t, f, "check", "111")
	require.NoError(t, err)
	assert.Contains(t, out, "allowed")

	out, err = runCmd(t, f, "deny", "111", "spam", "bot")
	require.NoError(t, err)
	assert.Contains(t, out, "blacklist")

	out, err = runCmd(t, f, "check", "111")
	require.NoError(t, err)
	assert.Contains(t, out, "denied")

	_, err = runCmd(t, f, "unlist", "111", "greylist")
	assert.Error(t, err)

	_, err = runCmd(t, f, "unlist", "111", "blacklist")
	require.NoError(t, err)

	out, err = runCmd(t, f, "check", "111")
	require.NoError(t, err)
	assert.Contains(t, out, "allowed")
}

func TestCommands_RegisterAndInspect(t *testing.T) {
	f := setupFacade(t)

	out, err := runCmd(t, f, "register", "9", "Test", "Guild")
	require.NoError(t, err)
	assert.Contains(t, out, "registered guild 9 (Test Guild)")
	assert.Contains(t, out, "skipped")

	out, err = runCmd(t, f, "guilds")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Guild")

	out, err = runCmd(t, f, "config", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "#5865F2")
	assert.Contains(t, out, ":25565")

	out, err = runCmd(t, f, "backfill")
	require.NoError(t, err)
	assert.Contains(t, out, "1 guilds migrated")
}

func TestCommands_GuildsEmpty(t *testing.T) {
	f := setupFacade(t)

	out, err := runCmd(t, f, "guilds")
	require.NoError(t, err)
	assert.Contains(t, out, "no registered guilds")
}

func TestCommands_InvalidID(t *testing.T) {
	f := setupFacade(t)

	_, err := runCmd(t, f, "migrate", "nope")
	assert.Error(t, err)
}

func TestPrintReport_MarksSharedSnapshots(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	r := &migrate.Report{GuildID: 9, RunID: "run", Steps: []migrate.StepResult{
		{Step: migrate.StepStats, File: "legacy/stats.json", Status: migrate.StatusImported, Count: 2, Shared: true},
		{Step: migrate.StepWarnings, File: "legacy/9/warns.json", Status: migrate.StatusImported, Count: 1},
	}}

	var buf bytes.Buffer
	printReport(&buf, r)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "legacy/stats.json (shared)")
	assert.NotContains(t, lines[2], "(shared)")
}
