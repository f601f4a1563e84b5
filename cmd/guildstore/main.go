// ABOUTME: Entry point for the guildstore operator CLI
// ABOUTME: Registers, migrates and inspects guild databases and the access lists

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/2389/guildstore/internal/config"
	"github.com/2389/guildstore/internal/data"
)

// version is set at build time.
var version = "dev"

// getConfigPath returns the path to the config file.
// Priority: GUILDSTORE_CONFIG env var > XDG_CONFIG_HOME/guildstore/config.yaml > ~/.config/guildstore/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("GUILDSTORE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "guildstore", "config.yaml")
}

// loadConfig reads the config file, or falls back to defaults plus
// GUILDSTORE_* overrides when there is none.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.FromEnv()
	}
	return cfg, err
}

func usage() {
	fmt.Println("Usage: guildstore <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  register ID NAME              Register a guild, provision it and import legacy data")
	fmt.Println("  migrate ID                    Import legacy snapshots into a guild")
	fmt.Println("  backfill                      Provision and migrate every registered guild")
	fmt.Println("  check ID                      Show whether a guild is allowed")
	fmt.Println("  allow ID [REASON]             Add a guild to the whitelist")
	fmt.Println("  deny ID [REASON]              Add a guild to the blacklist")
	fmt.Println("  unlist ID whitelist|blacklist Remove a guild from a list")
	fmt.Println("  guilds                        List registered guilds")
	fmt.Println("  config ID                     Show a guild's configuration")
	fmt.Println("  version                       Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	if os.Args[1] == "version" {
		fmt.Println(version)
		return
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cmd, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd command, args []string) error {
	if len(args) < cmd.minArgs {
		return fmt.Errorf("usage: guildstore %s", cmd.usage)
	}

	cfg, err := loadConfig(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Components capture the default logger when they are built.
	slog.SetDefault(setupLogger(cfg.Logging))

	facade, err := data.Open(cfg)
	if err != nil {
		return err
	}
	defer facade.Close()

	return cmd.run(ctx, facade, os.Stdout, args)
}
