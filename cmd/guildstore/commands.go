// ABOUTME: CLI subcommands operating on the data facade
// ABOUTME: Each command parses its arguments and prints a short colorized summary

package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/guildstore/internal/data"
	"github.com/2389/guildstore/internal/global"
	"github.com/2389/guildstore/internal/migrate"
)

type command struct {
	usage   string
	minArgs int
	run     func(ctx context.Context, f *data.Facade, w io.Writer, args []string) error
}

var commands = map[string]command{
	"register": {"register ID NAME", 2, runRegister},
	"migrate":  {"migrate ID", 1, runMigrate},
	"backfill": {"backfill", 0, runBackfill},
	"check":    {"check ID", 1, runCheck},
	"allow":    {"allow ID [REASON]", 1, listAdder(global.Whitelist)},
	"deny":     {"deny ID [REASON]", 1, listAdder(global.Blacklist)},
	"unlist":   {"unlist ID whitelist|blacklist", 2, runUnlist},
	"guilds":   {"guilds", 0, runGuilds},
	"config":   {"config ID", 1, runConfig},
}

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	gray   = color.New(color.FgHiBlack)
)

func parseGuildID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid guild id %q", s)
	}
	return id, nil
}

func runRegister(ctx context.Context, f *data.Facade, w io.Writer, args []string) error {
	id, err := parseGuildID(args[0])
	if err != nil {
		return err
	}
	name := strings.Join(args[1:], " ")

	report, err := f.RegisterTenant(ctx, id, name)
	if err != nil {
		return err
	}

	green.Fprint(w, "✓ ")
	fmt.Fprintf(w, "registered guild %d (%s)\n", id, name)
	printReport(w, report)
	return report.Err()
}

func runMigrate(ctx context.Context, f *data.Facade, w io.Writer, args []string) error {
	id, err := parseGuildID(args[0])
	if err != nil {
		return err
	}

	report := f.MigrateAll(ctx, id)
	printReport(w, report)
	return report.Err()
}

func runBackfill(ctx context.Context, f *data.Facade, w io.Writer, _ []string) error {
	reports, err := f.Backfill(ctx)
	for _, r := range reports {
		printReport(w, r)
	}
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if r.Err() != nil {
			failed++
		}
	}
	fmt.Fprintf(w, "%d guilds migrated", len(reports))
	if failed > 0 {
		yellow.Fprintf(w, ", %d with failed steps", failed)
	}
	fmt.Fprintln(w)
	return nil
}

func printReport(w io.Writer, r *migrate.Report) {
	gray.Fprintf(w, "guild %d run %s\n", r.GuildID, r.RunID)
	for _, s := range r.Steps {
		switch s.Status {
		case migrate.StatusImported:
			green.Fprintf(w, "  %-9s", s.Status)
			fmt.Fprintf(w, "%-17s %d records from %s", s.Step, s.Count, s.File)
			if s.Shared {
				yellow.Fprint(w, " (shared)")
			}
			fmt.Fprintln(w)
		case migrate.StatusFailed:
			red.Fprintf(w, "  %-9s", s.Status)
			fmt.Fprintf(w, "%-17s %v\n", s.Step, s.Err)
		default:
			gray.Fprintf(w, "  %-9s%-17s %s\n", s.Status, s.Step, s.Note)
		}
	}
}

func runCheck(ctx context.Context, f *data.Facade, w io.Writer, args []string) error {
	id, err := parseGuildID(args[0])
	if err != nil {
		return err
	}

	if f.IsAllowed(ctx, id) {
		green.Fprint(w, "allowed")
	} else {
		red.Fprint(w, "denied")
	}
	fmt.Fprintf(w, " guild %d\n", id)
	return nil
}

func listAdder(listType global.ListType) func(context.Context, *data.Facade, io.Writer, []string) error {
	return func(ctx context.Context, f *data.Facade, w io.Writer, args []string) error {
		id, err := parseGuildID(args[0])
		if err != nil {
			return err
		}
		reason := strings.Join(args[1:], " ")

		if err := f.AddToList(ctx, id, listType, reason, 0); err != nil {
			return err
		}
		green.Fprint(w, "✓ ")
		fmt.Fprintf(w, "guild %d added to %s\n", id, listType)
		return nil
	}
}

func runUnlist(ctx context.Context, f *data.Facade, w io.Writer, args []string) error {
	id, err := parseGuildID(args[0])
	if err != nil {
		return err
	}
	listType, err := global.ParseListType(args[1])
	if err != nil {
		return err
	}

	if err := f.RemoveFromList(ctx, id, listType); err != nil {
		return err
	}
	green.Fprint(w, "✓ ")
	fmt.Fprintf(w, "guild %d removed from %s\n", id, listType)
	return nil
}

func runGuilds(ctx context.Context, f *data.Facade, w io.Writer, _ []string) error {
	guilds, err := f.Guilds(ctx)
	if err != nil {
		return err
	}
	if len(guilds) == 0 {
		gray.Fprintln(w, "no registered guilds")
		return nil
	}

	for _, g := range guilds {
		fmt.Fprintf(w, "%-20d %-30s", g.GuildID, g.Name)
		gray.Fprintf(w, " joined %s, last seen %s\n",
			g.JoinedAt.Local().Format(time.DateTime), g.LastSeen.Local().Format(time.DateTime))
	}
	return nil
}

func runConfig(ctx context.Context, f *data.Facade, w io.Writer, args []string) error {
	id, err := parseGuildID(args[0])
	if err != nil {
		return err
	}

	cfg := f.GetConfig(ctx, id)
	row := func(name string, v any) {
		gray.Fprintf(w, "%-26s", name)
		fmt.Fprintf(w, "%v\n", v)
	}
	idRow := func(name string, v int64) {
		if v == 0 {
			gray.Fprintf(w, "%-26s-\n", name)
			return
		}
		row(name, v)
	}

	row("embed_color", fmt.Sprintf("#%06X", cfg.EmbedColor))
	idRow("rules_channel_id", cfg.RulesChannelID)
	idRow("rules_message_id", cfg.RulesMessageID)
	idRow("verified_role_id", cfg.VerifiedRoleID)
	idRow("default_role_id", cfg.DefaultRoleID)
	idRow("ticket_category_id", cfg.TicketCategoryID)
	idRow("ticket_create_channel_id", cfg.TicketCreateChannelID)
	idRow("ticket_log_channel_id", cfg.TicketLogChannelID)
	row("mc_server", fmt.Sprintf("%s:%d", cfg.MCServerIP, cfg.MCServerPort))
	idRow("mc_status_channel_id", cfg.MCStatusChannelID)
	idRow("mc_notification_role_id", cfg.MCNotificationRoleID)
	idRow("roles_channel_id", cfg.RolesChannelID)
	for _, k := range slices.Sorted(maps.Keys(cfg.Extra)) {
		row("extra."+k, cfg.Extra[k])
	}
	return nil
}
