// ABOUTME: Allow/deny decision for guilds based on the global access lists
// ABOUTME: Blacklist wins; a non-empty whitelist is exclusive; otherwise allow

package access

import (
	"context"
	"fmt"

	"github.com/2389/guildstore/internal/global"
)

// Decide is the access rule:
//  1. a blacklisted guild is denied
//  2. otherwise, if the whitelist is non-empty, only whitelisted guilds are allowed
//  3. otherwise every guild is allowed
func Decide(blacklisted, whitelisted, whitelistNonEmpty bool) bool {
	if blacklisted {
		return false
	}
	if whitelistNonEmpty {
		return whitelisted
	}
	return true
}

// Lists is the read side of the global access lists.
type Lists interface {
	IsListed(ctx context.Context, guildID int64, listType global.ListType) (bool, error)
	ListSize(ctx context.Context, listType global.ListType) (int, error)
}

// Gate answers whether a guild may use the bot.
type Gate struct {
	lists Lists
}

// NewGate creates a gate over the given lists.
func NewGate(lists Lists) *Gate {
	return &Gate{lists: lists}
}

// Allowed applies Decide to the current list contents. A denial is a normal
// false result, not an error; errors only report that the lists could not
// be read.
func (g *Gate) Allowed(ctx context.Context, guildID int64) (bool, error) {
	blacklisted, err := g.lists.IsListed(ctx, guildID, global.Blacklist)
	if err != nil {
		return false, fmt.Errorf("reading blacklist: %w", err)
	}
	if blacklisted {
		return false, nil
	}

	size, err := g.lists.ListSize(ctx, global.Whitelist)
	if err != nil {
		return false, fmt.Errorf("reading whitelist size: %w", err)
	}
	if size == 0 {
		return Decide(false, false, false), nil
	}

	whitelisted, err := g.lists.IsListed(ctx, guildID, global.Whitelist)
	if err != nil {
		return false, fmt.Errorf("reading whitelist: %w", err)
	}
	return Decide(false, whitelisted, true), nil
}
