// ABOUTME: Legacy snapshot file formats and lenient value decoding
// ABOUTME: IDs arrive as JSON numbers or strings; timestamps in several ISO-like layouts

package migrate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// stats.json
type legacyStats struct {
	Messages   map[string]flexInt `json:"messages"`
	VoiceTime  map[string]flexInt `json:"voice_time"`
	LastOnline map[string]string  `json:"last_online"`
}

// warns.json: each entry is [created_at, reason, author_id].
type legacyWarns struct {
	Warnings map[string][]json.RawMessage `json:"warnings"`
}

// ticket_config.json
type legacyTicketConfig struct {
	CategoryID        flexInt                 `json:"category_id"`
	CreateChannelID   flexInt                 `json:"create_channel_id"`
	LogChannelID      flexInt                 `json:"log_channel_id"`
	TicketMessageID   flexInt                 `json:"ticket_message_id"`
	ArchiveCategoryID flexInt                 `json:"archive_category_id"`
	ActiveTickets     map[string]legacyTicket `json:"active_tickets"`
	TicketReasons     json.RawMessage         `json:"ticket_reasons"`
}

type legacyTicket struct {
	UserID    flexInt    `json:"user_id"`
	OwnerID   flexInt    `json:"owner_id"`
	Reason    string     `json:"reason"`
	CreatedAt string     `json:"created_at"`
	TicketID  flexString `json:"ticket_id"`
}

// roles_config.json, keyed by role id.
type legacyRole struct {
	ID          flexInt `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Emoji       string  `json:"emoji"`
}

// rules_config.json
type legacyRules struct {
	RulesChannelID flexInt `json:"rules_channel_id"`
	RulesMessageID flexInt `json:"rules_message_id"`
	VerifiedRoleID flexInt `json:"verified_role_id"`
	DefaultRoleID  flexInt `json:"default_role_id"`
}

// user_preferences.json
type legacyPreferences struct {
	Minecraft struct {
		Server struct {
			IP   string  `json:"ip"`
			Port flexInt `json:"port"`
		} `json:"server"`
		Discord struct {
			StatusChannelID    flexInt `json:"statusChannelId"`
			NotificationRoleID flexInt `json:"notificationRoleId"`
		} `json:"discord"`
	} `json:"minecraft"`
}

// flexInt decodes an integer written either as a JSON number or a string.
// null and "" decode to zero.
type flexInt int64

func (v *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*v = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
		if s == "" {
			*v = 0
			return nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s", s)
	}
	*v = flexInt(n)
	return nil
}

// ptr returns nil for zero so that unset legacy values leave columns alone.
func (v flexInt) ptr() *int64 {
	if v == 0 {
		return nil
	}
	n := int64(v)
	return &n
}

// flexString decodes a JSON string or number into its text form.
type flexString string

func (v *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*v = ""
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = flexString(str)
	default:
		*v = flexString(s)
	}
	return nil
}

func parseID(key string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", key)
	}
	return id, nil
}

// sortedKeys returns map keys in a stable order so imports are deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Layouts seen in legacy files. Fractional seconds are accepted by every
// layout that has a seconds field. Zone-less values are taken as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseLegacyTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// idString keeps snowflakes exact inside the JSON extension map, where
// numbers would round-trip through float64.
func idString(v flexInt) string {
	return strconv.FormatInt(int64(v), 10)
}
