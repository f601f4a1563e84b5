// Package access decides whether a guild may use the bot. The rule itself
// (Decide) is pure; Gate feeds it from the global access lists.
package access
