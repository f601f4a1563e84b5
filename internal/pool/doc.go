// Package pool keeps one long-lived *sql.DB per guild database so that
// hundreds of tenants can be served without reopening files on every call,
// while bounding how many file handles stay open.
package pool
