// Package datastore writes tabular rows to a local SQLite file or a remote
// Datasette instance.
package datastore

import (
	"context"
	"slices"
)

// Store is a destination for batches of rows.
type Store interface {
	// Connect prepares the destination for writes.
	Connect() error

	// CreateTable runs a CREATE TABLE IF NOT EXISTS statement. Destinations
	// that create tables on first insert treat this as a no-op.
	CreateTable(schema string) error

	// BatchInsert writes records into database.table, replacing rows that
	// collide on the table's primary key.
	BatchInsert(ctx context.Context, database, table string, records []map[string]any) error

	// Close releases the connection.
	Close() error
}

// columns returns the union of keys across records in sorted order.
func columns(records []map[string]any) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, r := range records {
		for col := range r {
			if _, ok := seen[col]; ok {
				continue
			}
			seen[col] = struct{}{}
			cols = append(cols, col)
		}
	}
	slices.Sort(cols)
	return cols
}
