// Package migrations embeds the SQL migrations for the messages table.
// The same files are applied to both sqlite and postgres.
package migrations

import "embed"

// FS holds the embedded *.up.sql and *.down.sql files.
//
//go:embed *.sql
var FS embed.FS
