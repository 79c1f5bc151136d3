// Package migrations embeds the SQLite index schema.
package migrations

import "embed"

// Latest is the highest migration version in FS.
const Latest = 1

//go:embed *.sql
var FS embed.FS
