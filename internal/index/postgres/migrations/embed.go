// Package migrations embeds the Postgres index schema.
package migrations

import "embed"

const Latest = 1

//go:embed *.sql
var FS embed.FS
