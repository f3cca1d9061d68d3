// Package migrations embeds the goose SQL migration files. The api binary
// applies them at startup; the scheduler assumes the schema is current.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
