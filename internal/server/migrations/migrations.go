// Package migrations embeds the daemon's goose SQL migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
