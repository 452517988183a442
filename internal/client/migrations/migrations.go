// Package migrations embeds the marketctl local index schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
