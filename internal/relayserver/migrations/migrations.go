// Package migrations embeds the relay daemon's schema migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
