// Package migrations embeds the SQL migrations of the family read model.
package migrations

import "embed"

// FS contains the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS
