// Package migrations holds the Postgres schema as goose SQL migrations,
// embedded so the binary can migrate without a checkout next to it.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
