// Package migrations embeds the SQL schema migrations for the Postgres
// repository.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
