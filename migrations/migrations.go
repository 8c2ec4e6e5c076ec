// Package migrations embeds the sqlite schema files so the binary and tests
// can migrate without a working-directory dependency.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
