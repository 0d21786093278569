// Package migrations embeds the SQL schema so goose can apply it at startup
// without relying on files next to the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
