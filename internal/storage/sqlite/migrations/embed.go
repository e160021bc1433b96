package migrations

import "embed"

// FS contains the room store schema.
//
//go:embed *.sql
var FS embed.FS
