package migrations

import "embed"

// FS holds one directory of golang-migrate files per dialect: postgres, mysql and sqlite3.
//
//go:embed postgres mysql sqlite3
var FS embed.FS
