// Package migrations embeds the versioned SQL schema for cmd/migrate.
package migrations

import "embed"

// FS holds one directory of migrations per database driver.
//
//go:embed mysql/*.sql sqlite/*.sql
var FS embed.FS
