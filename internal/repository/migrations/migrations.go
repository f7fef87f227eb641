// Package migrations embeds the schema for the SQL snapshot stores.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
