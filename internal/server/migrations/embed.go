// Package migrations embeds the forward-only schema for every supported
// SQL dialect. Each dialect lives in its own directory so goose can be
// pointed at it with fs.Sub.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
