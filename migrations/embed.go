// Package migrations embeds the run-history schema into the binary so the
// CLI can create or upgrade its database without SQL files on disk.
package migrations

import "embed"

// FS holds every *.sql migration at its root.
//
//go:embed *.sql
var FS embed.FS
