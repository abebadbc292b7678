// Package migrations embeds the geocap schema: parents and their capture
// records.
package migrations

import "embed"

// Files holds the up/down SQL pairs applied by golang-migrate at startup.
//
//go:embed *.sql
var Files embed.FS
