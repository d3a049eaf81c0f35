// Package migrations embeds the postgres schema migrations so the server and
// the migrate command do not depend on the working directory.
package migrations

import "embed"

// FS holds every *.sql migration in golang-migrate naming
//
//go:embed *.sql
var FS embed.FS
