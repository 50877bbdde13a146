// Package defaults embeds the bundled account resource used as the
// secondary load source when the primary file is missing or corrupt.
package defaults

import "embed"

// FS carries the bundled accounts document.
//
//go:embed accounts.json
var FS embed.FS

// Name is the embedded resource path within FS.
const Name = "accounts.json"
