// Package ops bundles the deployable SQL so every binary carries the schema
// it expects.
package ops

import "embed"

//go:embed migrations seeds
var Files embed.FS
