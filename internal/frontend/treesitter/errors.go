package treesitter

import "errors"

// ErrNoCGO is returned when the front end is unavailable due to missing CGO.
var ErrNoCGO = errors.New("java front end requires CGO (tree-sitter)")
