//go:build !cgo

// Package treesitter is the Java front end. This stub is used when CGO is
// not available.
package treesitter

import (
	"context"
	"log/slog"

	"langidx/internal/frontend"
)

// Compiler is a stub for non-CGO builds.
type Compiler struct{}

// New returns a compiler whose Compile always fails.
func New(workers int, logger *slog.Logger) *Compiler {
	return &Compiler{}
}

// IsAvailable returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}

// Compile returns ErrNoCGO.
func (c *Compiler) Compile(ctx context.Context, inputs []frontend.Input, targetDir string) (*frontend.Forest, []frontend.Message, error) {
	return nil, nil, ErrNoCGO
}
