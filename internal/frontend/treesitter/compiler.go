//go:build cgo

// Package treesitter is the Java front end: it parses workspace sources with
// tree-sitter and lowers the syntax trees into frontend units.
package treesitter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"langidx/internal/frontend"
	"langidx/internal/slogutil"
)

// maxSyntaxErrors caps the syntax messages reported per file.
const maxSyntaxErrors = 20

// Compiler parses Java sources in parallel.
type Compiler struct {
	workers int
	logger  *slog.Logger
}

// New creates a compiler using up to workers parsers at once. workers <= 0
// means one per CPU.
func New(workers int, logger *slog.Logger) *Compiler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Compiler{workers: workers, logger: logger.With(slogutil.ComponentKey, "treesitter")}
}

// IsAvailable reports whether the tree-sitter front end is compiled in.
func IsAvailable() bool {
	return true
}

type parsed struct {
	unit     *frontend.Unit
	messages []frontend.Message
}

// Compile parses every input and writes a manifest of what was compiled to
// targetDir. Syntax errors, unreadable files and duplicate type
// declarations are reported as messages.
func (c *Compiler) Compile(ctx context.Context, inputs []frontend.Input, targetDir string) (*frontend.Forest, []frontend.Message, error) {
	results := make([]parsed, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.parseFile(gctx, in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("parsing inputs: %w", err)
	}

	forest := &frontend.Forest{}
	var messages []frontend.Message
	for _, r := range results {
		messages = append(messages, r.messages...)
		if r.unit != nil {
			forest.Units = append(forest.Units, r.unit)
		}
	}
	messages = append(messages, duplicateTypes(forest)...)

	if err := writeManifest(targetDir, forest, len(messages)); err != nil {
		return nil, nil, err
	}

	c.logger.Debug("parsed inputs", "inputs", len(inputs), "units", len(forest.Units), "messages", len(messages))
	return forest, messages, nil
}

func (c *Compiler) parseFile(ctx context.Context, in frontend.Input) parsed {
	src, err := os.ReadFile(in.Path)
	if err != nil {
		return parsed{messages: []frontend.Message{{
			Text:     fmt.Sprintf("cannot read %s: %v", in.URI, err),
			Severity: frontend.SeverityError,
			Code:     "unreadable",
		}}}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return parsed{messages: []frontend.Message{{
			Text:     fmt.Sprintf("cannot parse %s: %v", in.URI, err),
			Severity: frontend.SeverityError,
			Path:     in.Path,
			Code:     "parse",
		}}}
	}
	root := tree.RootNode()

	lines := newLineTable(src)
	if root.HasError() {
		return parsed{messages: syntaxErrors(root, src, lines, in.Path)}
	}

	h := xxh3.New()
	_, _ = h.Write(src)

	conv := newConverter(src, lines)
	unit := conv.unit(root, in)
	unit.Hash = h.Sum64()
	return parsed{unit: unit}
}

// syntaxErrors reports ERROR and MISSING nodes, outermost first.
func syntaxErrors(root *sitter.Node, src []byte, lines *lineTable, path string) []frontend.Message {
	var msgs []frontend.Message
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if len(msgs) >= maxSyntaxErrors {
			return
		}
		switch {
		case n.IsMissing():
			r := lines.span(n)
			msgs = append(msgs, frontend.Message{
				Text:     fmt.Sprintf("missing %s", n.Type()),
				Severity: frontend.SeverityError,
				Range:    &r,
				Path:     path,
				Code:     "syntax",
			})
			return
		case n.Type() == "ERROR":
			r := lines.span(n)
			msgs = append(msgs, frontend.Message{
				Text:     fmt.Sprintf("unexpected %s", snippet(n.Content(src))),
				Severity: frontend.SeverityError,
				Range:    &r,
				Path:     path,
				Code:     "syntax",
			})
			return
		case !n.HasError():
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)

	if len(msgs) == 0 {
		msgs = append(msgs, frontend.Message{Text: "syntax error", Severity: frontend.SeverityError, Path: path, Code: "syntax"})
	}
	return msgs
}

func snippet(s string) string {
	const limit = 24
	if len(s) > limit {
		return fmt.Sprintf("%q...", s[:limit])
	}
	return fmt.Sprintf("%q", s)
}

// duplicateTypes reports every declaration of a qualified type name after
// the first, in URI order.
func duplicateTypes(forest *frontend.Forest) []frontend.Message {
	units := make([]*frontend.Unit, len(forest.Units))
	copy(units, forest.Units)
	sort.SliceStable(units, func(i, j int) bool { return units[i].URI < units[j].URI })

	first := make(map[string]string)
	var msgs []frontend.Message
	for _, u := range units {
		for _, t := range u.Types {
			if t.Script {
				continue
			}
			qname := u.QualifiedName(t)
			if prev, ok := first[qname]; ok {
				r := t.NameRange
				msgs = append(msgs, frontend.Message{
					Text:     fmt.Sprintf("duplicate type %s, already declared in %s", qname, prev),
					Severity: frontend.SeverityError,
					Range:    &r,
					Path:     u.Path,
					Code:     "duplicate-type",
				})
				continue
			}
			first[qname] = u.URI
		}
	}
	return msgs
}
