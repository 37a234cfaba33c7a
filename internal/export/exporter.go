package export

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	scip "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"langidx/internal/errors"
	"langidx/internal/index"
	"langidx/internal/paths"
	"langidx/internal/ranges"
	"langidx/internal/slogutil"
	"langidx/internal/version"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Exporter converts snapshots into SCIP indexes.
type Exporter struct {
	logger *slog.Logger
}

// NewExporter creates a new exporter
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Exporter{logger: logger.With(slogutil.ComponentKey, "export")}
}

// Export builds a SCIP index from snap. Documents outside opts.ProjectRoot
// are skipped and counted in Stats.Skipped.
func (e *Exporter) Export(snap *index.Snapshot, opts Options) (*scip.Index, *Stats, error) {
	root, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return nil, nil, errors.New(errors.InvalidArgument, "invalid project root", err, nil)
	}

	idx := &scip.Index{
		Metadata: &scip.Metadata{
			Version: scip.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo: &scip.ToolInfo{
				Name:      "langidx",
				Version:   version.Version,
				Arguments: opts.Arguments,
			},
			ProjectRoot:          paths.PathToURI(root),
			TextDocumentEncoding: scip.TextEncoding_UTF8,
		},
	}
	stats := &Stats{}

	docs := make(map[string]*scip.Document)
	n := newNamer()
	for _, uri := range snap.URIs() {
		rel, ok := relativePath(root, uri)
		if !ok {
			stats.Skipped++
			continue
		}
		syms := snap.FileSymbols(uri)
		n.nameFile(rel, syms)

		doc := &scip.Document{
			Language:         documentLanguage,
			RelativePath:     rel,
			PositionEncoding: scip.PositionEncoding_UTF16CodeUnitOffsetFromLineStart,
		}
		for _, sym := range syms {
			name, _ := n.lookup(sym)
			doc.Symbols = append(doc.Symbols, symbolInformation(sym, name, n))
			if !sym.Synthetic() {
				doc.Occurrences = append(doc.Occurrences, &scip.Occurrence{
					Range:       scipRange(sym.Location.Range),
					Symbol:      name,
					SymbolRoles: int32(scip.SymbolRole_Definition),
				})
			}
		}
		docs[uri] = doc
	}

	e.addRelationships(snap, n, docs)

	for _, link := range snap.AllUsages() {
		doc, ok := docs[link.Usage.URI]
		if !ok {
			continue
		}
		name, ok := n.lookup(link.Decl)
		if !ok {
			e.logger.Debug("usage target has no export symbol", "name", link.Decl.Name, "uri", link.Usage.URI)
			continue
		}
		doc.Occurrences = append(doc.Occurrences, &scip.Occurrence{
			Range:  scipRange(link.Usage.Range),
			Symbol: name,
		})
	}

	uris := make([]string, 0, len(docs))
	for uri := range docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		doc := docs[uri]
		stats.Symbols += len(doc.Symbols)
		stats.Occurrences += len(doc.Occurrences)
		idx.Documents = append(idx.Documents, doc)
	}
	stats.Documents = len(idx.Documents)

	e.logger.Debug("built SCIP index", "documents", stats.Documents, "symbols", stats.Symbols, "occurrences", stats.Occurrences)
	return idx, stats, nil
}

// addRelationships records each reference entry whose key names a
// workspace type as an is-reference relationship on the referencing symbol.
func (e *Exporter) addRelationships(snap *index.Snapshot, n *namer, docs map[string]*scip.Document) {
	typeNames := make(map[string]string)
	for _, sym := range snap.Symbols() {
		if !sym.Kind.IsType() {
			continue
		}
		if name, ok := n.lookup(sym); ok {
			if _, dup := typeNames[sym.Key()]; !dup {
				typeNames[sym.Key()] = name
			}
		}
	}

	infos := make(map[string]*scip.SymbolInformation)
	for _, doc := range docs {
		for _, info := range doc.Symbols {
			infos[info.Symbol] = info
		}
	}

	for _, key := range snap.ReferenceKeys() {
		target, ok := typeNames[key]
		if !ok {
			continue
		}
		for _, sym := range snap.References(key) {
			name, ok := n.lookup(sym)
			if !ok || name == target {
				continue
			}
			info, ok := infos[name]
			if !ok {
				continue
			}
			info.Relationships = append(info.Relationships, &scip.Relationship{
				Symbol:      target,
				IsReference: true,
			})
		}
	}
}

func symbolInformation(sym index.Symbol, name string, n *namer) *scip.SymbolInformation {
	info := &scip.SymbolInformation{
		Symbol:      name,
		Kind:        scipKind(sym.Kind),
		DisplayName: sym.Name,
	}
	if sym.Kind != index.KindVariable {
		if i := lastDescriptor(name); i > 0 {
			info.EnclosingSymbol = enclosingSymbol(name[:i], n)
		}
	}
	return info
}

// lastDescriptor returns the offset where the final descriptor of a global
// symbol begins.
func lastDescriptor(name string) int {
	depth := 0
	for i := len(name) - 2; i >= 0; i-- {
		switch name[i] {
		case '`':
			depth ^= 1
		case '#', '/':
			if depth == 0 {
				return i + 1
			}
		case ' ':
			if depth == 0 {
				return -1
			}
		}
	}
	return -1
}

// enclosingSymbol returns prefix when it names a type symbol.
func enclosingSymbol(prefix string, n *namer) string {
	if n.types[prefix] {
		return prefix
	}
	return ""
}

func scipKind(k index.Kind) scip.SymbolInformation_Kind {
	switch k {
	case index.KindClass:
		return scip.SymbolInformation_Class
	case index.KindInterface:
		return scip.SymbolInformation_Interface
	case index.KindEnum:
		return scip.SymbolInformation_Enum
	case index.KindField:
		return scip.SymbolInformation_Field
	case index.KindMethod:
		return scip.SymbolInformation_Method
	case index.KindVariable:
		return scip.SymbolInformation_Variable
	default:
		return scip.SymbolInformation_UnspecifiedKind
	}
}

// scipRange encodes r as [line, start, end] when single-line, otherwise
// [startLine, startCol, endLine, endCol].
func scipRange(r ranges.Range) []int32 {
	if r.Start.Line == r.End.Line {
		return []int32{int32(r.Start.Line), int32(r.Start.Column), int32(r.End.Column)}
	}
	return []int32{int32(r.Start.Line), int32(r.Start.Column), int32(r.End.Line), int32(r.End.Column)}
}

func relativePath(root, uri string) (string, bool) {
	p, err := paths.URIToPath(uri)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Write encodes idx to w, optionally zstd-compressed, and returns the number
// of bytes written.
func Write(w io.Writer, idx *scip.Index, compress bool) (int, error) {
	data, err := proto.Marshal(idx)
	if err != nil {
		return 0, fmt.Errorf("failed to encode SCIP index: %w", err)
	}
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return 0, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		_ = enc.Close()
	}
	return w.Write(data)
}

// WriteFile writes idx to path through a temporary file so readers never
// see a partial index.
func WriteFile(path string, idx *scip.Index, compress bool) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, errors.New(errors.ResourceFailure, "failed to create export directory", err, nil)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, errors.New(errors.ResourceFailure, "failed to create export file", err, nil)
	}
	n, err := Write(f, idx, compress)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, errors.New(errors.ResourceFailure, "failed to move export into place", err, nil)
	}
	return n, nil
}

// ReadFile loads a SCIP index written by WriteFile, compressed or not.
func ReadFile(path string) (*scip.Index, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.IndexMissing, fmt.Sprintf("SCIP index not found at %s", path), err,
			errors.GetSuggestedFixes(errors.IndexMissing))
	}
	if err != nil {
		return nil, errors.New(errors.ResourceFailure, fmt.Sprintf("failed to read SCIP index from %s", path), err, nil)
	}

	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		if data, err = dec.DecodeAll(data, nil); err != nil {
			return nil, errors.New(errors.InternalError, fmt.Sprintf("failed to decompress SCIP index from %s", path), err, nil)
		}
	}

	var idx scip.Index
	if err := proto.Unmarshal(data, &idx); err != nil {
		return nil, errors.New(errors.InternalError, fmt.Sprintf("failed to parse SCIP index from %s", path), err, nil)
	}
	return &idx, nil
}
