package export

import (
	"fmt"
	"path"
	"sort"
	"strings"

	scip "github.com/sourcegraph/scip/bindings/go/scip"
)

// DirectorySummary is a per-directory overview of an exported index.
type DirectorySummary struct {
	Path        string   `json:"path" yaml:"path"`
	FileCount   int      `json:"fileCount" yaml:"fileCount"`
	SymbolCount int      `json:"symbolCount" yaml:"symbolCount"`
	TopTypes    []string `json:"topTypes,omitempty" yaml:"topTypes,omitempty"`
}

// Summarize groups the documents of idx by directory, largest first. Each
// directory lists up to three of its most referenced types.
func Summarize(idx *scip.Index) []DirectorySummary {
	refCount := make(map[string]int)
	for _, doc := range idx.GetDocuments() {
		for _, occ := range doc.GetOccurrences() {
			if occ.GetSymbolRoles()&int32(scip.SymbolRole_Definition) == 0 {
				refCount[occ.GetSymbol()]++
			}
		}
	}

	byDir := make(map[string]*DirectorySummary)
	types := make(map[string][]*scip.SymbolInformation)
	for _, doc := range idx.GetDocuments() {
		dir := path.Dir(doc.GetRelativePath())
		s, ok := byDir[dir]
		if !ok {
			s = &DirectorySummary{Path: dir}
			byDir[dir] = s
		}
		s.FileCount++
		s.SymbolCount += len(doc.GetSymbols())
		for _, info := range doc.GetSymbols() {
			if isTypeKind(info.GetKind()) {
				types[dir] = append(types[dir], info)
			}
		}
	}

	out := make([]DirectorySummary, 0, len(byDir))
	for dir, s := range byDir {
		candidates := types[dir]
		sort.SliceStable(candidates, func(i, j int) bool {
			ci, cj := refCount[candidates[i].GetSymbol()], refCount[candidates[j].GetSymbol()]
			if ci != cj {
				return ci > cj
			}
			return candidates[i].GetDisplayName() < candidates[j].GetDisplayName()
		})
		for i := 0; i < min(3, len(candidates)); i++ {
			s.TopTypes = append(s.TopTypes, candidates[i].GetDisplayName())
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SymbolCount != out[j].SymbolCount {
			return out[i].SymbolCount > out[j].SymbolCount
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// FormatText renders idx as an indented outline: one line per document,
// then its types and members.
func FormatText(idx *scip.Index) string {
	var sb strings.Builder

	docs := idx.GetDocuments()
	symbols := 0
	for _, doc := range docs {
		symbols += len(doc.GetSymbols())
	}
	sb.WriteString(fmt.Sprintf("# Project: %s\n", idx.GetMetadata().GetProjectRoot()))
	sb.WriteString(fmt.Sprintf("# Documents: %d | Symbols: %d\n\n", len(docs), symbols))

	for _, dir := range Summarize(idx) {
		line := fmt.Sprintf("## %s/  (%d files, %d symbols)", dir.Path, dir.FileCount, dir.SymbolCount)
		if len(dir.TopTypes) > 0 {
			line += "  top: " + strings.Join(dir.TopTypes, ", ")
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")

	for _, doc := range docs {
		sb.WriteString(fmt.Sprintf("  ! %s\n", doc.GetRelativePath()))
		for _, info := range doc.GetSymbols() {
			if l := formatSymbolLine(info); l != "" {
				sb.WriteString(l + "\n")
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n")
	sb.WriteString("Legend:\n")
	sb.WriteString("  !  = file\n")
	sb.WriteString("  $  = class/interface/enum\n")
	sb.WriteString("  #  = method\n")
	sb.WriteString("  .  = field\n")
	return sb.String()
}

func formatSymbolLine(info *scip.SymbolInformation) string {
	switch {
	case isTypeKind(info.GetKind()):
		return "    $ " + info.GetDisplayName()
	case info.GetKind() == scip.SymbolInformation_Method:
		return "      # " + info.GetDisplayName() + "()"
	case info.GetKind() == scip.SymbolInformation_Field:
		return "      . " + info.GetDisplayName()
	default:
		return ""
	}
}

func isTypeKind(k scip.SymbolInformation_Kind) bool {
	return k == scip.SymbolInformation_Class || k == scip.SymbolInformation_Interface || k == scip.SymbolInformation_Enum
}
