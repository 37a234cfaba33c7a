package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatYAML  OutputFormat = "yaml"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *IndexResponseCLI:
		return formatIndexHuman(v)
	case *SymbolsResponseCLI:
		return formatSymbolsHuman(v)
	case *SearchResponseCLI:
		return formatSearchHuman(v)
	case *ReferencesResponseCLI:
		return formatRefsHuman(v)
	case *DefinitionResponseCLI:
		return formatDefinitionHuman(v)
	case *CompletionResponseCLI:
		return formatCompletionHuman(v)
	case *ExportResponseCLI:
		return formatExportHuman(v)
	case *StatusResponseCLI:
		return formatStatusHuman(v)
	case *VersionResponseCLI:
		return fmt.Sprintf("langidx %s\ncommit: %s\nbuilt:  %s", v.Version, v.Commit, v.BuildDate), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func (l *LocationCLI) String() string {
	if l == nil {
		return "<synthetic>"
	}
	return fmt.Sprintf("%s:%d:%d", l.Path, l.StartLine, l.StartColumn)
}

func symbolLine(sym SymbolCLI) string {
	name := sym.Name
	if sym.ContainerName != "" {
		name = sym.ContainerName + "." + sym.Name
	}
	return fmt.Sprintf("%s (%s)  %s", name, sym.Kind, sym.Location.String())
}

func formatIndexHuman(resp *IndexResponseCLI) (string, error) {
	var b strings.Builder

	status := "✓ Compiled"
	if !resp.Succeeded {
		status = "✗ Compile failed"
	}
	b.WriteString(fmt.Sprintf("%s in %dms (run %s)\n", status, resp.DurationMs, resp.RunID))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Files:   %d\n", resp.Files))
	if resp.Succeeded {
		b.WriteString(fmt.Sprintf("Symbols: %d\n", resp.Symbols))
		b.WriteString(fmt.Sprintf("Fingerprint: %s\n", resp.Fingerprint))
		b.WriteString(fmt.Sprintf("Stored: %v\n", resp.Stored))
	}

	if len(resp.Diagnostics) > 0 {
		b.WriteString(fmt.Sprintf("\nDiagnostics (%d):\n", len(resp.Diagnostics)))
		for _, d := range resp.Diagnostics {
			where := d.Path
			if d.Line > 0 {
				where = fmt.Sprintf("%s:%d:%d", d.Path, d.Line, d.Column)
			}
			b.WriteString(fmt.Sprintf("  %s: %s: %s\n", where, d.Severity, d.Message))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatSymbolsHuman(resp *SymbolsResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Symbols in %s\n", resp.File))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	if len(resp.Symbols) == 0 {
		b.WriteString("No symbols found")
		return b.String(), nil
	}
	for _, sym := range resp.Symbols {
		b.WriteString("  " + symbolLine(sym) + "\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// formatSearchHuman formats a SearchResponseCLI in human-readable format
func formatSearchHuman(resp *SearchResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Search Results for: %s\n", resp.Query))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Found %d matches\n\n", resp.TotalMatches))

	for i, sym := range resp.Symbols {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, symbolLine(sym)))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// formatRefsHuman formats a ReferencesResponseCLI in human-readable format
func formatRefsHuman(resp *ReferencesResponseCLI) (string, error) {
	var b strings.Builder

	if resp.Declaration == nil {
		b.WriteString(fmt.Sprintf("No symbol at %s", resp.Position.String()))
		return b.String(), nil
	}
	b.WriteString(fmt.Sprintf("References to: %s\n", symbolLine(*resp.Declaration)))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(fmt.Sprintf("Referencing symbols (%d):\n", len(resp.References)))
	for i, ref := range resp.References {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, symbolLine(ref)))
	}

	b.WriteString(fmt.Sprintf("\nUsages (%d):\n", len(resp.Usages)))
	for i := range resp.Usages {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, resp.Usages[i].String()))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatDefinitionHuman(resp *DefinitionResponseCLI) (string, error) {
	if !resp.Found {
		return fmt.Sprintf("No definition found at %s", resp.Position.String()), nil
	}
	return fmt.Sprintf("Definition: %s", resp.Definition.String()), nil
}

func formatCompletionHuman(resp *CompletionResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Completions for %s (%d)\n", resp.File, len(resp.Items)))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	for _, item := range resp.Items {
		line := fmt.Sprintf("  %-24s %s", item.Label, item.Kind)
		if item.Detail != "" {
			line += "  in " + item.Detail
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatExportHuman(resp *ExportResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Wrote %s (%d bytes", resp.Path, resp.Stats.Bytes))
	if resp.Stats.Compressed {
		b.WriteString(", zstd")
	}
	b.WriteString(")\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Documents: %d | Symbols: %d | Occurrences: %d\n",
		resp.Stats.Documents, resp.Stats.Symbols, resp.Stats.Occurrences))
	if resp.Stats.Skipped > 0 {
		b.WriteString(fmt.Sprintf("Skipped %d document(s) outside the workspace\n", resp.Stats.Skipped))
	}
	if resp.Outline != "" {
		b.WriteString("\n" + resp.Outline)
	} else if len(resp.Directories) > 0 {
		b.WriteString("\nDirectories:\n")
		for _, d := range resp.Directories {
			b.WriteString(fmt.Sprintf("  %s/  %d files, %d symbols\n", d.Path, d.FileCount, d.SymbolCount))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// formatStatusHuman formats a StatusResponseCLI in human-readable format
func formatStatusHuman(resp *StatusResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("langidx Status - v%s\n", resp.Version))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Root:    %s\n", resp.Root))
	b.WriteString(fmt.Sprintf("Scratch: %s\n", resp.ScratchDir))

	frontend := "✓ Java front end available"
	if !resp.FrontendAvailable {
		frontend = "✗ Java front end unavailable (built without CGO)"
	}
	b.WriteString(frontend + "\n\n")

	if resp.Index == nil {
		b.WriteString("Index: none (run 'langidx index')\n")
	} else {
		b.WriteString("Index:\n")
		b.WriteString(fmt.Sprintf("  Run:         %s\n", resp.Index.RunID))
		b.WriteString(fmt.Sprintf("  Created:     %s\n", resp.Index.CreatedAt.Format("2006-01-02 15:04:05")))
		b.WriteString(fmt.Sprintf("  Fingerprint: %s\n", resp.Index.Fingerprint))
		b.WriteString(fmt.Sprintf("  Files:       %d\n", resp.Index.FileCount))
		b.WriteString(fmt.Sprintf("  Symbols:     %d\n", resp.Index.SymbolCount))
		b.WriteString(fmt.Sprintf("  Duration:    %s\n", resp.Index.Duration))
	}

	if resp.Stored != nil {
		b.WriteString(fmt.Sprintf("  Stored run:  %s (%d symbols)\n", resp.Stored.RunID, resp.Stored.SymbolCount))
	}

	fresh := "✓ Fresh"
	if !resp.Freshness.Fresh {
		fresh = "✗ Stale: " + resp.Freshness.Reason
	}
	b.WriteString("\n" + fresh)
	return b.String(), nil
}
