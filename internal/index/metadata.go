// Package index builds and describes symbol snapshots: the symbol table,
// the type reference graph and the usage-link graph of one compile.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

const (
	// MetadataVersion is the current version of the metadata format.
	MetadataVersion = 1

	metadataFile = "index-meta.json"

	// staleAfter is how old an index may get before status flags it even
	// when its inputs look unchanged.
	staleAfter = 24 * time.Hour
)

// IndexMeta records the last successful compile of a workspace.
type IndexMeta struct {
	Version      int       `json:"version" yaml:"version"`
	RunID        string    `json:"runId" yaml:"runId"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
	Fingerprint  string    `json:"fingerprint" yaml:"fingerprint"`
	InputsDigest string    `json:"inputsDigest" yaml:"inputsDigest"`
	FileCount    int       `json:"fileCount" yaml:"fileCount"`
	SymbolCount  int       `json:"symbolCount" yaml:"symbolCount"`
	Duration     string    `json:"duration" yaml:"duration"`
	Frontend     string    `json:"frontend" yaml:"frontend"`
}

// FreshnessResult describes index freshness status.
type FreshnessResult struct {
	Fresh        bool   `json:"fresh" yaml:"fresh"`
	Reason       string `json:"reason,omitempty" yaml:"reason,omitempty"`
	IndexedFiles int    `json:"indexedFiles" yaml:"indexedFiles"`
	CurrentFiles int    `json:"currentFiles" yaml:"currentFiles"`
}

// LoadMeta loads index metadata from the scratch directory.
// Returns nil without error if no metadata file exists.
func LoadMeta(scratchDir string) (*IndexMeta, error) {
	data, err := os.ReadFile(filepath.Join(scratchDir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading index metadata: %w", err)
	}

	var meta IndexMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing index metadata: %w", err)
	}

	// Version mismatch - treat as no metadata
	if meta.Version != MetadataVersion {
		return nil, nil
	}
	return &meta, nil
}

// Save writes index metadata to the scratch directory.
func (m *IndexMeta) Save(scratchDir string) error {
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}

	m.Version = MetadataVersion
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index metadata: %w", err)
	}

	if err := os.WriteFile(filepath.Join(scratchDir, metadataFile), data, 0644); err != nil {
		return fmt.Errorf("writing index metadata: %w", err)
	}
	return nil
}

// DigestInputs hashes the path, size and modification time of every input.
// Unreadable paths contribute their name only, so a file that disappears
// still changes the digest.
func DigestInputs(paths []string) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	h := xxh3.New()
	for _, p := range sorted {
		_, _ = h.WriteString(p)
		_, _ = h.WriteString("\x00")
		if info, err := os.Stat(p); err == nil {
			_, _ = h.WriteString(strconv.FormatInt(info.Size(), 10))
			_, _ = h.WriteString(strconv.FormatInt(info.ModTime().UnixNano(), 10))
		}
		_, _ = h.WriteString("\n")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// CheckFreshness compares the recorded inputs against the current ones.
func (m *IndexMeta) CheckFreshness(currentDigest string, currentFiles int) FreshnessResult {
	if m == nil {
		return FreshnessResult{Fresh: false, Reason: "no index metadata found", CurrentFiles: currentFiles}
	}

	result := FreshnessResult{IndexedFiles: m.FileCount, CurrentFiles: currentFiles}
	switch {
	case m.FileCount != currentFiles:
		result.Reason = fmt.Sprintf("%d file(s) indexed, %d present", m.FileCount, currentFiles)
	case m.InputsDigest != currentDigest:
		result.Reason = "source files changed since last index"
	case time.Since(m.CreatedAt) > staleAfter:
		result.Reason = fmt.Sprintf("index is %s old", humanDuration(time.Since(m.CreatedAt)))
	default:
		result.Fresh = true
	}
	return result
}

// humanDuration formats a duration in human-readable form.
func humanDuration(d time.Duration) string {
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
