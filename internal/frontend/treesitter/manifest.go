package treesitter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"langidx/internal/frontend"
)

// ManifestFile is written to the target directory after every compile.
const ManifestFile = "manifest.json"

// Manifest records what a compile produced.
type Manifest struct {
	CreatedAt time.Time       `json:"createdAt"`
	Messages  int             `json:"messages"`
	Units     []ManifestEntry `json:"units"`
}

// ManifestEntry describes one compiled unit.
type ManifestEntry struct {
	URI     string `json:"uri"`
	Path    string `json:"path"`
	Package string `json:"package,omitempty"`
	Hash    string `json:"hash"`
	Types   int    `json:"types"`
}

func writeManifest(targetDir string, forest *frontend.Forest, messages int) error {
	m := Manifest{CreatedAt: time.Now().UTC(), Messages: messages}
	for _, u := range forest.Units {
		m.Units = append(m.Units, ManifestEntry{
			URI:     u.URI,
			Path:    u.Path,
			Package: u.Package,
			Hash:    fmt.Sprintf("%016x", u.Hash),
			Types:   len(u.Types),
		})
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", targetDir, err)
	}
	if err := os.WriteFile(filepath.Join(targetDir, ManifestFile), data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest left in targetDir by the last compile.
func ReadManifest(targetDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(targetDir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &m, nil
}
