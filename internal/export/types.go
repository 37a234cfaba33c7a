// Package export writes the committed snapshot as a SCIP index so other
// code-intelligence tools can consume it.
package export

// Options configures an export.
type Options struct {
	// ProjectRoot is the workspace root; document paths are relative to it.
	ProjectRoot string
	// Compress wraps the protobuf payload in a zstd frame.
	Compress bool
	// Arguments are recorded in the index tool info.
	Arguments []string
}

// Stats summarizes what an export contained.
type Stats struct {
	Documents   int  `json:"documents" yaml:"documents"`
	Symbols     int  `json:"symbols" yaml:"symbols"`
	Occurrences int  `json:"occurrences" yaml:"occurrences"`
	Skipped     int  `json:"skipped" yaml:"skipped"`
	Bytes       int  `json:"bytes" yaml:"bytes"`
	Compressed  bool `json:"compressed" yaml:"compressed"`
}

// SCIP symbol package triple used for every workspace symbol.
const (
	symbolScheme  = "langidx"
	symbolManager = "."
	symbolPackage = "."
	symbolVersion = "."
)

// Document language recorded in the index.
const documentLanguage = "java"
