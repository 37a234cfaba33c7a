package index

import (
	"encoding/json"
	"fmt"
	"strings"

	"langidx/internal/ranges"
)

// Kind classifies a Symbol.
type Kind int

const (
	KindClass Kind = iota + 1
	KindInterface
	KindEnum
	KindField
	KindMethod
	KindVariable
)

var kindNames = map[Kind]string{
	KindClass:     "class",
	KindInterface: "interface",
	KindEnum:      "enum",
	KindField:     "field",
	KindMethod:    "method",
	KindVariable:  "variable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsType reports whether k is a class, interface or enum.
func (k Kind) IsType() bool {
	return k == KindClass || k == KindInterface || k == KindEnum
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown symbol kind %q", s)
}

// MarshalJSON encodes the kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalYAML encodes the kind by name.
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// Symbol is a named, positioned declaration.
type Symbol struct {
	Name          string          `json:"name" yaml:"name"`
	Kind          Kind            `json:"kind" yaml:"kind"`
	ContainerName string          `json:"containerName,omitempty" yaml:"containerName,omitempty"`
	// QualifiedName is set for types only.
	QualifiedName string          `json:"qualifiedName,omitempty" yaml:"qualifiedName,omitempty"`
	Location      ranges.Location `json:"location" yaml:"location"`
}

// Key is the name reference entries are filed under: the qualified name
// for types, the plain name otherwise.
func (s Symbol) Key() string {
	if s.QualifiedName != "" {
		return s.QualifiedName
	}
	return s.Name
}

// Synthetic reports whether the symbol has no textual location.
func (s Symbol) Synthetic() bool {
	return s.Location.Range.IsUndefined()
}

// UsageLink connects a usage site to the declaration it resolves to.
type UsageLink struct {
	Usage ranges.Location `json:"usage" yaml:"usage"`
	Decl  Symbol          `json:"decl" yaml:"decl"`
}

func symbolLess(a, b Symbol) bool {
	if a.Location.URI != b.Location.URI {
		return a.Location.URI < b.Location.URI
	}
	if a.Location.Range != b.Location.Range {
		return ranges.Less(a.Location.Range, b.Location.Range)
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.ContainerName < b.ContainerName
}

func usageLess(a, b UsageLink) bool {
	if a.Usage.URI != b.Usage.URI {
		return a.Usage.URI < b.Usage.URI
	}
	if a.Usage.Range != b.Usage.Range {
		return ranges.Less(a.Usage.Range, b.Usage.Range)
	}
	return symbolLess(a.Decl, b.Decl)
}
