package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{"unknown commit", "1.2.3", "unknown", "1.2.3"},
		{"short commit", "1.2.3", "abc", "1.2.3"},
		{"long commit", "1.2.3", "0123456789abcdef", "1.2.3 (0123456)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, Commit = tt.version, tt.commit
			if got := Info(); got != tt.want {
				t.Errorf("Info() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFull(t *testing.T) {
	full := Full()
	for _, want := range []string{Version, Commit, BuildDate} {
		if !strings.Contains(full, want) {
			t.Errorf("Full() = %q, missing %q", full, want)
		}
	}
	if Details()["version"] != Version {
		t.Errorf("Details()[version] = %q, want %q", Details()["version"], Version)
	}
}
