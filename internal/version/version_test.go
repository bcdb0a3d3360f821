package version

import (
	"runtime"
	"strings"
	"testing"
)

func stamp(t *testing.T, version, commit, built string) {
	t.Helper()
	origVersion, origCommit, origBuilt := Version, Commit, BuildDate
	t.Cleanup(func() {
		Version, Commit, BuildDate = origVersion, origCommit, origBuilt
	})
	Version, Commit, BuildDate = version, commit, built
}

func TestInfo(t *testing.T) {
	tests := []struct {
		name   string
		commit string
		want   string
	}{
		{"unknown commit", "unknown", "1.0.0"},
		{"short commit", "abc", "1.0.0"},
		{"exactly seven", "1234567", "1.0.0"},
		{"eight chars", "12345678", "1.0.0 (1234567)"},
		{"full hash", "abc1234567890", "1.0.0 (abc1234)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stamp(t, "1.0.0", tt.commit, "unknown")
			if got := Info(); got != tt.want {
				t.Errorf("Info() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFull(t *testing.T) {
	stamp(t, "1.2.3", "abcdef123456", "2026-01-15")

	got := Full()

	for _, part := range []string{
		"jarscan version 1.2.3 (abcdef1)\n",
		"Commit: abcdef123456\n",
		"Built: 2026-01-15\n",
		"Go: " + runtime.Version(),
	} {
		if !strings.Contains(got, part) {
			t.Errorf("Full() = %q, want to contain %q", got, part)
		}
	}
	if !strings.HasSuffix(got, "\n") {
		t.Errorf("Full() should end with a newline: %q", got)
	}
}

func TestDefaultVersionIsSemver(t *testing.T) {
	if parts := strings.Split(Version, "."); len(parts) != 3 {
		t.Errorf("Version %q doesn't appear to be semver", Version)
	}
}
