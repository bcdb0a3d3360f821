package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// updateGolden controls whether golden files should be updated.
// Use: go test ./... -run TestGolden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// NormalizeRoot replaces every occurrence of root (in native and slash
// form) with $ROOT so output captured under a temp dir is stable.
func NormalizeRoot(data []byte, root string) []byte {
	if root == "" {
		return data
	}
	out := bytes.ReplaceAll(data, []byte(root), []byte("$ROOT"))
	if slash := filepath.ToSlash(root); slash != root {
		out = bytes.ReplaceAll(out, []byte(slash), []byte("$ROOT"))
	}
	return out
}

// CompareGolden compares got against the golden file at goldenPath, failing
// with a diff on mismatch. With -update the golden file is rewritten instead.
func CompareGolden(t *testing.T, goldenPath string, got []byte) {
	t.Helper()

	if *updateGolden {
		UpdateGolden(t, goldenPath, got)
		t.Logf("Updated golden: %s", goldenPath)
		return
	}

	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\n\nRun with -update to create:\n  go test ./... -run %s -update",
				goldenPath, string(got), t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}

	if !bytes.Equal(got, expected) {
		diff := unifiedDiff(string(expected), string(got), goldenPath)
		t.Fatalf("Golden mismatch for %s:\n%s\n\nRun with -update to refresh:\n  go test ./... -run %s -update",
			goldenPath, diff, t.Name())
	}
}

// UpdateGolden writes data to the golden file.
// Creates parent directories if they don't exist.
func UpdateGolden(t *testing.T, goldenPath string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
		t.Fatalf("Failed to create golden directory: %v", err)
	}

	if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
		t.Fatalf("Failed to write golden file: %v", err)
	}
}

// unifiedDiff produces a simple line-by-line diff between two strings.
func unifiedDiff(expected, got, path string) string {
	var buf bytes.Buffer

	expectedLines := strings.Split(expected, "\n")
	gotLines := strings.Split(got, "\n")

	fmt.Fprintf(&buf, "--- %s (expected)\n", path)
	fmt.Fprintf(&buf, "+++ %s (got)\n", path)

	maxLines := max(len(expectedLines), len(gotLines))

	inHunk := false
	hunkStart := 0
	var hunkLines []string

	flushHunk := func() {
		if len(hunkLines) > 0 {
			fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n", hunkStart+1, len(hunkLines), hunkStart+1, len(hunkLines))
			for _, line := range hunkLines {
				buf.WriteString(line)
				buf.WriteString("\n")
			}
			hunkLines = nil
		}
	}

	for i := 0; i < maxLines; i++ {
		var expLine, gotLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(gotLines) {
			gotLine = gotLines[i]
		}

		if expLine == gotLine {
			if inHunk {
				hunkLines = append(hunkLines, " "+expLine)
				if len(hunkLines) > 6 {
					flushHunk()
					inHunk = false
				}
			}
			continue
		}

		if !inHunk {
			inHunk = true
			hunkStart = i
			for j := max(0, i-3); j < i; j++ {
				if j < len(expectedLines) {
					hunkLines = append(hunkLines, " "+expectedLines[j])
				}
			}
		}

		if i < len(expectedLines) {
			hunkLines = append(hunkLines, "-"+expLine)
		}
		if i < len(gotLines) {
			hunkLines = append(hunkLines, "+"+gotLine)
		}
	}

	flushHunk()

	return buf.String()
}
