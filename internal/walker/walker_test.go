package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarscan/internal/paths"
	"jarscan/internal/testutil"
)

// sortedFS lists directories in name order and can fail chosen listings.
type sortedFS struct {
	paths.FS
	failListing map[string]bool
}

func (s *sortedFS) ReadDir(dir string) ([]os.FileInfo, error) {
	if s.failListing[dir] {
		return nil, fmt.Errorf("readdir %s: %w", dir, os.ErrPermission)
	}
	list, err := s.FS.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list, nil
}

func newFS(t *testing.T, files ...string) *sortedFS {
	t.Helper()
	fs := testutil.NewMemFS()
	for _, f := range files {
		testutil.WriteFile(t, fs, f, []byte("x"))
	}
	return &sortedFS{FS: fs, failListing: map[string]bool{}}
}

func collect(w *Walker, root string) []string {
	return slices.Collect(w.Walk(root))
}

func p(s string) string { return filepath.FromSlash(s) }

func TestWalk_SingleFileRoot(t *testing.T) {
	fs := newFS(t, "/x.jar")

	got := collect(New(fs, Options{}), "/x.jar")
	assert.Equal(t, []string{"/x.jar"}, got)
}

func TestWalk_DepthFirstListingOrder(t *testing.T) {
	fs := newFS(t,
		"/r/a/x.jar",
		"/r/a/deeper/z.jar",
		"/r/b.jar",
		"/r/c/y.txt",
	)

	got := collect(New(fs, Options{}), "/r")
	assert.Equal(t, []string{
		p("/r/a/deeper/z.jar"),
		p("/r/a/x.jar"),
		p("/r/b.jar"),
		p("/r/c/y.txt"),
	}, got)
}

func TestWalk_MissingRoot(t *testing.T) {
	fs := newFS(t)

	got := collect(New(fs, Options{}), "/does/not/exist")
	assert.Empty(t, got)
}

func TestWalk_EmptyDirectory(t *testing.T) {
	fs := newFS(t, "/r/full/a.jar")
	require.NoError(t, fs.MkdirAll("/r/empty", 0o755))
	require.NoError(t, fs.MkdirAll("/solo", 0o755))

	assert.Empty(t, collect(New(fs, Options{}), "/solo"))
	assert.Equal(t, []string{p("/r/full/a.jar")}, collect(New(fs, Options{}), "/r"))
}

func TestWalk_UnreadableSubtreeSkipped(t *testing.T) {
	fs := newFS(t,
		"/r/a/one.jar",
		"/r/locked/secret.jar",
		"/r/locked/inner/deep.jar",
		"/r/z/two.jar",
	)
	fs.failListing[p("/r/locked")] = true

	var stats Stats
	got := slices.Collect(New(fs, Options{}).WalkWithStats("/r", &stats))

	assert.Equal(t, []string{p("/r/a/one.jar"), p("/r/z/two.jar")}, got)
	assert.Equal(t, 1, stats.ListingFailed)
	assert.Equal(t, 2, stats.Files)
}

func TestWalk_UnreadableRoot(t *testing.T) {
	fs := newFS(t, "/r/a.jar")
	fs.failListing["/r"] = true

	assert.Empty(t, collect(New(fs, Options{}), "/r"))
}

func TestWalk_SymlinkCycle(t *testing.T) {
	fs := newFS(t, "/r/a/lib.jar", "/r/b.jar")
	require.NoError(t, fs.Symlink("/r", "/r/a/loop"))
	require.NoError(t, fs.Symlink("../a", "/r/a/self"))

	var stats Stats
	got := slices.Collect(New(fs, Options{}).WalkWithStats("/r", &stats))

	assert.ElementsMatch(t, []string{p("/r/a/lib.jar"), p("/r/b.jar")}, got)
	assert.Equal(t, 2, stats.CyclesSkipped)
}

func TestWalk_LinkAndPlainPathToSameDir(t *testing.T) {
	fs := newFS(t, "/r/real/lib.jar")
	require.NoError(t, fs.Symlink("/r/real", "/r/alias"))

	var stats Stats
	got := slices.Collect(New(fs, Options{}).WalkWithStats("/r", &stats))

	assert.Equal(t, []string{p("/r/alias/lib.jar")}, got)
	assert.Equal(t, 1, stats.CyclesSkipped)
}

// lstatCounter counts the link lookups canonicalization performs.
type lstatCounter struct {
	*sortedFS
	lstats int
}

func (c *lstatCounter) Lstat(name string) (os.FileInfo, error) {
	c.lstats++
	return c.sortedFS.Lstat(name)
}

func TestWalk_ResolvesOnlyRootAndLinks(t *testing.T) {
	fs := &lstatCounter{sortedFS: newFS(t, "/r/a/b/c/d/e/deep.jar", "/r/a/b/c/d/e/f/deeper.jar", "/store/x/y.jar")}
	require.NoError(t, fs.Symlink("/store/x", "/r/a/b/c/d/e/link"))

	var stats Stats
	got := slices.Collect(New(fs, Options{}).WalkWithStats("/r", &stats))

	assert.Equal(t, []string{
		p("/r/a/b/c/d/e/deep.jar"),
		p("/r/a/b/c/d/e/f/deeper.jar"),
		p("/r/a/b/c/d/e/link/y.jar"),
	}, got)
	assert.Equal(t, 8, stats.Dirs)
	// One lookup for "/r", then one per component of the link path plus the
	// two components of its target.
	assert.Equal(t, 1+7+2, fs.lstats)
}

func TestWalk_SymlinkedFileAndDanglingLink(t *testing.T) {
	fs := newFS(t, "/store/real.jar", "/r/plain.jar")
	require.NoError(t, fs.Symlink("/store/real.jar", "/r/linked.jar"))
	require.NoError(t, fs.Symlink("/store/gone.jar", "/r/dangling.jar"))

	var stats Stats
	got := slices.Collect(New(fs, Options{}).WalkWithStats("/r", &stats))

	assert.ElementsMatch(t, []string{p("/r/linked.jar"), p("/r/plain.jar")}, got)
	assert.Equal(t, 1, stats.OtherIgnored)
}

func TestWalk_SkipDirs(t *testing.T) {
	fs := newFS(t, "/r/.git/objects/pack.jar", "/r/lib/a.jar")

	var stats Stats
	w := New(fs, Options{SkipDirs: []string{".git", ""}})
	got := slices.Collect(w.WalkWithStats("/r", &stats))

	assert.Equal(t, []string{p("/r/lib/a.jar")}, got)
	assert.Equal(t, 1, stats.Skipped)
}

func TestWalk_StopsEarly(t *testing.T) {
	fs := newFS(t, "/r/a.jar", "/r/b.jar", "/r/c.jar")

	var got []string
	for f := range New(fs, Options{}).Walk("/r") {
		got = append(got, f)
		if len(got) == 2 {
			break
		}
	}
	assert.Len(t, got, 2)
}

func TestWalk_Restartable(t *testing.T) {
	fs := newFS(t, "/r/a.jar", "/r/sub/b.jar")
	w := New(fs, Options{})

	first := collect(w, "/r")
	second := collect(w, "/r")
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestWalk_OSPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "open"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "closed"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "open", "a.jar"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "closed", "b.jar"), []byte("x"), 0o644))
	require.NoError(t, os.Chmod(filepath.Join(dir, "closed"), 0o000))
	t.Cleanup(func() { _ = os.Chmod(filepath.Join(dir, "closed"), 0o755) })

	got := collect(New(paths.OS(), Options{}), dir)
	assert.Equal(t, []string{filepath.Join(dir, "open", "a.jar")}, got)
}
