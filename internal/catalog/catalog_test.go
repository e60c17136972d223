package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/franz/deduplicator/internal/fingerprint"
	"github.com/franz/deduplicator/internal/record"
	"github.com/franz/deduplicator/internal/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingHasher counts fingerprint computations and can be switched to fail
type countingHasher struct {
	engine *fingerprint.Engine
	calls  int
	fail   bool
}

func (h *countingHasher) Fingerprint(path string) fingerprint.Digest {
	h.calls++
	if h.fail {
		return fingerprint.Zero
	}
	return h.engine.Fingerprint(path)
}

type fixture struct {
	fs      afero.Fs
	store   *store.Store
	hasher  *countingHasher
	catalog *Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h := &countingHasher{engine: fingerprint.New(fs, fingerprint.MaxBytes)}
	return &fixture{
		fs:      fs,
		store:   s,
		hasher:  h,
		catalog: New(s, record.NewObserver(fs, h)),
	}
}

func (f *fixture) write(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, afero.WriteFile(f.fs, path, []byte(content), 0o644))
	require.NoError(t, f.fs.Chtimes(path, mtime, mtime))
}

func (f *fixture) lookup(t *testing.T, path string) record.Record {
	t.Helper()
	r, err := f.catalog.Lookup(path)
	require.NoError(t, err)
	return r
}

var baseTime = time.Unix(1700000000, 0)

func TestUpdateModifiedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.write(t, "/d/a", "content", baseTime)

	out, err := f.catalog.UpdateModified("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Inserted, out)
	first := f.lookup(t, "/d/a")

	out, err = f.catalog.UpdateModified("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)
	second := f.lookup(t, "/d/a")

	assert.Equal(t, 1, f.hasher.calls, "no re-hash without a filesystem change")
	assert.Equal(t, first, second)
}

func TestUpdateModifiedIgnoresContentWhenMtimeRestored(t *testing.T) {
	f := newFixture(t)
	f.write(t, "/d/a", "original", baseTime)

	_, err := f.catalog.UpdateModified("/d/a")
	require.NoError(t, err)
	before := f.lookup(t, "/d/a")

	// Different content and size, same modification time
	f.write(t, "/d/a", "rewritten with more bytes", baseTime)

	out, err := f.catalog.UpdateModified("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)
	assert.Equal(t, before, f.lookup(t, "/d/a"), "mtime is the only signal for UpdateModified")

	out, err = f.catalog.UpdateDifferent("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Refreshed, out)

	after := f.lookup(t, "/d/a")
	assert.Equal(t, fingerprint.Bytes([]byte("rewritten with more bytes")), after.Digest)
	assert.Equal(t, int64(len("rewritten with more bytes")), after.Size)
}

func TestUpdateModifiedRefreshesOnMtimeChange(t *testing.T) {
	f := newFixture(t)
	f.write(t, "/d/a", "v1", baseTime)
	_, err := f.catalog.UpdateModified("/d/a")
	require.NoError(t, err)

	f.write(t, "/d/a", "v2", baseTime.Add(2*time.Second))
	out, err := f.catalog.UpdateModified("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Refreshed, out)

	r := f.lookup(t, "/d/a")
	assert.Equal(t, fingerprint.Bytes([]byte("v2")), r.Digest)
	assert.Equal(t, baseTime.Unix()+2, r.ModTime)
}

func TestUpdateModifiedSubSecondChangeIsInvisible(t *testing.T) {
	f := newFixture(t)
	f.write(t, "/d/a", "v1", baseTime.Add(100*time.Millisecond))
	_, err := f.catalog.UpdateModified("/d/a")
	require.NoError(t, err)

	f.write(t, "/d/a", "v2", baseTime.Add(900*time.Millisecond))
	out, err := f.catalog.UpdateModified("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)
	assert.Equal(t, 1, f.hasher.calls)
}

func TestUpdateNonExisting(t *testing.T) {
	f := newFixture(t)
	f.write(t, "/d/a", "v1", baseTime)

	out, err := f.catalog.UpdateNonExisting("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Inserted, out)

	f.write(t, "/d/a", "v2", baseTime.Add(time.Hour))
	out, err = f.catalog.UpdateNonExisting("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)
	assert.Equal(t, fingerprint.Bytes([]byte("v1")), f.lookup(t, "/d/a").Digest)
	assert.Equal(t, 1, f.hasher.calls)
}

func TestUpdateDifferentAlwaysHashes(t *testing.T) {
	f := newFixture(t)
	f.write(t, "/d/a", "same", baseTime)

	out, err := f.catalog.UpdateDifferent("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Inserted, out)

	out, err = f.catalog.UpdateDifferent("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)
	assert.Equal(t, 2, f.hasher.calls)
}

func TestUpdateNewMissingPathStoresNothing(t *testing.T) {
	f := newFixture(t)

	for _, p := range []Policy{UpdateNonExisting, UpdateModified, UpdateDifferent} {
		out, err := f.catalog.Update("/d/missing", p)
		require.NoError(t, err)
		assert.Equal(t, Failed, out, p.String())
	}

	count, err := f.store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFailedRefreshKeepsStaleRecord(t *testing.T) {
	f := newFixture(t)
	f.write(t, "/d/a", "v1", baseTime)
	_, err := f.catalog.UpdateModified("/d/a")
	require.NoError(t, err)
	before := f.lookup(t, "/d/a")

	// Hashing fails after the file changed
	f.write(t, "/d/a", "v2", baseTime.Add(time.Minute))
	f.hasher.fail = true

	out, err := f.catalog.UpdateModified("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Failed, out)
	assert.Equal(t, before, f.lookup(t, "/d/a"))

	out, err = f.catalog.UpdateDifferent("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Failed, out)
	assert.Equal(t, before, f.lookup(t, "/d/a"))

	// The file disappears: still not deleted by an update
	require.NoError(t, f.fs.Remove("/d/a"))
	out, err = f.catalog.UpdateModified("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Failed, out)
	assert.Equal(t, before, f.lookup(t, "/d/a"))

	// Next run gets another chance
	f.hasher.fail = false
	f.write(t, "/d/a", "v3", baseTime.Add(2*time.Minute))
	out, err = f.catalog.UpdateModified("/d/a")
	require.NoError(t, err)
	assert.Equal(t, Refreshed, out)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"missing", UpdateNonExisting, false},
		{"non-existing", UpdateNonExisting, false},
		{"modified", UpdateModified, false},
		{"", UpdateModified, false},
		{"Different", UpdateDifferent, false},
		{"bogus", UpdateModified, true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, p := range []Policy{UpdateNonExisting, UpdateModified, UpdateDifferent} {
		back, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, back)
	}
}

func TestUpdateUnknownPolicy(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.Update("/d/a", Policy(42))
	assert.Error(t, err)
}

// flakyFs fails Stat for one path with a non-"gone" error
type flakyFs struct {
	afero.Fs
	broken string
}

func (fs flakyFs) Stat(name string) (os.FileInfo, error) {
	if name == fs.broken {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrPermission}
	}
	return fs.Fs.Stat(name)
}

func TestPrune(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"/d/keep", "/d/gone", "/d/dir", "/d/locked"} {
		f.write(t, p, p, baseTime)
		_, err := f.catalog.UpdateModified(p)
		require.NoError(t, err)
	}

	require.NoError(t, f.fs.Remove("/d/gone"))
	require.NoError(t, f.fs.Remove("/d/dir"))
	require.NoError(t, f.fs.MkdirAll("/d/dir", 0o755))

	c := New(f.store, record.NewObserver(flakyFs{Fs: f.fs, broken: "/d/locked"}, f.hasher))
	result, err := c.Prune()
	require.NoError(t, err)

	assert.Equal(t, 4, result.Checked)
	assert.ElementsMatch(t, []string{"/d/gone", "/d/dir"}, result.Removed)
	assert.Len(t, result.Errors, 1, "stat failures are reported, not fatal")

	paths, err := f.store.Paths()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/d/keep", "/d/locked"}, paths)
}

func TestPruneParentReplacedByFile(t *testing.T) {
	root := t.TempDir()
	fs := afero.NewOsFs()
	s, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	c := New(s, record.NewObserver(fs, fingerprint.New(fs, fingerprint.MaxBytes)))

	dir := filepath.Join(root, "d")
	path := filepath.Join(dir, "x")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	out, err := c.UpdateModified(path)
	require.NoError(t, err)
	require.Equal(t, Inserted, out)

	// d/x now resolves through a regular file: stat fails with ENOTDIR
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("now a file"), 0o644))

	result, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, []string{path}, result.Removed)
	assert.Empty(t, result.Errors)

	stored, err := c.Lookup(path)
	require.NoError(t, err)
	assert.True(t, stored.NoStatus())
}

func TestPruneErrorNamesPathOnce(t *testing.T) {
	f := newFixture(t)
	f.write(t, "/d/locked", "x", baseTime)
	_, err := f.catalog.UpdateModified("/d/locked")
	require.NoError(t, err)

	c := New(f.store, record.NewObserver(flakyFs{Fs: f.fs, broken: "/d/locked"}, f.hasher))
	result, err := c.Prune()
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, strings.Count(result.Errors[0].Error(), "/d/locked"), result.Errors[0].Error())
	assert.ErrorIs(t, result.Errors[0], os.ErrPermission)
}
