package snapshot

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/cmpf/pkg/collector"
	"github.com/sdejongh/cmpf/pkg/models"
)

func buildTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return root
}

func countStatus(results []models.ComparisonResult) map[models.Status]int {
	m := make(map[models.Status]int)
	for _, r := range results {
		m[r.Status]++
	}
	return m
}

func TestCreate(t *testing.T) {
	root := buildTree(t, map[string]string{
		"a.txt":      "alpha",
		"sub/b.txt":  "beta",
		"empty.txt":  "",
		".hidden/c":  "gamma",
		"skip/d.tmp": "delta",
	})

	m := NewManager(nil, nil, nil)
	snap, errs, err := m.Create(context.Background(), root, collector.Options{Ignore: []string{"skip/"}}, models.AlgoBoth)
	require.NoError(t, err)
	assert.Empty(t, errs)

	assert.Equal(t, FormatVersion, snap.Version)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, models.AlgoBoth, snap.Algo)
	assert.Equal(t, root, snap.RootPath)
	assert.Equal(t, time.UTC, snap.CreatedAt.Location())
	assert.Equal(t, []string{"skip/"}, snap.Scan.Ignore)

	paths := make([]string, len(snap.Files))
	for i, f := range snap.Files {
		paths[i] = f.RelPath
		assert.True(t, f.Hashes.Populated(models.AlgoBoth), f.RelPath)
		require.NotNil(t, f.Modified)
	}
	assert.Equal(t, []string{"a.txt", "empty.txt", "sub/b.txt"}, paths)
	require.NoError(t, snap.Validate())
}

func TestCreate_InvalidAlgorithm(t *testing.T) {
	_, _, err := NewManager(nil, nil, nil).Create(context.Background(), t.TempDir(), collector.Options{}, "md5")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestVerify_RoundTrip(t *testing.T) {
	root := buildTree(t, map[string]string{"a.txt": "alpha", "sub/b.txt": "beta", "empty": ""})
	m := NewManager(nil, nil, nil)

	for _, algo := range []models.Algorithm{models.AlgoSHA256, models.AlgoBLAKE3, models.AlgoBoth} {
		t.Run(string(algo), func(t *testing.T) {
			snap, _, err := m.Create(context.Background(), root, collector.Options{}, algo)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "snap.json")
			require.NoError(t, Save(path, snap))
			loaded, err := Load(path)
			require.NoError(t, err)

			results, summary, errs, err := m.Verify(context.Background(), root, loaded)
			require.NoError(t, err)
			assert.Empty(t, errs)
			assert.Equal(t, 3, summary.Matches)
			assert.Zero(t, summary.Diffs+summary.Missing+summary.Extra+summary.Errors)
			assert.Equal(t, models.ExitSuccess, summary.ExitStatus())
			assert.Len(t, results, 3)
		})
	}
}

func TestVerify_DetectsChanges(t *testing.T) {
	root := buildTree(t, map[string]string{"keep": "same", "edit": "before", "gone": "bye"})
	m := NewManager(nil, nil, nil)
	snap, _, err := m.Create(context.Background(), root, collector.Options{}, models.AlgoBLAKE3)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "edit"), []byte("after!"), 0644))
	require.NoError(t, os.Remove(filepath.Join(root, "gone")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "new"), []byte("hello"), 0644))

	results, summary, _, err := m.Verify(context.Background(), root, snap)
	require.NoError(t, err)

	byPath := make(map[string]models.ComparisonResult)
	for _, r := range results {
		byPath[r.Path] = r
	}
	assert.Equal(t, models.StatusMatch, byPath["keep"].Status)
	assert.Equal(t, models.StatusDiff, byPath["edit"].Status)
	assert.Equal(t, models.StatusMissing, byPath["gone"].Status)
	assert.Equal(t, models.StatusExtra, byPath["new"].Status)

	edit := byPath["edit"]
	require.NotNil(t, edit.Hash1)
	require.NotNil(t, edit.Hash2)
	assert.NotEqual(t, edit.Hash1.BLAKE3, edit.Hash2.BLAKE3)

	gone := byPath["gone"]
	require.NotNil(t, gone.Hash1)
	assert.Equal(t, int64(3), *gone.Size1)

	assert.Equal(t, models.ExitDiff, summary.ExitStatus())
	assert.Equal(t, 4, summary.Total)
}

func TestVerify_SameSizeContentChange(t *testing.T) {
	root := buildTree(t, map[string]string{"f": "aaaa"})
	m := NewManager(nil, nil, nil)
	snap, _, err := m.Create(context.Background(), root, collector.Options{}, models.AlgoSHA256)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "f"), []byte("bbbb"), 0644))
	results, _, _, err := m.Verify(context.Background(), root, snap)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.StatusDiff, results[0].Status)
	assert.Equal(t, models.ReasonContent, results[0].Reason)
}

func TestVerify_UsesRecordedFilters(t *testing.T) {
	root := buildTree(t, map[string]string{"a.go": "package a", "b.txt": "text"})
	m := NewManager(nil, nil, nil)
	snap, _, err := m.Create(context.Background(), root, collector.Options{Extensions: []string{"go"}}, models.AlgoBLAKE3)
	require.NoError(t, err)
	require.Len(t, snap.Files, 1)

	_, summary, _, err := m.Verify(context.Background(), root, snap)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Zero(t, summary.Extra)
}

func TestVerify_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	root := buildTree(t, map[string]string{"target": "data"})
	require.NoError(t, os.Symlink("target", filepath.Join(root, "link")))

	m := NewManager(nil, nil, nil)
	snap, _, err := m.Create(context.Background(), root, collector.Options{Symlinks: models.SymlinkCompare}, models.AlgoBLAKE3)
	require.NoError(t, err)
	require.Len(t, snap.Files, 2)

	require.NoError(t, os.Remove(filepath.Join(root, "link")))
	require.NoError(t, os.Symlink("elsewhere", filepath.Join(root, "link")))

	results, _, _, err := m.Verify(context.Background(), root, snap)
	require.NoError(t, err)
	statuses := countStatus(results)
	assert.Equal(t, 1, statuses[models.StatusMatch])
	assert.Equal(t, 1, statuses[models.StatusDiff])
}

func TestStore_Compression(t *testing.T) {
	root := buildTree(t, map[string]string{"a": "1", "b/c": "2"})
	snap, _, err := NewManager(nil, nil, nil).Create(context.Background(), root, collector.Options{}, models.AlgoBoth)
	require.NoError(t, err)

	var plain bytes.Buffer
	require.NoError(t, Encode(&plain, snap))

	for _, name := range []string{"snap.json", "snap.json.zst", "snap.json.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Save(path, snap))

			_, err := os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err), "temporary file left behind")

			loaded, err := Load(path)
			require.NoError(t, err)

			// decoding then re-encoding reproduces the bytes
			var again bytes.Buffer
			require.NoError(t, Encode(&again, loaded))
			assert.Equal(t, plain.String(), again.String())
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"garbage", write("garbage.json", "{not json"), ErrCorrupt},
		{"no version", write("nover.json", `{"algo":"blake3","scan":{"symlinks":"ignore"},"files":[]}`), ErrCorrupt},
		{"future version", write("future.json", `{"version":99,"algo":"blake3","scan":{"symlinks":"ignore"},"files":[]}`), ErrUnsupportedVersion},
		{"bad algo", write("algo.json", `{"version":1,"algo":"md5","scan":{"symlinks":"ignore"},"files":[]}`), ErrCorrupt},
		{"missing digest", write("digest.json", `{"version":1,"algo":"sha256","scan":{"symlinks":"ignore"},"files":[{"rel_path":"a","size":1,"hashes":{"blake3":"ab"}}]}`), ErrCorrupt},
		{"unknown field", write("unknown.json", `{"version":1,"algo":"blake3","scan":{"symlinks":"ignore"},"files":[],"extra":true}`), ErrCorrupt},
		{"duplicate path", write("dup.json", `{"version":1,"algo":"blake3","scan":{"symlinks":"ignore"},"files":[{"rel_path":"a","size":1,"hashes":{"blake3":"ab"}},{"rel_path":"a","size":1,"hashes":{"blake3":"ab"}}]}`), ErrCorrupt},
		{"duplicate normal form", write("nfd.json", `{"version":1,"algo":"blake3","scan":{"symlinks":"ignore"},"files":[{"rel_path":"caf\u00e9","size":1,"hashes":{"blake3":"ab"}},{"rel_path":"cafe\u0301","size":1,"hashes":{"blake3":"ab"}}]}`), ErrCorrupt},
		{"duplicate folded case", write("case.json", `{"version":1,"algo":"blake3","scan":{"symlinks":"ignore","fold_case":true},"files":[{"rel_path":"Readme.md","size":1,"hashes":{"blake3":"ab"}},{"rel_path":"README.md","size":1,"hashes":{"blake3":"ab"}}]}`), ErrCorrupt},
		{"bad zstd", write("bad.json.zst", "not zstd at all"), ErrCorrupt},
		{"bad gzip", write("bad.json.gz", "not gzip at all"), ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "error %v, want %v", err, tt.wantErr)
		})
	}

	t.Run("case kept without folding", func(t *testing.T) {
		snap, err := Load(write("cased.json", `{"version":1,"algo":"blake3","scan":{"symlinks":"ignore"},"files":[{"rel_path":"Readme.md","size":1,"hashes":{"blake3":"ab"}},{"rel_path":"README.md","size":1,"hashes":{"blake3":"ab"}}]}`))
		require.NoError(t, err)
		assert.Len(t, snap.Entries(), 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestCompressionFor(t *testing.T) {
	assert.Equal(t, CompressionZstd, CompressionFor("x.json.zst"))
	assert.Equal(t, CompressionGzip, CompressionFor("x.json.GZ"))
	assert.Equal(t, CompressionNone, CompressionFor("x.json"))
}
