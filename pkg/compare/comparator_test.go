package compare

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/cmpf/pkg/hasher"
	"github.com/sdejongh/cmpf/pkg/models"
)

// countingHasher counts calls and delegates to a real hasher
type countingHasher struct {
	inner hasher.Hasher
	calls atomic.Int64
	fail  string
}

func (h *countingHasher) Hash(path string, algo models.Algorithm) (models.HashResult, error) {
	h.calls.Add(1)
	if h.fail != "" && path == h.fail {
		return models.HashResult{}, errors.New("read failed")
	}
	return h.inner.Hash(path, algo)
}

// side writes files under a fresh directory and returns their inventory
func side(t *testing.T, files map[string]string, mtime time.Time) models.Inventory {
	t.Helper()
	root := t.TempDir()
	inv := make(models.Inventory, len(files))
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
		require.NoError(t, os.Chtimes(p, mtime, mtime))
		inv[rel] = models.FileEntry{Path: p, RelPath: rel, Size: int64(len(content)), ModTime: mtime}
	}
	return inv
}

func newDiffer(t *testing.T, mode models.Mode, h hasher.Hasher) *Differ {
	t.Helper()
	d, err := New(Config{Mode: mode, Algorithm: models.AlgoBLAKE3, Sort: true}, h, nil, nil)
	require.NoError(t, err)
	return d
}

func statuses(results []models.ComparisonResult) map[string]models.Status {
	m := make(map[string]models.Status, len(results))
	for _, r := range results {
		m[r.Path] = r.Status
	}
	return m
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Mode: "fast", Algorithm: models.AlgoBLAKE3}, nil, nil, nil)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "mode", verr.Field)

	_, err = New(Config{Mode: models.ModeBatch, Algorithm: "md5"}, nil, nil, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "algorithm", verr.Field)

	d, err := New(Config{Mode: "BATCH", Algorithm: models.AlgoSHA256}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ModeBatch, d.Config().Mode)
	assert.Equal(t, models.SymlinkIgnore, d.Config().Symlinks)
}

func TestCompare_Scenario(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	side1 := side(t, map[string]string{"a.txt": "same", "b.txt": "only one"}, now)
	side2 := side(t, map[string]string{"a.txt": "same", "c.txt": "only two"}, now)

	for _, mode := range []models.Mode{models.ModeRealtime, models.ModeBatch, models.ModeMetadata} {
		t.Run(string(mode), func(t *testing.T) {
			d := newDiffer(t, mode, nil)
			results, summary, err := d.Results(context.Background(), side1, side2)
			require.NoError(t, err)

			assert.Equal(t, map[string]models.Status{
				"a.txt": models.StatusMatch,
				"b.txt": models.StatusMissing,
				"c.txt": models.StatusExtra,
			}, statuses(results))
			assert.Equal(t, 3, summary.Total)
			assert.Equal(t, 1, summary.Matches)
			assert.Equal(t, 1, summary.Missing)
			assert.Equal(t, 1, summary.Extra)
			assert.Equal(t, models.ExitDiff, summary.ExitStatus())

			paths := make([]string, len(results))
			for i, r := range results {
				paths[i] = r.Path
			}
			assert.IsNonDecreasing(t, paths)
		})
	}
}

func TestCompare_CompletenessAndSymmetry(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	side1 := side(t, map[string]string{
		"same.txt":     "identical",
		"content.txt":  "aaaa",
		"size.txt":     "short",
		"dir/only1.go": "package x",
	}, now)
	side2 := side(t, map[string]string{
		"same.txt":     "identical",
		"content.txt":  "bbbb",
		"size.txt":     "much longer",
		"dir/only2.go": "package y",
	}, now)

	d := newDiffer(t, models.ModeBatch, nil)
	forward, _, err := d.Results(context.Background(), side1, side2)
	require.NoError(t, err)
	backward, _, err := d.Results(context.Background(), side2, side1)
	require.NoError(t, err)

	// every path of the union appears exactly once
	seen := make(map[string]int)
	for _, r := range forward {
		seen[r.Path]++
	}
	assert.Len(t, seen, 6)
	for p, n := range seen {
		assert.Equal(t, 1, n, p)
	}

	want := statuses(forward)
	got := make(map[string]models.Status)
	for _, r := range backward {
		got[r.Path] = r.Swap().Status
	}
	assert.Equal(t, want, got)
	assert.Equal(t, models.StatusDiff, want["content.txt"])
	assert.Equal(t, models.StatusDiff, want["size.txt"])
}

func TestCompare_RealtimeMatchesBatch(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	side1 := side(t, map[string]string{"x": "1", "y": "22", "z/w": "333"}, now)
	side2 := side(t, map[string]string{"x": "1", "y": "23", "v": "4444"}, now)

	rt, rtSummary, err := newDiffer(t, models.ModeRealtime, nil).Results(context.Background(), side1, side2)
	require.NoError(t, err)
	bt, btSummary, err := newDiffer(t, models.ModeBatch, nil).Results(context.Background(), side1, side2)
	require.NoError(t, err)

	assert.Equal(t, statuses(bt), statuses(rt))
	rtSummary.Elapsed, btSummary.Elapsed = 0, 0
	assert.Equal(t, btSummary, rtSummary)
}

func TestComparePair_SizeShortCircuit(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	side1 := side(t, map[string]string{"f": "abc"}, now)
	side2 := side(t, map[string]string{"f": "abcdef"}, now)

	h := &countingHasher{inner: hasher.New()}
	d := newDiffer(t, models.ModeBatch, h)
	r := d.ComparePair("f", side1["f"], side2["f"])

	assert.Equal(t, models.StatusDiff, r.Status)
	assert.Equal(t, models.ReasonSize, r.Reason)
	assert.Equal(t, int64(3), *r.Size1)
	assert.Equal(t, int64(6), *r.Size2)
	assert.Nil(t, r.Hash1)
	assert.Zero(t, h.calls.Load())
}

func TestComparePair_Content(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	side1 := side(t, map[string]string{"f": "abc"}, now)
	side2 := side(t, map[string]string{"f": "abd"}, now)

	h := &countingHasher{inner: hasher.New()}
	d := newDiffer(t, models.ModeBatch, h)
	r := d.ComparePair("f", side1["f"], side2["f"])

	assert.Equal(t, models.StatusDiff, r.Status)
	assert.Equal(t, models.ReasonContent, r.Reason)
	require.NotNil(t, r.Hash1)
	require.NotNil(t, r.Hash2)
	assert.NotEqual(t, r.Hash1.BLAKE3, r.Hash2.BLAKE3)
	assert.Empty(t, r.Hash1.SHA256)
	assert.Equal(t, int64(2), h.calls.Load())
}

func TestComparePair_HashError(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	side1 := side(t, map[string]string{"f": "abc"}, now)
	side2 := side(t, map[string]string{"f": "abc"}, now)

	h := &countingHasher{inner: hasher.New(), fail: side2["f"].Path}
	d := newDiffer(t, models.ModeBatch, h)
	r := d.ComparePair("f", side1["f"], side2["f"])

	assert.Equal(t, models.StatusError, r.Status)
	assert.Contains(t, r.Reason, "folder2")
	assert.Contains(t, r.Reason, "read failed")
}

func TestComparePair_Metadata(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	side1 := side(t, map[string]string{"same": "aaa", "touched": "bbb"}, now)
	side2 := side(t, map[string]string{"same": "zzz", "touched": "bbb"}, now)
	e := side2["touched"]
	e.ModTime = now.Add(time.Hour)
	side2["touched"] = e

	h := &countingHasher{inner: hasher.New()}
	d := newDiffer(t, models.ModeMetadata, h)

	// metadata mode never reads content
	r := d.ComparePair("same", side1["same"], side2["same"])
	assert.Equal(t, models.StatusMatch, r.Status)

	r = d.ComparePair("touched", side1["touched"], side2["touched"])
	assert.Equal(t, models.StatusDiff, r.Status)
	assert.Equal(t, models.ReasonModTime, r.Reason)
	assert.Equal(t, FormatTime(now), r.Modified1)
	assert.Equal(t, FormatTime(now.Add(time.Hour)), r.Modified2)
	assert.Zero(t, h.calls.Load())
}

func TestComparePair_Symlinks(t *testing.T) {
	d, err := New(Config{Mode: models.ModeBatch, Algorithm: models.AlgoSHA256, Symlinks: models.SymlinkCompare}, &countingHasher{inner: hasher.New()}, nil, nil)
	require.NoError(t, err)

	link := func(target string) models.FileEntry {
		return models.FileEntry{IsSymlink: true, SymlinkTarget: target, Size: int64(len(target))}
	}

	tests := []struct {
		name   string
		a, b   models.FileEntry
		status models.Status
		reason string
	}{
		{"same target", link("x"), link("x"), models.StatusMatch, ""},
		{"different target", link("x"), link("y"), models.StatusDiff, models.ReasonLinkTarget},
		{"link vs file", link("x"), models.FileEntry{Size: 1}, models.StatusDiff, models.ReasonLinkType},
		{"file vs link", models.FileEntry{Size: 1}, link("x"), models.StatusDiff, models.ReasonLinkType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := d.ComparePair("l", tt.a, tt.b)
			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, tt.reason, r.Reason)
			assert.Equal(t, tt.a.SymlinkTarget, r.Symlink1)
			assert.Equal(t, tt.b.SymlinkTarget, r.Symlink2)
		})
	}
}

type recordingProgress struct {
	total      int
	increments atomic.Int64
	finished   bool
}

func (p *recordingProgress) Start(total int) { p.total = total }
func (p *recordingProgress) Increment()      { p.increments.Add(1) }
func (p *recordingProgress) Finish()         { p.finished = true }

func TestCompare_BatchProgress(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	side1 := side(t, map[string]string{"a": "1", "b": "2", "c": "3"}, now)
	side2 := side(t, map[string]string{"a": "1", "b": "2"}, now)

	d := newDiffer(t, models.ModeBatch, nil)
	p := &recordingProgress{}
	d.SetProgress(p)
	_, _, err := d.Results(context.Background(), side1, side2)
	require.NoError(t, err)

	assert.Equal(t, 2, p.total)
	assert.Equal(t, int64(2), p.increments.Load())
	assert.True(t, p.finished)
}

func TestCompare_Cancelled(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	side1 := side(t, map[string]string{"a": "1"}, now)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newDiffer(t, models.ModeRealtime, nil).Compare(ctx, side1, side1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanKeys(t *testing.T) {
	plan := PlanKeys(map[string]int{"a": 1, "b": 2, "c": 3}, map[string]string{"b": "", "c": "", "d": ""}, true)
	assert.Equal(t, []string{"b", "c"}, plan.Common)
	assert.Equal(t, []string{"a"}, plan.Only1)
	assert.Equal(t, []string{"d"}, plan.Only2)
	assert.Equal(t, 4, plan.Total())
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "", FormatTime(time.Time{}))
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	assert.Equal(t, "2024-03-09 14:05:07", FormatTime(ts))
}
