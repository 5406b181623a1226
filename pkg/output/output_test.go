package output

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/cmpf/pkg/models"
)

func sampleReport() *Report {
	h1 := models.HashResult{BLAKE3: "aaaa"}
	h2 := models.HashResult{BLAKE3: "bbbb"}
	return &Report{
		RunID:     "run-1",
		Mode:      models.ModeBatch,
		Algorithm: models.AlgoBLAKE3,
		Workers:   4,
		Summary: models.Summary{
			Total: 4, Matches: 1, Diffs: 2, Missing: 1, Errors: 1,
			Elapsed: 1500 * time.Millisecond,
		},
		Folder1Errors: []models.ErrorEntry{{Path: "/a/locked", Error: "permission denied"}},
		Results: []models.ComparisonResult{
			{Path: "same.txt", Status: models.StatusMatch, Hash1: &h1, Hash2: &h1},
			{Path: "content.txt", Status: models.StatusDiff, Hash1: &h1, Hash2: &h2, Reason: models.ReasonContent},
			{Path: "size.txt", Status: models.StatusDiff, Size1: models.Int64(3), Size2: models.Int64(5), Reason: models.ReasonSize},
			{Path: "gone.txt", Status: models.StatusMissing, Size1: models.Int64(1)},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("txt")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat("text")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	WriteText(&buf, sampleReport(), TextOptions{})
	out := buf.String()

	assert.Contains(t, out, "[ERROR] /a/locked (folder1: permission denied)\n")
	assert.Contains(t, out, "[MATCH]  same.txt\n")
	assert.Contains(t, out, "[DIFF]  content.txt\n")
	assert.Contains(t, out, "[MISSING]  gone.txt\n")
	assert.NotContains(t, out, "folder1: aaaa")
	assert.NotContains(t, out, "\x1b[")

	for _, label := range []string{"Summary", "Mode", "Batch", "BLAKE3", "Threads", "Total files checked", "Errors", "1.50s"} {
		assert.Contains(t, out, label)
	}

	// every box line has the same display width
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "║") || strings.HasPrefix(line, "╔") || strings.HasPrefix(line, "╚") || strings.HasPrefix(line, "╠") {
			assert.Equal(t, boxWidth+2, utf8.RuneCountInString(line), line)
		}
	}
}

func TestWriteText_Verbose(t *testing.T) {
	var buf bytes.Buffer
	WriteText(&buf, sampleReport(), TextOptions{Verbose: true})
	out := buf.String()

	assert.Contains(t, out, "    in_both: aaaa\n")
	assert.Contains(t, out, "    folder1: aaaa\n    folder2: bbbb\n")
	assert.Contains(t, out, "    folder1: 3 bytes\n    folder2: 5 bytes\n")
}

func TestWriteText_MetadataAndBoth(t *testing.T) {
	r := &Report{
		Mode:      models.ModeMetadata,
		Algorithm: models.AlgoBoth,
		Results: []models.ComparisonResult{{
			Path: "t", Status: models.StatusDiff, Reason: models.ReasonModTime,
			Size1: models.Int64(1), Size2: models.Int64(1),
			Modified1: "2024-01-01 10:00:00", Modified2: "2024-01-02 10:00:00",
		}},
	}
	var buf bytes.Buffer
	WriteText(&buf, r, TextOptions{Verbose: true})
	out := buf.String()

	assert.Contains(t, out, "folder1: 2024-01-01 10:00:00")
	assert.Contains(t, out, "Metadata")
	assert.NotContains(t, out, "Errors")

	var both bytes.Buffer
	h := models.HashResult{SHA256: "s", BLAKE3: "b"}
	tw := NewTextWriter(&both, models.AlgoBoth, TextOptions{Verbose: true})
	tw.Result(models.ComparisonResult{Path: "x", Status: models.StatusMatch, Hash1: &h, Hash2: &h})
	assert.Contains(t, both.String(), "in_both: sha256:s\n            blake3:b\n")
}

func TestWriteText_Color(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTextWriter(&buf, models.AlgoBLAKE3, TextOptions{Color: true})
	tw.Result(models.ComparisonResult{Path: "x", Status: models.StatusMatch})
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	summary := doc["summary"].(map[string]any)
	assert.Equal(t, float64(4), summary["total_files_checked"])
	assert.Equal(t, float64(2), summary["differences"])
	assert.Equal(t, float64(1), summary["missing_in_folder2"])
	assert.Equal(t, float64(0), summary["extra_in_folder2"])
	assert.Equal(t, "1.50s", summary["time_taken"])
	assert.Equal(t, "run-1", doc["run_id"])

	assert.Len(t, doc["folder1_errors"], 1)
	assert.NotNil(t, doc["folder2_errors"])
	assert.Len(t, doc["folder2_errors"], 0)

	results := doc["results"].([]any)
	require.Len(t, results, 4)
	first := results[0].(map[string]any)
	assert.Equal(t, "same.txt", first["file"])
	assert.Equal(t, "MATCH", first["status"])
}

func TestJSONFormatter_CollectsStream(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter(FormatJSON, &buf, models.AlgoBLAKE3, TextOptions{})
	require.NoError(t, err)
	assert.Equal(t, "json", f.Name())

	f.WalkError(models.ErrorEntry{Path: "p", Error: "e"}, "folder2")
	f.Result(models.ComparisonResult{Path: "a", Status: models.StatusExtra})
	assert.Zero(t, buf.Len(), "JSON is written on completion only")

	require.NoError(t, f.Complete(&Report{Summary: models.Summary{Total: 1, Extra: 1}}))

	var doc struct {
		Folder2Errors []models.ErrorEntry       `json:"folder2_errors"`
		Results       []models.ComparisonResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Len(t, doc.Folder2Errors, 1)
	assert.Len(t, doc.Results, 1)
}

func TestTextFormatter_Streams(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter(FormatText, &buf, models.AlgoBLAKE3, TextOptions{})
	require.NoError(t, err)

	f.Result(models.ComparisonResult{Path: "a", Status: models.StatusExtra})
	assert.Equal(t, "[EXTRA]  a\n", buf.String())

	require.NoError(t, f.Complete(&Report{Mode: models.ModeRealtime}))
	assert.Contains(t, buf.String(), "Realtime")
}

func TestWriteToFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := WriteToFolder(dir, FormatJSON, func(w io.Writer) error {
		return WriteJSON(w, sampleReport())
	})
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "report_"))
	assert.Equal(t, ".json", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_files_checked": 4`)
}

func TestReportPath(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, filepath.Join("out", "report_20240506_070809.txt"), ReportPath("out", FormatText, now))
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Nanosecond, "1.50µs"},
		{2500 * time.Microsecond, "2.50ms"},
		{1234 * time.Millisecond, "1.23s"},
		{90 * time.Second, "1m30.00s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatElapsed(tt.d))
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "2.0 MiB", formatBytes(2*1024*1024))
}

func TestSyncWriter(t *testing.T) {
	var buf bytes.Buffer
	s := NewSyncWriter(&buf, false)

	s.Action(models.SyncAction{Path: "b.txt", Kind: models.ActionCreate}, false)
	s.Action(models.SyncAction{Path: "c.txt", Kind: models.ActionDelete}, true)
	s.Action(models.SyncAction{Path: "l", Kind: models.ActionUpdate, SymlinkTarget: "t"}, true)

	assert.Equal(t, "Will create b.txt\nDeleted c.txt\nUpdated l -> t\n", buf.String())

	buf.Reset()
	s.Summary(&models.SyncSummary{
		Created: 1, Deleted: 1, Applied: 2,
		Actions: []models.SyncAction{
			{Path: "b.txt", Kind: models.ActionCreate, Size: 2048},
			{Path: "c.txt", Kind: models.ActionDelete, Size: 9},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "Created:  1")
	assert.Contains(t, out, "Applied:  2 of 2")
	assert.Contains(t, out, "2.0 KiB")
	assert.NotContains(t, out, "Dry run")
	assert.NotContains(t, out, "Kept:")

	buf.Reset()
	s.Summary(&models.SyncSummary{Withheld: 3, Errors: 1})
	assert.Contains(t, buf.String(), "Kept:     3 (source unreadable)")
}

func TestWriteSyncJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSyncJSON(&buf, &models.SyncSummary{RunID: "r", DryRun: true, Created: 1}))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "r", doc["run_id"])
	assert.Equal(t, true, doc["dry_run"])
	assert.Equal(t, float64(1), doc["created"])
	assert.NotNil(t, doc["actions"])
	assert.Contains(t, doc, "time_taken")
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressBar(&buf)
	assert.NotPanics(t, func() {
		p.Increment()
		p.Start(3)
		for i := 0; i < 3; i++ {
			p.Increment()
		}
		p.Finish()
		p.Finish()
	})
}
