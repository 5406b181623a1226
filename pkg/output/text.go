package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/sdejongh/cmpf/pkg/models"
)

// boxWidth is the inner width of the summary box
const boxWidth = 47

// TextOptions controls plain-text rendering
type TextOptions struct {
	Verbose bool
	Color   bool
}

type palette struct {
	match, diff, blue, errTag, dim, detail, border, title, label, magenta, green, red, yellow *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		match:   color.New(color.FgGreen),
		diff:    color.New(color.FgRed),
		blue:    color.New(color.FgBlue),
		errTag:  color.New(color.FgRed, color.BgWhite),
		dim:     color.New(color.Faint),
		detail:  color.New(color.FgCyan),
		border:  color.New(color.FgHiBlue),
		title:   color.New(color.Bold, color.FgHiYellow),
		label:   color.New(color.Bold, color.FgCyan),
		magenta: color.New(color.Bold, color.FgMagenta),
		green:   color.New(color.Bold, color.FgGreen),
		red:     color.New(color.Bold, color.FgRed),
		yellow:  color.New(color.Bold, color.FgYellow),
	}
	for _, c := range []*color.Color{p.match, p.diff, p.blue, p.errTag, p.dim, p.detail, p.border, p.title, p.label, p.magenta, p.green, p.red, p.yellow} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// TextWriter renders results line by line
type TextWriter struct {
	w    io.Writer
	opts TextOptions
	algo models.Algorithm
	p    *palette
}

// NewTextWriter creates a text renderer. algo selects which digests verbose lines show.
func NewTextWriter(w io.Writer, algo models.Algorithm, opts TextOptions) *TextWriter {
	return &TextWriter{w: w, opts: opts, algo: algo, p: newPalette(opts.Color)}
}

// Result writes one result line, plus detail lines in verbose mode
func (t *TextWriter) Result(r models.ComparisonResult) {
	var tag, name string
	switch r.Status {
	case models.StatusMatch:
		tag, name = t.p.match.Sprint(r.Status), t.p.match.Sprint(r.Path)
	case models.StatusDiff:
		tag, name = t.p.diff.Sprint(r.Status), t.p.diff.Sprint(r.Path)
	case models.StatusMissing, models.StatusExtra:
		tag, name = t.p.blue.Sprint(r.Status), t.p.blue.Sprint(r.Path)
	case models.StatusError:
		tag, name = t.p.errTag.Sprint(r.Status), t.p.diff.Sprint(r.Path)
	default:
		tag, name = string(r.Status), r.Path
	}
	fmt.Fprintf(t.w, "[%s]  %s\n", tag, name)

	if t.opts.Verbose {
		for _, line := range t.details(r) {
			fmt.Fprintf(t.w, "    %s\n", line)
		}
	}
}

func (t *TextWriter) details(r models.ComparisonResult) []string {
	pair := func(v1, v2 string) []string {
		return []string{
			t.p.dim.Sprint("folder1") + ": " + v1,
			t.p.dim.Sprint("folder2") + ": " + v2,
		}
	}

	switch r.Status {
	case models.StatusDiff:
		switch {
		case r.Hash1 != nil && r.Hash2 != nil:
			return pair(t.digest(*r.Hash1), t.digest(*r.Hash2))
		case r.Reason == models.ReasonLinkTarget || r.Reason == models.ReasonLinkType:
			return pair(t.link(r.Symlink1), t.link(r.Symlink2))
		case r.Size1 != nil && r.Size2 != nil && *r.Size1 != *r.Size2:
			return pair(t.p.detail.Sprintf("%d bytes", *r.Size1), t.p.detail.Sprintf("%d bytes", *r.Size2))
		case r.Modified1 != r.Modified2:
			return pair(t.p.detail.Sprint(r.Modified1), t.p.detail.Sprint(r.Modified2))
		}
	case models.StatusMatch:
		if r.Hash1 != nil {
			return []string{t.p.dim.Sprint("in_both") + ": " + t.digest(*r.Hash1)}
		}
	case models.StatusError:
		if r.Reason != "" {
			return []string{t.p.dim.Sprint("error") + ": " + r.Reason}
		}
	}
	return nil
}

func (t *TextWriter) link(target string) string {
	if target == "" {
		return t.p.detail.Sprint("(regular file)")
	}
	return "-> " + t.p.detail.Sprint(target)
}

func (t *TextWriter) digest(h models.HashResult) string {
	switch t.algo {
	case models.AlgoSHA256:
		return t.p.detail.Sprint(h.SHA256)
	case models.AlgoBLAKE3:
		return t.p.detail.Sprint(h.BLAKE3)
	default:
		return "sha256:" + t.p.detail.Sprint(h.SHA256) + "\n            blake3:" + t.p.detail.Sprint(h.BLAKE3)
	}
}

// WalkError writes a walk error attributed to one side
func (t *TextWriter) WalkError(e models.ErrorEntry, side string) {
	fmt.Fprintf(t.w, "[%s] %s (%s: %s)\n", t.p.errTag.Sprint("ERROR"), e.Path, side, e.Error)
}

// Summary writes the boxed run summary
func (t *TextWriter) Summary(r *Report) {
	algo := algorithmLabel(r.Algorithm)
	if r.Mode == models.ModeMetadata {
		algo = "Metadata"
	}

	lines := []string{
		t.p.border.Sprint("╔" + strings.Repeat("═", boxWidth) + "╗"),
		t.title("Summary"),
		t.p.border.Sprint("╠" + strings.Repeat("═", boxWidth) + "╣"),
		t.row("Mode", modeLabel(r.Mode), t.p.magenta),
		t.row("Algorithm", algo, t.p.magenta),
		t.row("Threads", fmt.Sprint(r.Workers), t.p.magenta),
		t.row("Total files checked", fmt.Sprint(r.Summary.Total), t.p.blue),
		t.row("Missing in Folder2", fmt.Sprint(r.Summary.Missing), t.p.blue),
		t.row("Extra in Folder2", fmt.Sprint(r.Summary.Extra), t.p.blue),
		t.row("Matches", fmt.Sprint(r.Summary.Matches), t.p.green),
		t.row("Differences", fmt.Sprint(r.Summary.Diffs), t.p.red),
	}
	if r.Summary.Errors > 0 {
		lines = append(lines, t.row("Errors", fmt.Sprint(r.Summary.Errors), t.p.red))
	}
	lines = append(lines,
		t.row("Time taken", formatElapsed(r.Summary.Elapsed), t.p.yellow),
		t.p.border.Sprint("╚"+strings.Repeat("═", boxWidth)+"╝"),
	)

	fmt.Fprintln(t.w)
	for _, l := range lines {
		fmt.Fprintln(t.w, l)
	}
}

func (t *TextWriter) title(s string) string {
	pad := boxWidth - utf8.RuneCountInString(s)
	left := pad / 2
	return t.p.border.Sprint("║") + strings.Repeat(" ", left) + t.p.title.Sprint(s) + strings.Repeat(" ", pad-left) + t.p.border.Sprint("║")
}

func (t *TextWriter) row(label, value string, valueColor *color.Color) string {
	plain := 2 + 22 + 3 + utf8.RuneCountInString(value)
	pad := boxWidth - plain
	if pad < 0 {
		pad = 0
	}
	return t.p.border.Sprint("║") + "  " + t.p.label.Sprintf("%-22s", label) + " : " +
		valueColor.Sprint(value) + strings.Repeat(" ", pad) + t.p.border.Sprint("║")
}

// WriteText renders a full report: walk errors, results, then the summary
func WriteText(w io.Writer, r *Report, opts TextOptions) {
	t := NewTextWriter(w, r.Algorithm, opts)
	for _, e := range r.Folder1Errors {
		t.WalkError(e, "folder1")
	}
	for _, e := range r.Folder2Errors {
		t.WalkError(e, "folder2")
	}
	for _, res := range r.Results {
		t.Result(res)
	}
	t.Summary(r)
}

func modeLabel(m models.Mode) string {
	switch m {
	case models.ModeRealtime:
		return "Realtime"
	case models.ModeBatch:
		return "Batch"
	case models.ModeMetadata:
		return "Metadata"
	default:
		return string(m)
	}
}

func algorithmLabel(a models.Algorithm) string {
	switch a {
	case models.AlgoSHA256:
		return "SHA256"
	case models.AlgoBLAKE3:
		return "BLAKE3"
	case models.AlgoBoth:
		return "Both"
	default:
		return string(a)
	}
}
