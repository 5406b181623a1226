package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/sdejongh/cmpf/pkg/models"
)

// SyncWriter renders sync actions and the sync summary as text
type SyncWriter struct {
	w      io.Writer
	create *color.Color
	update *color.Color
	delete *color.Color
}

// NewSyncWriter creates a sync renderer
func NewSyncWriter(w io.Writer, colored bool) *SyncWriter {
	s := &SyncWriter{
		w:      w,
		create: color.New(color.FgGreen),
		update: color.New(color.FgYellow),
		delete: color.New(color.FgRed),
	}
	for _, c := range []*color.Color{s.create, s.update, s.delete} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// Action writes one action line. Dry-run actions read "Will create", applied ones "Created".
func (s *SyncWriter) Action(a models.SyncAction, applied bool) {
	var verb string
	var c *color.Color
	switch a.Kind {
	case models.ActionCreate:
		verb, c = "create", s.create
		if applied {
			verb = "Created"
		}
	case models.ActionUpdate:
		verb, c = "update", s.update
		if applied {
			verb = "Updated"
		}
	case models.ActionDelete:
		verb, c = "delete", s.delete
		if applied {
			verb = "Deleted"
		}
	default:
		verb, c = string(a.Kind), s.update
	}
	if !applied {
		verb = "Will " + verb
	}

	target := a.Path
	if a.SymlinkTarget != "" {
		target += " -> " + a.SymlinkTarget
	}
	fmt.Fprintf(s.w, "%s %s\n", c.Sprint(verb), target)
}

// Summary writes the sync counters
func (s *SyncWriter) Summary(sum *models.SyncSummary) {
	fmt.Fprintln(s.w)
	if sum.DryRun {
		fmt.Fprintln(s.w, "Dry run, no changes were made")
	}
	fmt.Fprintf(s.w, "Sync summary (%s)\n", formatElapsed(sum.Elapsed))
	fmt.Fprintf(s.w, "  Created:  %d\n", sum.Created)
	fmt.Fprintf(s.w, "  Updated:  %d\n", sum.Updated)
	fmt.Fprintf(s.w, "  Deleted:  %d\n", sum.Deleted)
	if !sum.DryRun {
		fmt.Fprintf(s.w, "  Applied:  %d of %d\n", sum.Applied, sum.Total())
		fmt.Fprintf(s.w, "  Data:     %s\n", formatBytes(copiedBytes(sum)))
	}
	if sum.Withheld > 0 {
		fmt.Fprintf(s.w, "  Kept:     %d (source unreadable)\n", sum.Withheld)
	}
	if sum.Errors > 0 {
		fmt.Fprintf(s.w, "  Errors:   %d\n", sum.Errors)
	}
}

// copiedBytes sums the sizes of the applied copy actions
func copiedBytes(sum *models.SyncSummary) int64 {
	var total int64
	for i, a := range sum.Actions {
		if i >= sum.Applied {
			break
		}
		if a.Kind != models.ActionDelete && a.SymlinkTarget == "" {
			total += a.Size
		}
	}
	return total
}

type jsonSyncReport struct {
	*models.SyncSummary
	TimeTaken string `json:"time_taken"`
}

// WriteSyncJSON writes the sync summary with its action list
func WriteSyncJSON(w io.Writer, sum *models.SyncSummary) error {
	doc := jsonSyncReport{SyncSummary: sum, TimeTaken: formatElapsed(sum.Elapsed)}
	if doc.Actions == nil {
		copied := *sum
		copied.Actions = []models.SyncAction{}
		doc.SyncSummary = &copied
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode sync report: %w", err)
	}
	return nil
}
