// Package output renders comparison, verification and sync results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/cmpf/pkg/models"
)

// Format selects the report serialization
type Format string

const (
	FormatText Format = "txt"
	FormatJSON Format = "json"
)

// ParseFormat parses an output format name
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, "text":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", &models.ValidationError{
		Field:   "output_format",
		Message: fmt.Sprintf("invalid output format %q (valid: txt, json)", s),
	}
}

// Report is everything a rendering needs about one comparison run
type Report struct {
	RunID         string
	Mode          models.Mode
	Algorithm     models.Algorithm
	Workers       int
	Summary       models.Summary
	Folder1Errors []models.ErrorEntry
	Folder2Errors []models.ErrorEntry
	Results       []models.ComparisonResult
}

type jsonSummary struct {
	models.Summary
	TimeTaken string `json:"time_taken"`
}

type jsonReport struct {
	RunID         string                    `json:"run_id,omitempty"`
	Summary       jsonSummary               `json:"summary"`
	Folder1Errors []models.ErrorEntry       `json:"folder1_errors"`
	Folder2Errors []models.ErrorEntry       `json:"folder2_errors"`
	Results       []models.ComparisonResult `json:"results"`
}

// WriteJSON writes the structured report document
func WriteJSON(w io.Writer, r *Report) error {
	doc := jsonReport{
		RunID:         r.RunID,
		Summary:       jsonSummary{Summary: r.Summary, TimeTaken: formatElapsed(r.Summary.Elapsed)},
		Folder1Errors: nonNil(r.Folder1Errors),
		Folder2Errors: nonNil(r.Folder2Errors),
		Results:       r.Results,
	}
	if doc.Results == nil {
		doc.Results = []models.ComparisonResult{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func nonNil(errs []models.ErrorEntry) []models.ErrorEntry {
	if errs == nil {
		return []models.ErrorEntry{}
	}
	return errs
}

// ReportPath returns the file name a report gets inside an output folder
func ReportPath(folder string, format Format, now time.Time) string {
	return filepath.Join(folder, fmt.Sprintf("report_%s.%s", now.Format("20060102_150405"), format))
}

// WriteToFolder creates folder if needed and writes a report file into it
func WriteToFolder(folder string, format Format, render func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %w", err)
	}

	path := ReportPath(folder, format, time.Now())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}

	if err := render(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// formatElapsed renders a duration with two decimals in the largest fitting unit
func formatElapsed(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%dm%.2fs", int(d.Minutes()), (d % time.Minute).Seconds())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fµs", float64(d)/float64(time.Microsecond))
	}
}
