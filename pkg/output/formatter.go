package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/cmpf/pkg/models"
)

// Formatter receives a comparison run as it happens
type Formatter interface {
	// Result reports one classified path
	Result(r models.ComparisonResult)

	// WalkError reports a collection error on side "folder1" or "folder2"
	WalkError(e models.ErrorEntry, side string)

	// Complete writes whatever remains once the run is over
	Complete(r *Report) error

	// Name returns the formatter name
	Name() string
}

// NewFormatter creates the formatter for format writing to w
func NewFormatter(format Format, w io.Writer, algo models.Algorithm, opts TextOptions) (Formatter, error) {
	switch format {
	case FormatText:
		return NewTextFormatter(w, algo, opts), nil
	case FormatJSON:
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// TextFormatter prints every result immediately
type TextFormatter struct {
	text *TextWriter
}

// NewTextFormatter creates a streaming text formatter
func NewTextFormatter(w io.Writer, algo models.Algorithm, opts TextOptions) *TextFormatter {
	return &TextFormatter{text: NewTextWriter(w, algo, opts)}
}

func (f *TextFormatter) Result(r models.ComparisonResult) {
	f.text.Result(r)
}

func (f *TextFormatter) WalkError(e models.ErrorEntry, side string) {
	f.text.WalkError(e, side)
}

func (f *TextFormatter) Complete(r *Report) error {
	f.text.Summary(r)
	return nil
}

func (f *TextFormatter) Name() string {
	return "text"
}

// JSONFormatter buffers the run and writes one document on completion
type JSONFormatter struct {
	w       io.Writer
	results []models.ComparisonResult
	errors1 []models.ErrorEntry
	errors2 []models.ErrorEntry
}

// NewJSONFormatter creates a buffering JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{w: w}
}

func (f *JSONFormatter) Result(r models.ComparisonResult) {
	f.results = append(f.results, r)
}

func (f *JSONFormatter) WalkError(e models.ErrorEntry, side string) {
	if side == "folder2" {
		f.errors2 = append(f.errors2, e)
		return
	}
	f.errors1 = append(f.errors1, e)
}

// Complete writes the document. Results and errors in r take precedence
// over those the formatter collected.
func (f *JSONFormatter) Complete(r *Report) error {
	doc := *r
	if doc.Results == nil {
		doc.Results = f.results
	}
	if doc.Folder1Errors == nil {
		doc.Folder1Errors = f.errors1
	}
	if doc.Folder2Errors == nil {
		doc.Folder2Errors = f.errors2
	}
	return WriteJSON(f.w, &doc)
}

func (f *JSONFormatter) Name() string {
	return "json"
}
