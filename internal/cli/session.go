package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/cmpf/pkg/collector"
	"github.com/sdejongh/cmpf/pkg/config"
	"github.com/sdejongh/cmpf/pkg/logging"
	"github.com/sdejongh/cmpf/pkg/models"
	"github.com/sdejongh/cmpf/pkg/output"
	"github.com/sdejongh/cmpf/pkg/pool"
)

// session holds what one command invocation shares across its stages
type session struct {
	cfg    *config.Config
	logger logging.Logger
	pool   *pool.Pool

	stdout io.Writer
	stderr io.Writer
	// text applies to reports written to stdout
	text output.TextOptions
	// progress enables the progress bar on stderr
	progress bool
}

// newSession loads the configuration for cmd and wires the shared stages to the process streams
func newSession(cmd *cobra.Command, f *GlobalFlags) (*session, error) {
	cfg, err := prepareConfig(cmd, f)
	if err != nil {
		return nil, err
	}

	p, err := newPool(cfg)
	if err != nil {
		return nil, err
	}

	logger, err := createLogger(cfg.Logging, cfg.Output.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &session{
		cfg:      cfg,
		logger:   logger,
		pool:     p,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		text:     textOptions(cfg, os.Stdout),
		progress: cfg.Output.Progress && output.IsTerminal(os.Stderr),
	}, nil
}

// Close releases the logger
func (s *session) Close() error {
	return s.logger.Close()
}

// exit closes the session and terminates the process with the status code
func (s *session) exit(status models.ExitStatus) {
	s.Close()
	os.Exit(status.Code())
}

// newCollector creates a collector for the configured scan filters
func (s *session) newCollector() (*collector.Collector, error) {
	return collector.New(collectorOptions(s.cfg), s.pool, s.logger)
}

// sides holds the two inventories of a two-root operation
type sides struct {
	inv1, inv2   models.Inventory
	errs1, errs2 []models.ErrorEntry
}

// collectBoth walks both roots concurrently
func (s *session) collectBoth(ctx context.Context, root1, root2 string) (*sides, error) {
	c, err := s.newCollector()
	if err != nil {
		return nil, err
	}

	var out sides
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.inv1, out.errs1, err = c.Collect(gctx, root1)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", root1, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		out.inv2, out.errs2, err = c.Collect(gctx, root2)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", root2, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// report runs render against stdout, or against a new report file when an
// output folder is configured. Reports written to a file are never colored.
func (s *session) report(format output.Format, render func(w io.Writer, text output.TextOptions) error) error {
	if s.cfg.Output.Folder == "" {
		return render(s.stdout, s.text)
	}

	text := s.text
	text.Color = false
	path, err := output.WriteToFolder(s.cfg.Output.Folder, format, func(w io.Writer) error {
		return render(w, text)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.stderr, "Report written to: %s\n", path)
	return nil
}

// outputFormat returns the configured report format
func (s *session) outputFormat() output.Format {
	format, err := output.ParseFormat(s.cfg.Output.Format)
	if err != nil {
		return output.FormatText
	}
	return format
}
