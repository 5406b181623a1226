package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/sdejongh/cmpf/pkg/logging"
)

// diffTool launches an external diff program for differing files.
// Launches do not block the comparison; Wait collects the processes.
type diffTool struct {
	name   string
	args   []string
	stdout io.Writer
	stderr io.Writer
	logger logging.Logger

	mu    sync.Mutex
	procs []*exec.Cmd
}

// lockedWriter serializes writes from concurrently running children
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// newDiffTool splits command on whitespace. An empty command yields nil.
func newDiffTool(command string, stdout, stderr io.Writer, logger logging.Logger) *diffTool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}

	var out sync.Mutex
	d := &diffTool{
		name:   fields[0],
		args:   fields[1:],
		logger: logger,
	}
	if stdout != nil {
		d.stdout = lockedWriter{mu: &out, w: stdout}
	}
	if stderr != nil {
		d.stderr = lockedWriter{mu: &out, w: stderr}
	}
	return d
}

// Launch starts the program with both file paths appended to its arguments.
// Failures are logged and never abort the comparison.
func (d *diffTool) Launch(ctx context.Context, path1, path2 string) {
	if d == nil {
		return
	}

	args := append(append([]string{}, d.args...), path1, path2)
	if d.stderr != nil {
		fmt.Fprintf(d.stderr, "Launching diff: %s %s\n", d.name, strings.Join(args, " "))
	}

	cmd := exec.Command(d.name, args...)
	cmd.Stdout = d.stdout
	cmd.Stderr = d.stderr
	if err := cmd.Start(); err != nil {
		d.logger.Error(ctx, "Failed to launch diff command", err, logging.Fields{
			"command": d.name,
			"file1":   path1,
			"file2":   path2,
		})
		return
	}

	d.mu.Lock()
	d.procs = append(d.procs, cmd)
	d.mu.Unlock()
}

// Wait waits for every launched process and returns how many exited with an error
func (d *diffTool) Wait(ctx context.Context) int {
	if d == nil {
		return 0
	}

	d.mu.Lock()
	procs := d.procs
	d.procs = nil
	d.mu.Unlock()

	failed := 0
	for _, cmd := range procs {
		if err := cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
				// diff programs exit 1 when the files differ
				continue
			}
			failed++
			d.logger.Warn(ctx, "Diff command failed", logging.Fields{"command": d.name, "error": err.Error()})
		}
	}
	return failed
}
