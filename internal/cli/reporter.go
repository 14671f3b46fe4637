// Package cli implements the thin command-line front-ends for the
// toolkit's five tools (spec §6.4): flag parsing, passphrase prompting,
// progress rendering, and the keyring/benchmark helpers every tool
// shares. Grounded in the teacher's internal/cli package, adapted from a
// single multi-subcommand binary to five separate-binary front-ends, one
// per cmd/ directory.
package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"wizardtoolkit/internal/util"
)

// Reporter implements util.ProgressReporter for terminal output,
// rendering a single overwritten progress line unless verbose is set, in
// which case every SetProgress call also emits its info string on its
// own line. Grounded in the teacher's internal/cli/reporter.go.
type Reporter struct {
	mu        sync.Mutex
	status    string
	progress  float32
	info      string
	quiet     bool
	verbose   bool
	cancelled atomic.Bool
	lastLine  int
}

// NewReporter creates a terminal progress reporter. quiet suppresses all
// progress output (errors still print); verbose prints one line per
// SetProgress call instead of overwriting a single progress bar.
func NewReporter(quiet, verbose bool) *Reporter {
	return &Reporter{quiet: quiet, verbose: verbose}
}

func (r *Reporter) SetStatus(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = text
}

func (r *Reporter) SetProgress(fraction float32, info string) {
	r.mu.Lock()
	r.progress = fraction
	r.info = info
	r.mu.Unlock()
	r.render()
}

func (r *Reporter) render() {
	if r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.verbose {
		fmt.Fprintf(os.Stderr, "%s: %.1f%% %s\n", r.status, r.progress*100, r.info)
		return
	}

	const barWidth = 30
	filled := min(int(r.progress*float32(barWidth)), barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	line := fmt.Sprintf("\r[%s] %.1f%% | %s | %s", bar, r.progress*100, r.info, r.status)
	if len(line) < r.lastLine {
		line += strings.Repeat(" ", r.lastLine-len(line))
	}
	r.lastLine = len(line)
	fmt.Fprint(os.Stderr, line)
}

func (r *Reporter) IsCancelled() bool { return r.cancelled.Load() }

// Cancel marks the operation cancelled; the running pipeline notices on
// its next IsCancelled check and unwinds with errkind.ErrCancelled.
func (r *Reporter) Cancel() { r.cancelled.Store(true) }

// Finish moves the cursor past the progress line.
func (r *Reporter) Finish() {
	if !r.quiet && !r.verbose {
		fmt.Fprintln(os.Stderr)
	}
}

func (r *Reporter) PrintError(format string, args ...any) {
	r.mu.Lock()
	hadLine := r.lastLine > 0
	r.mu.Unlock()
	if !r.quiet && hadLine {
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

func (r *Reporter) PrintSuccess(format string, args ...any) {
	if r.quiet {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

var _ util.ProgressReporter = (*Reporter)(nil)
