package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Reporter displays build stage updates while the status loop runs.
type Reporter interface {
	// Stage reports the stage text observed after elapsed time.
	Stage(elapsed time.Duration, stage string)
	// Finish terminates the display.
	Finish()
}

// New returns an AppendReporter when preserve is set or out is not a
// terminal, and a LineReporter otherwise.
func New(out io.Writer, preserve bool) Reporter {
	if out == nil {
		out = os.Stdout
	}
	if preserve || !IsTerminal(out) {
		return NewAppendReporter(out)
	}
	return NewLineReporter(out)
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// LineReporter redraws a single line in place using a carriage return.
type LineReporter struct {
	out io.Writer

	mu      sync.Mutex
	maxLen  int
	printed bool
}

// NewLineReporter creates a reporter that overwrites its previous output.
func NewLineReporter(out io.Writer) *LineReporter {
	return &LineReporter{out: out, maxLen: 1}
}

// Stage redraws the status line, padding over any longer previous line.
func (r *LineReporter) Stage(elapsed time.Duration, stage string) {
	line := FormatStage(elapsed, stage)

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(line) > r.maxLen {
		r.maxLen = len(line)
	}
	fmt.Fprintf(r.out, "\r%s%s", line, strings.Repeat(" ", r.maxLen-len(line)))
	r.printed = true
}

// Finish moves the cursor past the status line.
func (r *LineReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.printed {
		fmt.Fprintln(r.out)
		r.printed = false
	}
}

// AppendReporter prints every update on its own line.
type AppendReporter struct {
	out io.Writer
	mu  sync.Mutex
}

// NewAppendReporter creates a reporter that preserves the full status log.
func NewAppendReporter(out io.Writer) *AppendReporter {
	return &AppendReporter{out: out}
}

func (r *AppendReporter) Stage(elapsed time.Duration, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, FormatStage(elapsed, stage))
}

func (r *AppendReporter) Finish() {}

// FormatStage renders one status line, e.g. "[00:01:30] Stage: compiling".
func FormatStage(elapsed time.Duration, stage string) string {
	return fmt.Sprintf("%s Stage: %s", FormatElapsed(elapsed), stage)
}

// FormatElapsed renders a duration as [hh:mm:ss], truncated to seconds.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("[%02d:%02d:%02d]", h, m, s)
}

// FormatBytes formats bytes as a human-readable string.
func FormatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
