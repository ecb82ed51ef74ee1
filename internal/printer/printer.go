package printer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/dyluth/lockstep/internal/lp"
	"github.com/dyluth/lockstep/pkg/simtime"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	// Color definitions
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)

	mu     sync.Mutex
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// SetOutput redirects normal and error output, returning a function that
// restores the previous writers.
func SetOutput(w, ew io.Writer) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	prevOut, prevErr := out, errOut
	out, errOut = w, ew
	return func() {
		mu.Lock()
		defer mu.Unlock()
		out, errOut = prevOut, prevErr
	}
}

func emit(c *color.Color, w func() io.Writer, s string) {
	mu.Lock()
	defer mu.Unlock()
	if c == nil {
		fmt.Fprint(w(), s)
		return
	}
	c.Fprint(w(), s)
}

func stdout() io.Writer { return out }
func stderr() io.Writer { return errOut }

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	emit(green, stdout, msg)
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	emit(nil, stdout, fmt.Sprintf(format, a...))
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	emit(yellow, stdout, msg)
}

// Error creates a formatted error message with title, explanation, and suggestions
// Prints the formatted error to stderr with colors and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext creates a formatted error with context details
// Prints the formatted error to stderr with colors and returns a simple error for Cobra
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	var b strings.Builder
	if explanation != "" {
		fmt.Fprintf(&b, "%s\n", explanation)
	}

	// Print context details
	if len(context) > 0 {
		b.WriteString("\n")
		for key, value := range context {
			fmt.Fprintf(&b, "  %s: %s\n", key, value)
		}
	}

	// Print suggestions
	if len(suggestions) > 0 {
		b.WriteString("\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(&b, "%s\n", suggestions[0])
		} else {
			b.WriteString("Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(&b, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	emit(red, stderr, title+"\n\n")
	emit(nil, stderr, b.String())

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	emit(cyan, stdout, "→ "+fmt.Sprintf(format, a...))
}

// Progress prints one line per simulation step of a federate.
func Progress(federate string, step uint64, now, limit simtime.Time) {
	pct := 100.0
	if !limit.IsZero() {
		pct = 100 * now.Seconds() / limit.Seconds()
	}
	emit(faint, stdout, fmt.Sprintf("  %-12s step %-6d %10s / %-10s %5.1f%%\n", federate, step, now, limit, pct))
}

// Summary prints the statistics of a finished run.
func Summary(federate string, s lp.Stats) {
	Success("%s: simulation ended in %s (%d steps, %d updates sent, %d reflections received, %d instances discovered)\n",
		federate, s.Elapsed.Round(time.Millisecond), s.Steps, s.Updates, s.Reflections, s.Discovered)
}

// Println prints a plain message (for output that doesn't need coloring)
func Println(a ...any) {
	emit(nil, stdout, fmt.Sprintln(a...))
}

// Printf prints a plain formatted message (for output that doesn't need coloring)
func Printf(format string, a ...any) {
	emit(nil, stdout, fmt.Sprintf(format, a...))
}
