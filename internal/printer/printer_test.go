package printer

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/lockstep/internal/lp"
	"github.com/dyluth/lockstep/pkg/simtime"
)

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title when including suggestions", func(t *testing.T) {
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title for multiple suggestions", func(t *testing.T) {
		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})
}

func TestErrorWithContext(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		context := map[string]string{
			"Federation": "seaplanes",
			"Instance":   "test-instance",
		}
		err := ErrorWithContext("Test Error", "Explanation", context, []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title when including suggestions", func(t *testing.T) {
		context := map[string]string{"Key": "Value"}
		err := ErrorWithContext("Test Error", "Explanation", context, []string{"Fix it"})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})
}

// Note: The Error and ErrorWithContext functions print formatted output to stderr
// with colors. The error object returned only contains the title for Cobra's error handling.
// This is intentional to avoid duplicate output while providing rich formatted errors.

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	restore := SetOutput(&stdout, &stderr)
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		restore()
		color.NoColor = noColor
	})
	return &stdout, &stderr
}

func TestErrorOutput(t *testing.T) {
	_, stderr := capture(t)
	_ = ErrorWithContext("Federation not found", "No execution named 'seaplanes'.",
		map[string]string{"Instance": "default"},
		[]string{"Start the federation server: lockstep rtig", "Check the federation name"})

	out := stderr.String()
	require.Contains(t, out, "Federation not found")
	require.Contains(t, out, "  Instance: default")
	require.Contains(t, out, "Either:\n  1. Start the federation server: lockstep rtig\n  2. Check the federation name")
}

func TestProgressAndSummary(t *testing.T) {
	stdout, _ := capture(t)
	Progress("plane", 5, simtime.MustMicros(500_000), simtime.MustMicros(1_000_000))
	require.Contains(t, stdout.String(), "plane")
	require.Contains(t, stdout.String(), "0.5s / 1s")
	require.Contains(t, stdout.String(), "50.0%")

	stdout.Reset()
	Summary("plane", lp.Stats{Steps: 10, Updates: 10, Reflections: 3, Discovered: 1, Elapsed: 1234 * time.Millisecond})
	require.Contains(t, stdout.String(), "✓ plane: simulation ended in 1.234s (10 steps, 10 updates sent, 3 reflections received, 1 instances discovered)")
}

func TestPrefixesAreNotDoubled(t *testing.T) {
	stdout, _ := capture(t)
	Success("✓ done\n")
	Warning("careful\n")
	require.Equal(t, "✓ done\n⚠️  careful\n", stdout.String())
}
