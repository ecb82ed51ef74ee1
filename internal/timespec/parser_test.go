package timespec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		text    string
		want    uint64
		wantErr bool
	}{
		{"100ms", 100_000, false},
		{"1.5s", 1_500_000, false},
		{"250us", 250, false},
		{"250µs", 250, false},
		{"1m30s", 90_000_000, false},
		{"2", 2_000_000, false},
		{"0.25", 250_000, false},
		{" 10ms ", 10_000, false},
		{"", 0, true},
		{"-1s", 0, true},
		{"-3", 0, true},
		{"soon", 0, true},
		{"1500ns", 0, true},
		{"2000ns", 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := Parse(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Micros())
		})
	}
}

func TestParseStep(t *testing.T) {
	step, end, err := ParseStep("100ms", "10s")
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), step.Micros())
	assert.Equal(t, uint64(10_000_000), end.Micros())

	_, _, err = ParseStep("0", "10s")
	assert.ErrorContains(t, err, "must be positive")

	_, _, err = ParseStep("2s", "1s")
	assert.ErrorContains(t, err, "shorter than timestep")

	_, _, err = ParseStep("1s", "never")
	assert.ErrorContains(t, err, "invalid time limit")
}
