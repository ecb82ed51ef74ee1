package simtime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMicros(t *testing.T) {
	got, err := FromMicros(1500)
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), got.Micros())

	_, err = FromMicros(MaxMicros + 1)
	assert.ErrorIs(t, err, ErrPrecisionLoss)

	edge, err := FromMicros(MaxMicros)
	require.NoError(t, err)
	assert.Equal(t, MaxMicros, edge.Micros())
}

func TestFromSeconds(t *testing.T) {
	tests := []struct {
		name    string
		in      float64
		want    uint64
		wantErr error
	}{
		{"whole", 2, 2_000_000, nil},
		{"fractional", 1.5, 1_500_000, nil},
		{"sub-microsecond rounds", 0.0000014, 1, nil},
		{"zero", 0, 0, nil},
		{"negative", -1, 0, ErrInvalid},
		{"nan", math.NaN(), 0, ErrInvalid},
		{"infinite", math.Inf(1), 0, ErrInvalid},
		{"too large", float64(MaxMicros), 0, ErrPrecisionLoss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromSeconds(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Micros())
		})
	}
}

func TestAddMatchesIntegerAddition(t *testing.T) {
	values := []uint64{0, 1, 7, 1000, 999_999, 1 << 20, 1 << 40, MaxMicros / 3}
	for _, a := range values {
		for _, b := range values {
			ta, tb := MustMicros(a), MustMicros(b)

			ab, err := ta.Add(tb)
			require.NoError(t, err)
			ba, err := tb.Add(ta)
			require.NoError(t, err)

			assert.Equal(t, a+b, ab.Micros(), "%d+%d", a, b)
			assert.True(t, ab.Equal(ba), "commutative for %d,%d", a, b)
		}
	}
}

func TestAddAssociative(t *testing.T) {
	a, b, c := MustMicros(12), MustMicros(1<<30), MustMicros(987_654_321)

	left, err := a.MustAdd(b).Add(c)
	require.NoError(t, err)
	right, err := a.Add(b.MustAdd(c))
	require.NoError(t, err)

	assert.Equal(t, left, right)
	assert.Equal(t, uint64(12+(1<<30)+987_654_321), left.Micros())
}

func TestAddSignalsOutOfRange(t *testing.T) {
	t.Run("beyond mantissa range", func(t *testing.T) {
		_, err := MustMicros(MaxMicros).Add(MustMicros(1))
		assert.ErrorIs(t, err, ErrPrecisionLoss)
	})

	t.Run("uint64 wrap", func(t *testing.T) {
		// Only reachable through the unexported field; FromMicros refuses it.
		huge := Time{us: math.MaxUint64 - 1}
		_, err := huge.Add(MustMicros(10))
		assert.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("MustAdd panics", func(t *testing.T) {
		assert.Panics(t, func() { MustMicros(MaxMicros).MustAdd(MustMicros(MaxMicros)) })
	})
}

func TestAddHelpers(t *testing.T) {
	base := MustMicros(1_000_000)

	got, err := base.AddMicros(500)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_500), got.Micros())

	got, err = base.AddSeconds(0.25)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_250_000), got.Micros())
	assert.Equal(t, uint64(1250), got.Millis())

	_, err = base.AddSeconds(-1)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = base.AddMicros(MaxMicros)
	assert.ErrorIs(t, err, ErrPrecisionLoss)
}

func TestSubAndDiv(t *testing.T) {
	ten, three := MustMicros(10), MustMicros(3)

	d, err := ten.Sub(three)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), d.Micros())

	_, err = three.Sub(ten)
	assert.ErrorIs(t, err, ErrOverflow)

	q, err := ten.Div(three)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), q, "division discards the remainder")

	_, err = ten.Div(Zero)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestOrdering(t *testing.T) {
	a, b := MustMicros(5), MustMicros(9)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.NotAfter(a))
	assert.True(t, b.NotBefore(a))
	assert.False(t, a.Equal(b))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, a, Min(a, b))
	assert.True(t, Zero.IsZero())
}

func TestFedTimeRoundTrip(t *testing.T) {
	orig := MustMicros(123_456_789)
	back, err := FromFedTime(orig.FedTime())
	require.NoError(t, err)
	assert.Equal(t, orig, back)

	_, err = FromFedTime(-1)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = FromFedTime(float64(MaxMicros) * 2)
	assert.ErrorIs(t, err, ErrPrecisionLoss)
}

func TestString(t *testing.T) {
	assert.Equal(t, "1.5s", MustMicros(1_500_000).String())
	assert.Equal(t, "0s", Zero.String())
	assert.Equal(t, "0.0001s", MustMicros(100).String())
	assert.InDelta(t, 2.25, MustMicros(2_250_000).Seconds(), 1e-12)
}
