// Package simtime provides the simulated time value shared by every
// federate: an unsigned microsecond count whose arithmetic is checked so it
// never silently wraps or drifts past the range a float64 timestamp can
// represent exactly.
package simtime

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// MaxMicros is the largest microsecond count that survives a round trip
// through a float64 timestamp without losing precision (2^53).
const MaxMicros uint64 = 1 << 53

var (
	// ErrOverflow is returned when an operation wraps the uint64 range.
	ErrOverflow = errors.New("simtime: overflow")

	// ErrPrecisionLoss is returned when a result exceeds MaxMicros.
	ErrPrecisionLoss = errors.New("simtime: value exceeds float64-exact range")

	// ErrInvalid is returned for negative, NaN or infinite inputs.
	ErrInvalid = errors.New("simtime: invalid value")
)

// Time is a microsecond-resolution duration or timestamp.
// The zero value is time zero. Time is a value type and is copied freely.
type Time struct {
	us uint64
}

// Zero is the start of simulated time.
var Zero = Time{}

// FromMicros builds a Time from a microsecond count.
func FromMicros(us uint64) (Time, error) {
	if us > MaxMicros {
		return Time{}, fmt.Errorf("%d us: %w", us, ErrPrecisionLoss)
	}
	return Time{us: us}, nil
}

// MustMicros is FromMicros for constants; it panics on error.
func MustMicros(us uint64) Time {
	t, err := FromMicros(us)
	if err != nil {
		panic(err)
	}
	return t
}

// FromSeconds builds a Time from fractional seconds, rounded to the nearest
// microsecond.
func FromSeconds(s float64) (Time, error) {
	if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
		return Time{}, fmt.Errorf("%v s: %w", s, ErrInvalid)
	}
	us := math.Round(s * 1e6)
	if us > float64(MaxMicros) {
		return Time{}, fmt.Errorf("%v s: %w", s, ErrPrecisionLoss)
	}
	return Time{us: uint64(us)}, nil
}

// FromFedTime converts the federation service's float64 microsecond clock.
func FromFedTime(ft float64) (Time, error) {
	if math.IsNaN(ft) || math.IsInf(ft, 0) || ft < 0 {
		return Time{}, fmt.Errorf("federation time %v: %w", ft, ErrInvalid)
	}
	if ft > float64(MaxMicros) {
		return Time{}, fmt.Errorf("federation time %v: %w", ft, ErrPrecisionLoss)
	}
	return Time{us: uint64(math.Round(ft))}, nil
}

// Add returns t+o. It fails with ErrOverflow if the sum wraps and with
// ErrPrecisionLoss if it exceeds MaxMicros.
func (t Time) Add(o Time) (Time, error) {
	sum := t.us + o.us
	if sum < t.us {
		return Time{}, fmt.Errorf("%s + %s: %w", t, o, ErrOverflow)
	}
	if sum > MaxMicros {
		return Time{}, fmt.Errorf("%s + %s: %w", t, o, ErrPrecisionLoss)
	}
	return Time{us: sum}, nil
}

// MustAdd is Add for setup paths where the operands are known to be small.
func (t Time) MustAdd(o Time) Time {
	sum, err := t.Add(o)
	if err != nil {
		panic(err)
	}
	return sum
}

// AddMicros returns t plus us microseconds, checked like Add.
func (t Time) AddMicros(us uint64) (Time, error) {
	o, err := FromMicros(us)
	if err != nil {
		return Time{}, err
	}
	return t.Add(o)
}

// AddSeconds returns t plus s seconds, checked like Add.
func (t Time) AddSeconds(s float64) (Time, error) {
	o, err := FromSeconds(s)
	if err != nil {
		return Time{}, err
	}
	return t.Add(o)
}

// Sub returns t-o, or ErrOverflow if o is after t.
func (t Time) Sub(o Time) (Time, error) {
	if o.us > t.us {
		return Time{}, fmt.Errorf("%s - %s: %w", t, o, ErrOverflow)
	}
	return Time{us: t.us - o.us}, nil
}

// Div returns the integer quotient t/o, rounded down.
//
// Division is lossy: the remainder is discarded. Do not use it to derive
// times that are later fed back into a time-advance request.
func (t Time) Div(o Time) (uint64, error) {
	if o.us == 0 {
		return 0, fmt.Errorf("%s / 0: %w", t, ErrInvalid)
	}
	return t.us / o.us, nil
}

// Compare returns -1, 0 or +1.
func (t Time) Compare(o Time) int {
	switch {
	case t.us < o.us:
		return -1
	case t.us > o.us:
		return 1
	}
	return 0
}

func (t Time) Before(o Time) bool    { return t.us < o.us }
func (t Time) After(o Time) bool     { return t.us > o.us }
func (t Time) Equal(o Time) bool     { return t.us == o.us }
func (t Time) NotAfter(o Time) bool  { return t.us <= o.us }
func (t Time) NotBefore(o Time) bool { return t.us >= o.us }
func (t Time) IsZero() bool          { return t.us == 0 }

// Micros returns the raw microsecond count.
func (t Time) Micros() uint64 { return t.us }

// Seconds returns t in fractional seconds.
func (t Time) Seconds() float64 { return float64(t.us) / 1e6 }

// Millis returns t in whole milliseconds, rounded down.
func (t Time) Millis() uint64 { return t.us / 1000 }

// FedTime returns t on the federation service's float64 microsecond clock.
// Exact because t never exceeds MaxMicros.
func (t Time) FedTime() float64 { return float64(t.us) }

// String renders t in seconds, e.g. "1.5s".
func (t Time) String() string {
	return strconv.FormatFloat(t.Seconds(), 'f', -1, 64) + "s"
}

// Min returns the earlier of a and b.
func Min(a, b Time) Time {
	if a.us <= b.us {
		return a
	}
	return b
}
