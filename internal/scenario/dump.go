package scenario

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dyluth/lockstep/pkg/simtime"
)

var dumpHeader = []string{"step", "time", "instance", "attribute", "value"}

// Recorder writes produced and consumed values as CSV rows. Either side may
// be absent. A nil *Recorder records nothing.
type Recorder struct {
	prod, conso *csv.Writer
	closers     []io.Closer
}

// NewRecorder writes to the given writers; a nil writer disables that side.
func NewRecorder(prod, conso io.Writer) (*Recorder, error) {
	r := &Recorder{}
	if prod != nil {
		r.prod = csv.NewWriter(prod)
		if err := r.prod.Write(dumpHeader); err != nil {
			return nil, err
		}
	}
	if conso != nil {
		r.conso = csv.NewWriter(conso)
		if err := r.conso.Write(dumpHeader); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// OpenRecorder creates the dump files. Empty paths are skipped; when both
// are empty it returns nil.
func OpenRecorder(prodPath, consoPath string) (*Recorder, error) {
	if prodPath == "" && consoPath == "" {
		return nil, nil
	}
	var prod, conso *os.File
	var err error
	if prodPath != "" {
		if prod, err = os.Create(prodPath); err != nil {
			return nil, fmt.Errorf("failed to create produced dump: %w", err)
		}
	}
	if consoPath != "" {
		if conso, err = os.Create(consoPath); err != nil {
			if prod != nil {
				prod.Close()
			}
			return nil, fmt.Errorf("failed to create consumed dump: %w", err)
		}
	}

	r, err := NewRecorder(writerOrNil(prod), writerOrNil(conso))
	if err != nil {
		return nil, err
	}
	if prod != nil {
		r.closers = append(r.closers, prod)
	}
	if conso != nil {
		r.closers = append(r.closers, conso)
	}
	return r, nil
}

// writerOrNil keeps a nil *os.File from becoming a non-nil io.Writer.
func writerOrNil(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}

func row(step uint64, t simtime.Time, instance, attribute, value string) []string {
	return []string{strconv.FormatUint(step, 10), t.String(), instance, attribute, value}
}

func (r *Recorder) produced(step uint64, t simtime.Time, instance, attribute, value string) error {
	if r == nil || r.prod == nil {
		return nil
	}
	return r.prod.Write(row(step, t, instance, attribute, value))
}

func (r *Recorder) consumed(step uint64, t simtime.Time, instance, attribute, value string) error {
	if r == nil || r.conso == nil {
		return nil
	}
	return r.conso.Write(row(step, t, instance, attribute, value))
}

// Flush writes buffered rows.
func (r *Recorder) Flush() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, w := range []*csv.Writer{r.prod, r.conso} {
		if w != nil {
			w.Flush()
			errs = append(errs, w.Error())
		}
	}
	return errors.Join(errs...)
}

// Close flushes and closes any files opened by OpenRecorder.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	errs := []error{r.Flush()}
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
