// Package scenario turns the objects section of a federate file into a
// populated object model and a local computation that drives it.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dyluth/lockstep/internal/config"
	"github.com/dyluth/lockstep/internal/lp"
	"github.com/dyluth/lockstep/pkg/fom"
)

// producer advances one published attribute every step.
type producer struct {
	instance string
	attr     *fom.Attribute
	kind     fom.Kind
	rate     float64
}

// consumer reads one subscribed attribute when a fresh value arrived.
type consumer struct {
	instance string
	attr     *fom.Attribute
	kind     fom.Kind
}

// Scenario owns the model built from a federate file and computes the
// published values step by step.
type Scenario struct {
	model     *fom.Model
	producers []producer
	consumers []consumer
	recorder  *Recorder
	consumed  uint64
}

// Build allocates one attribute per declared attribute, binds it to its
// instance and applies the initial values. Initial values of subscribed
// attributes are not fresh: only reflections are.
func Build(objects config.ObjectsSection) (*Scenario, error) {
	s := &Scenario{model: fom.NewModel()}

	for _, obj := range objects.Published {
		inst := s.model.NewPublished(obj.Name, s.model.ObjectClass(obj.Class))
		for _, ac := range obj.Attributes {
			a, kind, err := s.attribute(obj.Name, ac)
			if err != nil {
				return nil, err
			}
			if err := inst.AddAttribute(a); err != nil {
				return nil, err
			}
			s.producers = append(s.producers, producer{instance: obj.Name, attr: a, kind: kind, rate: ac.Rate})
		}
	}

	for _, obj := range objects.Subscribed {
		inst := s.model.NewSubscribed(obj.Name, s.model.ObjectClass(obj.Class))
		for _, ac := range obj.Attributes {
			a, kind, err := s.attribute(obj.Name, ac)
			if err != nil {
				return nil, err
			}
			if err := inst.AddAttribute(a); err != nil {
				return nil, err
			}
			discard(a, kind)
			s.consumers = append(s.consumers, consumer{instance: obj.Name, attr: a, kind: kind})
		}
	}
	return s, nil
}

func (s *Scenario) attribute(instance string, ac config.AttributeConfig) (*fom.Attribute, fom.Kind, error) {
	kind, err := fom.ParseKind(ac.Kind)
	if err != nil {
		return nil, fom.KindUnset, fmt.Errorf("object '%s' attribute '%s': %w", instance, ac.Name, err)
	}
	a := s.model.NewAttribute(ac.Name)
	switch kind {
	case fom.KindInt:
		a.SetInt(int32(math.Round(ac.Initial)))
	case fom.KindFloat:
		a.SetFloat(ac.Initial)
	case fom.KindBool:
		a.SetBool(ac.Initial != 0)
	}
	return a, kind, nil
}

func discard(a *fom.Attribute, kind fom.Kind) {
	switch kind {
	case fom.KindInt:
		_, _ = a.FreshInt()
	case fom.KindBool:
		_, _ = a.FreshBool()
	default:
		_, _ = a.FreshFloat()
	}
}

// Model returns the object model to hand to the logical processor.
func (s *Scenario) Model() *fom.Model { return s.model }

// Consumed returns how many fresh values Compute has read.
func (s *Scenario) Consumed() uint64 { return s.consumed }

// Record sends produced and consumed values to r. A nil recorder disables
// recording.
func (s *Scenario) Record(r *Recorder) { s.recorder = r }

// Compute is the local computation of one step. It reads the fresh
// subscribed values, then advances each published attribute by rate times
// the timestep: floats linearly, ints by the rounded increment, and bools
// toggle when the rate is non-zero.
func (s *Scenario) Compute(ctx context.Context, p *lp.Processor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := p.LocalTime()
	step := p.StepNumber()

	for _, c := range s.consumers {
		value, err := freshString(c.attr, c.kind)
		if errors.Is(err, fom.ErrNoFreshValue) {
			continue
		}
		if err != nil {
			return err
		}
		s.consumed++
		if err := s.recorder.consumed(step, now, c.instance, c.attr.Name(), value); err != nil {
			return err
		}
	}

	seconds := p.Options().Timestep.Seconds()
	for _, pr := range s.producers {
		if pr.rate != 0 {
			switch pr.kind {
			case fom.KindInt:
				pr.attr.SetInt(pr.attr.Int() + int32(math.Round(pr.rate*seconds)))
			case fom.KindFloat:
				pr.attr.SetFloat(pr.attr.Float() + pr.rate*seconds)
			case fom.KindBool:
				pr.attr.SetBool(!pr.attr.Bool())
			}
		}
		if err := s.recorder.produced(step, now, pr.instance, pr.attr.Name(), pr.attr.String()); err != nil {
			return err
		}
	}
	return nil
}

// Computation adapts Compute to lp.Options.Compute.
func (s *Scenario) Computation() lp.LocalComputation { return s.Compute }

func freshString(a *fom.Attribute, kind fom.Kind) (string, error) {
	switch kind {
	case fom.KindInt:
		v, err := a.FreshInt()
		return fmt.Sprintf("%d", v), err
	case fom.KindBool:
		v, err := a.FreshBool()
		return fmt.Sprintf("%t", v), err
	}
	v, err := a.FreshFloat()
	return fmt.Sprintf("%g", v), err
}
