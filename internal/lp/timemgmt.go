package lp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dyluth/lockstep/pkg/rti"
	"github.com/dyluth/lockstep/pkg/simtime"
)

func fedTime(t simtime.Time) rti.FedTime { return rti.FedTime(t.FedTime()) }

func (p *Processor) enableTimeRegulation(ctx context.Context) error {
	p.regulation = CapabilityRequested
	if err := p.amb.EnableTimeRegulation(ctx, fedTime(p.localTime), fedTime(p.opts.Lookahead)); err != nil {
		p.regulation = CapabilityOff
		return fmt.Errorf("failed to enable time regulation: %w", err)
	}
	return p.pumpUntil(ctx, "time regulation", func() bool { return p.regulation == CapabilityEnabled })
}

func (p *Processor) enableTimeConstrained(ctx context.Context) error {
	p.constraint = CapabilityRequested
	if err := p.amb.EnableTimeConstrained(ctx); err != nil {
		p.constraint = CapabilityOff
		return fmt.Errorf("failed to enable time constrained: %w", err)
	}
	return p.pumpUntil(ctx, "time constrained", func() bool { return p.constraint == CapabilityEnabled })
}

func (p *Processor) disableTimeRegulation(ctx context.Context) error {
	if err := p.amb.DisableTimeRegulation(ctx); err != nil {
		return fmt.Errorf("failed to disable time regulation: %w", err)
	}
	p.regulation = CapabilityOff
	return nil
}

func (p *Processor) disableTimeConstrained(ctx context.Context) error {
	if err := p.amb.DisableTimeConstrained(ctx); err != nil {
		return fmt.Errorf("failed to disable time constrained: %w", err)
	}
	p.constraint = CapabilityOff
	return nil
}

// timeAdvanceRequest asks for localTime+delta and pumps until granted. The
// grant callback sets the new local time.
func (p *Processor) timeAdvanceRequest(ctx context.Context, delta simtime.Time) error {
	target, err := p.localTime.Add(delta)
	if err != nil {
		return fmt.Errorf("time advance request: %w", err)
	}
	p.advance = AdvanceRequested
	if err := p.amb.TimeAdvanceRequest(ctx, fedTime(target)); err != nil {
		p.advance = AdvanceIdle
		return fmt.Errorf("time advance request to %s: %w", target, err)
	}
	if err := p.pumpUntil(ctx, "time advance grant", func() bool { return p.advance == AdvanceGranted }); err != nil {
		return err
	}
	p.log.WithFields(logrus.Fields{"step": p.step, "time": p.localTime}).Debug("Time advance granted")
	return nil
}

// setTime converts a callback time and stores it as the local time.
func (p *Processor) setTime(what string, t rti.FedTime) {
	st, err := simtime.FromFedTime(float64(t))
	if err != nil {
		p.fail(fmt.Errorf("%s at %v: %w", what, t, err))
		return
	}
	p.localTime = st
}
