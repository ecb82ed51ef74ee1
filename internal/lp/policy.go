package lp

import (
	"context"
	"fmt"

	"github.com/dyluth/lockstep/pkg/simtime"
)

// Policy decides how a processor paces itself. It owns the regulation and
// constraint activation sequence and the delta of every time-advance
// request.
type Policy interface {
	// Initializing enables regulation and constraint as configured, each
	// waiting for its grant, then enables asynchronous delivery.
	Initializing(ctx context.Context) error
	// TimeAdvance requests the next time and waits for the grant.
	TimeAdvance(ctx context.Context) error
	// Deactivating mirrors Initializing.
	Deactivating(ctx context.Context) error
	// SetDelta sets the delta of the next requests. Policies with a fixed
	// delta ignore it.
	SetDelta(d simtime.Time)
}

// PolicyKind selects a Policy implementation.
type PolicyKind string

const (
	// PolicyTimeStep always advances by the processor's timestep.
	PolicyTimeStep PolicyKind = "timestep"
	// PolicyNextDelta advances by the delta last given to SetDelta, or by
	// the timestep until one is given.
	PolicyNextDelta PolicyKind = "nextdelta"
)

// NewPolicy creates the policy of the given kind bound to p.
// An empty kind is PolicyTimeStep.
func NewPolicy(kind PolicyKind, p *Processor) (Policy, error) {
	base := basePolicy{proc: p}
	switch kind {
	case "", PolicyTimeStep:
		return &timeStepPolicy{basePolicy: base}, nil
	case PolicyNextDelta:
		return &nextDeltaPolicy{basePolicy: base}, nil
	}
	return nil, fmt.Errorf("unknown time management policy: %q (must be 'timestep' or 'nextdelta')", kind)
}

// basePolicy carries the activation sequence shared by every policy.
// proc does not own the processor; the processor owns the policy.
type basePolicy struct {
	proc *Processor
	next simtime.Time
}

func (b *basePolicy) SetDelta(d simtime.Time) { b.next = d }

func (b *basePolicy) Initializing(ctx context.Context) error {
	p := b.proc
	if p.opts.Regulating {
		if err := p.enableTimeRegulation(ctx); err != nil {
			return err
		}
	}
	if p.opts.Constrained {
		if err := p.enableTimeConstrained(ctx); err != nil {
			return err
		}
	}
	if err := p.amb.EnableAsynchronousDelivery(ctx); err != nil {
		return fmt.Errorf("failed to enable asynchronous delivery: %w", err)
	}
	return nil
}

func (b *basePolicy) Deactivating(ctx context.Context) error {
	p := b.proc
	if p.opts.Regulating {
		if err := p.disableTimeRegulation(ctx); err != nil {
			return err
		}
	}
	if p.opts.Constrained {
		if err := p.disableTimeConstrained(ctx); err != nil {
			return err
		}
	}
	if err := p.amb.DisableAsynchronousDelivery(ctx); err != nil {
		return fmt.Errorf("failed to disable asynchronous delivery: %w", err)
	}
	return nil
}

type timeStepPolicy struct {
	basePolicy
}

func (t *timeStepPolicy) TimeAdvance(ctx context.Context) error {
	return t.proc.timeAdvanceRequest(ctx, t.proc.opts.Timestep)
}

type nextDeltaPolicy struct {
	basePolicy
}

func (n *nextDeltaPolicy) TimeAdvance(ctx context.Context) error {
	d := n.next
	if d.IsZero() {
		d = n.proc.opts.Timestep
	}
	return n.proc.timeAdvanceRequest(ctx, d)
}
