// Package lp implements the logical processor: the federate driver that
// runs the lifecycle (creation, initialization, simulation loop, ending,
// deletion) against an rti.Ambassador and receives its callbacks.
//
// A Processor is single-threaded. Callbacks only arrive from inside
// Ambassador.Tick, which the processor calls itself from its wait loops, so
// its state needs no locking. Every wait loop keeps pumping Tick until the
// awaited callback flips the state it watches; there is no timeout. The
// context passed to Run is the only way to interrupt a wait.
package lp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/dyluth/lockstep/pkg/fom"
	"github.com/dyluth/lockstep/pkg/rti"
	"github.com/dyluth/lockstep/pkg/simtime"
)

// DefaultSyncPoint is the label of the start-of-simulation barrier.
const DefaultSyncPoint = "syncPoint"

// ErrSyncRegistrationFailed ends a run under SyncFailureAbort.
var ErrSyncRegistrationFailed = errors.New("synchronization point registration failed")

// LocalComputation is the simulation-specific work of one step. It runs
// after inbound reflections are applied and before updates are sent.
type LocalComputation func(ctx context.Context, p *Processor) error

// Hooks are optional interaction points in the lifecycle.
type Hooks struct {
	// BeforeRegisterSync runs on the creator before it registers the
	// synchronization point.
	BeforeRegisterSync func(ctx context.Context) error
	// BeforeAchieveSync runs on the creator before it achieves the
	// synchronization point.
	BeforeAchieveSync func(ctx context.Context) error
	// AfterStep runs at the end of every simulation step, after the grant.
	AfterStep func(ctx context.Context, p *Processor) error
}

// RetryOptions bound the creator's attempts to destroy the federation while
// other federates are still joined.
type RetryOptions struct {
	Initial time.Duration
	Max     time.Duration
}

// Options configure a Processor.
type Options struct {
	Federation string
	Federate   string
	SyncPoint  string

	TimeLimit simtime.Time
	Timestep  simtime.Time
	Lookahead simtime.Time

	Regulating  bool
	Constrained bool
	Policy      PolicyKind

	// ExpectFederates makes the creator wait until that many federates
	// have joined before registering the synchronization point. It needs
	// an ambassador that can list members.
	ExpectFederates int
	SyncFailure     SyncFailureMode
	DestroyRetry    RetryOptions

	Compute LocalComputation
	Hooks   Hooks
}

// Validate checks the options and fills defaults.
func (o *Options) Validate() error {
	if o.Federation == "" {
		return fmt.Errorf("federation name is required")
	}
	if o.Federate == "" {
		return fmt.Errorf("federate name is required")
	}
	if o.Timestep.IsZero() {
		return fmt.Errorf("timestep must be positive")
	}
	if o.SyncPoint == "" {
		o.SyncPoint = DefaultSyncPoint
	}
	if o.ExpectFederates < 0 {
		return fmt.Errorf("expect federates must be >= 0, got %d", o.ExpectFederates)
	}
	if o.DestroyRetry.Initial <= 0 {
		o.DestroyRetry.Initial = time.Second
	}
	if o.DestroyRetry.Max < o.DestroyRetry.Initial {
		o.DestroyRetry.Max = o.DestroyRetry.Initial
	}
	return nil
}

// Stats summarizes a run.
type Stats struct {
	Steps       uint64
	Updates     uint64
	Reflections uint64
	Discovered  int
	Elapsed     time.Duration
}

// membership is implemented by ambassadors that can list joined federates.
type membership interface {
	JoinedFederates(ctx context.Context) ([]string, error)
}

// Processor drives one federate.
type Processor struct {
	opts   Options
	amb    rti.Ambassador
	model  *fom.Model
	policy Policy
	log    *logrus.Entry

	phase     Phase
	creator   bool
	handle    rti.FederateHandle
	localTime simtime.Time
	step      uint64
	uavIndex  uint64

	regulation   CapabilityState
	constraint   CapabilityState
	advance      TimeAdvanceState
	registration RegistrationState
	barrier      BarrierState

	// tags of timestamped reflections received since the last step
	ravTags []string
	// first error raised inside a callback, surfaced by the next pump
	callbackErr error

	stats Stats
}

var _ rti.FederateAmbassador = (*Processor)(nil)

// New builds a processor over amb and model. The logger is scoped to the
// run; New adds the federate and federation fields.
func New(amb rti.Ambassador, model *fom.Model, opts Options, log *logrus.Entry) (*Processor, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid processor options: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	p := &Processor{
		opts:  opts,
		amb:   amb,
		model: model,
		log:   log.WithFields(logrus.Fields{"federate": opts.Federate, "federation": opts.Federation}),
	}
	policy, err := NewPolicy(opts.Policy, p)
	if err != nil {
		return nil, err
	}
	p.policy = policy
	return p, nil
}

func (p *Processor) Model() *fom.Model               { return p.model }
func (p *Processor) Policy() Policy                  { return p.policy }
func (p *Processor) Log() *logrus.Entry              { return p.log }
func (p *Processor) Options() Options                { return p.opts }
func (p *Processor) Phase() Phase                    { return p.phase }
func (p *Processor) IsCreator() bool                 { return p.creator }
func (p *Processor) LocalTime() simtime.Time         { return p.localTime }
func (p *Processor) StepNumber() uint64              { return p.step }
func (p *Processor) Regulation() CapabilityState     { return p.regulation }
func (p *Processor) Constraint() CapabilityState     { return p.constraint }
func (p *Processor) Advance() TimeAdvanceState       { return p.advance }
func (p *Processor) Registration() RegistrationState { return p.registration }
func (p *Processor) Barrier() BarrierState           { return p.barrier }
func (p *Processor) Stats() Stats                    { return p.stats }

// Paused reports whether the federate sits inside the synchronization
// barrier.
func (p *Processor) Paused() bool {
	return p.barrier == BarrierAnnounced || p.barrier == BarrierAchieved
}

// Run executes every phase in order. The first error aborts the run: it is
// logged and returned and the later phases, ending and deletion included,
// are skipped.
func (p *Processor) Run(ctx context.Context) error {
	phases := []struct {
		phase Phase
		run   func(context.Context) error
	}{
		{PhaseCreation, p.creation},
		{PhaseInitialization, p.initialization},
		{PhaseSimulation, p.simulationLoop},
		{PhaseEnding, p.ending},
		{PhaseDeletion, p.deletion},
	}
	for _, ph := range phases {
		p.phase = ph.phase
		p.log.WithField("phase", ph.phase).Info("Entering phase")
		if err := ph.run(ctx); err != nil {
			p.log.WithError(err).WithField("phase", ph.phase).Error("Run aborted")
			return fmt.Errorf("%s phase: %w", ph.phase, err)
		}
	}
	p.phase = PhaseDone
	return nil
}

func (p *Processor) creation(ctx context.Context) error {
	err := p.amb.CreateFederationExecution(ctx, p.opts.Federation)
	switch {
	case err == nil:
		p.creator = true
		p.log.Info("Federation execution created")
	case errors.Is(err, rti.ErrFederationExecutionAlreadyExists):
		p.log.Info("Federation execution already exists, joining it")
	default:
		return fmt.Errorf("failed to create federation %q: %w", p.opts.Federation, err)
	}

	h, err := p.amb.JoinFederationExecution(ctx, p.opts.Federate, p.opts.Federation, p)
	if err != nil {
		return fmt.Errorf("failed to join federation %q: %w", p.opts.Federation, err)
	}
	p.handle = h
	p.log.WithFields(logrus.Fields{"handle": h, "creator": p.creator}).Info("Joined federation")
	return nil
}

func (p *Processor) initialization(ctx context.Context) error {
	if err := p.model.ResolveHandles(ctx, p.amb); err != nil {
		return err
	}
	p.log.WithFields(logrus.Fields{
		"published":  len(p.model.Published()),
		"subscribed": len(p.model.Subscribed()),
	}).Debug("Handles resolved")

	for _, s := range p.model.Subscribed() {
		if err := s.SubscribeObjectClassAttributes(ctx, p.amb); err != nil {
			return err
		}
	}
	for _, pub := range p.model.Published() {
		if err := pub.PublishObjectClass(ctx, p.amb); err != nil {
			return err
		}
	}

	if err := p.policy.Initializing(ctx); err != nil {
		return err
	}
	if err := p.synchronize(ctx); err != nil {
		return err
	}
	return p.registerObjects(ctx)
}

func (p *Processor) registerObjects(ctx context.Context) error {
	for _, pub := range p.model.Published() {
		p.log.WithField("object", pub.Name()).Debug("Registering")
		if err := pub.Register(ctx, p.amb); err != nil {
			return err
		}
	}
	for _, s := range p.model.Subscribed() {
		p.log.WithField("object", s.Name()).Debug("Waiting for discovery")
		if err := s.WaitRegistering(ctx, p.amb); err != nil {
			return err
		}
		if err := p.takeCallbackErr(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) simulationLoop(ctx context.Context) error {
	start := time.Now()
	defer func() { p.stats.Elapsed = time.Since(start) }()

	for p.localTime.Before(p.opts.TimeLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.step++
		p.stats.Steps = p.step
		p.updatesReception()

		if p.opts.Compute != nil {
			if err := p.opts.Compute(ctx, p); err != nil {
				return fmt.Errorf("local computation at step %d: %w", p.step, err)
			}
		}
		p.log.WithFields(logrus.Fields{"tag": p.uavTag(), "time": p.localTime}).Debug("sUAV")

		if err := p.updatesSending(ctx); err != nil {
			return err
		}
		if err := p.policy.TimeAdvance(ctx); err != nil {
			return err
		}
		if p.opts.Hooks.AfterStep != nil {
			if err := p.opts.Hooks.AfterStep(ctx, p); err != nil {
				return err
			}
		}
	}

	p.log.WithFields(logrus.Fields{
		"steps":   p.step,
		"elapsed": time.Since(start).Seconds(),
		"time":    p.localTime,
	}).Info("Simulation ended")
	return nil
}

// updatesReception traces the reflections applied since the previous step.
// Values are already stored: reflections are applied as they arrive.
func (p *Processor) updatesReception() {
	for _, tag := range p.ravTags {
		p.log.WithFields(logrus.Fields{"tag": tag, "time": p.localTime}).Debug("sRAV")
	}
	p.ravTags = p.ravTags[:0]
}

func (p *Processor) uavTag() string {
	return fmt.Sprintf("%s.%d", p.opts.Federate, p.uavIndex)
}

// updatesSending publishes every published instance at local time plus
// lookahead.
func (p *Processor) updatesSending(ctx context.Context) error {
	at, err := p.localTime.Add(p.opts.Lookahead)
	if err != nil {
		return fmt.Errorf("update timestamp: %w", err)
	}
	tag := p.uavTag()
	p.log.WithFields(logrus.Fields{"tag": tag, "time": p.localTime, "timestamp": at}).Debug("preUAV")

	for _, pub := range p.model.Published() {
		if err := pub.UpdateAttributeValues(ctx, p.amb, at, tag); err != nil {
			return err
		}
		p.stats.Updates++
	}
	p.uavIndex++
	return nil
}

func (p *Processor) ending(ctx context.Context) error {
	for _, s := range p.model.Subscribed() {
		if err := s.Unsubscribe(ctx, p.amb); err != nil {
			return err
		}
	}
	for _, pub := range p.model.Published() {
		if err := pub.Unpublish(ctx, p.amb); err != nil {
			return err
		}
	}
	return p.policy.Deactivating(ctx)
}

func (p *Processor) deletion(ctx context.Context) error {
	if err := p.amb.ResignFederationExecution(ctx); err != nil {
		return fmt.Errorf("failed to resign: %w", err)
	}
	p.log.Info("Resigned from federation")
	if !p.creator {
		return nil
	}
	return p.destroyFederation(ctx)
}

// destroyFederation retries while other federates are still joined, backing
// off between attempts. It gives up only on another error or cancellation.
func (p *Processor) destroyFederation(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.opts.DestroyRetry.Initial
	b.MaxInterval = p.opts.DestroyRetry.Max
	b.MaxElapsedTime = 0

	op := func() error {
		err := p.amb.DestroyFederationExecution(ctx, p.opts.Federation)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, rti.ErrFederatesCurrentlyJoined):
			return err
		case errors.Is(err, rti.ErrFederationExecutionDoesNotExist):
			p.log.Info("Federation execution already destroyed")
			return nil
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		p.log.WithError(err).WithField("retry_in", wait).Info("Federates still joined, retrying destroy")
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("failed to destroy federation %q: %w", p.opts.Federation, err)
	}
	p.log.Info("Federation execution destroyed")
	return nil
}

// pumpUntil ticks the ambassador until done reports true. It has no
// timeout; only ctx ends it early.
func (p *Processor) pumpUntil(ctx context.Context, what string, done func() bool) error {
	for !done() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("waiting for %s: %w", what, err)
		}
		if err := p.amb.Tick(ctx); err != nil {
			return fmt.Errorf("waiting for %s: %w", what, err)
		}
		if err := p.takeCallbackErr(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) fail(err error) {
	if p.callbackErr == nil {
		p.callbackErr = err
	}
}

func (p *Processor) takeCallbackErr() error {
	err := p.callbackErr
	p.callbackErr = nil
	return err
}
