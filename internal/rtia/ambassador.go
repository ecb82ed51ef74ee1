// Package rtia is the federate side of the Redis bus: an rti.Ambassador
// that turns every call into a request to the federation server and
// dispatches the callbacks queued for its session from Tick.
package rtia

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/lockstep/pkg/fedbus"
	"github.com/dyluth/lockstep/pkg/rti"
)

const (
	// DefaultReplyTimeout bounds a single call to the server.
	DefaultReplyTimeout = 30 * time.Second
	// DefaultIdleWait is how long Tick sleeps when nothing is queued.
	DefaultIdleWait = 2 * time.Millisecond
)

// Option configures an Ambassador.
type Option func(*Ambassador)

// WithReplyTimeout sets how long a call waits for the server.
func WithReplyTimeout(d time.Duration) Option {
	return func(a *Ambassador) { a.timeout = d }
}

// WithIdleWait sets the pause of an empty Tick.
func WithIdleWait(d time.Duration) Option {
	return func(a *Ambassador) { a.idle = d }
}

// Ambassador implements rti.Ambassador over a fedbus.Client.
// One Ambassador serves one federate and is not safe for concurrent use.
type Ambassador struct {
	client  *fedbus.Client
	timeout time.Duration
	idle    time.Duration

	session string
	fa      rti.FederateAmbassador
}

var _ rti.Ambassador = (*Ambassador)(nil)

// New returns an ambassador talking through client.
func New(client *fedbus.Client, opts ...Option) *Ambassador {
	a := &Ambassador{client: client, timeout: DefaultReplyTimeout, idle: DefaultIdleWait}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Session returns the bus session of the joined federate, or "".
func (a *Ambassador) Session() string { return a.session }

// call sends req and returns the reply together with the service error it
// carries. Transport failures wrap rti.ErrNotConnected.
func (a *Ambassador) call(ctx context.Context, req *fedbus.Request) (*fedbus.Reply, error) {
	rep, err := a.client.Call(ctx, req, a.timeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", req.Op, rti.ErrNotConnected, err)
	}
	return rep, rep.Err()
}

// joined builds a request for a federate that must already be joined.
func (a *Ambassador) joined(op fedbus.Op) (*fedbus.Request, error) {
	if a.session == "" {
		return nil, fmt.Errorf("%s: %w", op, rti.ErrFederateNotExecutionMember)
	}
	return fedbus.NewRequest(op, a.session), nil
}

// simple sends an op that carries nothing back.
func (a *Ambassador) simple(ctx context.Context, op fedbus.Op, fill func(*fedbus.Request)) error {
	req, err := a.joined(op)
	if err != nil {
		return err
	}
	if fill != nil {
		fill(req)
	}
	_, err = a.call(ctx, req)
	return err
}

func (a *Ambassador) CreateFederationExecution(ctx context.Context, name string) error {
	req := fedbus.NewRequest(fedbus.OpCreateFederationExecution, a.session)
	req.Federation = name
	_, err := a.call(ctx, req)
	return err
}

func (a *Ambassador) DestroyFederationExecution(ctx context.Context, name string) error {
	req := fedbus.NewRequest(fedbus.OpDestroyFederationExecution, a.session)
	req.Federation = name
	_, err := a.call(ctx, req)
	return err
}

// JoinFederationExecution opens a new session and joins with it.
func (a *Ambassador) JoinFederationExecution(ctx context.Context, federate, name string, fa rti.FederateAmbassador) (rti.FederateHandle, error) {
	if a.session != "" {
		return rti.InvalidHandle, fmt.Errorf("join: %w", rti.ErrFederateAlreadyExecutionMember)
	}
	session := uuid.New().String()
	req := fedbus.NewRequest(fedbus.OpJoinFederationExecution, session)
	req.Federation = name
	req.Federate = federate
	rep, err := a.call(ctx, req)
	if err != nil {
		return rti.InvalidHandle, err
	}
	a.session = session
	a.fa = fa
	return rti.FederateHandle(rep.Handle), nil
}

func (a *Ambassador) ResignFederationExecution(ctx context.Context) error {
	if err := a.simple(ctx, fedbus.OpResignFederationExecution, nil); err != nil {
		return err
	}
	a.session = ""
	a.fa = nil
	return nil
}

// JoinedFederates lists the federates currently joined to this federate's
// execution.
func (a *Ambassador) JoinedFederates(ctx context.Context) ([]string, error) {
	req, err := a.joined(fedbus.OpJoinedFederates)
	if err != nil {
		return nil, err
	}
	rep, err := a.call(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.Names, nil
}

func (a *Ambassador) RegisterFederationSynchronizationPoint(ctx context.Context, label, tag string) error {
	return a.simple(ctx, fedbus.OpRegisterSyncPoint, func(r *fedbus.Request) { r.Label, r.Tag = label, tag })
}

func (a *Ambassador) SynchronizationPointAchieved(ctx context.Context, label string) error {
	return a.simple(ctx, fedbus.OpSyncPointAchieved, func(r *fedbus.Request) { r.Label = label })
}

func (a *Ambassador) GetObjectClassHandle(ctx context.Context, name string) (rti.ObjectClassHandle, error) {
	req, err := a.joined(fedbus.OpGetObjectClassHandle)
	if err != nil {
		return rti.InvalidHandle, err
	}
	req.Name = name
	rep, err := a.call(ctx, req)
	if err != nil {
		return rti.InvalidHandle, err
	}
	return rti.ObjectClassHandle(rep.Handle), nil
}

func (a *Ambassador) GetAttributeHandle(ctx context.Context, name string, class rti.ObjectClassHandle) (rti.AttributeHandle, error) {
	req, err := a.joined(fedbus.OpGetAttributeHandle)
	if err != nil {
		return rti.InvalidHandle, err
	}
	req.Name, req.Class = name, class
	rep, err := a.call(ctx, req)
	if err != nil {
		return rti.InvalidHandle, err
	}
	return rti.AttributeHandle(rep.Handle), nil
}

func (a *Ambassador) PublishObjectClass(ctx context.Context, class rti.ObjectClassHandle, attrs rti.AttributeHandleSet) error {
	return a.simple(ctx, fedbus.OpPublishObjectClass, func(r *fedbus.Request) { r.Class, r.Attributes = class, attrs })
}

func (a *Ambassador) UnpublishObjectClass(ctx context.Context, class rti.ObjectClassHandle) error {
	return a.simple(ctx, fedbus.OpUnpublishObjectClass, func(r *fedbus.Request) { r.Class = class })
}

func (a *Ambassador) SubscribeObjectClassAttributes(ctx context.Context, class rti.ObjectClassHandle, attrs rti.AttributeHandleSet) error {
	return a.simple(ctx, fedbus.OpSubscribeObjectClass, func(r *fedbus.Request) { r.Class, r.Attributes = class, attrs })
}

func (a *Ambassador) UnsubscribeObjectClass(ctx context.Context, class rti.ObjectClassHandle) error {
	return a.simple(ctx, fedbus.OpUnsubscribeObjectClass, func(r *fedbus.Request) { r.Class = class })
}

func (a *Ambassador) RegisterObjectInstance(ctx context.Context, class rti.ObjectClassHandle, name string) (rti.ObjectHandle, error) {
	req, err := a.joined(fedbus.OpRegisterObjectInstance)
	if err != nil {
		return rti.InvalidHandle, err
	}
	req.Class, req.Name = class, name
	rep, err := a.call(ctx, req)
	if err != nil {
		return rti.InvalidHandle, err
	}
	return rti.ObjectHandle(rep.Handle), nil
}

// UpdateAttributeValues serializes values immediately, so callers may reuse
// their buffer once it returns.
func (a *Ambassador) UpdateAttributeValues(ctx context.Context, obj rti.ObjectHandle, values rti.AttributeValues, t rti.FedTime, tag string) (rti.EventRetractionHandle, error) {
	req, err := a.joined(fedbus.OpUpdateAttributeValues)
	if err != nil {
		return rti.EventRetractionHandle{}, err
	}
	req.Object, req.Values, req.Time, req.Tag = obj, values, t, tag
	rep, err := a.call(ctx, req)
	if err != nil {
		return rti.EventRetractionHandle{}, err
	}
	return rep.Retraction, nil
}

func (a *Ambassador) EnableTimeRegulation(ctx context.Context, t, lookahead rti.FedTime) error {
	return a.simple(ctx, fedbus.OpEnableTimeRegulation, func(r *fedbus.Request) { r.Time, r.Lookahead = t, lookahead })
}

func (a *Ambassador) DisableTimeRegulation(ctx context.Context) error {
	return a.simple(ctx, fedbus.OpDisableTimeRegulation, nil)
}

func (a *Ambassador) EnableTimeConstrained(ctx context.Context) error {
	return a.simple(ctx, fedbus.OpEnableTimeConstrained, nil)
}

func (a *Ambassador) DisableTimeConstrained(ctx context.Context) error {
	return a.simple(ctx, fedbus.OpDisableTimeConstrained, nil)
}

func (a *Ambassador) EnableAsynchronousDelivery(ctx context.Context) error {
	return a.simple(ctx, fedbus.OpEnableAsynchronousDelivery, nil)
}

func (a *Ambassador) DisableAsynchronousDelivery(ctx context.Context) error {
	return a.simple(ctx, fedbus.OpDisableAsynchronousDelivery, nil)
}

func (a *Ambassador) TimeAdvanceRequest(ctx context.Context, t rti.FedTime) error {
	return a.simple(ctx, fedbus.OpTimeAdvanceRequest, func(r *fedbus.Request) { r.Time = t })
}

// Tick dispatches every callback queued for the session. With nothing
// queued it waits briefly so a polling federate does not spin on Redis.
func (a *Ambassador) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.session == "" {
		return fmt.Errorf("tick: %w", rti.ErrFederateNotExecutionMember)
	}
	cbs, err := a.client.PopCallbacks(ctx, a.session)
	if err != nil {
		return fmt.Errorf("tick: %w: %w", rti.ErrNotConnected, err)
	}
	if len(cbs) == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.idle):
		}
		return nil
	}
	for _, cb := range cbs {
		if err := rti.Dispatch(a.fa, cb); err != nil {
			return err
		}
	}
	return nil
}
