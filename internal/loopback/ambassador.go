// Package loopback serves a federation.Engine to federates in the same
// process. Calls go straight to the engine; callbacks are delivered from
// Tick on the caller's goroutine, exactly as a remote service would.
package loopback

import (
	"context"
	"fmt"
	"runtime"

	"github.com/dyluth/lockstep/internal/federation"
	"github.com/dyluth/lockstep/pkg/rti"
)

// Ambassador implements rti.Ambassador over an in-process engine.
// One Ambassador serves one federate and is not safe for concurrent use.
type Ambassador struct {
	engine *federation.Engine
	conn   *federation.Conn
	fa     rti.FederateAmbassador
}

// New returns an ambassador bound to engine.
func New(engine *federation.Engine) *Ambassador {
	return &Ambassador{engine: engine}
}

var _ rti.Ambassador = (*Ambassador)(nil)

func (a *Ambassador) joined() (*federation.Conn, error) {
	if a.conn == nil {
		return nil, fmt.Errorf("loopback: %w", rti.ErrFederateNotExecutionMember)
	}
	return a.conn, nil
}

func (a *Ambassador) CreateFederationExecution(_ context.Context, name string) error {
	return a.engine.CreateFederationExecution(name)
}

func (a *Ambassador) DestroyFederationExecution(_ context.Context, name string) error {
	return a.engine.DestroyFederationExecution(name)
}

func (a *Ambassador) JoinFederationExecution(_ context.Context, federate, name string, fa rti.FederateAmbassador) (rti.FederateHandle, error) {
	if a.conn != nil {
		return rti.InvalidHandle, fmt.Errorf("loopback: %w", rti.ErrFederateAlreadyExecutionMember)
	}
	conn, err := a.engine.Join(name, federate)
	if err != nil {
		return rti.InvalidHandle, err
	}
	a.conn = conn
	a.fa = fa
	return conn.Handle(), nil
}

// ResignFederationExecution resigns and drops callbacks still queued.
func (a *Ambassador) ResignFederationExecution(_ context.Context) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	if err := conn.Resign(); err != nil {
		return err
	}
	a.conn = nil
	a.fa = nil
	return nil
}

// JoinedFederates lists the federates currently joined to this federate's
// execution.
func (a *Ambassador) JoinedFederates(_ context.Context) ([]string, error) {
	conn, err := a.joined()
	if err != nil {
		return nil, err
	}
	return a.engine.JoinedFederates(conn.Federation())
}

func (a *Ambassador) RegisterFederationSynchronizationPoint(_ context.Context, label, tag string) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	return conn.RegisterFederationSynchronizationPoint(label, tag)
}

func (a *Ambassador) SynchronizationPointAchieved(_ context.Context, label string) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	return conn.SynchronizationPointAchieved(label)
}

func (a *Ambassador) GetObjectClassHandle(_ context.Context, name string) (rti.ObjectClassHandle, error) {
	conn, err := a.joined()
	if err != nil {
		return rti.InvalidHandle, err
	}
	return conn.GetObjectClassHandle(name)
}

func (a *Ambassador) GetAttributeHandle(_ context.Context, name string, class rti.ObjectClassHandle) (rti.AttributeHandle, error) {
	conn, err := a.joined()
	if err != nil {
		return rti.InvalidHandle, err
	}
	return conn.GetAttributeHandle(name, class)
}

func (a *Ambassador) PublishObjectClass(_ context.Context, class rti.ObjectClassHandle, attrs rti.AttributeHandleSet) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	return conn.PublishObjectClass(class, attrs)
}

func (a *Ambassador) UnpublishObjectClass(_ context.Context, class rti.ObjectClassHandle) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	return conn.UnpublishObjectClass(class)
}

func (a *Ambassador) SubscribeObjectClassAttributes(_ context.Context, class rti.ObjectClassHandle, attrs rti.AttributeHandleSet) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	return conn.SubscribeObjectClassAttributes(class, attrs)
}

func (a *Ambassador) UnsubscribeObjectClass(_ context.Context, class rti.ObjectClassHandle) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	return conn.UnsubscribeObjectClass(class)
}

func (a *Ambassador) RegisterObjectInstance(_ context.Context, class rti.ObjectClassHandle, name string) (rti.ObjectHandle, error) {
	conn, err := a.joined()
	if err != nil {
		return rti.InvalidHandle, err
	}
	return conn.RegisterObjectInstance(class, name)
}

// UpdateAttributeValues copies values before handing them over, so callers
// may reuse their buffer.
func (a *Ambassador) UpdateAttributeValues(_ context.Context, obj rti.ObjectHandle, values rti.AttributeValues, t rti.FedTime, tag string) (rti.EventRetractionHandle, error) {
	conn, err := a.joined()
	if err != nil {
		return rti.EventRetractionHandle{}, err
	}
	return conn.UpdateAttributeValues(obj, values.Clone(), t, tag)
}

func (a *Ambassador) EnableTimeRegulation(_ context.Context, t, lookahead rti.FedTime) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	return conn.EnableTimeRegulation(t, lookahead)
}

func (a *Ambassador) DisableTimeRegulation(_ context.Context) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	return conn.DisableTimeRegulation()
}

func (a *Ambassador) EnableTimeConstrained(_ context.Context) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	return conn.EnableTimeConstrained()
}

func (a *Ambassador) DisableTimeConstrained(_ context.Context) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	return conn.DisableTimeConstrained()
}

func (a *Ambassador) EnableAsynchronousDelivery(_ context.Context) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	return conn.EnableAsynchronousDelivery()
}

func (a *Ambassador) DisableAsynchronousDelivery(_ context.Context) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	return conn.DisableAsynchronousDelivery()
}

func (a *Ambassador) TimeAdvanceRequest(_ context.Context, t rti.FedTime) error {
	conn, err := a.joined()
	if err != nil {
		return err
	}
	return conn.TimeAdvanceRequest(t)
}

// Tick dispatches every queued callback. With nothing queued it yields the
// processor so federates polling in a loop let their peers run.
func (a *Ambassador) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := a.joined()
	if err != nil {
		return err
	}
	cbs := conn.Drain()
	if len(cbs) == 0 {
		runtime.Gosched()
		return nil
	}
	for _, cb := range cbs {
		if err := rti.Dispatch(a.fa, cb); err != nil {
			return err
		}
	}
	return nil
}
