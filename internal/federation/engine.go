// Package federation is an in-memory federation-execution service.
//
// An Engine hosts any number of named federation executions. It allocates
// handles, routes declarations and attribute updates between joined
// federates, runs a conservative time-advance rule and the synchronization
// point barrier. It never calls federates directly: every callback is queued
// in the receiving federate's outbox and handed over by Drain, so a
// transport decides when and on which goroutine callbacks run.
//
// The Engine is safe for concurrent use. The loopback package serves it to
// federates in the same process; the rtig package serves it over Redis.
package federation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dyluth/lockstep/pkg/fom"
	"github.com/dyluth/lockstep/pkg/rti"
)

// Engine hosts federation executions.
type Engine struct {
	mu         sync.Mutex
	executions map[string]*execution
	doc        *fom.Document
	metrics    *Metrics
	log        *logrus.Entry
	observer   func(Event)

	// events raised while mu is held, flushed to observer after unlock
	pending []Event
}

// Option configures an Engine.
type Option func(*Engine)

// WithDocument fixes the object model: handle lookups for names the
// document does not declare fail with rti.ErrNameNotFound. Without a
// document, handles are allocated on first lookup.
func WithDocument(doc *fom.Document) Option {
	return func(e *Engine) { e.doc = doc }
}

// WithMetrics records engine activity in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine logger.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) { e.log = log }
}

// WithObserver registers a function called with every Event after the
// engine lock is released. It must not block for long.
func WithObserver(fn func(Event)) Option {
	return func(e *Engine) { e.observer = fn }
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		executions: make(map[string]*execution),
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	return e
}

// locked runs fn under the engine lock, then publishes the events it raised.
func (e *Engine) locked(fn func() error) error {
	e.mu.Lock()
	err := fn()
	events := e.pending
	e.pending = nil
	e.mu.Unlock()

	if e.observer != nil {
		for _, ev := range events {
			e.observer(ev)
		}
	}
	return err
}

func (e *Engine) emit(ev Event) {
	e.pending = append(e.pending, ev)
}

// CreateFederationExecution creates an empty execution.
func (e *Engine) CreateFederationExecution(name string) error {
	if name == "" {
		return fmt.Errorf("federation name cannot be empty")
	}
	return e.locked(func() error {
		if _, exists := e.executions[name]; exists {
			return fmt.Errorf("create %q: %w", name, rti.ErrFederationExecutionAlreadyExists)
		}
		e.executions[name] = newExecution(name, e.doc)
		e.log.WithField("federation", name).Info("Federation execution created")
		e.emit(Event{Kind: EventFederationCreated, Federation: name})
		return nil
	})
}

// DestroyFederationExecution removes an execution no federate is joined to.
func (e *Engine) DestroyFederationExecution(name string) error {
	return e.locked(func() error {
		x, ok := e.executions[name]
		if !ok {
			return fmt.Errorf("destroy %q: %w", name, rti.ErrFederationExecutionDoesNotExist)
		}
		if n := len(x.federates); n > 0 {
			return fmt.Errorf("destroy %q (%d joined): %w", name, n, rti.ErrFederatesCurrentlyJoined)
		}
		delete(e.executions, name)
		e.log.WithField("federation", name).Info("Federation execution destroyed")
		e.emit(Event{Kind: EventFederationDestroyed, Federation: name})
		return nil
	})
}

// Join adds a federate to an execution and returns its connection.
// Synchronization points announced before the join are announced to the
// newcomer too.
func (e *Engine) Join(federation, federate string) (*Conn, error) {
	var conn *Conn
	err := e.locked(func() error {
		x, ok := e.executions[federation]
		if !ok {
			return fmt.Errorf("join %q: %w", federation, rti.ErrFederationExecutionDoesNotExist)
		}
		if _, dup := x.byName[federate]; dup {
			return fmt.Errorf("join %q as %q: %w", federation, federate, rti.ErrFederateAlreadyExecutionMember)
		}
		f := x.addFederate(federate)
		for _, sp := range x.sortedSyncPoints() {
			sp.members[f.handle] = true
			f.queue(rti.Callback{Kind: rti.CallbackAnnounceSynchronizationPoint, Label: sp.label, Tag: sp.tag})
		}
		e.metrics.federates.WithLabelValues(federation).Set(float64(len(x.federates)))
		e.log.WithFields(logrus.Fields{"federation": federation, "federate": federate, "handle": f.handle}).Info("Federate joined")
		e.emit(Event{Kind: EventFederateJoined, Federation: federation, Federate: federate})
		conn = &Conn{engine: e, federation: federation, handle: f.handle, name: federate}
		return nil
	})
	return conn, err
}

// Conn returns the connection of an already joined federate. Membership is
// checked on each call, not here.
func (e *Engine) Conn(federation string, handle rti.FederateHandle) *Conn {
	e.mu.Lock()
	defer e.mu.Unlock()
	name := ""
	if x, ok := e.executions[federation]; ok {
		if f, ok := x.federates[handle]; ok {
			name = f.name
		}
	}
	return &Conn{engine: e, federation: federation, handle: handle, name: name}
}

// JoinedFederates returns the names of the federates joined to an
// execution, sorted.
func (e *Engine) JoinedFederates(federation string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	x, ok := e.executions[federation]
	if !ok {
		return nil, fmt.Errorf("%q: %w", federation, rti.ErrFederationExecutionDoesNotExist)
	}
	names := make([]string, 0, len(x.federates))
	for _, f := range x.federates {
		names = append(names, f.name)
	}
	sort.Strings(names)
	return names, nil
}

// Executions returns the names of the live executions, sorted.
func (e *Engine) Executions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.executions))
	for name := range e.executions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
