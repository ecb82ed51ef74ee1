// Package rtig is the federation server: it owns a federation.Engine and
// serves it to remote federates over the Redis bus.
//
// The server is a single loop. It pops one request, applies it to the
// engine, replies, then moves every callback the engine queued into the
// callback list of the session it belongs to, and finally broadcasts the
// lifecycle events the request produced.
package rtig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/dyluth/lockstep/internal/federation"
	"github.com/dyluth/lockstep/pkg/fedbus"
	"github.com/dyluth/lockstep/pkg/fom"
	"github.com/dyluth/lockstep/pkg/rti"
)

// DefaultPollTimeout is how long one pop blocks before the loop rechecks
// its context.
const DefaultPollTimeout = time.Second

// Options configure a Server.
type Options struct {
	// Document predeclares the object model. Nil allows any name.
	Document *fom.Document
	// HealthAddr enables the health and metrics endpoint when non-empty.
	HealthAddr  string
	PollTimeout time.Duration
	Registry    *prometheus.Registry
}

// Server serves one bus instance.
type Server struct {
	client   *fedbus.Client
	engine   *federation.Engine
	log      *logrus.Entry
	opts     Options
	registry *prometheus.Registry
	requests *prometheus.CounterVec

	sessions map[string]*federation.Conn
	events   []federation.Event
}

// NewServer builds a server and its engine.
func NewServer(client *fedbus.Client, log *logrus.Entry, opts Options) *Server {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		client:   client,
		log:      log.WithField("instance", client.Instance()),
		opts:     opts,
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lockstep",
			Subsystem: "rtig",
			Name:      "requests_total",
			Help:      "Requests served, by operation and result code.",
		}, []string{"op", "code"}),
		sessions: make(map[string]*federation.Conn),
	}
	reg.MustRegister(s.requests)

	engineOpts := []federation.Option{
		federation.WithLogger(s.log),
		federation.WithMetrics(federation.NewMetrics(reg)),
		federation.WithObserver(func(ev federation.Event) { s.events = append(s.events, ev) }),
	}
	if opts.Document != nil {
		engineOpts = append(engineOpts, federation.WithDocument(opts.Document))
	}
	s.engine = federation.New(engineOpts...)
	return s
}

// Engine exposes the served engine.
func (s *Server) Engine() *federation.Engine { return s.engine }

// Run serves requests until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.opts.HealthAddr != "" {
		health := NewHealthServer(s.opts.HealthAddr, s.client, s.registry, s.log)
		if err := health.Start(); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
		defer health.Shutdown(context.Background())
	}

	s.log.Info("Federation server started")
	for {
		if ctx.Err() != nil {
			s.log.Info("Federation server shutting down")
			return nil
		}
		req, err := s.client.PopRequest(ctx, s.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.log.WithError(err).Warn("Failed to read request")
			continue
		}
		if req == nil {
			continue
		}
		if err := s.Serve(ctx, req); err != nil {
			s.log.WithError(err).WithField("op", req.Op).Error("Failed to serve request")
		}
	}
}

// Serve applies one request and delivers its effects.
func (s *Server) Serve(ctx context.Context, req *fedbus.Request) error {
	rep, err := s.apply(ctx, req)
	reply := fedbus.ReplyTo(req, err)
	if rep != nil {
		reply.Handle, reply.Names, reply.Retraction = rep.Handle, rep.Names, rep.Retraction
		reply.Federations = rep.Federations
	}
	s.requests.WithLabelValues(string(req.Op), codeLabel(reply.Code)).Inc()

	log := s.log.WithFields(logrus.Fields{"op": req.Op, "session": req.Session})
	if err != nil {
		log.WithError(err).Debug("Request refused")
	} else {
		log.Debug("Request served")
	}

	if err := s.client.PushReply(ctx, reply); err != nil {
		return err
	}
	if err := s.flushCallbacks(ctx); err != nil {
		return err
	}
	return s.flushEvents(ctx)
}

func codeLabel(code string) string {
	if code == "" {
		return "ok"
	}
	return code
}

func (s *Server) conn(session string) (*federation.Conn, error) {
	c, ok := s.sessions[session]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", session, rti.ErrFederateNotExecutionMember)
	}
	return c, nil
}

// apply runs req against the engine. The returned reply only carries the
// result fields; the caller fills the envelope.
func (s *Server) apply(ctx context.Context, req *fedbus.Request) (*fedbus.Reply, error) {
	switch req.Op {
	case fedbus.OpCreateFederationExecution:
		return nil, s.engine.CreateFederationExecution(req.Federation)
	case fedbus.OpDestroyFederationExecution:
		return nil, s.engine.DestroyFederationExecution(req.Federation)
	case fedbus.OpJoinFederationExecution:
		if _, dup := s.sessions[req.Session]; dup {
			return nil, fmt.Errorf("session %s: %w", req.Session, rti.ErrFederateAlreadyExecutionMember)
		}
		c, err := s.engine.Join(req.Federation, req.Federate)
		if err != nil {
			return nil, err
		}
		s.sessions[req.Session] = c
		return &fedbus.Reply{Handle: uint32(c.Handle())}, nil
	case fedbus.OpListFederations:
		return &fedbus.Reply{Federations: s.engine.Snapshot()}, nil
	}

	c, err := s.conn(req.Session)
	if err != nil {
		return nil, err
	}
	switch req.Op {
	case fedbus.OpResignFederationExecution:
		if err := c.Resign(); err != nil {
			return nil, err
		}
		delete(s.sessions, req.Session)
		return nil, s.client.DropCallbacks(ctx, req.Session)
	case fedbus.OpJoinedFederates:
		names, err := s.engine.JoinedFederates(c.Federation())
		return &fedbus.Reply{Names: names}, err
	case fedbus.OpRegisterSyncPoint:
		return nil, c.RegisterFederationSynchronizationPoint(req.Label, req.Tag)
	case fedbus.OpSyncPointAchieved:
		return nil, c.SynchronizationPointAchieved(req.Label)
	case fedbus.OpGetObjectClassHandle:
		h, err := c.GetObjectClassHandle(req.Name)
		return &fedbus.Reply{Handle: uint32(h)}, err
	case fedbus.OpGetAttributeHandle:
		h, err := c.GetAttributeHandle(req.Name, req.Class)
		return &fedbus.Reply{Handle: uint32(h)}, err
	case fedbus.OpPublishObjectClass:
		return nil, c.PublishObjectClass(req.Class, req.Attributes)
	case fedbus.OpUnpublishObjectClass:
		return nil, c.UnpublishObjectClass(req.Class)
	case fedbus.OpSubscribeObjectClass:
		return nil, c.SubscribeObjectClassAttributes(req.Class, req.Attributes)
	case fedbus.OpUnsubscribeObjectClass:
		return nil, c.UnsubscribeObjectClass(req.Class)
	case fedbus.OpRegisterObjectInstance:
		h, err := c.RegisterObjectInstance(req.Class, req.Name)
		return &fedbus.Reply{Handle: uint32(h)}, err
	case fedbus.OpUpdateAttributeValues:
		rh, err := c.UpdateAttributeValues(req.Object, req.Values, req.Time, req.Tag)
		return &fedbus.Reply{Retraction: rh}, err
	case fedbus.OpEnableTimeRegulation:
		return nil, c.EnableTimeRegulation(req.Time, req.Lookahead)
	case fedbus.OpDisableTimeRegulation:
		return nil, c.DisableTimeRegulation()
	case fedbus.OpEnableTimeConstrained:
		return nil, c.EnableTimeConstrained()
	case fedbus.OpDisableTimeConstrained:
		return nil, c.DisableTimeConstrained()
	case fedbus.OpEnableAsynchronousDelivery:
		return nil, c.EnableAsynchronousDelivery()
	case fedbus.OpDisableAsynchronousDelivery:
		return nil, c.DisableAsynchronousDelivery()
	case fedbus.OpTimeAdvanceRequest:
		return nil, c.TimeAdvanceRequest(req.Time)
	}
	return nil, fmt.Errorf("op %q: %w", req.Op, rti.ErrRTIInternal)
}

// flushCallbacks moves every queued callback to its session's list.
func (s *Server) flushCallbacks(ctx context.Context) error {
	var errs []error
	for session, c := range s.sessions {
		if err := s.client.PushCallbacks(ctx, session, c.Drain()); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", session, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Server) flushEvents(ctx context.Context) error {
	events := s.events
	s.events = nil
	var errs []error
	for _, ev := range events {
		me := &fedbus.MonitorEvent{
			Type:       string(ev.Kind),
			Federation: ev.Federation,
			Federate:   ev.Federate,
			Label:      ev.Label,
			Time:       ev.Time,
			AtMs:       time.Now().UnixMilli(),
		}
		if err := s.client.PublishMonitorEvent(ctx, me); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
