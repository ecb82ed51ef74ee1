// Package fedbus carries federation traffic over Redis between the
// federation server (lockstep rtig) and remote federates.
//
// # Overview
//
// A federate never talks to another federate. Every Ambassador call becomes
// a Request pushed on the shared request list; the server applies it to its
// engine and answers on a reply list owned by that request. Callbacks the
// engine queues for a federate are pushed on the federate's callback list
// and popped by the federate's Tick. Lifecycle events are broadcast on a
// Pub/Sub channel for monitoring tools.
//
// # Redis Schema
//
// All keys are namespaced by bus instance so several servers can share one
// Redis. Instance names are DNS labels, so they never contain a colon:
//
//	Requests:  lockstep:{instance}:requests            (list, RPUSH / BLPOP)
//	Replies:   lockstep:{instance}:reply:{request_id}  (list, one element, expires)
//	Callbacks: lockstep:{instance}:callbacks:{session} (list, RPUSH / drained)
//	Monitor:   lockstep:{instance}:monitor_events      (Pub/Sub channel)
//
// Requests, replies and callbacks are CBOR encoded (deterministic, integer
// keys). Monitor events are JSON so they can be read with redis-cli.
//
// # Sessions
//
// A session is the identity of one joined federate on the bus. The client
// picks it (a UUID) when it joins and sends it with every later request;
// the server keys its connection table and the callback list on it.
// Creating and destroying an execution and the operator query
// list_federations need no session.
package fedbus
