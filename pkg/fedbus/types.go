package fedbus

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dyluth/lockstep/pkg/rti"
)

// Op names an Ambassador call carried as a Request.
type Op string

const (
	OpCreateFederationExecution   Op = "create_federation_execution"
	OpDestroyFederationExecution  Op = "destroy_federation_execution"
	OpJoinFederationExecution     Op = "join_federation_execution"
	OpResignFederationExecution   Op = "resign_federation_execution"
	OpJoinedFederates             Op = "joined_federates"
	OpRegisterSyncPoint           Op = "register_sync_point"
	OpSyncPointAchieved           Op = "sync_point_achieved"
	OpGetObjectClassHandle        Op = "get_object_class_handle"
	OpGetAttributeHandle          Op = "get_attribute_handle"
	OpPublishObjectClass          Op = "publish_object_class"
	OpUnpublishObjectClass        Op = "unpublish_object_class"
	OpSubscribeObjectClass        Op = "subscribe_object_class_attributes"
	OpUnsubscribeObjectClass      Op = "unsubscribe_object_class"
	OpRegisterObjectInstance      Op = "register_object_instance"
	OpUpdateAttributeValues       Op = "update_attribute_values"
	OpEnableTimeRegulation        Op = "enable_time_regulation"
	OpDisableTimeRegulation       Op = "disable_time_regulation"
	OpEnableTimeConstrained       Op = "enable_time_constrained"
	OpDisableTimeConstrained      Op = "disable_time_constrained"
	OpEnableAsynchronousDelivery  Op = "enable_asynchronous_delivery"
	OpDisableAsynchronousDelivery Op = "disable_asynchronous_delivery"
	OpTimeAdvanceRequest          Op = "time_advance_request"

	// OpListFederations is an operator query, not an Ambassador call.
	OpListFederations Op = "list_federations"
)

// sessionless ops are the ones a federate may send before it has joined.
var sessionless = map[Op]bool{
	OpCreateFederationExecution:  true,
	OpDestroyFederationExecution: true,
	OpListFederations:            true,
}

var knownOps = map[Op]bool{
	OpCreateFederationExecution: true, OpDestroyFederationExecution: true,
	OpJoinFederationExecution: true, OpResignFederationExecution: true,
	OpJoinedFederates: true, OpRegisterSyncPoint: true, OpSyncPointAchieved: true,
	OpGetObjectClassHandle: true, OpGetAttributeHandle: true,
	OpPublishObjectClass: true, OpUnpublishObjectClass: true,
	OpSubscribeObjectClass: true, OpUnsubscribeObjectClass: true,
	OpRegisterObjectInstance: true, OpUpdateAttributeValues: true,
	OpEnableTimeRegulation: true, OpDisableTimeRegulation: true,
	OpEnableTimeConstrained: true, OpDisableTimeConstrained: true,
	OpEnableAsynchronousDelivery: true, OpDisableAsynchronousDelivery: true,
	OpTimeAdvanceRequest: true, OpListFederations: true,
}

// Validate reports whether op is a known operation.
func (op Op) Validate() error {
	if !knownOps[op] {
		return fmt.Errorf("unknown op: %q", op)
	}
	return nil
}

// Request is one Ambassador call. Only the fields the op needs are set.
type Request struct {
	ID         string                 `cbor:"1,keyasint"`
	Op         Op                     `cbor:"2,keyasint"`
	Session    string                 `cbor:"3,keyasint,omitempty"`
	Federation string                 `cbor:"4,keyasint,omitempty"`
	Federate   string                 `cbor:"5,keyasint,omitempty"`
	Name       string                 `cbor:"6,keyasint,omitempty"`
	Label      string                 `cbor:"7,keyasint,omitempty"`
	Tag        string                 `cbor:"8,keyasint,omitempty"`
	Class      rti.ObjectClassHandle  `cbor:"9,keyasint,omitempty"`
	Attributes rti.AttributeHandleSet `cbor:"10,keyasint,omitempty"`
	Object     rti.ObjectHandle       `cbor:"11,keyasint,omitempty"`
	Values     rti.AttributeValues    `cbor:"12,keyasint,omitempty"`
	Time       rti.FedTime            `cbor:"13,keyasint,omitempty"`
	Lookahead  rti.FedTime            `cbor:"14,keyasint,omitempty"`
}

// NewRequest returns a request for op with a fresh ID.
func NewRequest(op Op, session string) *Request {
	return &Request{ID: uuid.New().String(), Op: op, Session: session}
}

// Validate checks the envelope: a UUID id, a known op and a session for
// every op that needs one.
func (r *Request) Validate() error {
	if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("id must be a valid UUID: %w", err)
	}
	if err := r.Op.Validate(); err != nil {
		return err
	}
	if r.Session == "" && !sessionless[r.Op] {
		return fmt.Errorf("op %q requires a session", r.Op)
	}
	switch r.Op {
	case OpCreateFederationExecution, OpDestroyFederationExecution, OpJoinFederationExecution:
		if r.Federation == "" {
			return fmt.Errorf("op %q requires a federation name", r.Op)
		}
	}
	if r.Op == OpJoinFederationExecution && r.Federate == "" {
		return fmt.Errorf("op %q requires a federate name", r.Op)
	}
	return nil
}

// Reply answers one Request. A non-empty Code carries a service error.
type Reply struct {
	ID          string                    `cbor:"1,keyasint"`
	Code        string                    `cbor:"2,keyasint,omitempty"`
	Message     string                    `cbor:"3,keyasint,omitempty"`
	Handle      uint32                    `cbor:"4,keyasint,omitempty"`
	Names       []string                  `cbor:"5,keyasint,omitempty"`
	Retraction  rti.EventRetractionHandle `cbor:"6,keyasint,omitempty"`
	Federations []rti.FederationInfo      `cbor:"7,keyasint,omitempty"`
}

// ReplyTo builds the reply to req for the outcome err.
func ReplyTo(req *Request, err error) *Reply {
	r := &Reply{ID: req.ID}
	if err != nil {
		r.Code = rti.Code(err)
		r.Message = err.Error()
	}
	return r
}

// Err rebuilds the service error carried by the reply, if any.
func (r *Reply) Err() error {
	return rti.FromCode(r.Code, r.Message)
}

// MonitorEvent is a federation lifecycle event broadcast for monitoring.
type MonitorEvent struct {
	Type       string  `json:"type"`
	Federation string  `json:"federation"`
	Federate   string  `json:"federate,omitempty"`
	Label      string  `json:"label,omitempty"`
	Time       float64 `json:"time,omitempty"`
	AtMs       int64   `json:"at_ms"`
}

// Validate checks the required fields.
func (e *MonitorEvent) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if e.Federation == "" {
		return fmt.Errorf("event federation is required")
	}
	return nil
}
