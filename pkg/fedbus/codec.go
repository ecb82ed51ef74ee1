package fedbus

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/dyluth/lockstep/pkg/rti"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create bus CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create bus CBOR decoder mode: %v", err))
	}
}

// EncodeRequest validates and encodes r.
func EncodeRequest(r *Request) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return encMode.Marshal(r)
}

// DecodeRequest decodes and validates a request.
func DecodeRequest(data []byte) (*Request, error) {
	var r Request
	if err := decMode.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &r, nil
}

func EncodeReply(r *Reply) ([]byte, error) { return encMode.Marshal(r) }

func DecodeReply(data []byte) (*Reply, error) {
	var r Reply
	if err := decMode.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}
	return &r, nil
}

func EncodeCallback(cb rti.Callback) ([]byte, error) { return encMode.Marshal(cb) }

func DecodeCallback(data []byte) (rti.Callback, error) {
	var cb rti.Callback
	if err := decMode.Unmarshal(data, &cb); err != nil {
		return rti.Callback{}, fmt.Errorf("failed to decode callback: %w", err)
	}
	return cb, nil
}
