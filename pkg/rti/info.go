package rti

// FederationInfo is a point-in-time view of one federation execution, used
// by operators listing what a server hosts.
type FederationInfo struct {
	Name       string         `cbor:"1,keyasint" json:"name"`
	Federates  []FederateInfo `cbor:"2,keyasint,omitempty" json:"federates"`
	Objects    int            `cbor:"3,keyasint,omitempty" json:"objects"`
	SyncPoints []string       `cbor:"4,keyasint,omitempty" json:"sync_points,omitempty"`
}

// FederateInfo is the time state of one joined federate.
type FederateInfo struct {
	Handle      FederateHandle `cbor:"1,keyasint" json:"handle"`
	Name        string         `cbor:"2,keyasint" json:"name"`
	Time        FedTime        `cbor:"3,keyasint,omitempty" json:"time"`
	Lookahead   FedTime        `cbor:"4,keyasint,omitempty" json:"lookahead"`
	Regulating  bool           `cbor:"5,keyasint,omitempty" json:"regulating"`
	Constrained bool           `cbor:"6,keyasint,omitempty" json:"constrained"`
	Advancing   bool           `cbor:"7,keyasint,omitempty" json:"advancing"`
}
