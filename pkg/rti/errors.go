package rti

import (
	"errors"
	"fmt"
	"strings"
)

// Errors raised by the federation service. Transports carry them across the
// wire by code (see Code and FromCode) so errors.Is keeps working on the
// federate side.
var (
	ErrFederationExecutionAlreadyExists = errors.New("federation execution already exists")
	ErrFederationExecutionDoesNotExist  = errors.New("federation execution does not exist")
	ErrFederatesCurrentlyJoined         = errors.New("federates currently joined")
	ErrFederateAlreadyExecutionMember   = errors.New("federate already execution member")
	ErrFederateNotExecutionMember       = errors.New("federate not execution member")
	ErrNameNotFound                     = errors.New("name not found")
	ErrObjectClassNotDefined            = errors.New("object class not defined")
	ErrAttributeNotDefined              = errors.New("attribute not defined")
	ErrObjectClassNotPublished          = errors.New("object class not published")
	ErrObjectAlreadyRegistered          = errors.New("object already registered")
	ErrObjectNotKnown                   = errors.New("object not known")
	ErrInvalidFederationTime            = errors.New("invalid federation time")
	ErrInvalidLookahead                 = errors.New("invalid lookahead")
	ErrTimeAdvanceAlreadyInProgress     = errors.New("time advance already in progress")
	ErrTimeRegulationAlreadyEnabled     = errors.New("time regulation already enabled")
	ErrTimeRegulationWasNotEnabled      = errors.New("time regulation was not enabled")
	ErrTimeConstrainedAlreadyEnabled    = errors.New("time constrained already enabled")
	ErrTimeConstrainedWasNotEnabled     = errors.New("time constrained was not enabled")
	ErrNotConnected                     = errors.New("not connected")
	ErrRTIInternal                      = errors.New("rti internal error")
)

var codes = map[string]error{
	"FederationExecutionAlreadyExists": ErrFederationExecutionAlreadyExists,
	"FederationExecutionDoesNotExist":  ErrFederationExecutionDoesNotExist,
	"FederatesCurrentlyJoined":         ErrFederatesCurrentlyJoined,
	"FederateAlreadyExecutionMember":   ErrFederateAlreadyExecutionMember,
	"FederateNotExecutionMember":       ErrFederateNotExecutionMember,
	"NameNotFound":                     ErrNameNotFound,
	"ObjectClassNotDefined":            ErrObjectClassNotDefined,
	"AttributeNotDefined":              ErrAttributeNotDefined,
	"ObjectClassNotPublished":          ErrObjectClassNotPublished,
	"ObjectAlreadyRegistered":          ErrObjectAlreadyRegistered,
	"ObjectNotKnown":                   ErrObjectNotKnown,
	"InvalidFederationTime":            ErrInvalidFederationTime,
	"InvalidLookahead":                 ErrInvalidLookahead,
	"TimeAdvanceAlreadyInProgress":     ErrTimeAdvanceAlreadyInProgress,
	"TimeRegulationAlreadyEnabled":     ErrTimeRegulationAlreadyEnabled,
	"TimeRegulationWasNotEnabled":      ErrTimeRegulationWasNotEnabled,
	"TimeConstrainedAlreadyEnabled":    ErrTimeConstrainedAlreadyEnabled,
	"TimeConstrainedWasNotEnabled":     ErrTimeConstrainedWasNotEnabled,
	"NotConnected":                     ErrNotConnected,
	"RTIinternalError":                 ErrRTIInternal,
}

// Code returns the wire code of the service error wrapped by err, or
// "RTIinternalError" for anything else. Code(nil) is "".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for code, sentinel := range codes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return "RTIinternalError"
}

// FromCode rebuilds an error from its wire code and message.
// The result wraps the matching sentinel.
func FromCode(code, msg string) error {
	if code == "" {
		return nil
	}
	sentinel, ok := codes[code]
	if !ok {
		sentinel = ErrRTIInternal
	}
	msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	if msg == "" || msg == sentinel.Error() {
		return sentinel
	}
	return fmt.Errorf("%s: %w", msg, sentinel)
}
