package types

import (
	"errors"
	"fmt"
)

type Kind string

const (
	SourceUnavailable       Kind = "source_unavailable"
	StoreUnavailable        Kind = "store_unavailable"
	OracleMalformedResponse Kind = "oracle_malformed_response"
	OracleUnavailable       Kind = "oracle_unavailable"
	SinkUnavailable         Kind = "sink_unavailable"
	SinkMisconfigured       Kind = "sink_misconfigured"
)

// StageError is a failure contained at a pipeline stage boundary.
type StageError struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewStageError(kind Kind, stage string, err error) *StageError {
	return &StageError{
		Kind:  kind,
		Stage: stage,
		Err:   err,
	}
}

func IsKind(err error, kind Kind) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
