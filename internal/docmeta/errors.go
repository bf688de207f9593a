package docmeta

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Callers decide how to present it.
type Kind string

const (
	KindUnsupportedFormat Kind = "unsupported_format"
	KindContentMismatch   Kind = "content_mismatch"
	KindMalformedDocument Kind = "malformed_document"
	KindInternalFailure   Kind = "internal_failure"
)

// Stage is a step of the extraction pipeline.
type Stage string

const (
	StageReceived  Stage = "received"
	StageValidated Stage = "validated"
	StageHashed    Stage = "hashed"
	StageExtracted Stage = "extracted"
	StageAssembled Stage = "assembled"
	StageDelivered Stage = "delivered"
)

// Error is the only error type returned across the pipeline boundary.
// Stage is the last stage the upload reached before it failed.
type Error struct {
	Kind  Kind
	Stage Stage
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the classification of err. Anything that is not an *Error
// is an internal failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternalFailure
}

// classify converts err into an *Error tagged with stage.
func classify(stage Stage, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		out := *e
		out.Stage = stage
		return &out
	}
	return &Error{Kind: KindInternalFailure, Stage: stage, Msg: "unexpected failure", Err: err}
}
