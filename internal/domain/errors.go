package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures at the pipeline and engine boundaries.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation_error"
	KindNotFound   ErrorKind = "not_found"
	KindUpstream   ErrorKind = "upstream_failure"
)

// Stage identifies which step of an operation failed.
type Stage string

const (
	StageCollection Stage = "collection"
	StageDownload   Stage = "download"
	StageTranscribe Stage = "transcribe"
	StageEmbed      Stage = "embed"
	StageIndex      Stage = "index"
	StageRetrieve   Stage = "retrieve"
	StageGenerate   Stage = "generate"
	StageStore      Stage = "store"
)

// ErrNotFound is wrapped by repositories when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Error is a classified failure. Callers match on Kind and Stage with errors.As
// instead of inspecting message strings.
type Error struct {
	Kind    ErrorKind
	Stage   Stage
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil && e.Err != ErrNotFound {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Stage, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a KindValidation error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error for the named entity.
func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id), Err: ErrNotFound}
}

// Upstream wraps a collaborator failure with the stage it happened in.
// An err that is already classified keeps its kind and gains the stage only if it has none.
func Upstream(stage Stage, err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		if de.Stage == "" {
			return &Error{Kind: de.Kind, Stage: stage, Message: de.Message, Err: de.Err}
		}
		return de
	}
	return &Error{Kind: KindUpstream, Stage: stage, Err: err}
}

// KindOf returns the classification of err, or "" if err is unclassified.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// StageOf returns the failure stage of err, or "" if none is recorded.
func StageOf(err error) Stage {
	var de *Error
	if errors.As(err, &de) {
		return de.Stage
	}
	return ""
}

// IsNotFound reports whether err is a NotFound classification or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound || errors.Is(err, ErrNotFound)
}
