package pipeline

import (
	"errors"
	"fmt"
)

// ErrAborted is returned when the caller requested an abort between stages.
var ErrAborted = errors.New("pipeline aborted")

// ValidationError rejects bad input before the pipeline starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ParseError marks model output a stage could not parse. Stages with a safe
// default recover from it; others escalate.
type ParseError struct {
	Stage  Stage
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: unparseable model output: %s", e.Stage, e.Reason)
}
