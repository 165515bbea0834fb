package pipeline

import (
	"errors"
	"fmt"

	"github.com/clearcheck/verify-cli/internal/model"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	ErrKindIngestion    ErrorKind = "ingestion"
	ErrKindStage        ErrorKind = "stage"
	ErrKindPrecondition ErrorKind = "precondition"
	ErrKindStorage      ErrorKind = "storage"
	ErrKindStream       ErrorKind = "stream"
)

// Error is a classified pipeline failure tied to the stage that raised it.
// Storage errors are recovered locally and never surface through Run; the
// other kinds terminate the run.
type Error struct {
	Kind  ErrorKind
	Stage model.AgentStage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, stage model.AgentStage, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// KindOf returns the classification of err, or "" if it is not a pipeline
// error.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Translate maps a failure to a user-presentable message. Exactly one such
// message is shown per failed run.
func Translate(err error) string {
	var pe *Error
	if !errors.As(err, &pe) {
		return "Analysis failed due to an unexpected error. Please try again."
	}

	switch pe.Kind {
	case ErrKindPrecondition:
		return "There was no usable text or visual content to synthesize a report from."
	case ErrKindStream:
		return "The report stream was interrupted before it finished. Please rerun the analysis."
	}

	switch pe.Stage {
	case model.StageIngestion:
		return "Content could not be retrieved. Check that the URL is accessible and try again."
	case model.StageVisualAnalysis:
		return "The supplied media could not be analyzed. It may be malformed or in an unsupported format."
	case model.StageSourceIntelligence:
		return "Source credibility could not be assessed for this submission."
	case model.StageFinalSynthesis:
		return "The final report could not be generated. Please try again."
	}
	return "An analysis stage failed. Earlier results remain available."
}
