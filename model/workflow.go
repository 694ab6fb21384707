package model

import "fmt"

// StateKind names the state of a session workflow.
type StateKind string

const (
	StateIdle          StateKind = "idle"
	StateFilesSelected StateKind = "files_selected"
	StateSubmitting    StateKind = "submitting"
	StateSucceeded     StateKind = "succeeded"
	StateFailed        StateKind = "failed"
)

// ErrorKind classifies a failure shown to the operator.
type ErrorKind string

const (
	ErrValidation   ErrorKind = "validation"
	ErrTimeout      ErrorKind = "timeout"
	ErrUnreachable  ErrorKind = "unreachable"
	ErrServiceError ErrorKind = "service_error"
)

// ErrorDescriptor is the operator-facing form of a failure.
type ErrorDescriptor struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// WorkflowError is a classified failure of the upload or analysis workflow.
type WorkflowError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func (e *WorkflowError) Descriptor() ErrorDescriptor {
	return ErrorDescriptor{Kind: e.Kind, Message: e.Message}
}

func NewValidationError(msg string) *WorkflowError {
	return &WorkflowError{Kind: ErrValidation, Message: msg}
}

func NewServiceError(msg string, err error) *WorkflowError {
	return &WorkflowError{Kind: ErrServiceError, Message: msg, Err: err}
}

// WorkflowState is a point-in-time view of a session.
type WorkflowState struct {
	Session    string           `json:"session"`
	State      StateKind        `json:"state"`
	Generation uint64           `json:"generation"`
	OP1        *ImageAsset      `json:"op1,omitempty"`
	OP3        *ImageAsset      `json:"op3,omitempty"`
	Result     *AnalysisResult  `json:"result,omitempty"`
	Summary    *Summary         `json:"summary,omitempty"`
	Warning    string           `json:"warning,omitempty"`
	Error      *ErrorDescriptor `json:"error,omitempty"`
	CanSubmit  bool             `json:"can_submit"`
	CanExport  bool             `json:"can_export"`
}

// Asset returns the asset held in a slot.
func (s *WorkflowState) Asset(slot Slot) *ImageAsset {
	if slot == SlotOP3 {
		return s.OP3
	}
	return s.OP1
}
