package rabbit

import "fmt"

// FailureKind classifies why a message could not be processed. The consumer
// driver inspects the kind to decide between requeue and dead-letter instead
// of branching on error types.
type FailureKind string

const (
	FailureDecode     FailureKind = "decode"
	FailureDownload   FailureKind = "download"
	FailureRasterize  FailureKind = "rasterize"
	FailureRecognize  FailureKind = "recognize"
	FailurePublish    FailureKind = "publish"
	FailureRepository FailureKind = "repository"
)

// ProcessingError is the terminal outcome of one message's processing.
type ProcessingError struct {
	Kind FailureKind
	Err  error
}

func NewProcessingError(kind FailureKind, err error) *ProcessingError {
	return &ProcessingError{Kind: kind, Err: err}
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Kind, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Requeue reports whether the message should be redelivered to the same
// queue. Every current kind is dead-lettered instead: an immediate requeue
// onto the same worker is not expected to succeed without intervention.
func (e *ProcessingError) Requeue() bool {
	return false
}
