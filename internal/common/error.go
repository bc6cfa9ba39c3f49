package common

import "fmt"

var (
	ErrURLRequired         = fmt.Errorf("url is required")
	ErrFormatRequired      = fmt.Errorf("format id is required")
	ErrInvalidURL          = fmt.Errorf("invalid url")
	ErrExtractionFailed    = fmt.Errorf("extraction failed")
	ErrTaskNotFound        = fmt.Errorf("task not found")
	ErrTaskAlreadyFinished = fmt.Errorf("task has already finished")
	ErrFileNotFound        = fmt.Errorf("file not found")
	ErrInvalidFileName     = fmt.Errorf("invalid file name")
	ErrQueueClosed         = fmt.Errorf("queue is closed")
)

// ExtractorError carries the extractor's own description of a failure.
// It matches ErrExtractionFailed with errors.Is.
type ExtractorError struct {
	Message string
	Err     error
}

func (e *ExtractorError) Error() string {
	return e.Message
}

func (e *ExtractorError) Unwrap() error {
	return e.Err
}

func (e *ExtractorError) Is(target error) bool {
	return target == ErrExtractionFailed
}
