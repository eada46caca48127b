package readably

import (
	"errors"
	"fmt"
)

// Sentinel failure kinds. Callers match them with errors.Is; the
// wrapping error types below carry the run-specific detail.
var (
	// ErrTooDeep is returned when markup nesting exceeds the parser depth guard.
	ErrTooDeep = errors.New("markup nesting too deep")
	// ErrNoRootElement is returned when no root element can be located or
	// synthesized from the top-level children.
	ErrNoRootElement = errors.New("no root element")
	// ErrBelowThreshold is returned when content was found but its text
	// length stays under the configured character threshold.
	ErrBelowThreshold = errors.New("content below character threshold")
	// ErrNoCandidates is returned when the document holds no content-bearing
	// elements at all.
	ErrNoCandidates = errors.New("no scoreable content")
	// ErrBudgetExceeded is returned when the wall-clock budget runs out
	// before the pipeline completes.
	ErrBudgetExceeded = errors.New("extraction budget exceeded")
)

// ParseError reports that the input markup exceeded the parser's tolerance.
type ParseError struct {
	Reason error
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("parse: %v", e.Reason)
	}
	return fmt.Sprintf("parse: %v: %s", e.Reason, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Reason }

// ExtractionError reports that the pipeline ran to completion without
// producing an acceptable article. TextLength holds the length of the best
// rejected attempt, zero when nothing was scoreable.
type ExtractionError struct {
	Reason     error
	TextLength int
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract: %v (best attempt: %d chars)", e.Reason, e.TextLength)
}

func (e *ExtractionError) Unwrap() error { return e.Reason }
