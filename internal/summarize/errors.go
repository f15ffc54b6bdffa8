package summarize

import "fmt"

// ParseError reports reduce output that is not a valid briefing.
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse briefing: %v", e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
