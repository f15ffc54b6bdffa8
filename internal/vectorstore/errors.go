package vectorstore

import "fmt"

// Error represents a failure of the underlying vector index.
type Error struct {
	Op      string
	UserID  int64
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vectorstore %s (user %d): %s: %v", e.Op, e.UserID, e.Message, e.Cause)
	}
	return fmt.Sprintf("vectorstore %s (user %d): %s", e.Op, e.UserID, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
