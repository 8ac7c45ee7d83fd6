package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnreadable matches every UnreadableFileError via errors.Is.
var ErrUnreadable = errors.New("file unreadable")

// ErrEmptyFile is the cause recorded when a file holds no data at all.
var ErrEmptyFile = errors.New("file is empty")

// UnreadableFileError is returned when a file cannot be read as text under any
// candidate encoding and separator. It is the only fatal ingest error.
type UnreadableFileError struct {
	Path     string
	Cause    error
	Attempts []Attempt
}

func (e *UnreadableFileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unreadable file %s", e.Path)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if n := len(e.Attempts); n > 0 {
		fmt.Fprintf(&b, " (%d attempts failed)", n)
	}
	return b.String()
}

func (e *UnreadableFileError) Unwrap() error { return e.Cause }

// Is lets callers test errors.Is(err, ErrUnreadable).
func (e *UnreadableFileError) Is(target error) bool { return target == ErrUnreadable }
