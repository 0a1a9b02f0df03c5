// errors.go defines the error taxonomy shared by coders, filters and the pipeline.

package types

import (
	"errors"
	"fmt"
	"io"
)

type flowControlError struct {
	message string
	wraps   error
}

func (e *flowControlError) Error() string {
	return e.message
}

func (e *flowControlError) Unwrap() error {
	return e.wraps
}

var (
	// ErrBusy means the input was refused because pending output has to be
	// drained first. Retry after a receive.
	ErrBusy error = &flowControlError{message: "busy: output has to be drained first"}

	// ErrEmpty means no output is available right now; more input is needed.
	ErrEmpty error = &flowControlError{message: "empty: more input is needed"}

	// ErrEOF means the stream has ended and no more output will follow.
	// errors.Is(ErrEOF, io.EOF) holds.
	ErrEOF error = &flowControlError{message: "end of stream", wraps: io.EOF}

	// ErrInvalidData is returned on malformed input or configuration, such as
	// opening an encoder where a decoder is required.
	ErrInvalidData = errors.New("invalid data")
)

// IsFlowControl reports whether err is one of ErrBusy, ErrEmpty or ErrEOF.
// These are not failures.
func IsFlowControl(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrEmpty) || errors.Is(err, ErrEOF)
}

type ErrCodecNotFound struct {
	Name      string
	ID        string
	IsEncoder bool
}

func (e ErrCodecNotFound) Error() string {
	kind := "decoder"
	if e.IsEncoder {
		kind = "encoder"
	}
	switch {
	case e.Name != "":
		return fmt.Sprintf("%s '%s' not found", kind, e.Name)
	case e.ID != "":
		return fmt.Sprintf("%s for codec '%s' not found", kind, e.ID)
	default:
		return fmt.Sprintf("%s not found", kind)
	}
}

func (e ErrCodecNotFound) Is(target error) bool {
	_, ok := target.(ErrCodecNotFound)
	return ok
}

// ErrUnsupported is returned when a requested property value is outside
// the set a codec declares.
type ErrUnsupported struct {
	Property string
	Value    string
}

func (e ErrUnsupported) Error() string {
	return fmt.Sprintf("%s '%s' is not supported", e.Property, e.Value)
}

func (e ErrUnsupported) Is(target error) bool {
	_, ok := target.(ErrUnsupported)
	return ok
}

type ErrIO struct {
	Err error
}

func (e ErrIO) Error() string {
	return fmt.Sprintf("I/O error: %v", e.Err)
}

func (e ErrIO) Unwrap() error {
	return e.Err
}

func (e ErrIO) Is(target error) bool {
	_, ok := target.(ErrIO)
	return ok
}

// ErrBug means an internal invariant was violated.
type ErrBug struct {
	Message string
}

func (e ErrBug) Error() string {
	return "internal error (bug): " + e.Message
}

func (e ErrBug) Is(target error) bool {
	_, ok := target.(ErrBug)
	return ok
}
