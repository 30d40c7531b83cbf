// Package failure defines the error kinds surfaced while walking chapters.
package failure

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork        = errors.New("network failure")
	ErrDecode         = errors.New("decode failure")
	ErrMissingContent = errors.New("missing content")
)

// Error ties a failure kind to the location that produced it.
// errors.Is matches both the kind and the underlying cause.
type Error struct {
	Kind error
	URL  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

func Network(url string, err error) error {
	return &Error{Kind: ErrNetwork, URL: url, Err: err}
}

func Decode(url string, err error) error {
	return &Error{Kind: ErrDecode, URL: url, Err: err}
}

func MissingContent(url, format string, args ...any) error {
	return &Error{Kind: ErrMissingContent, URL: url, Err: fmt.Errorf(format, args...)}
}
