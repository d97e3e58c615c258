package site

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("site: not found")
	ErrExists   = errors.New("site: already exists")
	ErrInvalid  = errors.New("site: invalid argument")
)

// Error codes carried across the invocation boundary.
const (
	CodeNotFound       = "not_found"
	CodeExists         = "exists"
	CodeInvalid        = "invalid"
	CodeInternal       = "internal"
	CodeTransport      = "transport"
	CodeDecode         = "decode"
	CodeUnknownCommand = "unknown_command"
)

// InvocationError is a failed command as reported by the host or the transport.
type InvocationError struct {
	Command string
	Code    string
	Message string
}

func (e *InvocationError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Command, e.Code, e.Message)
}

func (e *InvocationError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == CodeNotFound
	case ErrExists:
		return e.Code == CodeExists
	case ErrInvalid:
		return e.Code == CodeInvalid
	}
	return false
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// CodeOf maps an error to its boundary code.
func CodeOf(err error) string {
	var ie *InvocationError
	switch {
	case errors.As(err, &ie):
		return ie.Code
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrExists):
		return CodeExists
	case errors.Is(err, ErrInvalid):
		return CodeInvalid
	}
	return CodeInternal
}
