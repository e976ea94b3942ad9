package pubsub

import "fmt"

// StatusCode is a 32-bit status value in the same numeric space the host
// OPC UA server uses for all of its APIs; the PubSub data plane never
// invents a separate error convention.
type StatusCode uint32

const (
	Good StatusCode = 0

	BadInvalidArgument     StatusCode = 0x80AB0000
	BadOutOfMemory         StatusCode = 0x80AC0000
	BadCommunicationError  StatusCode = 0x80AD0000
	BadConnectionRejected  StatusCode = 0x80AE0000
	BadNotConnected        StatusCode = 0x80AF0000
	BadSecurityChecksFailed StatusCode = 0x80B00000
	BadNotImplemented      StatusCode = 0x80B10000
	BadNotSupported        StatusCode = 0x80B20000
	BadConfigurationError  StatusCode = 0x80B30000
	BadConfigurationLocked StatusCode = 0x80B40000
	BadNotFound            StatusCode = 0x80B50000
)

var statusNames = map[StatusCode]string{
	Good:                    "Good",
	BadInvalidArgument:      "BadInvalidArgument",
	BadOutOfMemory:          "BadOutOfMemory",
	BadCommunicationError:   "BadCommunicationError",
	BadConnectionRejected:   "BadConnectionRejected",
	BadNotConnected:         "BadNotConnected",
	BadSecurityChecksFailed: "BadSecurityChecksFailed",
	BadNotImplemented:       "BadNotImplemented",
	BadNotSupported:         "BadNotSupported",
	BadConfigurationError:   "BadConfigurationError",
	BadConfigurationLocked:  "BadConfigurationLocked",
	BadNotFound:             "BadNotFound",
}

func (c StatusCode) String() string {
	if name, ok := statusNames[c]; ok {
		return name
	}
	return fmt.Sprintf("StatusCode(0x%08X)", uint32(c))
}

// IsGood reports whether c indicates success.
func (c StatusCode) IsGood() bool { return c == Good }

// StatusError wraps a StatusCode as an error, optionally carrying the
// underlying cause (e.g. an I/O error from a transport channel).
type StatusError struct {
	Code    StatusCode
	Message string
	Parent  error
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Parent != nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Parent.Error())
	}
	return e.Code.String()
}

func (e *StatusError) Unwrap() error { return e.Parent }

// Is allows errors.Is(err, pubsub.BadNotConnected) style checks against a
// StatusCode constant.
func (e *StatusError) Is(target error) bool {
	if code, ok := target.(StatusCode); ok {
		return e.Code == code
	}
	return false
}

// Error satisfies the error interface directly on StatusCode, so a bare
// StatusCode can be returned and compared with errors.Is against itself.
func (c StatusCode) Error() string { return c.String() }

// Wrap builds a StatusError from c with an explanatory message.
func (c StatusCode) Wrap(message string) error {
	return &StatusError{Code: c, Message: message}
}

// WrapErr builds a StatusError from c wrapping a lower-level cause.
func (c StatusCode) WrapErr(cause error) error {
	return &StatusError{Code: c, Parent: cause}
}

// IsStatus reports whether err carries StatusCode code.
func IsStatus(err error, code StatusCode) bool {
	if err == nil {
		return code == Good
	}
	if c, ok := err.(StatusCode); ok {
		return c == code
	}
	if se, ok := err.(*StatusError); ok {
		return se.Code == code
	}
	return false
}
