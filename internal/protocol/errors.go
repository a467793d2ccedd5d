package protocol

import (
	"errors"
	"fmt"
)

// Kind classifies why a status probe failed.
type Kind int

const (
	KindConnectFailed       Kind = iota + 1 // dial, read or write failure
	KindInvalidStatusLength                 // server announced a non-positive length
	KindMalformedPayload                    // status JSON could not be decoded
	KindVarIntTooLong                       // VarInt not terminated within 5 bytes
)

var kindStrings = map[Kind]string{
	KindConnectFailed:       "connect failed",
	KindInvalidStatusLength: "invalid status length",
	KindMalformedPayload:    "malformed payload",
	KindVarIntTooLong:       "varint too long",
}

// String returns the string representation of Kind.
func (k Kind) String() string {
	if s, ok := kindStrings[k]; ok {
		return s
	}
	return "unknown"
}

// Error is a probe failure of a given Kind. Err holds the underlying
// transport or decode error, if any.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind, so callers can
// write errors.Is(err, protocol.ErrConnectFailed).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Op == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrConnectFailed       = &Error{Kind: KindConnectFailed}
	ErrInvalidStatusLength = &Error{Kind: KindInvalidStatusLength}
	ErrMalformedPayload    = &Error{Kind: KindMalformedPayload}
	ErrVarIntTooLong       = &Error{Kind: KindVarIntTooLong}
)

// ErrControlCharacter marks a malformed payload that failed because a raw
// control character (0x00-0x1F) appeared inside a JSON string. Some Forge
// servers emit these in their mod data; the condition is usually transient.
var ErrControlCharacter = errors.New("control character (\\u0000-\\u001F) in string")

// ConnectFailed wraps a transport error.
func ConnectFailed(op string, err error) error {
	return newError(KindConnectFailed, op, err)
}

// InvalidStatusLength reports a non-positive announced packet length.
func InvalidStatusLength(length int32) error {
	return newError(KindInvalidStatusLength, "read status", fmt.Errorf("length %d", length))
}

// MalformedPayload wraps a JSON decode error.
func MalformedPayload(err error) error {
	return newError(KindMalformedPayload, "decode status", err)
}

// IsControlCharacter reports whether err is a malformed payload caused by a
// raw control character.
func IsControlCharacter(err error) bool {
	return errors.Is(err, ErrMalformedPayload) && errors.Is(err, ErrControlCharacter)
}
