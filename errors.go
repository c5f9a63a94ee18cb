package stillcam

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a capture failure. Each step of configuration and capture
// fails with its own kind.
type Kind int

const (
	KindGeneric Kind = iota
	KindDeviceOpen
	KindStreamParam
	KindCrop
	KindFormat
	KindFileCreate
	KindAllocation
	KindCaptureRead
	KindWrite
)

var kindNames = map[Kind]string{
	KindGeneric:     "generic",
	KindDeviceOpen:  "device open",
	KindStreamParam: "stream parameters",
	KindCrop:        "crop",
	KindFormat:      "format",
	KindFileCreate:  "file create",
	KindAllocation:  "allocation",
	KindCaptureRead: "capture read",
	KindWrite:       "write",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error describes a failed step against a device or file path.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("stillcam: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("stillcam: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cause lets errors.Cause see through an Error.
func (e *Error) Cause() error { return e.Err }

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindGeneric.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGeneric
}
