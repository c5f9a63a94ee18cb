//go:build !linux

package stillcam

import (
	"time"

	"github.com/pkg/errors"
)

var errNotImplemented = errors.New("stillcam: capture not implemented")

func OpenDevice(path string) (Device, error) {
	return nil, errNotImplemented
}

func DeviceOpener(timeout time.Duration) OpenFunc {
	return OpenDevice
}
