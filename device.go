package stillcam

import (
	"fmt"

	"github.com/pkg/errors"
)

// DefaultDevice is the capture device used when no device is configured.
const DefaultDevice = "/dev/video0"

// Fract is a rational number, used for the frame interval.
type Fract struct {
	Numerator   uint32 `json:"numerator"`
	Denominator uint32 `json:"denominator"`
}

func (f Fract) String() string { return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator) }

// StreamParm carries the capture parameters set before the format.
type StreamParm struct {
	TimePerFrame Fract
	CaptureMode  uint32
}

// Rect is a crop window in sensor coordinates.
type Rect struct {
	Left   int32
	Top    int32
	Width  uint32
	Height uint32
}

// FrameFormat is the single-plane capture format as negotiated with the
// driver. SizeImage is the number of bytes one read delivers.
type FrameFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  PixelFormat
	BytesPerLine uint32
	SizeImage    uint32
}

func (f FrameFormat) String() string {
	return fmt.Sprintf("%dx%d %s stride=%d size=%d", f.Width, f.Height, f.PixelFormat, f.BytesPerLine, f.SizeImage)
}

// A Device is an opened capture device. Implementations are not safe for
// concurrent use.
type Device interface {
	SetStreamParm(p StreamParm) error
	SetCrop(r Rect) error
	// SetFormat requests a format; the driver may adjust it in place.
	SetFormat(f *FrameFormat) error
	GetFormat() (FrameFormat, error)
	// Read performs a single read of at most len(p) bytes.
	Read(p []byte) (int, error)
	Close() error
}

// OpenFunc opens the device at path.
type OpenFunc func(path string) (Device, error)

// ErrTimeout is returned by a device read that did not become ready within the
// configured read timeout.
var ErrTimeout = errors.New("timed out waiting for frame")
