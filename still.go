// Package stillcam captures a single still image from a V4L2 capture device.
//
// The device is configured once (frame interval, crop window, pixel format),
// one frame is read with a blocking read, and packed YUV frames are rewritten
// as planar YUV 4:2:0 before being stored. An existing file is never
// overwritten.
package stillcam

import (
	"context"
	"log/slog"
	"path/filepath"
)

// Status codes returned by CaptureStill.
const (
	StatusSuccess       = 0
	StatusFailure       = -1
	StatusAlreadyExists = 1
)

var kindStatus = map[Kind]int{
	KindGeneric:     StatusFailure,
	KindDeviceOpen:  -2,
	KindStreamParam: -3,
	KindCrop:        -4,
	KindFormat:      -5,
	KindFileCreate:  -6,
	KindAllocation:  -7,
	KindCaptureRead: -8,
	KindWrite:       -9,
}

// Status maps the result of a capture to a status code: StatusSuccess for a
// nil error, otherwise a negative code distinct for each Kind.
func Status(err error) int {
	if err == nil {
		return StatusSuccess
	}
	if s, ok := kindStatus[KindOf(err)]; ok {
		return s
	}
	return StatusFailure
}

// An Option adjusts how CaptureStill reaches the device.
type Option func(o *options)

type options struct {
	open   OpenFunc
	alloc  Allocator
	logger *slog.Logger
}

// WithOpener replaces the device opener.
func WithOpener(open OpenFunc) Option {
	return func(o *options) { o.open = open }
}

// WithAllocator replaces the frame buffer allocator.
func WithAllocator(a Allocator) Option {
	return func(o *options) { o.alloc = a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Capture configures the device and stores one frame at dir/filename.
func Capture(ctx context.Context, cfg Config, dir, filename string, opts ...Option) (Result, error) {
	return capture(ctx, cfg, dir, filename, newOptions(opts))
}

func newOptions(opts []Option) options {
	o := options{logger: discardLogger}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func capture(ctx context.Context, cfg Config, dir, filename string, o options) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, newError(KindGeneric, "validate config", "", err)
	}

	dev, err := Configure(ctx, cfg, o.open, o.logger)
	if err != nil {
		return Result{}, err
	}

	c := NewCapturer(cfg, o.logger)
	c.Alloc = o.alloc
	return c.CaptureAndSave(dev, filepath.Join(dir, filename))
}

// CaptureStill is the status-code entry point used by host applications:
// StatusSuccess when a still was written, StatusAlreadyExists when the file
// was already there, and a negative code on failure.
func CaptureStill(ctx context.Context, cfg Config, dir, filename string, opts ...Option) int {
	o := newOptions(opts)
	res, err := capture(ctx, cfg, dir, filename, o)
	if err != nil {
		o.logger.Error("capture.failed", "kind", KindOf(err).String(), "error", err)
		return Status(err)
	}
	if res.Outcome == AlreadyExists {
		return StatusAlreadyExists
	}
	return StatusSuccess
}
