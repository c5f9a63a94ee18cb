package stillcam

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// DefaultMaxFrameSize is the frame buffer limit used when Config leaves
// MaxFrameSize unset.
const DefaultMaxFrameSize = 64 << 20

var discardLogger = slog.New(slog.DiscardHandler)

// Outcome tells a caller whether a new still was written.
type Outcome int

const (
	Saved Outcome = iota
	AlreadyExists
)

func (o Outcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case AlreadyExists:
		return "already exists"
	default:
		return "unknown"
	}
}

// Result describes a finished capture.
type Result struct {
	Outcome Outcome
	Path    string
	// Format is the format reported by the device at capture time.
	Format FrameFormat
	// Converted is set when the file holds planar YUV420 rather than the
	// raw frame.
	Converted bool
	Written   int
}

// An Allocator provides the frame buffers for one capture. Every buffer it
// hands out is given back through Free before CaptureAndSave returns.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(b []byte)
}

type heapAllocator struct {
	limit int
}

func (a heapAllocator) Alloc(n int) ([]byte, error) {
	if n <= 0 || n > a.limit {
		return nil, errors.Errorf("cannot allocate %d byte frame", n)
	}
	return make([]byte, n), nil
}

func (heapAllocator) Free([]byte) {}

// A Capturer reads one frame from a configured device and stores it.
type Capturer struct {
	Config Config
	Logger *slog.Logger
	// Alloc defaults to heap allocation bounded by Config.MaxFrameSize.
	Alloc Allocator

	openFile   func(name string, flag int, perm os.FileMode) (*os.File, error)
	createTemp func(dir, pattern string) (*os.File, error)
}

// NewCapturer creates a Capturer for cfg.
func NewCapturer(cfg Config, logger *slog.Logger) *Capturer {
	return &Capturer{Config: cfg, Logger: logger}
}

func (c *Capturer) logger() *slog.Logger {
	if c.Logger == nil {
		return discardLogger
	}
	return c.Logger
}

func (c *Capturer) allocator() Allocator {
	if c.Alloc == nil {
		limit := c.Config.MaxFrameSize
		if limit <= 0 {
			limit = DefaultMaxFrameSize
		}
		return heapAllocator{limit: limit}
	}
	return c.Alloc
}

// CaptureAndSave takes ownership of dev, reads a single frame from it and
// writes the frame to dst. The device is closed before CaptureAndSave returns,
// whatever the outcome.
//
// If dst already exists nothing is read or written and the Outcome is
// AlreadyExists. Otherwise dst is reserved with an exclusive create and the
// frame is written to a temporary file in the same directory, which replaces
// the reservation once complete. On failure neither file is left behind.
func (c *Capturer) CaptureAndSave(dev Device, dst string) (res Result, err error) {
	logger := c.logger()
	res.Path = dst

	defer func() {
		if cerr := dev.Close(); cerr != nil {
			logger.Warn("device.close", "error", cerr)
		}
	}()

	if _, err := os.Lstat(dst); err == nil {
		logger.Info("capture.exists", "path", dst)
		res.Outcome = AlreadyExists
		return res, nil
	}

	openFile, createTemp := os.OpenFile, os.CreateTemp
	if c.openFile != nil {
		openFile = c.openFile
	}
	if c.createTemp != nil {
		createTemp = c.createTemp
	}

	reserved, err := openFile(dst, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			logger.Info("capture.exists", "path", dst)
			res.Outcome = AlreadyExists
			return res, nil
		}
		return res, newError(KindFileCreate, "create", dst, err)
	}
	committed := false
	defer func() {
		reserved.Close()
		if !committed {
			os.Remove(dst)
		}
	}()

	tmp, err := createTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return res, newError(KindFileCreate, "create temporary for", dst, err)
	}
	defer func() {
		tmp.Close()
		if !committed {
			os.Remove(tmp.Name())
		}
	}()

	f, err := dev.GetFormat()
	if err != nil {
		return res, newError(KindFormat, "get format", c.Config.Device, err)
	}
	res.Format = f
	logger.Info("capture.format",
		"width", f.Width,
		"height", f.Height,
		"pixel_format", f.PixelFormat.String(),
		"bytes_per_line", f.BytesPerLine,
		"size_image", f.SizeImage,
	)

	alloc := c.allocator()
	size := int(f.SizeImage)
	raw, err := alloc.Alloc(size)
	if err != nil {
		return res, newError(KindAllocation, "allocate raw frame", "", err)
	}
	defer alloc.Free(raw)
	conv, err := alloc.Alloc(size)
	if err != nil {
		return res, newError(KindAllocation, "allocate converted frame", "", err)
	}
	defer alloc.Free(conv)

	n, err := dev.Read(raw)
	if err != nil {
		return res, newError(KindCaptureRead, "read", c.Config.Device, err)
	}
	if n != size {
		return res, newError(KindCaptureRead, "read", c.Config.Device,
			errors.Wrapf(io.ErrUnexpectedEOF, "short read: %d of %d bytes", n, size))
	}

	data := raw
	if c.Config.Convert && !f.PixelFormat.Planar() {
		if err := f.Fits(len(raw), len(conv)); err != nil {
			return res, newError(KindFormat, "convert", c.Config.Device, err)
		}
		ConvertYUV420(conv, raw, f)
		data = conv[:YUV420Size(int(f.Width), int(f.Height))]
		res.Converted = true
	}

	if _, err := tmp.Write(data); err != nil {
		return res, newError(KindWrite, "write", tmp.Name(), err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return res, newError(KindWrite, "chmod", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		return res, newError(KindWrite, "sync", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return res, newError(KindWrite, "close", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return res, newError(KindWrite, "rename", dst, err)
	}
	committed = true

	res.Outcome = Saved
	res.Written = len(data)
	logger.Info("capture.saved", "path", dst, "bytes", len(data), "converted", res.Converted)
	return res, nil
}
