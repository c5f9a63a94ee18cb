package stillcam

import (
	"log/slog"

	"github.com/pkg/errors"
)

var testLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// fakeDevice records every request and serves frame on Read.
type fakeDevice struct {
	format FrameFormat
	frame  []byte
	// short truncates reads to this many bytes when non-zero.
	short int

	parmErr, cropErr, setFmtErr, getFmtErr, readErr error

	calls  []string
	parm   StreamParm
	crop   Rect
	setFmt FrameFormat
	closed int
}

func (d *fakeDevice) SetStreamParm(p StreamParm) error {
	d.calls = append(d.calls, "s_parm")
	d.parm = p
	return d.parmErr
}

func (d *fakeDevice) SetCrop(r Rect) error {
	d.calls = append(d.calls, "s_crop")
	d.crop = r
	return d.cropErr
}

func (d *fakeDevice) SetFormat(f *FrameFormat) error {
	d.calls = append(d.calls, "s_fmt")
	d.setFmt = *f
	if d.setFmtErr != nil {
		return d.setFmtErr
	}
	d.format = *f
	return nil
}

func (d *fakeDevice) GetFormat() (FrameFormat, error) {
	d.calls = append(d.calls, "g_fmt")
	return d.format, d.getFmtErr
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	d.calls = append(d.calls, "read")
	if d.readErr != nil {
		return 0, d.readErr
	}
	n := copy(p, d.frame)
	if d.short > 0 && d.short < n {
		n = d.short
	}
	return n, nil
}

func (d *fakeDevice) Close() error {
	d.closed++
	return nil
}

func (d *fakeDevice) opener() OpenFunc {
	return func(string) (Device, error) { return d, nil }
}

// trackingAllocator counts buffers handed out and returned. failAt makes the
// n-th Alloc call fail, counting from 1.
type trackingAllocator struct {
	failAt int
	allocs int
	frees  int
}

func (a *trackingAllocator) Alloc(n int) ([]byte, error) {
	if a.failAt > 0 && a.allocs+1 == a.failAt {
		return nil, errors.New("out of memory")
	}
	a.allocs++
	return make([]byte, n), nil
}

func (a *trackingAllocator) Free([]byte) { a.frees++ }

// packedFrame returns a frame of f.SizeImage bytes where no two nearby bytes
// share a value.
func packedFrame(f FrameFormat) []byte {
	b := make([]byte, f.SizeImage)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}

func yuyvFormat(w, h uint32) FrameFormat {
	return FrameFormat{
		Width:        w,
		Height:       h,
		PixelFormat:  FormatYUYV,
		BytesPerLine: w * 2,
		SizeImage:    w * h * 2,
	}
}
