//go:build linux

package stillcam

import (
	"os"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// [ dir(2) ][ size(14) ][ type(8) ][ nr(8) ]
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) |
		(size << iocSizeShift) |
		(typ << iocTypeShift) |
		(nr << iocNRShift)
}

func iow(typ, nr, size uintptr) uintptr  { return ioc(iocWrite, typ, nr, size) }
func iowr(typ, nr, size uintptr) uintptr { return ioc(iocRead|iocWrite, typ, nr, size) }

const bufTypeVideoCapture = 1

type v4l2Fract struct {
	numerator   uint32
	denominator uint32
}

type v4l2CaptureParm struct { // size 40
	capability   uint32
	capturemode  uint32
	timeperframe v4l2Fract
	extendedmode uint32
	readbuffers  uint32
	reserved     [4]uint32
}

type v4l2StreamParm struct { // size 204
	typ     uint32
	capture v4l2CaptureParm
	_       [160]byte
}

type v4l2Rect struct {
	left   int32
	top    int32
	width  uint32
	height uint32
}

type v4l2Crop struct { // size 20
	typ uint32
	c   v4l2Rect
}

type v4l2PixFormat struct { // size 48
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcrEnc     uint32
	quantization uint32
	xferFunc     uint32
}

// v4l2Format is 208 bytes on 64-bit and 204 on 32-bit: the kernel union holds
// pointers, so it is aligned to the pointer size.
type v4l2Format struct {
	typ uint32
	_   [unsafe.Sizeof(uintptr(0)) - 4]byte
	pix v4l2PixFormat
	_   [200 - 48]byte
}

var (
	_ [0]struct{} = [unsafe.Sizeof(v4l2StreamParm{}) - 204]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2Crop{}) - 20]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2PixFormat{}) - 48]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2Format{}) - (unsafe.Sizeof(uintptr(0)) + 200)]struct{}{}
)

var (
	vidiocGFmt  = iowr('V', 4, unsafe.Sizeof(v4l2Format{}))
	vidiocSFmt  = iowr('V', 5, unsafe.Sizeof(v4l2Format{}))
	vidiocSParm = iowr('V', 22, unsafe.Sizeof(v4l2StreamParm{}))
	vidiocSCrop = iow('V', 60, unsafe.Sizeof(v4l2Crop{}))
)

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
		switch errno {
		case 0:
			return nil
		case unix.EINTR:
			continue
		default:
			return errno
		}
	}
}

type v4l2Device struct {
	fd      int
	timeout time.Duration
}

// OpenDevice opens a V4L2 capture device for blocking reads with no timeout.
func OpenDevice(path string) (Device, error) {
	return openV4L2(path, 0)
}

// DeviceOpener returns an OpenFunc whose devices give up on a read after
// timeout. A zero timeout blocks until a frame arrives.
func DeviceOpener(timeout time.Duration) OpenFunc {
	return func(path string) (Device, error) {
		return openV4L2(path, timeout)
	}
}

func openV4L2(path string, timeout time.Duration) (Device, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeCharDevice == 0 {
		return nil, errors.Errorf("%s is not a device", path)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return &v4l2Device{fd: fd, timeout: timeout}, nil
}

func (d *v4l2Device) SetStreamParm(p StreamParm) error {
	var parm v4l2StreamParm
	parm.typ = bufTypeVideoCapture
	parm.capture.timeperframe.numerator = p.TimePerFrame.Numerator
	parm.capture.timeperframe.denominator = p.TimePerFrame.Denominator
	parm.capture.capturemode = p.CaptureMode
	return errors.Wrap(ioctl(d.fd, vidiocSParm, unsafe.Pointer(&parm)), "VIDIOC_S_PARM")
}

func (d *v4l2Device) SetCrop(r Rect) error {
	crop := v4l2Crop{
		typ: bufTypeVideoCapture,
		c:   v4l2Rect{left: r.Left, top: r.Top, width: r.Width, height: r.Height},
	}
	return errors.Wrap(ioctl(d.fd, vidiocSCrop, unsafe.Pointer(&crop)), "VIDIOC_S_CROP")
}

func (d *v4l2Device) SetFormat(f *FrameFormat) error {
	var vf v4l2Format
	vf.typ = bufTypeVideoCapture
	vf.pix.width = f.Width
	vf.pix.height = f.Height
	vf.pix.pixelformat = uint32(f.PixelFormat)
	vf.pix.bytesperline = f.BytesPerLine
	vf.pix.sizeimage = f.SizeImage
	if err := ioctl(d.fd, vidiocSFmt, unsafe.Pointer(&vf)); err != nil {
		return errors.Wrap(err, "VIDIOC_S_FMT")
	}
	*f = frameFormat(vf.pix)
	return nil
}

func (d *v4l2Device) GetFormat() (FrameFormat, error) {
	var vf v4l2Format
	vf.typ = bufTypeVideoCapture
	if err := ioctl(d.fd, vidiocGFmt, unsafe.Pointer(&vf)); err != nil {
		return FrameFormat{}, errors.Wrap(err, "VIDIOC_G_FMT")
	}
	return frameFormat(vf.pix), nil
}

func frameFormat(p v4l2PixFormat) FrameFormat {
	return FrameFormat{
		Width:        p.width,
		Height:       p.height,
		PixelFormat:  PixelFormat(p.pixelformat),
		BytesPerLine: p.bytesperline,
		SizeImage:    p.sizeimage,
	}
}

func (d *v4l2Device) Read(p []byte) (int, error) {
	if d.timeout > 0 {
		if err := d.wait(); err != nil {
			return 0, err
		}
	}
	for {
		n, err := unix.Read(d.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

func (d *v4l2Device) wait() error {
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLIN}}
	ms := int(d.timeout / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	for {
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "poll")
		}
		if n == 0 {
			return ErrTimeout
		}
		return nil
	}
}

func (d *v4l2Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
