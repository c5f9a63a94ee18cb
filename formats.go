package stillcam

import "fmt"

// Represents image format code used by V4L2 subsystem.
type PixelFormat uint32

// Pixel formats understood by the capture pipeline. Codes are little-endian
// four character codes, e.g. 'Y','U','Y','V' is 0x56595559.
const (
	FormatYUYV     = PixelFormat('Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24) // 16 YUV 4:2:2
	FormatUYVY     = PixelFormat('U' | 'Y'<<8 | 'V'<<16 | 'Y'<<24) // 16 YUV 4:2:2
	FormatNV12     = PixelFormat('N' | 'V'<<8 | '1'<<16 | '2'<<24) // 12 Y/CbCr 4:2:0
	FormatYUV420P  = PixelFormat('I' | '4'<<8 | '2'<<16 | '0'<<24) // 12 YUV 4:2:0
	FormatYUV420P2 = PixelFormat('Y' | 'U'<<8 | '1'<<16 | '2'<<24) // 12 YUV 4:2:0
	FormatYUV422P  = PixelFormat('4' | '2'<<8 | '2'<<16 | 'P'<<24) // 16 YUV 4:2:2
	FormatYUV444   = PixelFormat('Y' | '4'<<8 | '4'<<16 | '4'<<24) // 24 YUV 4:4:4
	FormatRGB565   = PixelFormat('R' | 'G'<<8 | 'B'<<16 | 'P'<<24) // 16 RGB-5-6-5
	FormatBGR24    = PixelFormat('B' | 'G'<<8 | 'R'<<16 | '3'<<24) // 24 BGR-8-8-8
	FormatRGB24    = PixelFormat('R' | 'G'<<8 | 'B'<<16 | '3'<<24) // 24 RGB-8-8-8
	FormatBGR32    = PixelFormat('B' | 'G'<<8 | 'R'<<16 | '4'<<24) // 32 BGR-8-8-8-8
	FormatBGRA32   = PixelFormat('B' | 'G'<<8 | 'R'<<16 | 'A'<<24) // 32 BGR-8-8-8-8
	FormatRGB32    = PixelFormat('R' | 'G'<<8 | 'B'<<16 | '4'<<24) // 32 RGB-8-8-8-8
	FormatRGBA32   = PixelFormat('R' | 'G'<<8 | 'B'<<16 | 'A'<<24) // 32 RGB-8-8-8-8
	FormatABGR32   = PixelFormat('A' | 'B'<<8 | 'G'<<16 | 'R'<<24) // 32 ABGR-8-8-8-8
)

// Formats returns every pixel format the package knows by name. The slice is
// a fresh copy on each call.
func Formats() []PixelFormat {
	return []PixelFormat{
		FormatYUYV, FormatUYVY, FormatNV12, FormatYUV420P, FormatYUV420P2,
		FormatYUV422P, FormatYUV444, FormatRGB565, FormatBGR24, FormatRGB24,
		FormatBGR32, FormatBGRA32, FormatRGB32, FormatRGBA32, FormatABGR32,
	}
}

// Functions allow the conversion of PixelFormats to and from human readable 4CC strings
// ie; "YUYV" to 0x56595559 and vice versa. Short strings are padded with spaces.
func EncodeFormat(value string) PixelFormat {
	code := [4]byte{' ', ' ', ' ', ' '}
	for i := 0; i < len(value) && i < len(code); i++ {
		code[i] = value[i]
	}

	return PixelFormat(uint32(code[0]) |
		uint32(code[1])<<8 |
		uint32(code[2])<<16 |
		uint32(code[3])<<24)
}

func DecodeFormat(format PixelFormat) string {
	a := byte(uint32(format) & 0xff)
	b := byte((uint32(format) >> 8) & 0xff)
	c := byte((uint32(format) >> 16) & 0xff)
	d := byte((uint32(format) >> 24) & 0xff)

	return fmt.Sprintf("%c%c%c%c", a, b, c, d)
}

func (f PixelFormat) String() string { return DecodeFormat(f) }

// Planar reports whether frames in this format are written to disk as read,
// without the YUV420 conversion pass.
func (f PixelFormat) Planar() bool {
	return f == FormatYUV422P || f == FormatYUV420P2
}

// BytesPerPixel returns the number of bytes one pixel occupies in the first
// plane of a frame. It is used to compute the requested stride; unknown
// formats count as one byte.
func BytesPerPixel(f PixelFormat) int {
	switch f {
	case FormatYUV420P, FormatYUV422P, FormatNV12:
		return 1
	case FormatRGB565, FormatYUYV, FormatUYVY:
		return 2
	case FormatBGR24, FormatRGB24:
		return 3
	case FormatBGR32, FormatBGRA32, FormatRGB32, FormatRGBA32, FormatABGR32:
		return 4
	default:
		return 1
	}
}

// BitsPerPixel returns the average bit depth of a whole frame, which is what
// the requested image size is computed from.
func BitsPerPixel(f PixelFormat) int {
	switch f {
	case FormatNV12, FormatYUV420P, FormatYUV420P2:
		return 12
	case FormatYUYV, FormatUYVY, FormatYUV422P, FormatRGB565:
		return 16
	case FormatYUV444, FormatBGR24, FormatRGB24:
		return 24
	case FormatBGR32, FormatBGRA32, FormatRGB32, FormatRGBA32, FormatABGR32:
		return 32
	default:
		return 8
	}
}
