package stillcam

import "github.com/pkg/errors"

// packedLayout locates the Y, U and V samples inside one packed pixel group.
type packedLayout struct {
	bpp              int
	yoff, uoff, voff int
}

// layoutFor returns the sample offsets used by ConvertYUV420. Anything that is
// not YUYV or UYVY is read as 4 byte YUV 4:4:4.
func layoutFor(f PixelFormat) packedLayout {
	switch f {
	case FormatYUYV:
		return packedLayout{bpp: 2, yoff: 0, uoff: 1, voff: 3}
	case FormatUYVY:
		return packedLayout{bpp: 2, yoff: 1, uoff: 0, voff: 2}
	default:
		return packedLayout{bpp: 4, yoff: 0, uoff: 1, voff: 2}
	}
}

// YUV420Size is the size of a planar YUV 4:2:0 frame of w x h pixels.
func YUV420Size(w, h int) int {
	return w * h * 3 / 2
}

// ConvertYUV420 rewrites a packed frame in src as planar YUV 4:2:0 in dst:
// the full Y plane, then U, then V. Chroma is taken from even rows and columns
// only, without averaging. dst must hold YUV420Size bytes and src must cover
// every sample addressed through f.BytesPerLine; see FrameFormat.Fits.
func ConvertYUV420(dst, src []byte, f FrameFormat) {
	l := layoutFor(f.PixelFormat)
	width, height := int(f.Width), int(f.Height)
	stride := int(f.BytesPerLine)

	pos := 0
	for row := 0; row < height; row++ {
		line := src[row*stride:]
		for col := 0; col < width; col++ {
			dst[pos] = line[col*l.bpp+l.yoff]
			pos++
		}
	}

	for _, off := range [...]int{l.uoff, l.voff} {
		for row := 0; row < height; row += 2 {
			line := src[row*stride:]
			for col := 0; col < width; col += 2 {
				dst[pos] = line[col*l.bpp+off]
				pos++
			}
		}
	}
}

// chromaSamples counts the samples taken per chroma plane, matching the loops
// in ConvertYUV420 for odd sizes as well.
func chromaSamples(w, h int) int {
	return ((w + 1) / 2) * ((h + 1) / 2)
}

// Fits reports whether a packed frame in f can be converted from a raw buffer
// of rawLen bytes into an output buffer of outLen bytes.
func (f FrameFormat) Fits(rawLen, outLen int) error {
	if f.Width == 0 || f.Height == 0 {
		return errors.Errorf("empty frame %dx%d", f.Width, f.Height)
	}
	l := layoutFor(f.PixelFormat)
	w, h := int(f.Width), int(f.Height)
	stride := int(f.BytesPerLine)
	if stride < w*l.bpp {
		return errors.Errorf("stride %d too small for %d pixels of %s", stride, w, f.PixelFormat)
	}
	if need := rawExtent(l, w, h, stride); rawLen < need {
		return errors.Errorf("frame needs %d bytes, buffer has %d", need, rawLen)
	}
	if need := w*h + 2*chromaSamples(w, h); outLen < need {
		return errors.Errorf("converted frame needs %d bytes, buffer has %d", need, outLen)
	}
	return nil
}

// rawExtent is one past the highest source index ConvertYUV420 reads. Chroma
// is sampled at the last even row and column, which for an odd width reaches
// past the end of that row.
func rawExtent(l packedLayout, w, h, stride int) int {
	luma := (h-1)*stride + (w-1)*l.bpp + l.yoff + 1
	chroma := ((h-1)&^1)*stride + ((w-1)&^1)*l.bpp + max(l.uoff, l.voff) + 1
	return max(luma, chroma)
}
