package stillcam

import (
	"image"
	"image/color"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/pixiv/go-libjpeg/jpeg"
	"github.com/pkg/errors"
)

// PreviewOptions controls JPEG previews of captured stills.
type PreviewOptions struct {
	// Quality is the JPEG quality, 1-100. Zero means 85.
	Quality int
	// MaxDim shrinks the preview so neither side exceeds it. Zero keeps the
	// captured size.
	MaxDim int
}

// YCbCrFromI420 wraps a planar YUV 4:2:0 frame, as written by CaptureAndSave,
// in an image.YCbCr without copying.
func YCbCrFromI420(frame []byte, width, height int) (*image.YCbCr, error) {
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return nil, errors.Errorf("preview needs even dimensions, got %dx%d", width, height)
	}
	ys := width * height
	cs := (width / 2) * (height / 2)
	if len(frame) < ys+2*cs {
		return nil, errors.Errorf("frame has %d bytes, %dx%d YUV420 needs %d", len(frame), width, height, ys+2*cs)
	}
	return &image.YCbCr{
		Y:              frame[:ys],
		Cb:             frame[ys : ys+cs],
		Cr:             frame[ys+cs : ys+2*cs],
		YStride:        width,
		CStride:        width / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, width, height),
	}, nil
}

// EncodePreview writes a YUV420 frame to w as a JPEG.
func EncodePreview(w io.Writer, frame []byte, width, height int, opts PreviewOptions) error {
	yuv, err := YCbCrFromI420(frame, width, height)
	if err != nil {
		return err
	}

	img := yuv
	if d := opts.MaxDim; d > 0 && (width > d || height > d) {
		img = toYCbCr(imaging.Fit(yuv, d, d, imaging.Lanczos))
	}

	q := opts.Quality
	if q <= 0 || q > 100 {
		q = 85
	}
	return errors.Wrap(jpeg.Encode(w, img, &jpeg.EncoderOptions{Quality: q, OptimizeCoding: true}), "encode jpeg")
}

// toYCbCr converts a resized image back to full resolution YCbCr, which the
// libjpeg encoder takes directly.
func toYCbCr(src *image.NRGBA) *image.YCbCr {
	b := src.Bounds()
	dst := image.NewYCbCr(image.Rect(0, 0, b.Dx(), b.Dy()), image.YCbCrSubsampleRatio444)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := src.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			yy, cb, cr := color.RGBToYCbCr(c.R, c.G, c.B)
			dst.Y[dst.YOffset(x, y)] = yy
			i := dst.COffset(x, y)
			dst.Cb[i] = cb
			dst.Cr[i] = cr
		}
	}
	return dst
}

// WritePreview reads a YUV420 still from yuvPath and writes a JPEG preview of
// it to jpegPath. Like captures, it never replaces an existing file.
func WritePreview(yuvPath, jpegPath string, width, height int, opts PreviewOptions) (err error) {
	frame, err := os.ReadFile(yuvPath)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(jpegPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(jpegPath)
		}
	}()

	return EncodePreview(f, frame, width, height, opts)
}
