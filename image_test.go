package stillcam

import (
	"bytes"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

func i420Frame(w, h int) []byte {
	b := make([]byte, YUV420Size(w, h))
	for i := range b {
		b[i] = byte(i % 200)
	}
	return b
}

func TestYCbCrFromI420(t *testing.T) {
	frame := i420Frame(8, 4)
	img, err := YCbCrFromI420(frame, 8, 4)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if len(img.Y) != 32 || len(img.Cb) != 8 || len(img.Cr) != 8 {
		t.Fatalf("plane sizes %d %d %d", len(img.Y), len(img.Cb), len(img.Cr))
	}
	if img.Cb[0] != frame[32] || img.Cr[0] != frame[40] {
		t.Fatal("chroma planes not taken in U, V order")
	}
	if _, err := YCbCrFromI420(frame, 7, 4); err == nil {
		t.Fatal("expected error for odd width")
	}
	if _, err := YCbCrFromI420(frame[:40], 8, 4); err == nil {
		t.Fatal("expected error for short frame")
	}
}

func TestEncodePreview(t *testing.T) {
	tests := []struct {
		name         string
		maxDim       int
		wantW, wantH int
	}{
		{name: "full size", maxDim: 0, wantW: 64, wantH: 48},
		{name: "shrunk", maxDim: 32, wantW: 32, wantH: 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := EncodePreview(&buf, i420Frame(64, 48), 64, 48, PreviewOptions{Quality: 90, MaxDim: tt.maxDim}); err != nil {
				t.Fatalf("encode: %v", err)
			}
			cfg, err := jpeg.DecodeConfig(&buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Fatalf("preview is %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestWritePreview_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	yuv := filepath.Join(dir, "still.yuv")
	out := filepath.Join(dir, "still.jpg")
	if err := os.WriteFile(yuv, i420Frame(16, 16), 0644); err != nil {
		t.Fatal(err)
	}

	if err := WritePreview(yuv, out, 16, 16, PreviewOptions{}); err != nil {
		t.Fatalf("first preview: %v", err)
	}
	first, _ := os.ReadFile(out)
	if len(first) < 2 || first[0] != 0xFF || first[1] != 0xD8 {
		t.Fatal("preview is not a JPEG")
	}
	if err := WritePreview(yuv, out, 16, 16, PreviewOptions{}); !os.IsExist(err) {
		t.Fatalf("expected exists error, got %v", err)
	}
}
