package stillcam

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Config holds the capture settings. It is built once at startup, optionally
// from a JSON file, and passed by value to Configure and Capturer.
type Config struct {
	Device string `json:"device"`

	// Crop window and requested frame size.
	Width  int `json:"width"`
	Height int `json:"height"`
	Top    int `json:"top"`
	Left   int `json:"left"`

	// PixelFormat is a FOURCC string such as "YUYV".
	PixelFormat  string `json:"pixel_format"`
	BitsPerPixel int    `json:"bits_per_pixel"`

	FrameRate   Fract  `json:"frame_rate"`
	CaptureMode uint32 `json:"capture_mode"`

	// Convert selects YUV420 conversion of packed frames before writing.
	Convert bool `json:"convert"`

	// Warmup is how long to let the sensor settle after opening the device.
	Warmup Duration `json:"warmup"`
	// ReadTimeout bounds the wait for a frame. Zero waits forever.
	ReadTimeout Duration `json:"read_timeout"`

	// MaxFrameSize bounds the size of one frame buffer, in bytes.
	MaxFrameSize int `json:"max_frame_size"`

	// JPEG preview settings.
	JPEGQuality   int `json:"jpeg_quality"`
	PreviewMaxDim int `json:"preview_max_dim"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Device:        DefaultDevice,
		Width:         640,
		Height:        480,
		Top:           0,
		Left:          0,
		PixelFormat:   FormatYUYV.String(),
		BitsPerPixel:  16,
		FrameRate:     Fract{Numerator: 1, Denominator: 30},
		CaptureMode:   1,
		Convert:       true,
		Warmup:        Duration(3 * time.Second),
		ReadTimeout:   0,
		MaxFrameSize:  DefaultMaxFrameSize,
		JPEGQuality:   85,
		PreviewMaxDim: 0,
	}
}

// Format returns the configured pixel format code.
func (c *Config) Format() PixelFormat { return EncodeFormat(c.PixelFormat) }

// Validate rejects sizes the device could never accept and fills in values
// that can be derived from others.
func (c *Config) Validate() error {
	if c.Device == "" {
		c.Device = DefaultDevice
	}
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("invalid frame size %dx%d", c.Width, c.Height)
	}
	if c.Top < 0 || c.Left < 0 {
		return errors.Errorf("invalid crop origin %d,%d", c.Left, c.Top)
	}
	if c.PixelFormat == "" {
		c.PixelFormat = FormatYUYV.String()
	}
	if c.BitsPerPixel <= 0 {
		c.BitsPerPixel = BitsPerPixel(c.Format())
	}
	if c.FrameRate.Denominator == 0 {
		c.FrameRate.Denominator = 30
	}
	if c.FrameRate.Numerator == 0 {
		c.FrameRate.Numerator = 1
	}
	if c.Warmup < 0 {
		c.Warmup = 0
	}
	if c.ReadTimeout < 0 {
		c.ReadTimeout = 0
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = DefaultMaxFrameSize
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = 85
	}
	if c.PreviewMaxDim < 0 {
		c.PreviewMaxDim = 0
	}
	return nil
}

// Load reads configuration from the JSON file at path. A missing file yields
// DefaultConfig(); fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "validate %s", path)
	}
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// Duration is a time.Duration that reads and writes JSON as a string like
// "3s". Plain numbers are accepted as nanoseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return errors.Errorf("invalid duration %s", b)
		}
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrap(err, "invalid duration")
	}
	*d = Duration(v)
	return nil
}
