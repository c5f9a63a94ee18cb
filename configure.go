package stillcam

import (
	"context"
	"log/slog"
	"time"
)

// Configure opens the device named in cfg, waits for the sensor to settle and
// applies frame interval, crop window and format, in that order. The first
// failing step aborts configuration; the device is closed on every failure.
// A nil open uses DeviceOpener(cfg.ReadTimeout).
func Configure(ctx context.Context, cfg Config, open OpenFunc, logger *slog.Logger) (dev Device, err error) {
	if logger == nil {
		logger = discardLogger
	}
	if open == nil {
		open = DeviceOpener(time.Duration(cfg.ReadTimeout))
	}

	d, err := open(cfg.Device)
	if err != nil {
		return nil, newError(KindDeviceOpen, "open", cfg.Device, err)
	}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()
	logger.Debug("device.open", "device", cfg.Device)

	if w := time.Duration(cfg.Warmup); w > 0 {
		logger.Info("device.warmup", "device", cfg.Device, "delay", w)
		if err := sleep(ctx, w); err != nil {
			return nil, newError(KindGeneric, "warm up", cfg.Device, err)
		}
	}

	parm := StreamParm{TimePerFrame: cfg.FrameRate, CaptureMode: cfg.CaptureMode}
	if err := d.SetStreamParm(parm); err != nil {
		return nil, newError(KindStreamParam, "set stream parameters", cfg.Device, err)
	}

	crop := Rect{
		Left:   int32(cfg.Left),
		Top:    int32(cfg.Top),
		Width:  uint32(cfg.Width),
		Height: uint32(cfg.Height),
	}
	if err := d.SetCrop(crop); err != nil {
		return nil, newError(KindCrop, "set crop", cfg.Device, err)
	}

	pf := cfg.Format()
	f := FrameFormat{
		Width:        uint32(cfg.Width),
		Height:       uint32(cfg.Height),
		PixelFormat:  pf,
		SizeImage:    uint32(cfg.Width * cfg.Height * cfg.BitsPerPixel / 8),
		BytesPerLine: uint32(cfg.Width * BytesPerPixel(pf)),
	}
	if err := d.SetFormat(&f); err != nil {
		return nil, newError(KindFormat, "set format", cfg.Device, err)
	}

	logger.Info("device.configured",
		"device", cfg.Device,
		"frame_interval", cfg.FrameRate.String(),
		"capture_mode", cfg.CaptureMode,
		"format", f.String(),
	)
	return d, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
