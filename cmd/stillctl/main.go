package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/justinscorringe/stillcam"
	"github.com/justinscorringe/stillcam/upload"
	"github.com/pkg/errors"
)

var (
	configPath = flag.String("config", "", "JSON configuration file")
	dir        = flag.String("dir", ".", "output directory")
	name       = flag.String("name", "", "output file name (default still-<unix time>.yuv)")
	device     = flag.String("device", "", "capture device, overrides the configuration")
	warmup     = flag.Duration("warmup", -1, "sensor warm-up delay, overrides the configuration")
	timeout    = flag.Duration("timeout", -1, "frame read timeout, 0 waits forever")
	jpegPath   = flag.String("jpeg", "", "also write a JPEG preview to this path")
	host       = flag.String("upload", "", "SFTP host:port to upload the still to")
	remoteDir  = flag.String("remote-dir", "/tmp/stillcam", "remote directory for uploads")
	user       = flag.String("user", os.Getenv("USER"), "SFTP user")
	identity   = flag.String("identity", filepath.Join(os.Getenv("HOME"), ".ssh", "id_ed25519"), "SSH private key")
	knownHosts = flag.String("known-hosts", filepath.Join(os.Getenv("HOME"), ".ssh", "known_hosts"), "SSH known_hosts file")
	verbose    = flag.Bool("v", false, "debug logging")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(level)

	code, err := run(logger)
	if err != nil {
		logger.Error("stillctl", "kind", stillcam.KindOf(err).String(), "error", err)
	}
	os.Exit(code)
}

// newLogger returns a structured slog.Logger with the given level.
func newLogger(level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

func run(logger *slog.Logger) (int, error) {
	cfg := stillcam.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = stillcam.Load(*configPath); err != nil {
			return 2, err
		}
	}
	if *device != "" {
		cfg.Device = *device
	}
	if *warmup >= 0 {
		cfg.Warmup = stillcam.Duration(*warmup)
	}
	if *timeout >= 0 {
		cfg.ReadTimeout = stillcam.Duration(*timeout)
	}
	if err := cfg.Validate(); err != nil {
		return 2, err
	}

	filename := *name
	if filename == "" {
		filename = fmt.Sprintf("still-%d.yuv", time.Now().Unix())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := stillcam.Capture(ctx, *cfg, *dir, filename, stillcam.WithLogger(logger))
	if err != nil {
		return 2, err
	}
	if res.Outcome == stillcam.AlreadyExists {
		logger.Warn("still already exists", "path", res.Path)
		return 1, nil
	}

	if *jpegPath != "" {
		if !res.Converted {
			return 2, errors.Errorf("JPEG preview needs a converted YUV420 still, got %s", res.Format.PixelFormat)
		}
		opts := stillcam.PreviewOptions{Quality: cfg.JPEGQuality, MaxDim: cfg.PreviewMaxDim}
		if err := stillcam.WritePreview(res.Path, *jpegPath, int(res.Format.Width), int(res.Format.Height), opts); err != nil {
			return 2, err
		}
		logger.Info("preview.saved", "path", *jpegPath)
	}

	if *host != "" {
		if err := uploadStill(res.Path, logger); err != nil {
			return 2, err
		}
	}

	return 0, nil
}

func uploadStill(path string, logger *slog.Logger) error {
	config, err := upload.Config(*user, *identity, *knownHosts)
	if err != nil {
		return err
	}

	c, err := upload.Dial(*host, config)
	if err != nil {
		return err
	}
	defer c.Close()

	target := strings.TrimSuffix(*remoteDir, "/") + "/" + filepath.Base(path)
	if err := c.UploadFile(target, path); err != nil {
		return err
	}
	logger.Info("upload.done", "host", *host, "target", target)
	return nil
}
