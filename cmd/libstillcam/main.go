// Command libstillcam builds a shared library for host applications that
// capture stills through a foreign function call:
//
//	go build -buildmode=c-shared -o libstillcam.so ./cmd/libstillcam
//
// The capture settings are read once, from the JSON file named by
// $STILLCAM_CONFIG when set and from the built-in defaults otherwise.
package main

import "C"

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/justinscorringe/stillcam"
)

var (
	setupOnce sync.Once
	config    stillcam.Config
	logger    *slog.Logger
	setupErr  error
)

func setup() {
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg := stillcam.DefaultConfig()
	if path := os.Getenv("STILLCAM_CONFIG"); path != "" {
		cfg, setupErr = stillcam.Load(path)
	}
	config = *cfg
	if setupErr != nil {
		logger.Error("config.load", "error", setupErr)
	}
}

// capture_still stores one frame at dir/name. It returns 0 on success, 1 if
// the file already existed and a negative status code on failure.
//
//export capture_still
func capture_still(dir, name *C.char) (status C.int) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("capture.panic", "panic", r)
			}
			status = C.int(stillcam.StatusFailure)
		}
	}()
	setupOnce.Do(setup)
	if setupErr != nil {
		return C.int(stillcam.StatusFailure)
	}
	return C.int(stillcam.CaptureStill(context.Background(), config, C.GoString(dir), C.GoString(name), stillcam.WithLogger(logger)))
}

func main() {}
