package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgnsrekt/pagecast/internal/capture"
	"github.com/dgnsrekt/pagecast/internal/config"
)

func main() {
	doc := flag.String("doc", "", "path to the HTML document to capture (required)")
	out := flag.String("out", "", "output file path (defaults by mode)")
	mode := flag.String("mode", "still", "capture mode: still|recording")
	format := flag.String("format", "", "output format: png|jpeg (still), mp4|mjpeg (recording)")
	duration := flag.Float64("duration", -1, "recording length in seconds (required for recordings)")
	width := flag.Int("width", 0, "viewport width in pixels")
	height := flag.Int("height", 0, "viewport height in pixels")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "pagecast: load config: %v\n", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel)

	if *doc == "" {
		_, _ = fmt.Fprintln(os.Stderr, "pagecast: -doc is required")
		flag.Usage()
		os.Exit(2)
	}

	req := capture.Request{
		DocumentPath:   *doc,
		OutputPath:     *out,
		Mode:           capture.Mode(*mode),
		Format:         capture.Format(*format),
		ViewportWidth:  *width,
		ViewportHeight: *height,
	}
	if *duration >= 0 {
		req.DurationSeconds = duration
	}

	orch := capture.NewOrchestrator(capture.Options{
		ChromePath:        cfg.ChromePath,
		FFmpegBin:         cfg.FFmpegBin,
		TempDir:           cfg.TempDir,
		SettleDelay:       time.Duration(cfg.SettleMS) * time.Millisecond,
		NavTimeout:        time.Duration(cfg.NavTimeoutMS) * time.Millisecond,
		FrameRate:         cfg.FrameRate,
		ScreencastQuality: cfg.ScreencastQuality,
	})

	// Ctrl-C during a recording finalizes what was captured so far.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := orch.Run(ctx, req)
	if err != nil {
		var coded *capture.CodedError
		if errors.As(err, &coded) && coded.Code == capture.CodeConversionUnavailable {
			_, _ = fmt.Fprintf(os.Stderr, "pagecast: warning: %s\n", coded.Message)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "pagecast: %v\n", err)
			os.Exit(1)
		}
	}

	if res.Partial {
		_, _ = fmt.Fprintln(os.Stderr, "pagecast: recording stopped early, output is partial")
	}
	fmt.Println(res.OutputPath)
}

func setupLogger(level string) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
}
