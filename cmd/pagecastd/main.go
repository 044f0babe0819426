package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/pagecast/internal/api"
	"github.com/dgnsrekt/pagecast/internal/capture"
	"github.com/dgnsrekt/pagecast/internal/config"
	"github.com/dgnsrekt/pagecast/internal/events"
	"github.com/dgnsrekt/pagecast/internal/journal"
	"github.com/dgnsrekt/pagecast/internal/netutil"
	"github.com/dgnsrekt/pagecast/internal/service"
	"github.com/dgnsrekt/pagecast/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load pipeline config", "error", err)
		os.Exit(1)
	}
	srvCfg, err := config.LoadServer()
	if err != nil {
		slog.Error("failed to load daemon config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(srvCfg.LogLevel, srvCfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("pagecastd config loaded",
		"bind_addr", srvCfg.BindAddr,
		"port_auto_fallback", srvCfg.PortAutoFallback,
		"port_candidates", srvCfg.PortCandidates,
		"output_dir", srvCfg.OutputDir,
		"journal_dir", srvCfg.JournalDir,
		"notify_endpoint", srvCfg.NotifyEndpoint,
		"chrome_path", cfg.ChromePath,
		"ffmpeg_bin", cfg.FFmpegBin,
		"log_level", srvCfg.LogLevel,
		"log_file", srvCfg.LogFile,
	)

	bindAddr, err := netutil.SelectBindAddr(srvCfg.BindAddr, srvCfg.PortCandidates, srvCfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", srvCfg.BindAddr, "error", err)
		os.Exit(1)
	}

	captureStore, err := store.NewStore(srvCfg.OutputDir)
	if err != nil {
		slog.Error("failed to create capture store", "dir", srvCfg.OutputDir, "error", err)
		os.Exit(1)
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

	var journalWriter *journal.Writer
	if srvCfg.JournalDir != "" {
		journalWriter = journal.NewWriter(srvCfg.JournalDir, 256, 25)
		defer func() {
			if err := journalWriter.Close(); err != nil {
				slog.Debug("journal close failed", "error", err)
			}
		}()
	}

	svc := service.New(service.Config{
		Runner:         orch,
		Store:          captureStore,
		Broker:         events.NewBroker(),
		NotifyEndpoint: srvCfg.NotifyEndpoint,
		Journal:        journalWriter,
		ChromePath:     cfg.ChromePath,
		Finalizer:      orch.Finalizer(),
	})
	h := api.NewServer(svc)

	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("pagecastd listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("pagecastd server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("pagecastd shutdown failed", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

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

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
