package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the capture pipeline configuration shared by the CLI and the daemon.
type Config struct {
	// Browser settings
	ChromePath   string // empty = autodetect
	NavTimeoutMS int

	// Capture behavior
	SettleMS          int
	FrameRate         int
	ScreencastQuality int

	// Conversion settings
	FFmpegBin string

	// Filesystem
	TempDir string

	LogLevel string
}

// Load reads pipeline configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		ChromePath:        getEnvOrDefault("PAGECAST_CHROME_PATH", ""),
		NavTimeoutMS:      getEnvIntOrDefault("PAGECAST_NAV_TIMEOUT_MS", 15000),
		SettleMS:          getEnvIntOrDefault("PAGECAST_SETTLE_MS", 500),
		FrameRate:         getEnvIntOrDefault("PAGECAST_FRAME_RATE", 10),
		ScreencastQuality: getEnvIntOrDefault("PAGECAST_SCREENCAST_QUALITY", 80),
		FFmpegBin:         getEnvOrDefault("PAGECAST_FFMPEG_BIN", "ffmpeg"),
		TempDir:           getEnvOrDefault("PAGECAST_TEMP_DIR", os.TempDir()),
		LogLevel:          getEnvOrDefault("PAGECAST_LOG_LEVEL", "info"),
	}

	if cfg.NavTimeoutMS < 1000 {
		cfg.NavTimeoutMS = 1000
	}
	if cfg.FrameRate < 1 {
		cfg.FrameRate = 1
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
