package config

import "strings"

// ServerConfig holds configuration for the capture daemon.
type ServerConfig struct {
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool
	OutputDir        string
	JournalDir       string // empty disables the capture journal
	NotifyEndpoint   string
	LogLevel         string
	LogFile          string
}

// LoadServer reads daemon configuration from environment variables.
func LoadServer() (*ServerConfig, error) {
	cfg := &ServerConfig{
		BindAddr:         getEnvOrDefault("PAGECASTD_BIND_ADDR", "127.0.0.1:8199"),
		PortAutoFallback: getEnvBoolOrDefault("PAGECASTD_PORT_AUTO_FALLBACK", true),
		OutputDir:        getEnvOrDefault("PAGECASTD_OUTPUT_DIR", "./captures"),
		JournalDir:       getEnvOrDefault("PAGECASTD_JOURNAL_DIR", "logs/journal"),
		NotifyEndpoint:   getEnvOrDefault("PAGECASTD_NOTIFY_ENDPOINT", ""),
		LogLevel:         strings.ToLower(getEnvOrDefault("PAGECASTD_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("PAGECASTD_LOG_FILE", "logs/pagecastd.log"),
	}

	if raw := getEnvOrDefault("PAGECASTD_PORT_CANDIDATES", "127.0.0.1:8199,127.0.0.1:8200,127.0.0.1:8201"); raw != "" {
		for _, addr := range strings.Split(raw, ",") {
			addr = strings.TrimSpace(addr)
			if addr != "" {
				cfg.PortCandidates = append(cfg.PortCandidates, addr)
			}
		}
	}

	return cfg, nil
}
