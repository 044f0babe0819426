package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.FFmpegBin != "ffmpeg" {
		t.Errorf("FFmpegBin = %q, want %q", cfg.FFmpegBin, "ffmpeg")
	}
	if cfg.SettleMS != 500 {
		t.Errorf("SettleMS = %d, want 500", cfg.SettleMS)
	}
	if cfg.FrameRate != 10 {
		t.Errorf("FrameRate = %d, want 10", cfg.FrameRate)
	}
}

func TestLoadOverridesAndFloors(t *testing.T) {
	t.Setenv("PAGECAST_FFMPEG_BIN", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("PAGECAST_NAV_TIMEOUT_MS", "250")
	t.Setenv("PAGECAST_FRAME_RATE", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.FFmpegBin != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("FFmpegBin = %q, want override", cfg.FFmpegBin)
	}
	if cfg.NavTimeoutMS != 1000 {
		t.Errorf("NavTimeoutMS = %d, want floor 1000", cfg.NavTimeoutMS)
	}
	if cfg.FrameRate != 1 {
		t.Errorf("FrameRate = %d, want floor 1", cfg.FrameRate)
	}
}

func TestLoadServerPortCandidates(t *testing.T) {
	t.Setenv("PAGECASTD_PORT_CANDIDATES", "127.0.0.1:9000, 127.0.0.1:9001")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if len(cfg.PortCandidates) != 2 {
		t.Fatalf("PortCandidates = %v, want 2 entries", cfg.PortCandidates)
	}
	if cfg.PortCandidates[1] != "127.0.0.1:9001" {
		t.Errorf("PortCandidates[1] = %q", cfg.PortCandidates[1])
	}
}
