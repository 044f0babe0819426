package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeRawArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.mjpeg")
	if err := os.WriteFile(path, []byte("jpeg-frames"), 0o644); err != nil {
		t.Fatalf("write raw artifact: %v", err)
	}
	return path
}

// writeFakeFFmpeg installs a shell script that touches its last argument,
// mimicking a transcoder writing the output path.
func writeFakeFFmpeg(t *testing.T, exitCode int) string {
	t.Helper()
	script := "#!/bin/sh\nfor a; do :; done\n: > \"$a\"\nexit 0\n"
	if exitCode != 0 {
		script = "#!/bin/sh\necho boom >&2\nexit 1\n"
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}

func TestFinalizeNativeFormatRenames(t *testing.T) {
	raw := writeRawArtifact(t)
	outPath := filepath.Join(t.TempDir(), "out", "clip.mjpeg")

	fin := &Finalizer{FFmpegBin: "ffmpeg-not-needed", lookPath: func(string) (string, error) {
		t.Fatal("native format must not probe for the conversion tool")
		return "", nil
	}}
	got, err := fin.Finalize(context.Background(), raw, FormatMJPEG, outPath)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if got != outPath {
		t.Fatalf("expected %q, got %q", outPath, got)
	}
	if _, err := os.Stat(raw); !os.IsNotExist(err) {
		t.Fatalf("expected raw artifact consumed, stat err=%v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil || string(data) != "jpeg-frames" {
		t.Fatalf("output content mismatch: %q err=%v", string(data), err)
	}
}

func TestFinalizeToolUnavailablePreservesRaw(t *testing.T) {
	raw := writeRawArtifact(t)
	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "clip.mp4")

	fin := &Finalizer{FFmpegBin: "ffmpeg", lookPath: func(string) (string, error) {
		return "", errors.New("not found")
	}}
	got, err := fin.Finalize(context.Background(), raw, FormatMP4, outPath)
	if err == nil {
		t.Fatal("expected CONVERSION_UNAVAILABLE error")
	}
	coded, ok := err.(*CodedError)
	if !ok || coded.Code != CodeConversionUnavailable {
		t.Fatalf("expected CONVERSION_UNAVAILABLE, got %v", err)
	}

	wantPreserved := filepath.Join(outDir, "clip.mjpeg")
	if got != wantPreserved {
		t.Fatalf("expected preserved path %q, got %q", wantPreserved, got)
	}
	data, readErr := os.ReadFile(wantPreserved)
	if readErr != nil || string(data) != "jpeg-frames" {
		t.Fatalf("preserved content mismatch: %q err=%v", string(data), readErr)
	}
	if !strings.Contains(err.Error(), wantPreserved) {
		t.Fatalf("expected error to name the preserved file, got %q", err.Error())
	}
}

func TestFinalizeTranscodeSuccess(t *testing.T) {
	raw := writeRawArtifact(t)
	outPath := filepath.Join(t.TempDir(), "clip.mp4")

	fin := &Finalizer{FFmpegBin: writeFakeFFmpeg(t, 0), FrameRate: 10}
	got, err := fin.Finalize(context.Background(), raw, FormatMP4, outPath)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if got != outPath {
		t.Fatalf("expected %q, got %q", outPath, got)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("expected transcoded output: %v", err)
	}
	if _, err := os.Stat(raw); !os.IsNotExist(err) {
		t.Fatalf("expected raw artifact removed after transcode, stat err=%v", err)
	}
}

func TestFinalizeTranscodeFailure(t *testing.T) {
	raw := writeRawArtifact(t)
	outPath := filepath.Join(t.TempDir(), "clip.mp4")

	fin := &Finalizer{FFmpegBin: writeFakeFFmpeg(t, 1), FrameRate: 10}
	_, err := fin.Finalize(context.Background(), raw, FormatMP4, outPath)
	if err == nil {
		t.Fatal("expected CONVERSION_FAILED error")
	}
	coded, ok := err.(*CodedError)
	if !ok || coded.Code != CodeConversionFailed {
		t.Fatalf("expected CONVERSION_FAILED, got %v", err)
	}
	if !strings.Contains(coded.Message, "boom") {
		t.Fatalf("expected tool stderr in message, got %q", coded.Message)
	}
}

func TestFFmpegAvailable(t *testing.T) {
	fake := writeFakeFFmpeg(t, 0)
	fin := &Finalizer{FFmpegBin: fake}
	path, ok := fin.FFmpegAvailable()
	if !ok || path == "" {
		t.Fatalf("expected fake tool to be found, got ok=%v path=%q", ok, path)
	}

	fin = &Finalizer{FFmpegBin: filepath.Join(t.TempDir(), "absent")}
	if _, ok := fin.FFmpegAvailable(); ok {
		t.Fatal("expected absent tool to be unavailable")
	}
}
