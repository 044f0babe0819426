//go:build integration

package integration

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgnsrekt/pagecast/internal/capture"
)

func TestStillCaptureMatchesViewport(t *testing.T) {
	orch := newOrchestrator()
	outPath := filepath.Join(t.TempDir(), "shot.png")

	res, err := orch.Run(context.Background(), capture.Request{
		DocumentPath:   writeDocument(t),
		OutputPath:     outPath,
		Mode:           capture.ModeStill,
		Format:         capture.FormatPNG,
		ViewportWidth:  800,
		ViewportHeight: 600,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(res.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "png" {
		t.Fatalf("expected png, got %q", format)
	}
	if cfg.Width != 800 || cfg.Height != 600 {
		t.Fatalf("expected 800x600, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestJPEGStillCapture(t *testing.T) {
	orch := newOrchestrator()
	outPath := filepath.Join(t.TempDir(), "shot.jpg")

	res, err := orch.Run(context.Background(), capture.Request{
		DocumentPath: writeDocument(t),
		OutputPath:   outPath,
		Mode:         capture.ModeStill,
		Format:       capture.FormatJPEG,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(res.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err != nil || format != "jpeg" {
		t.Fatalf("expected decodable jpeg, got format=%q err=%v", format, err)
	}
}

func TestRecordingProducesFrames(t *testing.T) {
	orch := newOrchestrator()
	outPath := filepath.Join(t.TempDir(), "clip.mjpeg")

	d := 2.0
	res, err := orch.Run(context.Background(), capture.Request{
		DocumentPath:    writeDocument(t),
		OutputPath:      outPath,
		Mode:            capture.ModeRecording,
		Format:          capture.FormatMJPEG,
		DurationSeconds: &d,
		ViewportWidth:   640,
		ViewportHeight:  480,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Frames == 0 {
		t.Fatal("expected at least one captured frame")
	}
	if res.Partial {
		t.Fatal("expected a full-duration recording")
	}
	info, err := os.Stat(res.OutputPath)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("expected non-empty recording")
	}
}

func TestMissingDocumentFailsBeforeLaunch(t *testing.T) {
	orch := newOrchestrator()

	_, err := orch.Run(context.Background(), capture.Request{
		DocumentPath: filepath.Join(t.TempDir(), "absent.html"),
		Mode:         capture.ModeStill,
	})
	if err == nil {
		t.Fatal("expected error for missing document")
	}
	coded, ok := err.(*capture.CodedError)
	if !ok || coded.Code != capture.CodeDocumentNotFound {
		t.Fatalf("expected DOCUMENT_NOT_FOUND, got %v", err)
	}
}
