package capture

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.html")
	if err := os.WriteFile(path, []byte("<html><body>hi</body></html>"), 0o644); err != nil {
		t.Fatalf("write test doc: %v", err)
	}
	return path
}

func floatPtr(v float64) *float64 { return &v }

func TestApplyDefaults(t *testing.T) {
	t.Run("still_defaults", func(t *testing.T) {
		req := applyDefaults(Request{Mode: ModeStill})
		if req.Format != FormatPNG {
			t.Fatalf("expected format png, got %q", req.Format)
		}
		if req.OutputPath != "screenshot.png" {
			t.Fatalf("expected output screenshot.png, got %q", req.OutputPath)
		}
		if req.ViewportWidth != 1920 || req.ViewportHeight != 1080 {
			t.Fatalf("expected 1920x1080, got %dx%d", req.ViewportWidth, req.ViewportHeight)
		}
	})

	t.Run("recording_defaults", func(t *testing.T) {
		req := applyDefaults(Request{Mode: ModeRecording})
		if req.Format != FormatMP4 {
			t.Fatalf("expected format mp4, got %q", req.Format)
		}
		if req.OutputPath != "recording.mp4" {
			t.Fatalf("expected output recording.mp4, got %q", req.OutputPath)
		}
	})

	t.Run("explicit_fields_untouched", func(t *testing.T) {
		req := applyDefaults(Request{
			Mode:          ModeStill,
			Format:        FormatJPEG,
			OutputPath:    "out/shot.jpg",
			ViewportWidth: 800, ViewportHeight: 600,
		})
		if req.Format != FormatJPEG || req.OutputPath != "out/shot.jpg" {
			t.Fatalf("explicit fields were overwritten: %+v", req)
		}
		if req.ViewportWidth != 800 || req.ViewportHeight != 600 {
			t.Fatalf("explicit viewport was overwritten: %+v", req)
		}
	})
}

func TestValidate(t *testing.T) {
	doc := writeTestDoc(t)

	cases := []struct {
		name     string
		req      Request
		wantCode string
	}{
		{
			name:     "unknown_mode",
			req:      Request{Mode: "animate", DocumentPath: doc, Format: FormatPNG, ViewportWidth: 10, ViewportHeight: 10},
			wantCode: CodeValidation,
		},
		{
			name:     "recording_without_duration",
			req:      Request{Mode: ModeRecording, DocumentPath: doc, Format: FormatMP4, ViewportWidth: 10, ViewportHeight: 10},
			wantCode: CodeValidation,
		},
		{
			name:     "recording_negative_duration",
			req:      Request{Mode: ModeRecording, DocumentPath: doc, Format: FormatMP4, DurationSeconds: floatPtr(-1), ViewportWidth: 10, ViewportHeight: 10},
			wantCode: CodeValidation,
		},
		{
			name:     "still_with_video_format",
			req:      Request{Mode: ModeStill, DocumentPath: doc, Format: FormatMP4, ViewportWidth: 10, ViewportHeight: 10},
			wantCode: CodeValidation,
		},
		{
			name:     "recording_with_image_format",
			req:      Request{Mode: ModeRecording, DocumentPath: doc, Format: FormatPNG, DurationSeconds: floatPtr(1), ViewportWidth: 10, ViewportHeight: 10},
			wantCode: CodeValidation,
		},
		{
			name:     "nonpositive_viewport",
			req:      Request{Mode: ModeStill, DocumentPath: doc, Format: FormatPNG, ViewportWidth: 0, ViewportHeight: 10},
			wantCode: CodeValidation,
		},
		{
			name:     "missing_document",
			req:      Request{Mode: ModeStill, DocumentPath: filepath.Join(t.TempDir(), "nope.html"), Format: FormatPNG, ViewportWidth: 10, ViewportHeight: 10},
			wantCode: CodeDocumentNotFound,
		},
		{
			name:     "document_is_directory",
			req:      Request{Mode: ModeStill, DocumentPath: t.TempDir(), Format: FormatPNG, ViewportWidth: 10, ViewportHeight: 10},
			wantCode: CodeDocumentNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validate(tc.req)
			if err == nil {
				t.Fatalf("expected error with code %s, got nil", tc.wantCode)
			}
			coded, ok := err.(*CodedError)
			if !ok {
				t.Fatalf("expected *CodedError, got %T: %v", err, err)
			}
			if coded.Code != tc.wantCode {
				t.Fatalf("expected code %s, got %s (%v)", tc.wantCode, coded.Code, err)
			}
		})
	}

	t.Run("zero_duration_recording_is_valid", func(t *testing.T) {
		req := Request{Mode: ModeRecording, DocumentPath: doc, Format: FormatMP4, DurationSeconds: floatPtr(0), ViewportWidth: 10, ViewportHeight: 10}
		if err := validate(req); err != nil {
			t.Fatalf("expected zero duration to validate, got %v", err)
		}
	})

	t.Run("valid_still", func(t *testing.T) {
		req := Request{Mode: ModeStill, DocumentPath: doc, Format: FormatJPEG, ViewportWidth: 10, ViewportHeight: 10}
		if err := validate(req); err != nil {
			t.Fatalf("expected valid request, got %v", err)
		}
	})
}

func TestCodedErrorMessage(t *testing.T) {
	err := newError(CodeNavigationFailed, "load timed out", os.ErrDeadlineExceeded)
	if !strings.Contains(err.Error(), CodeNavigationFailed) {
		t.Fatalf("expected code in message, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "load timed out") {
		t.Fatalf("expected message text, got %q", err.Error())
	}
}
