package capture

import (
	"fmt"
	"os"
)

const (
	defaultViewportWidth  = 1920
	defaultViewportHeight = 1080
)

// applyDefaults fills mode-derived defaults without touching fields the
// caller set. The returned copy is what the pipeline runs against.
func applyDefaults(req Request) Request {
	if req.Format == "" {
		switch req.Mode {
		case ModeRecording:
			req.Format = FormatMP4
		default:
			req.Format = FormatPNG
		}
	}
	if req.OutputPath == "" {
		switch req.Mode {
		case ModeRecording:
			req.OutputPath = "recording" + req.Format.Ext()
		default:
			req.OutputPath = "screenshot" + req.Format.Ext()
		}
	}
	if req.ViewportWidth == 0 {
		req.ViewportWidth = defaultViewportWidth
	}
	if req.ViewportHeight == 0 {
		req.ViewportHeight = defaultViewportHeight
	}
	return req
}

// validate enforces the request contract. Ordering matters: the duration
// check runs first, then the source document check, both before any browser
// resource is acquired.
func validate(req Request) error {
	switch req.Mode {
	case ModeStill, ModeRecording:
	default:
		return newError(CodeValidation, fmt.Sprintf("unknown mode %q", req.Mode), nil)
	}

	if req.Mode == ModeRecording {
		if req.DurationSeconds == nil {
			return newError(CodeValidation, "recording mode requires duration_seconds", nil)
		}
		if *req.DurationSeconds < 0 {
			return newError(CodeValidation, fmt.Sprintf("duration_seconds must be non-negative, got %v", *req.DurationSeconds), nil)
		}
	}

	switch req.Mode {
	case ModeStill:
		if req.Format != FormatPNG && req.Format != FormatJPEG {
			return newError(CodeValidation, fmt.Sprintf("format %q is not valid for still captures", req.Format), nil)
		}
	case ModeRecording:
		if req.Format != FormatMP4 && req.Format != FormatMJPEG {
			return newError(CodeValidation, fmt.Sprintf("format %q is not valid for recordings", req.Format), nil)
		}
	}

	if req.ViewportWidth <= 0 || req.ViewportHeight <= 0 {
		return newError(CodeValidation, fmt.Sprintf("viewport %dx%d must be positive", req.ViewportWidth, req.ViewportHeight), nil)
	}

	info, err := os.Stat(req.DocumentPath)
	if err != nil {
		return newError(CodeDocumentNotFound, fmt.Sprintf("source document %s not found", req.DocumentPath), err)
	}
	if !info.Mode().IsRegular() {
		return newError(CodeDocumentNotFound, fmt.Sprintf("source document %s is not a regular file", req.DocumentPath), nil)
	}
	f, err := os.Open(req.DocumentPath)
	if err != nil {
		return newError(CodeDocumentNotFound, fmt.Sprintf("source document %s is not readable", req.DocumentPath), err)
	}
	_ = f.Close()

	return nil
}
