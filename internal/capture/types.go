package capture

import (
	"fmt"
	"os"
	"time"
)

const (
	CodeValidation            = "VALIDATION"
	CodeDocumentNotFound      = "DOCUMENT_NOT_FOUND"
	CodeBrowserLaunchFailed   = "BROWSER_LAUNCH_FAILED"
	CodeNavigationFailed      = "NAVIGATION_FAILED"
	CodeCaptureFailed         = "CAPTURE_FAILED"
	CodeConversionUnavailable = "CONVERSION_UNAVAILABLE"
	CodeConversionFailed      = "CONVERSION_FAILED"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// Mode selects between a single still frame and a timed recording.
type Mode string

const (
	ModeStill     Mode = "still"
	ModeRecording Mode = "recording"
)

// Format is the caller-requested output encoding. PNG and JPEG apply to
// still captures; MP4 and MJPEG to recordings. MJPEG is also the container
// the recorder produces natively, so requesting it skips conversion.
type Format string

const (
	FormatPNG   Format = "png"
	FormatJPEG  Format = "jpeg"
	FormatMP4   Format = "mp4"
	FormatMJPEG Format = "mjpeg"
)

// Ext returns the file extension for the format, with leading dot.
func (f Format) Ext() string {
	switch f {
	case FormatPNG:
		return ".png"
	case FormatJPEG:
		return ".jpg"
	case FormatMP4:
		return ".mp4"
	case FormatMJPEG:
		return ".mjpeg"
	}
	return ""
}

// Request describes one capture. It is validated once by the orchestrator and
// treated as immutable afterwards.
type Request struct {
	DocumentPath    string   `json:"document_path"`
	OutputPath      string   `json:"output_path,omitempty"`
	Mode            Mode     `json:"mode"`
	Format          Format   `json:"format,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	ViewportWidth   int      `json:"viewport_width,omitempty"`
	ViewportHeight  int      `json:"viewport_height,omitempty"`
}

// Result describes the file a capture actually produced. Under the
// conversion-unavailable fallback OutputPath and Format name the preserved
// native-container file rather than what the request asked for.
type Result struct {
	OutputPath      string  `json:"output_path"`
	Mode            Mode    `json:"mode"`
	Format          Format  `json:"format"`
	ViewportWidth   int     `json:"viewport_width"`
	ViewportHeight  int     `json:"viewport_height"`
	SizeBytes       int64   `json:"size_bytes"`
	Frames          int64   `json:"frames,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Partial         bool    `json:"partial,omitempty"`
}

// Options holds pipeline tuning shared by all captures run through one
// Orchestrator.
type Options struct {
	ChromePath        string
	FFmpegBin         string
	TempDir           string
	SettleDelay       time.Duration
	NavTimeout        time.Duration
	FrameRate         int
	ScreencastQuality int
}

func (o Options) withDefaults() Options {
	if o.FFmpegBin == "" {
		o.FFmpegBin = "ffmpeg"
	}
	if o.TempDir == "" {
		o.TempDir = os.TempDir()
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = 500 * time.Millisecond
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 15 * time.Second
	}
	if o.FrameRate <= 0 {
		o.FrameRate = 10
	}
	if o.ScreencastQuality <= 0 {
		o.ScreencastQuality = 80
	}
	return o
}
