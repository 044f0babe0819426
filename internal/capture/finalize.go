package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Finalizer reconciles a recording's raw MJPEG artifact with the caller's
// requested container format.
type Finalizer struct {
	// FFmpegBin is the conversion binary name or path probed with LookPath.
	FFmpegBin string
	// FrameRate is the nominal rate stamped onto the transcoded output.
	FrameRate int

	// lookPath is swappable for tests; nil means exec.LookPath.
	lookPath func(string) (string, error)
}

// FFmpegAvailable probes for the conversion tool without invoking it.
func (f *Finalizer) FFmpegAvailable() (string, bool) {
	lp := f.lookPath
	if lp == nil {
		lp = exec.LookPath
	}
	path, err := lp(f.FFmpegBin)
	if err != nil {
		return "", false
	}
	return path, true
}

// Finalize consumes the raw artifact exactly once and produces the final
// output file. The artifact is single-use: calling Finalize again with the
// same rawPath after it returned is outside the contract.
//
// Native format requested: the artifact is renamed to outPath, no tool runs.
// Otherwise ffmpeg is probed first; if absent, the artifact is preserved
// under a native-extension sibling of outPath and the returned error carries
// CodeConversionUnavailable while the returned path stays valid; callers
// must treat that outcome as distinct from a fully honored request.
func (f *Finalizer) Finalize(ctx context.Context, rawPath string, format Format, outPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", newError(CodeCaptureFailed, "create output dir", err)
	}

	if format == FormatMJPEG {
		if err := os.Rename(rawPath, outPath); err != nil {
			return "", newError(CodeCaptureFailed, "move raw artifact", err)
		}
		return outPath, nil
	}

	ffmpegPath, ok := f.FFmpegAvailable()
	if !ok {
		preserved := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + FormatMJPEG.Ext()
		if err := os.Rename(rawPath, preserved); err != nil {
			return "", newError(CodeCaptureFailed, "preserve raw artifact", err)
		}
		slog.Warn("conversion tool unavailable, raw recording preserved",
			"ffmpeg_bin", f.FFmpegBin, "preserved", preserved)
		return preserved, newError(CodeConversionUnavailable,
			fmt.Sprintf("%s not found; recording preserved at %s", f.FFmpegBin, preserved), nil)
	}

	rate := f.FrameRate
	if rate <= 0 {
		rate = 10
	}
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-y",
		"-loglevel", "error",
		"-f", "mjpeg",
		"-framerate", strconv.Itoa(rate),
		"-i", rawPath,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", newError(CodeConversionFailed,
			fmt.Sprintf("ffmpeg exited with error: %s", strings.TrimSpace(string(out))), err)
	}

	if err := os.Remove(rawPath); err != nil {
		slog.Debug("raw artifact cleanup failed", "raw_path", rawPath, "error", err)
	}
	return outPath, nil
}
