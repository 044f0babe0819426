package capture

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Orchestrator is the public entry point of the capture pipeline. One
// Orchestrator serves any number of concurrent Run calls; each call gets its
// own browser session and raw artifact.
type Orchestrator struct {
	opts Options

	// openSession is swappable so tests can count launches and inject
	// failures without a browser.
	openSession func(ctx context.Context, opts Options, width, height int) (session, error)
}

// NewOrchestrator builds an Orchestrator with the given pipeline options.
func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		opts:        opts.withDefaults(),
		openSession: openSession,
	}
}

// Finalizer returns the output finalizer this orchestrator runs recordings
// through, for capability probing.
func (o *Orchestrator) Finalizer() *Finalizer {
	return &Finalizer{FFmpegBin: o.opts.FFmpegBin, FrameRate: o.opts.FrameRate}
}

// Run validates the request, drives the capture, and returns the resolved
// output path actually written. The browser session is released on every
// exit path. When the conversion fallback fires, the returned Result names
// the preserved native-format file and the error carries
// CodeConversionUnavailable; both are meaningful together.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	req = applyDefaults(req)
	if err := validate(req); err != nil {
		return Result{}, err
	}

	docAbs, err := filepath.Abs(req.DocumentPath)
	if err != nil {
		return Result{}, newError(CodeValidation, "resolve document path", err)
	}
	docURL := "file://" + docAbs

	sess, err := o.openSession(ctx, o.opts, req.ViewportWidth, req.ViewportHeight)
	if err != nil {
		return Result{}, err
	}
	defer sess.Release()

	if err := sess.Navigate(ctx, docURL); err != nil {
		return Result{}, err
	}

	res := Result{
		Mode:           req.Mode,
		Format:         req.Format,
		ViewportWidth:  req.ViewportWidth,
		ViewportHeight: req.ViewportHeight,
	}

	switch req.Mode {
	case ModeStill:
		path, err := o.runStill(ctx, sess, req)
		if err != nil {
			return Result{}, err
		}
		res.OutputPath = path
	case ModeRecording:
		info, path, partial, ferr := o.runRecording(ctx, sess, req)
		res.Frames = info.Frames
		res.DurationSeconds = info.Elapsed.Seconds()
		res.Partial = partial
		res.OutputPath = path
		if ferr != nil {
			if path != "" && isCode(ferr, CodeConversionUnavailable) {
				res.Format = FormatMJPEG
				fillSize(&res)
				return res, ferr
			}
			return Result{}, ferr
		}
	}

	fillSize(&res)
	slog.Info("capture complete",
		"mode", req.Mode, "output", res.OutputPath, "format", res.Format,
		"frames", res.Frames, "partial", res.Partial)
	return res, nil
}

// runStill waits out the settle interval, grabs one frame, and writes it.
func (o *Orchestrator) runStill(ctx context.Context, sess session, req Request) (string, error) {
	select {
	case <-time.After(o.opts.SettleDelay):
	case <-ctx.Done():
		return "", newError(CodeCaptureFailed, "settle wait canceled", ctx.Err())
	}

	data, err := sess.CaptureImage(ctx, req.Format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return "", newError(CodeCaptureFailed, "create output dir", err)
	}
	if err := os.WriteFile(req.OutputPath, data, 0o644); err != nil {
		return "", newError(CodeCaptureFailed, "write screenshot", err)
	}
	return req.OutputPath, nil
}

// runRecording drives the recording state machine and hands the raw artifact
// to the finalizer. Duration presence was validated up front; absence here
// would be a programming error, not a state-machine fault.
func (o *Orchestrator) runRecording(ctx context.Context, sess session, req Request) (RecordingInfo, string, bool, error) {
	rawPath := rawArtifactPath(o.opts.TempDir)
	rec := newRecorder(sess, rawPath)

	if err := rec.Start(ctx); err != nil {
		return RecordingInfo{}, "", false, err
	}

	duration := time.Duration(*req.DurationSeconds * float64(time.Second))
	partial := rec.Wait(ctx, duration)

	info, err := rec.Stop(context.WithoutCancel(ctx))
	if err != nil {
		_ = os.Remove(rawPath)
		return info, "", partial, err
	}

	fin := o.Finalizer()
	path, err := fin.Finalize(context.WithoutCancel(ctx), rawPath, req.Format, req.OutputPath)
	return info, path, partial, err
}

func isCode(err error, code string) bool {
	coded, ok := err.(*CodedError)
	return ok && coded.Code == code
}

func fillSize(res *Result) {
	if res.OutputPath == "" {
		return
	}
	if info, err := os.Stat(res.OutputPath); err == nil {
		res.SizeBytes = info.Size()
	}
}
