package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/pagecast/internal/browser"
	"github.com/dgnsrekt/pagecast/internal/netutil"
)

// session is what the orchestrator drives. The concrete implementation is
// Session; tests substitute fakes.
type session interface {
	Navigate(ctx context.Context, url string) error
	CaptureImage(ctx context.Context, format Format) ([]byte, error)
	screencaster
	Release()
}

// Session owns one headless browser process and one tab sized to the
// requested viewport. It is created fresh per capture and must be released
// on every exit path; Release is safe to call more than once but only acts
// once.
type Session struct {
	launcher   *browser.Launcher
	profileDir string

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	castCancel  context.CancelFunc

	width, height int
	quality       int
	navTimeout    time.Duration

	releaseOnce sync.Once
}

// openSession launches an isolated headless browser on an ephemeral CDP port
// and attaches a single tab with the viewport applied. All failures here are
// launch failures; no retry.
func openSession(ctx context.Context, opts Options, width, height int) (session, error) {
	port, err := netutil.FreePort()
	if err != nil {
		return nil, newError(CodeBrowserLaunchFailed, "no free CDP port", err)
	}

	profileDir, err := os.MkdirTemp("", "pagecast_profile_")
	if err != nil {
		return nil, newError(CodeBrowserLaunchFailed, "create profile dir", err)
	}

	launcher := browser.NewLauncher(browser.Config{
		BinaryPath: opts.ChromePath,
		CDPPort:    port,
		ProfileDir: profileDir,
		WindowSize: fmt.Sprintf("%d,%d", width, height),
	})
	if err := launcher.Launch(ctx); err != nil {
		_ = os.RemoveAll(profileDir)
		return nil, newError(CodeBrowserLaunchFailed, "browser launch failed", err)
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(),
		fmt.Sprintf("http://127.0.0.1:%d", port))
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		launcher:    launcher,
		profileDir:  profileDir,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		width:       width,
		height:      height,
		quality:     opts.ScreencastQuality,
		navTimeout:  opts.NavTimeout,
	}

	if err := chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(int64(width), int64(height), 1, false),
	); err != nil {
		s.Release()
		return nil, newError(CodeBrowserLaunchFailed, "tab setup failed", err)
	}

	slog.Debug("browser session open", "cdp_port", port, "viewport_w", width, "viewport_h", height)
	return s, nil
}

// CaptureImage takes exactly one screenshot of the current page at viewport
// dimensions, encoded in the requested raster format.
func (s *Session) CaptureImage(ctx context.Context, format Format) ([]byte, error) {
	var data []byte
	err := chromedp.Run(s.tabCtx, chromedp.ActionFunc(func(cctx context.Context) error {
		params := page.CaptureScreenshot().WithFromSurface(true)
		if format == FormatJPEG {
			params = params.WithFormat(page.CaptureScreenshotFormatJpeg).WithQuality(90)
		} else {
			params = params.WithFormat(page.CaptureScreenshotFormatPng)
		}
		b, err := params.Do(cctx)
		if err != nil {
			return err
		}
		data = b
		return nil
	}))
	if err != nil {
		return nil, newError(CodeCaptureFailed, "screenshot failed", err)
	}
	if len(data) == 0 {
		return nil, newError(CodeCaptureFailed, "screenshot returned no data", nil)
	}
	if ctx.Err() != nil {
		return nil, newError(CodeCaptureFailed, "capture canceled", ctx.Err())
	}
	return data, nil
}

// StartScreencast begins continuous frame delivery. Frames arrive on the
// tab's event loop; onFrame must not block.
func (s *Session) StartScreencast(ctx context.Context, onFrame func(data []byte, ackID int64)) error {
	lctx, lcancel := context.WithCancel(s.tabCtx)
	s.castCancel = lcancel

	chromedp.ListenTarget(lctx, func(ev any) {
		if e, ok := ev.(*page.EventScreencastFrame); ok {
			data, err := base64.StdEncoding.DecodeString(e.Data)
			if err != nil {
				return
			}
			onFrame(data, e.SessionID)
		}
	})

	err := chromedp.Run(s.tabCtx, page.StartScreencast().
		WithFormat(page.ScreencastFormatJpeg).
		WithQuality(int64(s.quality)).
		WithMaxWidth(int64(s.width)).
		WithMaxHeight(int64(s.height)).
		WithEveryNthFrame(1))
	if err != nil {
		lcancel()
		s.castCancel = nil
		return newError(CodeCaptureFailed, "start screencast failed", err)
	}
	return nil
}

// AckFrame acknowledges a delivered frame so the browser keeps streaming.
func (s *Session) AckFrame(ctx context.Context, ackID int64) error {
	return chromedp.Run(s.tabCtx, page.ScreencastFrameAck(ackID))
}

// StopScreencast halts frame delivery and unregisters the frame listener.
func (s *Session) StopScreencast(ctx context.Context) error {
	if s.castCancel != nil {
		defer func() {
			s.castCancel()
			s.castCancel = nil
		}()
	}
	return chromedp.Run(s.tabCtx, page.StopScreencast())
}

// Release tears the whole session down: tab, CDP connection, browser process,
// profile dir. Idempotent.
func (s *Session) Release() {
	s.releaseOnce.Do(func() {
		if s.castCancel != nil {
			s.castCancel()
			s.castCancel = nil
		}
		s.tabCancel()
		s.allocCancel()
		s.launcher.Stop()
		if err := os.RemoveAll(s.profileDir); err != nil {
			slog.Debug("profile dir cleanup failed", "dir", s.profileDir, "error", err)
		}
		slog.Debug("browser session released")
	})
}
