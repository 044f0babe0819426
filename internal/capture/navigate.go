package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

type lifecycleKey struct {
	frame  string
	loader string
}

// Navigate loads the document and blocks until the browser reports the
// networkIdle lifecycle event for this navigation's frame and loader (no
// in-flight connections sustained over the browser's stability window), or
// until the navigation timeout elapses.
func (s *Session) Navigate(ctx context.Context, url string) error {
	var (
		mu   sync.Mutex
		nav  lifecycleKey
		seen = make(map[lifecycleKey]bool)
		once sync.Once
	)
	idle := make(chan struct{})

	// Signal only when the idle event belongs to our navigation. Events can
	// arrive before page.Navigate returns the frame/loader IDs, so matches
	// are re-checked whenever either side updates. Callers hold mu.
	check := func() {
		if nav.frame != "" && seen[nav] {
			once.Do(func() { close(idle) })
		}
	}

	lctx, lcancel := context.WithCancel(s.tabCtx)
	defer lcancel()
	chromedp.ListenTarget(lctx, func(ev any) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok || e.Name != "networkIdle" {
			return
		}
		mu.Lock()
		seen[lifecycleKey{frame: string(e.FrameID), loader: string(e.LoaderID)}] = true
		check()
		mu.Unlock()
	})

	err := chromedp.Run(s.tabCtx, chromedp.ActionFunc(func(cctx context.Context) error {
		if err := page.Enable().Do(cctx); err != nil {
			return err
		}
		if err := page.SetLifecycleEventsEnabled(true).Do(cctx); err != nil {
			return err
		}
		frameID, loaderID, errText, _, err := page.Navigate(url).Do(cctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return errors.New(errText)
		}
		mu.Lock()
		nav = lifecycleKey{frame: string(frameID), loader: string(loaderID)}
		check()
		mu.Unlock()
		return nil
	}))
	if err != nil {
		return newError(CodeNavigationFailed, "navigate to "+url, err)
	}

	select {
	case <-idle:
		slog.Debug("navigation settled", "url", url)
		return nil
	case <-time.After(s.navTimeout):
		return newError(CodeNavigationFailed, "page did not reach network idle within "+s.navTimeout.String(), nil)
	case <-ctx.Done():
		return newError(CodeNavigationFailed, "navigation canceled", ctx.Err())
	}
}
