// Package browser runs the embedded browser the OAuth flows are shown in.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/atinyakov/GophChat/internal/config"
	"github.com/atinyakov/GophChat/internal/logger"
)

// navBuffer is how many navigations may queue up before new ones are
// dropped.
const navBuffer = 32

// ErrAlreadyOpen is returned by Open while a previous page is still shown.
var ErrAlreadyOpen = errors.New("browser already open")

// Chrome drives a local Chrome through the DevTools protocol.
type Chrome struct {
	opts config.BrowserOptions
	log  *zap.Logger

	mu  sync.Mutex
	cur *window
}

// New creates a Chrome. Nothing is started until Open.
func New(opts config.BrowserOptions, log *zap.Logger) *Chrome {
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}
	return &Chrome{opts: opts, log: logger.OrNop(log)}
}

// Open starts the browser on url. The returned channel receives the URL of
// every main frame navigation, fragment included, and is closed when the
// browser goes away.
func (c *Chrome) Open(ctx context.Context, url string) (<-chan string, error) {
	c.mu.Lock()
	if c.cur != nil {
		c.mu.Unlock()
		return nil, ErrAlreadyOpen
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.opts.Headless),
		chromedp.Flag("disable-gpu", c.opts.Headless),
		chromedp.UserAgent(c.opts.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	w := newWindow(func() {
		tabCancel()
		allocCancel()
	})
	c.cur = w
	c.mu.Unlock()

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *page.EventFrameNavigated:
			if ev.Frame == nil || ev.Frame.ParentID != "" {
				return
			}
			w.push(frameURL(ev.Frame))
		case *page.EventNavigatedWithinDocument:
			w.push(ev.URL)
		}
	})

	// An empty run launches the browser so start-up errors surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		_ = c.Dismiss()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	go func() {
		<-tabCtx.Done()
		w.close()
	}()
	go func() {
		if err := chromedp.Run(tabCtx, chromedp.Navigate(url)); err != nil && tabCtx.Err() == nil {
			c.log.Warn("navigation failed", zap.String("url", url), zap.Error(err))
		}
	}()

	c.log.Debug("browser opened", zap.String("url", url))
	return w.out, nil
}

// Dismiss closes the browser. It is a no-op when nothing is open.
func (c *Chrome) Dismiss() error {
	c.mu.Lock()
	w := c.cur
	c.cur = nil
	c.mu.Unlock()

	if w == nil {
		return nil
	}
	w.cancel()
	w.close()
	return nil
}

func frameURL(f *cdp.Frame) string {
	return f.URL + f.URLFragment
}

// window is one Open call: its navigation stream and the means to end it.
type window struct {
	cancel func()

	mu     sync.Mutex
	out    chan string
	closed bool
}

func newWindow(cancel func()) *window {
	return &window{cancel: cancel, out: make(chan string, navBuffer)}
}

// push never blocks; the DevTools event loop must keep running.
func (w *window) push(u string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.out <- u:
	default:
	}
}

func (w *window) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.out)
	}
}
