package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// scrollScript reads the current scroll height, then scrolls down
const scrollScript = `(() => {
	const scrollHeight = document.body.scrollHeight;
	window.scrollBy(0, %d);
	return scrollHeight;
})()`

// Options configures the Chrome session
type Options struct {
	Headless  bool
	UserAgent string
	Logf      func(string, ...interface{})
}

// Chrome is a single Chrome tab driven through the DevTools protocol. No
// timeouts are applied beyond the ones passed by the caller.
type Chrome struct {
	ctx         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	closeOnce   sync.Once
	closeErr    error
}

// Launch starts Chrome maximized, with the page using the window size
func Launch(ctx context.Context, opts Options) (*Chrome, error) {
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("start-maximized", true),
	)
	if opts.UserAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)

	var ctxOpts []chromedp.ContextOption
	if opts.Logf != nil {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(opts.Logf))
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, ctxOpts...)

	// Run with no actions starts the browser and opens the tab
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Chrome{
		ctx:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}, nil
}

// Navigate loads url and returns once the DOM is parsed, without waiting for
// the load event.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	domReady := make(chan struct{})
	var once sync.Once

	listenCtx, cancelListen := context.WithCancel(c.ctx)
	defer cancelListen()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if _, ok := ev.(*page.EventDomContentEventFired); ok {
			once.Do(func() { close(domReady) })
		}
	})

	// chromedp.Navigate blocks until the load event, so it runs on its own
	// and keeps loading after we return
	errCh := make(chan error, 1)
	go func() {
		errCh <- chromedp.Run(c.ctx, chromedp.Navigate(url))
	}()

	select {
	case <-domReady:
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to navigate to %s: %w", url, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ScrollBy scrolls the window down by distance pixels and returns the
// document scroll height measured just before scrolling
func (c *Chrome) ScrollBy(ctx context.Context, distance int) (int, error) {
	var height int
	if err := c.run(ctx, 0, chromedp.Evaluate(fmt.Sprintf(scrollScript, distance), &height)); err != nil {
		return 0, fmt.Errorf("failed to scroll: %w", err)
	}
	return height, nil
}

// WaitForSelector waits until an element matching selector is in the DOM
func (c *Chrome) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return c.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// Snapshot returns the rendered document and the current location
func (c *Chrome) Snapshot(ctx context.Context) (string, string, error) {
	var html, location string
	err := c.run(ctx, 0,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&location),
	)
	if err != nil {
		return "", "", fmt.Errorf("failed to read page: %w", err)
	}
	return html, location, nil
}

// Close closes the tab and the browser. It is safe to call more than once.
func (c *Chrome) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = chromedp.Cancel(c.ctx)
		c.tabCancel()
		c.allocCancel()
	})
	return c.closeErr
}

// run executes actions on the tab. Cancelling ctx or hitting timeout only
// aborts the actions; the tab stays open.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}
