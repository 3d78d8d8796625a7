package pagefetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// RenderConfig configures the rendered acquisition path.
type RenderConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// NavTimeout bounds navigation plus page load. Default: 30s.
	NavTimeout time.Duration

	// SettleDelay is waited after load so late script-built graphics
	// (animation players injecting SVG) have a chance to appear. Default: 2s.
	SettleDelay time.Duration

	Logger *slog.Logger
}

func (c *RenderConfig) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Renderer drives a headless Chrome to capture post-JS HTML, including open
// shadow roots serialised as declarative <template shadowrootmode> markup.
type Renderer struct {
	cfg RenderConfig

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewRenderer creates a Renderer. Chrome is launched lazily on first Fetch.
func NewRenderer(cfg RenderConfig) *Renderer {
	cfg.defaults()
	return &Renderer{cfg: cfg}
}

func (r *Renderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	wsURL := r.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("pagefetch: launch chrome: %w", err)
		}
		wsURL = u
		r.lnch = l
		r.cfg.Logger.Info("pagefetch: launched local chrome", "url", wsURL)
	} else {
		r.cfg.Logger.Info("pagefetch: connecting to remote chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("pagefetch: connect chrome: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		r.cfg.Logger.Warn("pagefetch: ignore cert errors failed", "error", err)
	}
	r.browser = b
	return b, nil
}

// Fetch navigates to a URL in a fresh stealth tab, waits for load plus the
// settle delay, and serialises the live DOM.
func (r *Renderer) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	b, err := r.connect()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("pagefetch: create tab: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, r.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("pagefetch: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		r.cfg.Logger.Warn("pagefetch: wait load timeout", "url", pageURL, "error", err)
	}

	select {
	case <-time.After(r.cfg.SettleDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// getHTML with serializableShadowRoots emits open shadow roots as
	// declarative <template shadowrootmode="open"> markup; fall back to
	// outerHTML on older Chrome.
	res, err := page.Context(ctx).Eval(`() => {
		const root = document.documentElement;
		if (typeof root.getHTML === "function") {
			return root.getHTML({serializableShadowRoots: true});
		}
		return root.outerHTML;
	}`)
	if err != nil {
		return nil, fmt.Errorf("pagefetch: serialise dom: %w", err)
	}

	html := []byte(res.Value.Str())
	r.cfg.Logger.Debug("pagefetch: rendered", "url", pageURL, "size", len(html))

	return &Result{URL: pageURL, HTML: html, Rendered: true}, nil
}

// Close shuts down the managed Chrome, if one was launched.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	if r.lnch != nil {
		r.lnch.Cleanup()
	}
	r.browser = nil
	return err
}
