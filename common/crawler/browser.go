package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common/config"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

const scrollToBottomJS = `() => window.scrollTo(0, document.body.scrollHeight)`

// sessionCloseTimeout bounds releasing a session. Release runs on its own
// context because the run's context is often already done by then.
const sessionCloseTimeout = 10 * time.Second

// BrowserProvider launches a local browser or connects to a remote CDP endpoint
type BrowserProvider struct {
	remoteURL string
	engine    string
	headless  bool
	bin       string
	userAgent string
}

func NewBrowserProvider(cfg config.Config) *BrowserProvider {
	return &BrowserProvider{
		remoteURL: cfg.Browser.RemoteURL,
		engine:    cfg.Browser.Engine,
		headless:  cfg.Browser.Headless,
		bin:       cfg.Browser.Bin,
		userAgent: cfg.Browser.UserAgent,
	}
}

// Acquire starts a browser and opens an incognito tab
func (p *BrowserProvider) Acquire(ctx context.Context) (Session, error) {
	controlURL, l, err := p.controlURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrowserUnavailable, err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		killLauncher(l)
		return nil, fmt.Errorf("%w: connect: %w", ErrBrowserUnavailable, err)
	}

	incognito, err := browser.Incognito()
	if err != nil {
		releaseBrowser(browser, l)
		return nil, fmt.Errorf("%w: incognito: %w", ErrBrowserUnavailable, err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		if err := runCloseSteps(sessionCloseTimeout, []closeStep{closeBrowserStep("incognito context", incognito)}); err != nil {
			log.Warn().Err(err).Msg("Failed to dispose incognito context")
		}
		releaseBrowser(browser, l)
		return nil, fmt.Errorf("%w: open page: %w", ErrBrowserUnavailable, err)
	}

	if p.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: p.userAgent}); err != nil {
			log.Warn().Err(err).Msg("Failed to set user agent")
		}
	}

	log.Info().
		Str("engine", p.engine).
		Bool("remote", p.remoteURL != "").
		Bool("headless", p.headless).
		Msg("Browser session ready")

	return &rodSession{
		browser:   browser,
		incognito: incognito,
		page:      page,
		launcher:  l,
	}, nil
}

// controlURL returns the CDP endpoint, and the launcher when the browser was started locally
func (p *BrowserProvider) controlURL(ctx context.Context) (string, *launcher.Launcher, error) {
	if p.remoteURL != "" {
		if strings.HasPrefix(p.remoteURL, "ws://") || strings.HasPrefix(p.remoteURL, "wss://") {
			return p.remoteURL, nil, nil
		}
		u, err := launcher.ResolveURL(p.remoteURL)
		if err != nil {
			return "", nil, fmt.Errorf("resolve remote browser: %w", err)
		}
		return u, nil, nil
	}

	l := launcher.New().
		Context(ctx).
		Headless(p.headless).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if p.bin != "" {
		l = l.Bin(p.bin)
	}

	u, err := l.Launch()
	if err != nil {
		killLauncher(l)
		return "", nil, fmt.Errorf("launch browser: %w", err)
	}
	return u, l, nil
}

// releaseBrowser shuts down a browser this process launched and leaves remote ones alone
func releaseBrowser(browser *rod.Browser, l *launcher.Launcher) {
	if l == nil {
		return
	}
	_ = runCloseSteps(sessionCloseTimeout, []closeStep{closeBrowserStep("browser", browser)})
	killLauncher(l)
}

type closeStep struct {
	name  string
	close func(ctx context.Context) error
}

func closePageStep(page *rod.Page) closeStep {
	return closeStep{name: "page", close: func(ctx context.Context) error {
		return page.Context(ctx).Close()
	}}
}

// closeBrowserStep closes b. For an incognito browser that disposes only its context.
func closeBrowserStep(name string, b *rod.Browser) closeStep {
	return closeStep{name: name, close: func(ctx context.Context) error {
		return b.Context(ctx).Close()
	}}
}

// runCloseSteps runs every step on a fresh context bounded by timeout and
// keeps going after a failed step
func runCloseSteps(timeout time.Duration, steps []closeStep) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, step := range steps {
		if err := step.close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", step.name, err))
		}
	}
	return errors.Join(errs...)
}

func killLauncher(l *launcher.Launcher) {
	if l == nil {
		return
	}
	l.Kill()
	l.Cleanup()
}

// rodSession owns one incognito tab. A remote browser is left running on
// Close, only the incognito context is disposed.
type rodSession struct {
	browser   *rod.Browser
	incognito *rod.Browser
	page      *rod.Page
	launcher  *launcher.Launcher

	closeOnce sync.Once
	closeErr  error
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	if err := s.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}
	return nil
}

func (s *rodSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	page := s.page.Context(ctx).Timeout(timeout)

	if err := page.WaitLoad(); err != nil {
		return waitError(err, selector, timeout)
	}
	if _, err := page.Element(selector); err != nil {
		return waitError(err, selector, timeout)
	}
	return nil
}

func waitError(err error, selector string, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %q not found after %s", ErrPageLoadTimeout, selector, timeout)
	}
	return fmt.Errorf("wait for %q: %w", selector, err)
}

func (s *rodSession) Scroll(ctx context.Context, selector string, maxAttempts int, pause time.Duration) (int, error) {
	page := s.page.Context(ctx)

	count, err := countElements(page, selector)
	if err != nil {
		return 0, err
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if _, err := page.Eval(scrollToBottomJS); err != nil {
			return count, fmt.Errorf("scroll: %w", err)
		}

		select {
		case <-ctx.Done():
			return count, ctx.Err()
		case <-time.After(pause):
		}

		next, err := countElements(page, selector)
		if err != nil {
			return count, err
		}
		log.Debug().Int("attempt", attempt).Int("rows", next).Msg("Scrolled listing")
		if next <= count {
			break
		}
		count = next
	}

	return count, nil
}

func countElements(page *rod.Page, selector string) (int, error) {
	els, err := page.Elements(selector)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", selector, err)
	}
	return len(els), nil
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		steps := []closeStep{
			closePageStep(s.page),
			closeBrowserStep("incognito context", s.incognito),
		}
		if s.launcher != nil {
			steps = append(steps, closeBrowserStep("browser", s.browser))
		}
		s.closeErr = runCloseSteps(sessionCloseTimeout, steps)
		killLauncher(s.launcher)
		log.Debug().Msg("Browser session closed")
	})
	return s.closeErr
}
