package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"sublet-scraper/config"
	"sublet-scraper/utils"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	pageTimeout      = 60 * time.Second
	challengeTimeout = 15 * time.Second
)

// Renderer returns the fully rendered HTML of a page.
type Renderer interface {
	HTML(ctx context.Context, pageURL string) (string, error)
}

// Page is one rendered page.
type Page struct {
	URL  string
	HTML string
}

// Browser renders JavaScript-heavy and challenge-protected pages in a shared
// headless Chrome. Chrome is started on the first request and stays up until
// Close.
type Browser struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
	settle time.Duration

	mu          sync.Mutex
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
}

// New creates a Browser. No process is started until the first HTML call.
func New(cfg *config.Config, logger *utils.Logger) *Browser {
	return &Browser{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		settle: 3 * time.Second,
	}
}

func (b *Browser) start() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		return b.browserCtx
	}

	chromeBin := findChromeBinary(b.cfg.ChromeBin)
	b.logger.Info("[browser] Using browser binary: %s", orDefault(chromeBin, "chromedp default"))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	browserCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	b.browserCtx = browserCtx
	b.cancelAlloc = cancelAlloc
	b.cancelTab = cancelTab
	return browserCtx
}

// HTML loads pageURL in a new tab, waits out any bot challenge, scrolls to
// trigger lazy content and returns the document's outer HTML.
func (b *Browser) HTML(ctx context.Context, pageURL string) (string, error) {
	browserCtx := b.start()

	var html string
	err := b.retry.Do(ctx, "render "+pageURL, func(ctx context.Context) error {
		tabCtx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, pageTimeout)
		defer cancelTimeout()

		// the tab hangs off the long-lived browser context, so tie it to ctx too
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		if err := chromedp.Run(tabCtx, chromedp.Navigate(pageURL)); err != nil {
			return fmt.Errorf("chromedp navigate: %w", err)
		}
		if !b.waitForChallenge(tabCtx) {
			b.logger.Warn("[browser] Challenge page did not clear for %s", pageURL)
		}

		err := chromedp.Run(tabCtx,
			chromedp.Sleep(b.settle),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
			chromedp.Sleep(time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(time.Second),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil {
			return fmt.Errorf("chromedp extract: %w", err)
		}
		return nil
	})
	return html, err
}

// waitForChallenge polls the page title until the interstitial that bot
// protection shows ("Just a moment...") is gone.
func (b *Browser) waitForChallenge(ctx context.Context) bool {
	deadline := time.Now().Add(challengeTimeout)
	for time.Now().Before(deadline) {
		var title string
		if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
			return false
		}
		if !isChallengeTitle(title) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Second):
		}
	}
	return false
}

// Close shuts Chrome down. It is safe to call on a Browser that never started.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx == nil {
		return
	}
	b.cancelTab()
	b.cancelAlloc()
	b.browserCtx = nil
}

// RenderAll renders urls through the pool and returns the pages that loaded,
// in input order. Failed pages are logged and skipped.
func RenderAll(ctx context.Context, r Renderer, urls []string, pool *utils.WorkerPool, logger *utils.Logger) []Page {
	pages := make([]Page, len(urls))
	var mu sync.Mutex
	done := 0

	for i, u := range urls {
		pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			html, err := r.HTML(ctx, u)
			if err != nil {
				logger.Warn("[browser] Detail page failed for %s: %v", u, err)
				return
			}

			mu.Lock()
			pages[i] = Page{URL: u, HTML: html}
			done++
			if done%10 == 0 {
				logger.Info("[browser] Rendered %d/%d pages", done, len(urls))
			}
			mu.Unlock()
		})
	}
	pool.Wait()

	out := make([]Page, 0, len(pages))
	for _, p := range pages {
		if p.HTML != "" {
			out = append(out, p)
		}
	}
	return out
}

func isChallengeTitle(title string) bool {
	lower := strings.ToLower(title)
	return strings.Contains(lower, "just a moment") || strings.Contains(lower, "attention required")
}

// findChromeBinary locates a Chrome/Chromium binary. An explicit path wins.
func findChromeBinary(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
