// Package browser renders JavaScript-heavy pages in headless Chrome. Every Render call
// gets its own browser process and profile directory, torn down on every exit path.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

type Options struct {
	Headless  bool
	UserAgent string
	ExecPath  string // empty = chromedp lookup
	Debug     bool   // forward chromedp logs to slog.Debug
}

// Request describes one page render.
type Request struct {
	URL         string
	WaitReady   string        // CSS selector to wait for; "body" when empty
	CookieTexts []string      // button texts that dismiss the cookie banner
	Script      string        // run after load, before capture
	Scroll      bool          // scroll to the bottom to trigger lazy content
	Settle      time.Duration // pause before capture
}

// Loader renders a page and returns its HTML.
type Loader interface {
	Render(ctx context.Context, req Request) (string, error)
}

// Chrome is a Loader backed by chromedp.
type Chrome struct {
	opts Options
}

func NewChrome(opts Options) *Chrome {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Chrome{opts: opts}
}

func (c *Chrome) allocatorOptions(profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserDataDir(profileDir),
		chromedp.UserAgent(c.opts.UserAgent),
	)
	if c.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ExecPath))
	}
	return opts
}

func (c *Chrome) Render(ctx context.Context, req Request) (string, error) {
	profileDir, err := os.MkdirTemp("", "tripprices_chrome_")
	if err != nil {
		return "", fmt.Errorf("create chrome temp dir: %w", err)
	}
	defer os.RemoveAll(profileDir)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions(profileDir)...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...interface{}) {
		if c.opts.Debug {
			slog.Debug("chromedp", "message", fmt.Sprintf(format, v...))
		}
	}))
	defer cancelTab()

	var html string
	if err := chromedp.Run(tabCtx, actions(req, &html)...); err != nil {
		return "", fmt.Errorf("render %s: %w", req.URL, err)
	}
	return html, nil
}

func actions(req Request, html *string) []chromedp.Action {
	wait := req.WaitReady
	if wait == "" {
		wait = "body"
	}
	var done bool
	acts := []chromedp.Action{
		chromedp.Navigate(req.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if len(req.CookieTexts) > 0 {
		acts = append(acts, chromedp.Evaluate(CookieScript(req.CookieTexts), &done))
	}
	acts = append(acts, chromedp.WaitReady(wait, chromedp.ByQuery))
	if req.Script != "" {
		acts = append(acts, chromedp.Evaluate(wrapScript(req.Script), &done))
	}
	if req.Scroll {
		acts = append(acts, chromedp.Evaluate(wrapScript(`window.scrollTo(0, document.body.scrollHeight);`), &done))
	}
	if req.Settle > 0 {
		acts = append(acts, chromedp.Sleep(req.Settle))
	}
	return append(acts, chromedp.OuterHTML("html", html, chromedp.ByQuery))
}

// CookieScript clicks the first button or link whose text contains one of texts
// (case-insensitive). It evaluates to true whether or not a banner was found.
func CookieScript(texts []string) string {
	lowered := make([]string, len(texts))
	for i, t := range texts {
		lowered[i] = strings.ToLower(t)
	}
	list, _ := json.Marshal(lowered)
	return wrapScript(fmt.Sprintf(`const wanted = %s;
for (const el of document.querySelectorAll('button, a, [role="button"]')) {
  const text = (el.innerText || '').toLowerCase();
  if (wanted.some(w => text.includes(w))) { el.click(); break; }
}`, list))
}

// wrapScript makes a statement list evaluate to true so chromedp never sees undefined.
func wrapScript(body string) string {
	return "(() => {\n" + body + "\nreturn true;\n})()"
}
