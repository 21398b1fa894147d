package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// pageTimeout bounds one product-page load.
const pageTimeout = 10 * time.Second

// Browser owns a headless Chromium instance used to fetch Amazon product
// pages. A real browser gets past the storefront's JS checks far more often
// than a bare HTTP client does.
type Browser struct {
	browser *rod.Browser
	logger  *zap.Logger
}

// NewBrowser launches a headless browser. Callers must Close it.
func NewBrowser(logger *zap.Logger) (*Browser, error) {
	u, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return &Browser{browser: browser, logger: logger}, nil
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	return b.browser.Close()
}

// Fetch returns the HTML of the product page for an ASIN. It satisfies
// FetchFunc.
func (b *Browser) Fetch(ctx context.Context, asin string) (string, error) {
	url := "https://www.amazon.com/dp/" + strings.ToUpper(strings.TrimSpace(asin))

	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(pageTimeout)
	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("failed to load %s: %w", url, err)
	}

	htmlStr, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page html: %w", err)
	}
	b.logger.Debug("fetched product page", zap.String("asin", asin), zap.Int("bytes", len(htmlStr)))
	return htmlStr, nil
}
