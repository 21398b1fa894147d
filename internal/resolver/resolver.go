// Package resolver turns raw ASINs appearing as search terms into display
// names ("Book Title (B0XXXXXXXX)"). Known ASINs come from a local JSON
// lookup file; unknown ones are optionally scraped from their Amazon product
// page and cached back.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"adscension/internal/asin"
)

// scrapeDelay spaces out Amazon requests. One page a second is enough for
// the handful of unknown ASINs a weekly report surfaces.
const scrapeDelay = time.Second

// FetchFunc returns the raw HTML of an ASIN's product page.
type FetchFunc func(ctx context.Context, asin string) (string, error)

// Resolver resolves ASIN search terms to display names.
type Resolver struct {
	lookupPath string
	logger     *zap.Logger

	// fetch is nil when scraping is disabled; tests inject their own.
	fetch FetchFunc
	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFetcher sets the page fetcher. Without one the resolver is
// lookup-only.
func WithFetcher(f FetchFunc) Option {
	return func(r *Resolver) { r.fetch = f }
}

func withSleep(f func(time.Duration)) Option {
	return func(r *Resolver) { r.sleep = f }
}

// New creates a resolver backed by the JSON lookup file at lookupPath.
func New(lookupPath string, logger *zap.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		lookupPath: lookupPath,
		logger:     logger,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps each ASIN-shaped term to a display name. Non-ASIN terms are
// skipped entirely. Unknown ASINs resolve to "Title (ASIN)" when scraping
// succeeds, "ASIN (unknown)" when it fails, and newly scraped titles are
// persisted to the lookup file.
func (r *Resolver) Resolve(ctx context.Context, terms []string) (map[string]string, error) {
	lookup, err := r.loadLookup()
	if err != nil {
		return nil, err
	}

	// Case-insensitive index over the canonical keys.
	lower := make(map[string]string, len(lookup))
	for k, v := range lookup {
		lower[strings.ToLower(k)] = v
	}

	result := make(map[string]string)
	var unknown []string
	for _, term := range terms {
		if !asin.Is(term) {
			continue
		}
		if title, ok := lower[strings.ToLower(strings.TrimSpace(term))]; ok {
			result[term] = fmt.Sprintf("%s (%s)", title, term)
		} else {
			unknown = append(unknown, term)
		}
	}

	if r.fetch == nil || len(unknown) == 0 {
		for _, term := range unknown {
			result[term] = fmt.Sprintf("%s (unknown)", term)
		}
		return result, nil
	}

	newlyResolved := make(map[string]string)
	for i, term := range unknown {
		if i > 0 {
			r.sleep(scrapeDelay)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		title := r.scrapeTitle(ctx, term)
		if title == "" {
			result[term] = fmt.Sprintf("%s (unknown)", term)
			continue
		}
		result[term] = fmt.Sprintf("%s (%s)", title, term)
		newlyResolved[canonicalASIN(term)] = title
	}

	if len(newlyResolved) > 0 {
		for k, v := range newlyResolved {
			lookup[k] = v
		}
		if err := r.saveLookup(lookup); err != nil {
			// The resolution itself succeeded; a cache write failure only
			// costs a re-scrape next week.
			r.logger.Warn("failed to persist asin lookup", zap.Error(err))
		}
	}
	return result, nil
}

func (r *Resolver) scrapeTitle(ctx context.Context, term string) string {
	page, err := r.fetch(ctx, term)
	if err != nil {
		r.logger.Debug("asin scrape failed", zap.String("asin", term), zap.Error(err))
		return ""
	}
	title := ExtractTitle(page)
	if title == "" {
		r.logger.Debug("asin page had no usable title", zap.String("asin", term))
	}
	return title
}

// canonicalASIN uppercases B0-style ASINs for cache keys; numeric ISBNs are
// stored as-is.
func canonicalASIN(term string) string {
	term = strings.TrimSpace(term)
	if strings.HasPrefix(strings.ToLower(term), "b") {
		return strings.ToUpper(term)
	}
	return term
}

func (r *Resolver) loadLookup() (map[string]string, error) {
	data, err := os.ReadFile(r.lookupPath)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read asin lookup: %w", err)
	}

	lookup := map[string]string{}
	if err := json.Unmarshal(data, &lookup); err != nil {
		return nil, fmt.Errorf("failed to parse asin lookup %s: %w", r.lookupPath, err)
	}
	return lookup, nil
}

func (r *Resolver) saveLookup(lookup map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(r.lookupPath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(lookup, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.lookupPath, append(data, '\n'), 0o644)
}
