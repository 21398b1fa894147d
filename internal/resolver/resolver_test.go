package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeLookup(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "asin_lookup.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func noSleep(time.Duration) {}

func TestResolveFromLookup(t *testing.T) {
	path := writeLookup(t, map[string]string{"B0KNOWN0001": "Known Title"})
	r := New(path, zap.NewNop())

	got, err := r.Resolve(context.Background(), []string{
		"B0KNOWN0001",
		"b0known0001", // case-insensitive match, original term preserved as key
		"space opera", // not an ASIN, skipped
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"B0KNOWN0001": "Known Title (B0KNOWN0001)",
		"b0known0001": "Known Title (b0known0001)",
	}, got)
}

func TestResolveUnknownWithoutFetcher(t *testing.T) {
	path := writeLookup(t, map[string]string{})
	r := New(path, zap.NewNop())

	got, err := r.Resolve(context.Background(), []string{"B0UNKNOWN01"})
	require.NoError(t, err)
	assert.Equal(t, "B0UNKNOWN01 (unknown)", got["B0UNKNOWN01"])
}

func TestResolveScrapesAndCaches(t *testing.T) {
	path := writeLookup(t, map[string]string{})

	var fetched []string
	fetch := func(ctx context.Context, asin string) (string, error) {
		fetched = append(fetched, asin)
		return `<html><body><span id="productTitle"> Scraped Title </span></body></html>`, nil
	}
	r := New(path, zap.NewNop(), WithFetcher(fetch), withSleep(noSleep))

	got, err := r.Resolve(context.Background(), []string{"b0scraped01"})
	require.NoError(t, err)
	assert.Equal(t, "Scraped Title (b0scraped01)", got["b0scraped01"])
	assert.Equal(t, []string{"b0scraped01"}, fetched)

	// The scraped title is cached under the canonical uppercase ASIN.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var lookup map[string]string
	require.NoError(t, json.Unmarshal(data, &lookup))
	assert.Equal(t, "Scraped Title", lookup["B0SCRAPED01"])

	// A second resolve hits the cache, not the fetcher.
	fetched = nil
	got, err = r.Resolve(context.Background(), []string{"B0SCRAPED01"})
	require.NoError(t, err)
	assert.Equal(t, "Scraped Title (B0SCRAPED01)", got["B0SCRAPED01"])
	assert.Empty(t, fetched)
}

func TestResolveScrapeFailure(t *testing.T) {
	path := writeLookup(t, map[string]string{})
	fetch := func(ctx context.Context, asin string) (string, error) {
		return "", errors.New("blocked")
	}
	r := New(path, zap.NewNop(), WithFetcher(fetch), withSleep(noSleep))

	got, err := r.Resolve(context.Background(), []string{"B0BLOCKED01"})
	require.NoError(t, err)
	assert.Equal(t, "B0BLOCKED01 (unknown)", got["B0BLOCKED01"])

	// Failures are never cached.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var lookup map[string]string
	require.NoError(t, json.Unmarshal(data, &lookup))
	assert.Empty(t, lookup)
}

func TestResolveMissingLookupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "asin_lookup.json")
	r := New(path, zap.NewNop())

	got, err := r.Resolve(context.Background(), []string{"B0UNKNOWN01"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestResolveContextCancelled(t *testing.T) {
	path := writeLookup(t, map[string]string{})
	fetch := func(ctx context.Context, asin string) (string, error) {
		return "<html><title>X</title></html>", nil
	}
	r := New(path, zap.NewNop(), WithFetcher(fetch), withSleep(noSleep))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Resolve(ctx, []string{"B0UNKNOWN01"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractTitleProductSpan(t *testing.T) {
	page := `<html><head><title>Amazon.com: Fallback: Books</title></head>
	<body><span id="productTitle">
		The Real Title: A Subtitle
	</span></body></html>`

	assert.Equal(t, "The Real Title: A Subtitle", ExtractTitle(page))
}

func TestExtractTitleFallbackToTitleTag(t *testing.T) {
	page := `<html><head><title>Amazon.com: Some Book Title: Books</title></head><body></body></html>`
	assert.Equal(t, "Some Book Title", ExtractTitle(page))
}

func TestExtractTitleBotBlockPage(t *testing.T) {
	page := `<html><head><title>Amazon.com</title></head><body></body></html>`
	assert.Equal(t, "", ExtractTitle(page))
}

func TestCleanTitle(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Amazon.com: My Book: Books", "My Book"},
		{"My Book: Kindle Store", "My Book"},
		{"My Book eBook : Smith, Jane", "My Book"},
		{"My Book: Smith, Jane", "My Book"},
		{"My Book: 9781234567890: Amazon.com", "My Book"},
		{"My Book: Amazon.com", "My Book"},
		{"Amazon.com", ""},
		{"Page Not Found", ""},
		{"  ", ""},
		{"Subtitle Kept: The Return", "Subtitle Kept: The Return"},
	}
	for _, c := range cases {
		if got := cleanTitle(c.in); got != c.want {
			t.Errorf("cleanTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
