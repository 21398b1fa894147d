// Package config loads the campaigns.yaml declarative configuration:
// campaign definitions, flag thresholds, book groupings, and the ads timeline.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Campaign types.
const (
	CampaignTypeProduct = "product_targeting"
	CampaignTypeKeyword = "keyword_targeting"
)

// Config holds all adscension configuration.
type Config struct {
	// Campaigns keyed by a stable identifier (e.g. "book_2_asin").
	Campaigns map[string]Campaign `yaml:"campaigns"`

	// Global analysis settings and flag thresholds.
	Settings Settings `yaml:"settings"`

	// Books keyed by a stable identifier (e.g. "book_1"), used for
	// paired-purchase detection.
	Books map[string]Book `yaml:"books"`

	// Timeline of real-world events the analysis partitions on.
	Timeline Timeline `yaml:"timeline"`
}

// Campaign describes one configured ad campaign.
type Campaign struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"` // product_targeting or keyword_targeting
	Targets []Target `yaml:"targets"`
}

// Target describes one configured keyword or ASIN target within a campaign.
type Target struct {
	ASIN  string   `yaml:"asin"`
	Title string   `yaml:"title"`
	Bid   *float64 `yaml:"bid"`
}

// Settings configures flag thresholds and bid economics.
type Settings struct {
	// Flag a target when spend exceeds this with zero orders.
	HighSpendFlag float64 `yaml:"high_spend_flag"`
	// Flag a target when impressions fall below this.
	LowImpressionsFlag int `yaml:"low_impressions_flag"`
	// Bid economics inputs.
	TargetACOS     float64 `yaml:"target_acos"`
	BlendedRoyalty float64 `yaml:"blended_royalty"`
	// Only KDP rows for this marketplace are retained.
	Marketplace string `yaml:"marketplace"`
	// Annotation only: the date the campaigns switched from expanded to
	// exact ASIN matching. Never used as a computation input.
	ExactMatchTransitionDate string `yaml:"exact_match_transition_date"`
}

// Book describes one title's identifiers across formats.
type Book struct {
	ShortTitle    string `yaml:"short_title"`
	ASINKindle    string `yaml:"asin_kindle"`
	ASINPaperback string `yaml:"asin_paperback"`
}

// Timeline holds dates the ad-influence estimate partitions on.
type Timeline struct {
	AmazonAdsStart string `yaml:"amazon_ads_start"`
}

// DefaultConfig returns the configuration defaults. Loaded files overlay these.
func DefaultConfig() *Config {
	return &Config{
		Campaigns: map[string]Campaign{},
		Books:     map[string]Book{},
		Settings: Settings{
			HighSpendFlag:      5.0,
			LowImpressionsFlag: 10,
			TargetACOS:         0.50,
			BlendedRoyalty:     5.00,
			Marketplace:        "Amazon.com",
		},
	}
}

// Load reads and parses a campaigns.yaml file, overlaying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	// A zero or negative target ACoS would make every bid unbounded.
	if cfg.Settings.TargetACOS <= 0 {
		cfg.Settings.TargetACOS = 0.50
	}
	if cfg.Settings.BlendedRoyalty <= 0 {
		cfg.Settings.BlendedRoyalty = 5.00
	}
	if cfg.Settings.Marketplace == "" {
		cfg.Settings.Marketplace = "Amazon.com"
	}
	return cfg, nil
}

// CampaignNames returns the names of campaigns of the given type, sorted.
func (c *Config) CampaignNames(campaignType string) []string {
	var names []string
	for _, campaign := range c.Campaigns {
		if campaign.Type == campaignType {
			names = append(names, campaign.Name)
		}
	}
	sort.Strings(names)
	return names
}

// TargetInfo is a configured target joined with its campaign key.
type TargetInfo struct {
	ASIN        string
	Title       string
	Bid         *float64
	CampaignKey string
}

// TargetLookup returns configured targets indexed by identifier, restricted
// to campaigns of the given type. Pass "" for all campaign types.
func (c *Config) TargetLookup(campaignType string) map[string]TargetInfo {
	lookup := make(map[string]TargetInfo)
	for _, key := range c.campaignKeys() {
		campaign := c.Campaigns[key]
		if campaignType != "" && campaign.Type != campaignType {
			continue
		}
		for _, target := range campaign.Targets {
			lookup[target.ASIN] = TargetInfo{
				ASIN:        target.ASIN,
				Title:       target.Title,
				Bid:         target.Bid,
				CampaignKey: key,
			}
		}
	}
	return lookup
}

// TargetBids returns the configured bid for every target across all campaigns.
// Targets configured without a bid map to nil.
func (c *Config) TargetBids() map[string]*float64 {
	bids := make(map[string]*float64)
	for _, key := range c.campaignKeys() {
		for _, target := range c.Campaigns[key].Targets {
			bids[target.ASIN] = target.Bid
		}
	}
	return bids
}

// BookASINs returns the ASIN set for books whose key contains keyMarker or
// whose short title contains titleMarker (e.g. "book_1" / "Book 1").
func (c *Config) BookASINs(keyMarker, titleMarker string) map[string]bool {
	asins := make(map[string]bool)
	for _, key := range c.bookKeys() {
		book := c.Books[key]
		if !strings.Contains(key, keyMarker) && !strings.Contains(book.ShortTitle, titleMarker) {
			continue
		}
		if book.ASINKindle != "" {
			asins[book.ASINKindle] = true
		}
		if book.ASINPaperback != "" {
			asins[book.ASINPaperback] = true
		}
	}
	return asins
}

// campaignKeys returns campaign map keys in sorted order so every consumer
// iterates deterministically.
func (c *Config) campaignKeys() []string {
	keys := make([]string, 0, len(c.Campaigns))
	for key := range c.Campaigns {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (c *Config) bookKeys() []string {
	keys := make([]string, 0, len(c.Books))
	for key := range c.Books {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
