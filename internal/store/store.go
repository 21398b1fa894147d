// Package store persists weekly snapshots to SQLite for week-over-week
// comparison, trend views, and lifetime totals.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"adscension/internal/analysis"
	"adscension/internal/asin"
	"adscension/internal/ingest"
)

// Store manages the snapshot database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open creates or opens a snapshot store at the given path. ":memory:" opens
// an in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The modernc driver serializes at the connection level; one connection
	// keeps ":memory:" databases from silently forking.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	PRAGMA foreign_keys = ON;

	CREATE TABLE IF NOT EXISTS weekly_snapshots (
		id TEXT PRIMARY KEY,
		week_start TEXT NOT NULL,
		week_end TEXT NOT NULL,
		imported_at TEXT NOT NULL,
		notes TEXT,
		UNIQUE(week_start)
	);

	CREATE TABLE IF NOT EXISTS campaign_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id TEXT NOT NULL REFERENCES weekly_snapshots(id),
		campaign_name TEXT NOT NULL,
		impressions INTEGER,
		clicks INTEGER,
		spend REAL,
		sales REAL,
		orders INTEGER,
		ctr REAL,
		avg_cpc REAL,
		acos REAL,
		roas REAL,
		UNIQUE(snapshot_id, campaign_name)
	);

	CREATE TABLE IF NOT EXISTS target_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id TEXT NOT NULL REFERENCES weekly_snapshots(id),
		campaign_name TEXT NOT NULL,
		targeting TEXT NOT NULL,
		target_type TEXT NOT NULL,
		bid REAL,
		impressions INTEGER,
		clicks INTEGER,
		spend REAL,
		sales REAL,
		orders INTEGER,
		ctr REAL,
		cpc REAL,
		conversion_rate REAL,
		UNIQUE(snapshot_id, campaign_name, targeting)
	);

	CREATE TABLE IF NOT EXISTS search_term_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id TEXT NOT NULL REFERENCES weekly_snapshots(id),
		campaign_name TEXT NOT NULL,
		targeting TEXT NOT NULL,
		search_term TEXT NOT NULL,
		match_type TEXT,
		impressions INTEGER,
		clicks INTEGER,
		spend REAL,
		sales REAL,
		orders INTEGER,
		is_drift INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS kdp_daily_sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id TEXT NOT NULL REFERENCES weekly_snapshots(id),
		date TEXT NOT NULL,
		title TEXT NOT NULL,
		format TEXT NOT NULL,
		units_sold INTEGER,
		net_units_sold INTEGER,
		royalty REAL,
		UNIQUE(snapshot_id, date, title, format)
	);

	CREATE TABLE IF NOT EXISTS bid_recommendations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id TEXT NOT NULL REFERENCES weekly_snapshots(id),
		targeting TEXT NOT NULL,
		current_bid REAL,
		recommended_max_bid REAL,
		conversion_rate REAL,
		flag TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// childTables lists every table keyed by snapshot_id, for replace-on-save.
var childTables = []string{
	"campaign_metrics",
	"target_metrics",
	"search_term_metrics",
	"kdp_daily_sales",
	"bid_recommendations",
}

// SnapshotInput is everything one weekly snapshot persists.
type SnapshotInput struct {
	WeekStart string // YYYY-MM-DD
	WeekEnd   string
	Notes     string

	Campaigns   []analysis.CampaignAggregate
	Targets     []analysis.TargetAggregate
	SearchTerms []ingest.SearchTermRow
	KDPSales    []ingest.KdpSaleRow
	Bids        analysis.BidRecommendations
	DriftFlags  []analysis.Flag
}

// SaveWeeklySnapshot persists a complete weekly snapshot and returns its id.
// A snapshot already stored for the same week start is replaced wholesale —
// re-running a report for a week is an idempotent overwrite, not an append.
func (s *Store) SaveWeeklySnapshot(in SnapshotInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	var oldID string
	err = tx.QueryRow(`SELECT id FROM weekly_snapshots WHERE week_start = ?`, in.WeekStart).Scan(&oldID)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to check existing snapshot: %w", err)
	}
	if oldID != "" {
		for _, table := range childTables {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE snapshot_id = ?`, oldID); err != nil {
				return "", fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		if _, err := tx.Exec(`DELETE FROM weekly_snapshots WHERE id = ?`, oldID); err != nil {
			return "", fmt.Errorf("failed to replace snapshot: %w", err)
		}
	}

	id := uuid.NewString()
	_, err = tx.Exec(`
		INSERT INTO weekly_snapshots (id, week_start, week_end, imported_at, notes)
		VALUES (?, ?, ?, ?, ?)
	`, id, in.WeekStart, in.WeekEnd, time.Now().UTC().Format(time.RFC3339), in.Notes)
	if err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for _, c := range in.Campaigns {
		_, err = tx.Exec(`
			INSERT INTO campaign_metrics (snapshot_id, campaign_name, impressions,
				clicks, spend, sales, orders, ctr, avg_cpc, acos, roas)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, c.CampaignName, c.Impressions, c.Clicks, c.Spend, c.Sales, c.Orders,
			c.CTR, c.AvgCPC, nullFloat(c.ACOS), nullFloat(c.ROAS))
		if err != nil {
			return "", fmt.Errorf("failed to insert campaign metrics: %w", err)
		}
	}

	for _, t := range in.Targets {
		targetType := "keyword"
		if asin.Is(t.Targeting) {
			targetType = "asin"
		}
		_, err = tx.Exec(`
			INSERT INTO target_metrics (snapshot_id, campaign_name, targeting,
				target_type, bid, impressions, clicks, spend, sales, orders,
				ctr, cpc, conversion_rate)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, t.CampaignName, t.Targeting, targetType, nullFloat(t.Bid),
			t.Impressions, t.Clicks, t.Spend, t.Sales, t.Orders,
			t.CTR, t.CPC, t.ConversionRate())
		if err != nil {
			return "", fmt.Errorf("failed to insert target metrics: %w", err)
		}
	}

	driftKeys := make(map[string]bool, len(in.DriftFlags))
	for _, f := range in.DriftFlags {
		driftKeys[f.Target+"\x1f"+f.SearchTerm] = true
	}
	for _, r := range in.SearchTerms {
		isDrift := 0
		if driftKeys[r.Targeting+"\x1f"+r.SearchTerm] {
			isDrift = 1
		}
		_, err = tx.Exec(`
			INSERT INTO search_term_metrics (snapshot_id, campaign_name, targeting,
				search_term, match_type, impressions, clicks, spend, sales, orders, is_drift)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, r.CampaignName, r.Targeting, r.SearchTerm, string(r.MatchType),
			r.Impressions, r.Clicks, r.Spend, r.Sales, r.Orders, isDrift)
		if err != nil {
			return "", fmt.Errorf("failed to insert search term metrics: %w", err)
		}
	}

	for _, k := range in.KDPSales {
		if k.Date == nil {
			continue
		}
		_, err = tx.Exec(`
			INSERT OR REPLACE INTO kdp_daily_sales (snapshot_id, date, title,
				format, units_sold, net_units_sold, royalty)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, k.Date.Format("2006-01-02"), k.Title, string(k.Format),
			k.UnitsSold, k.Units(), k.Royalty)
		if err != nil {
			return "", fmt.Errorf("failed to insert kdp sales: %w", err)
		}
	}

	flagByTarget := make(map[string]string, len(in.Bids.Flags))
	for _, f := range in.Bids.Flags {
		flagByTarget[f.Target] = string(f.Kind)
	}
	for _, b := range in.Bids.Table {
		var flag interface{}
		if kind, ok := flagByTarget[b.Targeting]; ok {
			flag = kind
		}
		_, err = tx.Exec(`
			INSERT INTO bid_recommendations (snapshot_id, targeting, current_bid,
				recommended_max_bid, conversion_rate, flag)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, b.Targeting, nullFloat(b.CurrentBid), nullFloat(b.MaxProfitableBid),
			b.ConversionRate, flag)
		if err != nil {
			return "", fmt.Errorf("failed to insert bid recommendations: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return id, nil
}

// PriorWeekSummary returns the campaign summary of the most recent snapshot
// strictly before the given week start, or nil when no prior week exists.
func (s *Store) PriorWeekSummary(weekStart string) ([]analysis.CampaignAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshotID string
	err := s.db.QueryRow(`
		SELECT id FROM weekly_snapshots
		WHERE week_start < ? ORDER BY week_start DESC LIMIT 1
	`, weekStart).Scan(&snapshotID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find prior snapshot: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT campaign_name, impressions, clicks, spend, sales, orders,
			ctr, avg_cpc, acos, roas
		FROM campaign_metrics WHERE snapshot_id = ?
		ORDER BY campaign_name
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior campaign metrics: %w", err)
	}
	defer rows.Close()

	var out []analysis.CampaignAggregate
	for rows.Next() {
		var c analysis.CampaignAggregate
		var acos, roas sql.NullFloat64
		if err := rows.Scan(&c.CampaignName, &c.Impressions, &c.Clicks, &c.Spend,
			&c.Sales, &c.Orders, &c.CTR, &c.AvgCPC, &acos, &roas); err != nil {
			return nil, fmt.Errorf("failed to scan campaign metrics: %w", err)
		}
		if acos.Valid {
			v := acos.Float64
			c.ACOS = &v
		}
		if roas.Valid {
			v := roas.Float64
			c.ROAS = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TrendPoint is one (week, campaign) value of a tracked metric.
type TrendPoint struct {
	WeekStart    string
	CampaignName string
	Value        float64
}

// trendMetrics whitelists column names reachable from the trends command.
var trendMetrics = map[string]bool{
	"spend": true, "impressions": true, "clicks": true, "ctr": true,
	"acos": true, "orders": true, "roas": true, "avg_cpc": true, "sales": true,
}

// TrendData returns up to weeks weeks of one metric, oldest week first,
// optionally restricted to a single campaign.
func (s *Store) TrendData(metric, campaign string, weeks int) ([]TrendPoint, error) {
	if !trendMetrics[metric] {
		return nil, fmt.Errorf("invalid trend metric: %s", metric)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ws.week_start, cm.campaign_name, COALESCE(cm.` + metric + `, 0)
		FROM campaign_metrics cm
		JOIN weekly_snapshots ws ON cm.snapshot_id = ws.id
		WHERE ws.week_start IN (
			SELECT week_start FROM weekly_snapshots ORDER BY week_start DESC LIMIT ?
		)`
	args := []interface{}{weeks}
	if campaign != "" {
		query += ` AND cm.campaign_name = ?`
		args = append(args, campaign)
	}
	query += ` ORDER BY ws.week_start ASC, cm.campaign_name ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load trend data: %w", err)
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.WeekStart, &p.CampaignName, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Lifetime holds aggregate metrics across every stored snapshot.
type Lifetime struct {
	WeeksTracked   int
	TotalSpend     float64
	TotalOrders    int
	TotalSales     float64
	OverallACOS    float64
	OverallROAS    float64
	AvgWeeklySpend float64
}

// LifetimeSummary aggregates every snapshot, or returns nil when the store
// is empty.
func (s *Store) LifetimeSummary() (*Lifetime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lt Lifetime
	var spend, sales sql.NullFloat64
	var orders sql.NullInt64
	err := s.db.QueryRow(`
		SELECT COUNT(DISTINCT ws.id), SUM(cm.spend), SUM(cm.orders), SUM(cm.sales)
		FROM campaign_metrics cm
		JOIN weekly_snapshots ws ON cm.snapshot_id = ws.id
	`).Scan(&lt.WeeksTracked, &spend, &orders, &sales)
	if err != nil {
		return nil, fmt.Errorf("failed to load lifetime summary: %w", err)
	}
	if lt.WeeksTracked == 0 {
		return nil, nil
	}

	lt.TotalSpend = spend.Float64
	lt.TotalOrders = int(orders.Int64)
	lt.TotalSales = sales.Float64
	if lt.TotalSales > 0 {
		lt.OverallACOS = lt.TotalSpend / lt.TotalSales
	}
	if lt.TotalSpend > 0 {
		lt.OverallROAS = lt.TotalSales / lt.TotalSpend
	}
	lt.AvgWeeklySpend = lt.TotalSpend / float64(lt.WeeksTracked)
	return &lt, nil
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
