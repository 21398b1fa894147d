// Package analysis contains the pure transformation stages of the weekly
// pipeline: per-target aggregation, campaign summaries, performance flagging,
// search-term drift detection, bid economics, and KDP reconciliation. Every
// stage consumes an immutable input table and produces a new result; given
// identical inputs the output is bit-for-bit identical (explicit sorts
// everywhere order is user-visible).
package analysis

import "fmt"

// FlagKind enumerates every behavioral condition the analyzers surface.
type FlagKind string

const (
	// ASIN / keyword performance.
	FlagHighSpendNoOrders FlagKind = "high_spend_no_orders"
	FlagUnderserving      FlagKind = "underserving"
	FlagZeroActivity      FlagKind = "zero_activity"
	FlagZeroImpressions   FlagKind = "zero_impressions"

	// Search-term drift.
	FlagExactMatchDrift     FlagKind = "exact_match_drift"
	FlagBroadMatchExpansion FlagKind = "broad_match_expansion"

	// Bid economics.
	FlagNoData             FlagKind = "no_data"
	FlagNoConversions      FlagKind = "no_conversions"
	FlagBidAboveProfitable FlagKind = "bid_above_profitable"
	FlagBidBelowRange      FlagKind = "bid_below_range"
)

// Severity of a flag.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Flag records one detected condition. Flags are accumulation-only: after
// creation only the ASIN-resolution pass may rewrite the embedded identifiers
// and message into display names — never the kind, severity, or numeric
// context.
type Flag struct {
	Kind     FlagKind
	Severity Severity

	Campaign   string
	Target     string
	Title      string
	SearchTerm string

	Impressions int
	Spend       float64

	CurrentBid     *float64
	RecommendedBid *float64

	Message string
}

func (f Flag) String() string {
	return fmt.Sprintf("[%s/%s] %s", f.Severity, f.Kind, f.Message)
}
