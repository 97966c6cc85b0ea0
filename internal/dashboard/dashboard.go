// Package dashboard builds the inbox list and the dashboard summary from
// normalized receipts and revocation requests.
package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/receiptos/receiptos/internal/receipt"
	"github.com/receiptos/receiptos/internal/revocation"
)

// DocumentType is the coarse document kind shown in the inbox
type DocumentType string

const (
	DocumentConsentForm  DocumentType = "CONSENT_FORM"
	DocumentPolicyUpdate DocumentType = "POLICY_UPDATE"
)

// ListItem is one row of the inbox
type ListItem struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	EntityName  string            `json:"entity_name"`
	DocType     DocumentType      `json:"doc_type"`
	ReceivedAt  string            `json:"received_at"`
	RiskLevel   receipt.RiskLevel `json:"risk_level"`
	SummaryLine string            `json:"summary_line"`
}

// Item maps a receipt to an inbox row
func Item(r receipt.Receipt, classifier receipt.Classifier, now time.Time) ListItem {
	docType := DocumentPolicyUpdate
	if r.DocType == receipt.DocTypeConsent {
		docType = DocumentConsentForm
	}
	receivedAt := r.ReceivedAt
	if receivedAt == "" {
		receivedAt = now.UTC().Format(time.RFC3339)
	}
	return ListItem{
		ID:          r.ID,
		Title:       orDefault(r.ServiceName, "Untitled"),
		EntityName:  orDefault(r.EntityName, "Unknown"),
		DocType:     docType,
		ReceivedAt:  receivedAt,
		RiskLevel:   classifier.Classify(r),
		SummaryLine: orDefault(r.Summary, receipt.NoSummary),
	}
}

// Items maps every receipt, keeping order
func Items(receipts []receipt.Receipt, classifier receipt.Classifier, now time.Time) []ListItem {
	items := make([]ListItem, 0, len(receipts))
	for _, r := range receipts {
		items = append(items, Item(r, classifier, now))
	}
	return items
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Range is the timeline window
type Range string

const (
	Range3Months Range = "3m"
	Range6Months Range = "6m"
	RangeAll     Range = "all"
)

// ParseRange accepts 3m, 6m or all; empty means 6m
func ParseRange(s string) (Range, error) {
	switch Range(strings.ToLower(strings.TrimSpace(s))) {
	case "", Range6Months:
		return Range6Months, nil
	case Range3Months:
		return Range3Months, nil
	case RangeAll:
		return RangeAll, nil
	}
	return "", fmt.Errorf("unknown range %q", s)
}

// Overload is how many services hold the user's data, bucketed
type Overload string

const (
	OverloadLow    Overload = "low"
	OverloadMedium Overload = "medium"
	OverloadHigh   Overload = "high"
)

// Bucket is the number of receipts received in one month (YYYY-MM)
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats is the dashboard summary
type Stats struct {
	TotalReceipts    int                       `json:"total_receipts"`
	DistinctServices int                       `json:"distinct_services"`
	LongRetention    int                       `json:"long_retention"`
	UnclearRevoke    int                       `json:"unclear_revoke"`
	ThirdParties     int                       `json:"third_parties"`
	RiskScore        int                       `json:"risk_score"`
	Overload         Overload                  `json:"overload"`
	Categories       map[receipt.Category]int  `json:"categories"`
	RiskLevels       map[receipt.RiskLevel]int `json:"risk_levels"`
	TotalRequests    int                       `json:"total_requests"`
	RequestStatuses  map[revocation.Status]int `json:"request_statuses"`
	Timeline         []Bucket                  `json:"timeline"`
	NextActions      []string                  `json:"next_actions"`
}

const maxNextActions = 3

// Next action messages, in priority order
const (
	ActionHighRisk      = "Your risk score is high. Start sending withdrawal or deletion requests to the services that keep data longest."
	ActionUnclearRevoke = "Tidy up documents with an unclear revocation path and write down where requests should go."
	ActionLongRetention = "Review the settings of services that keep data for a year or more."
	ActionFollowUp      = "Send a follow-up to services with waiting requests to speed them up."
	ActionAllClear      = "Everything looks stable. Check back here when a new consent arrives."
)

// Summarize computes the dashboard for the given receipts and requests
func Summarize(receipts []receipt.Receipt, requests []revocation.Request, rng Range, now time.Time, classifier receipt.Classifier) Stats {
	services := make(map[string]struct{})
	thirdParties := make(map[string]struct{})
	stats := Stats{
		TotalReceipts:   len(receipts),
		Categories:      make(map[receipt.Category]int),
		RiskLevels:      make(map[receipt.RiskLevel]int),
		TotalRequests:   len(requests),
		RequestStatuses: revocation.CountByStatus(requests),
	}

	signals := 0
	for _, r := range receipts {
		services[r.ServiceName] = struct{}{}
		for _, tp := range r.ThirdPartyServices {
			thirdParties[tp] = struct{}{}
		}
		if r.RetentionDays >= receipt.LongRetentionDays {
			stats.LongRetention++
		}
		if !r.HasClearRevokePath() {
			stats.UnclearRevoke++
		}
		if r.RetentionDays >= receipt.LongRetentionDays || len(r.ThirdPartyServices) > 0 {
			signals++
		}
		stats.Categories[r.Category]++
		stats.RiskLevels[classifier.Classify(r)]++
	}
	stats.DistinctServices = len(services)
	stats.ThirdParties = len(thirdParties)
	stats.RiskScore = riskScore(signals, stats.UnclearRevoke, stats.DistinctServices, stats.ThirdParties)
	stats.Overload = overload(stats.DistinctServices)
	stats.Timeline = Timeline(receipts, rng, now)
	stats.NextActions = nextActions(stats)
	return stats
}

func riskScore(signals, unclear, services, thirdParties int) int {
	score := 30 + signals*12 + unclear*8 + min(30, services*2) + min(10, thirdParties*2)
	return min(100, score)
}

func overload(services int) Overload {
	switch {
	case services >= 10:
		return OverloadHigh
	case services >= 6:
		return OverloadMedium
	}
	return OverloadLow
}

func nextActions(stats Stats) []string {
	var actions []string
	if stats.RiskScore >= 70 {
		actions = append(actions, ActionHighRisk)
	}
	if stats.UnclearRevoke > 0 {
		actions = append(actions, ActionUnclearRevoke)
	}
	if stats.LongRetention > 0 {
		actions = append(actions, ActionLongRetention)
	}
	if stats.RequestStatuses[revocation.StatusWaiting] > 0 {
		actions = append(actions, ActionFollowUp)
	}
	if len(actions) == 0 {
		actions = append(actions, ActionAllClear)
	}
	if len(actions) > maxNextActions {
		actions = actions[:maxNextActions]
	}
	return actions
}

// Timeline counts receipts per month inside the range, oldest month first.
// Receipts whose received_at does not parse are left out.
func Timeline(receipts []receipt.Receipt, rng Range, now time.Time) []Bucket {
	var cutoff time.Time
	switch rng {
	case Range3Months:
		cutoff = now.AddDate(0, -3, 0)
	case Range6Months:
		cutoff = now.AddDate(0, -6, 0)
	}

	counts := make(map[string]int)
	for _, r := range receipts {
		t, ok := parseReceivedAt(r.ReceivedAt)
		if !ok || t.Before(cutoff) {
			continue
		}
		counts[t.Format("2006-01")]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for label, count := range counts {
		buckets = append(buckets, Bucket{Label: label, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Label < buckets[j].Label
	})
	return buckets
}

// receivedAtLayouts are tried in order; layouts without a zone read as UTC
var receivedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseReceivedAt reads an ISO 8601 timestamp. Anything else that starts with
// a YYYY-MM month counts as the first of that month.
func parseReceivedAt(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range receivedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if len(s) >= 7 {
		if t, err := time.Parse("2006-01", s[:7]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
