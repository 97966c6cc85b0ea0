package receipt

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RiskLevel is the three-level risk label shown next to a receipt
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MED"
	RiskHigh   RiskLevel = "HIGH"
)

// LongRetentionDays is the retention at or above which a receipt is at least MED
const LongRetentionDays = 365

// unclearRevokeMarkers flag a revocation path that still needs clarification
var unclearRevokeMarkers = []string{"need", "명확화"}

// Classifier assigns risk levels. The keyword lists are matched case-insensitively
// as substrings after NFC normalisation.
type Classifier struct {
	// SensitiveItems are keywords that make any matching data item HIGH risk
	SensitiveItems []string
	// SensitiveSummary are keywords that make a matching summary HIGH risk
	SensitiveSummary []string
}

// DefaultClassifier carries the full sensitive keyword set:
// OTP, bank account, resident registration number and password.
var DefaultClassifier = Classifier{
	SensitiveItems:   []string{"otp", "계좌", "주민", "비밀번호"},
	SensitiveSummary: []string{"otp", "계좌"},
}

// WithItemKeywords returns a copy of the classifier with extra data-item keywords
func (c Classifier) WithItemKeywords(keywords ...string) Classifier {
	items := make([]string, 0, len(c.SensitiveItems)+len(keywords))
	items = append(items, c.SensitiveItems...)
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k != "" {
			items = append(items, k)
		}
	}
	c.SensitiveItems = items
	return c
}

// Classify evaluates HIGH triggers first, then MED, then falls back to LOW.
// The levels are not additive: any HIGH trigger wins outright.
func (c Classifier) Classify(r Receipt) RiskLevel {
	if c.isHigh(r) {
		return RiskHigh
	}
	if isMedium(r) {
		return RiskMedium
	}
	return RiskLow
}

// Classify uses DefaultClassifier
func Classify(r Receipt) RiskLevel {
	return DefaultClassifier.Classify(r)
}

func (c Classifier) isHigh(r Receipt) bool {
	if r.OverCollection {
		return true
	}
	for _, item := range r.DataItems {
		if containsAny(fold(item), c.SensitiveItems) {
			return true
		}
	}
	return containsAny(fold(r.Summary), c.SensitiveSummary)
}

func isMedium(r Receipt) bool {
	switch {
	case r.RetentionDays >= LongRetentionDays:
		return true
	case len(r.ThirdPartyServices) > 0:
		return true
	case r.HasOverseasTransfer():
		return true
	}
	return !r.HasClearRevokePath()
}

// fold lower-cases and NFC-normalises s for keyword matching
func fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if strings.Contains(s, fold(k)) {
			return true
		}
	}
	return false
}
