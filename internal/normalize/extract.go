package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/receiptos/receiptos/internal/receipt"
	"golang.org/x/text/unicode/norm"
)

// categoryKeywords is checked in order; the first category with a hit wins
var categoryKeywords = []struct {
	category receipt.Category
	keywords []string
}{
	{receipt.CategoryPayment, []string{"payment", "결제"}},
	{receipt.CategoryCloud, []string{"cloud", "클라우드"}},
	{receipt.CategoryHealth, []string{"health", "건강"}},
	{receipt.CategoryEdu, []string{"edu", "교육"}},
	{receipt.CategoryMarketing, []string{"marketing", "마케팅"}},
}

// MaxRetentionDays caps retention periods too long to represent
const MaxRetentionDays = math.MaxInt32

// retentionUnits is applied in order; only the first matching unit counts
var retentionUnits = []struct {
	pattern *regexp.Regexp
	days    int
}{
	{regexp.MustCompile(`(\d+)\s*일`), 1},
	{regexp.MustCompile(`(\d+)\s*개월`), 30},
	{regexp.MustCompile(`(\d+)\s*년`), 365},
}

// transferCategories lists every field that describes data leaving the service
var transferCategories = []struct {
	kind     receipt.TransferType
	keys     []string
	overseas bool
}{
	{receipt.TransferThirdParty, ThirdPartyKeys, false},
	{receipt.TransferOutsourcing, OutsourcingKeys, false},
	{receipt.TransferOverseas, OverseasKeys, true},
	{receipt.TransferGeneric, TransferKeys, false},
}

// ExtractCategory scans the field names for domain keywords
func ExtractCategory(fields Fields) receipt.Category {
	return categoryOf(strings.Join(fields.Names(), " "))
}

func categoryOf(text string) receipt.Category {
	text = strings.ToLower(norm.NFC.String(text))
	for _, c := range categoryKeywords {
		for _, k := range c.keywords {
			if strings.Contains(text, k) {
				return c.category
			}
		}
	}
	return receipt.CategoryGeneral
}

// ExtractRetentionDays parses the retention field into days, or 0 when unknown
func ExtractRetentionDays(fields Fields) int {
	value, ok := lookupString(fields, RetentionKeys)
	if !ok {
		return 0
	}
	value = norm.NFC.String(value)
	for _, unit := range retentionUnits {
		m := unit.pattern.FindStringSubmatch(value)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n > MaxRetentionDays/unit.days {
			return MaxRetentionDays
		}
		return n * unit.days
	}
	return 0
}

// ExtractDataItems returns the collected data items, never empty
func ExtractDataItems(fields Fields) []string {
	items, _ := lookupStrings(fields, DataItemsKeys)
	if len(items) == 0 {
		return []string{receipt.Unclassified}
	}
	return items
}

// ExtractRequiredItems returns the mandatory data items, possibly empty
func ExtractRequiredItems(fields Fields) []string {
	items, _ := lookupStrings(fields, RequiredItemsKeys)
	if items == nil {
		return []string{}
	}
	return items
}

// ExtractOptionalItems returns the optional data items, possibly empty
func ExtractOptionalItems(fields Fields) []string {
	items, _ := lookupStrings(fields, OptionalItemsKeys)
	if items == nil {
		return []string{}
	}
	return items
}

// ExtractThirdPartyServices lists third-party recipients followed by overseas
// destinations, the latter marked with receipt.OverseasPrefix.
func ExtractThirdPartyServices(fields Fields) []string {
	services := make([]string, 0)
	if names, ok := lookupStrings(fields, ThirdPartyKeys); ok {
		services = append(services, names...)
	}
	if names, ok := lookupStrings(fields, OverseasKeys); ok {
		for _, name := range names {
			services = append(services, receipt.OverseasPrefix+name)
		}
	}
	return services
}

// ExtractTransfers emits one record per destination in each transfer field.
// Every record carries the receipt-wide data items.
func ExtractTransfers(fields Fields, dataItems []string) []receipt.Transfer {
	transfers := make([]receipt.Transfer, 0)
	for _, c := range transferCategories {
		destinations, ok := lookupStrings(fields, c.keys)
		if !ok {
			continue
		}
		for _, dest := range destinations {
			transfers = append(transfers, receipt.Transfer{
				Type:        c.kind,
				Destination: dest,
				IsOverseas:  c.overseas,
				DataItems:   append([]string(nil), dataItems...),
			})
		}
	}
	return transfers
}

// ExtractOverCollection reports whether the document asks for more than it needs,
// with the reasons given by the over-collection field and matching signals.
func ExtractOverCollection(fields Fields, signals []Signal) (bool, []string) {
	flagged := false
	reasons := make([]string, 0)

	if field, ok := lookup(fields, OverCollectionKeys); ok {
		switch v := field.Value.(type) {
		case bool:
			flagged = v
		default:
			values := stringsOf(v)
			if len(values) > 0 {
				flagged = true
				reasons = append(reasons, values...)
			}
		}
	}

	for _, s := range signals {
		if !strings.Contains(strings.ToLower(s.SignalID), overCollectionSignal) {
			continue
		}
		flagged = true
		if reason := firstNonEmpty(s.Description, s.Title); reason != "" {
			reasons = append(reasons, reason)
		}
	}

	if !flagged {
		return false, []string{}
	}
	return true, reasons
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
