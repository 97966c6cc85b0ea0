// Package normalize turns loosely-typed backend receipt payloads into
// canonical receipts. Every function here is total: missing or oddly shaped
// input falls back to sentinel values instead of failing.
package normalize

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/receiptos/receiptos/internal/receipt"
)

// docTypes maps backend document_type values onto receipt doc types
var docTypes = map[string]receipt.DocType{
	"consent":        receipt.DocTypeConsent,
	"marketing":      receipt.DocTypeConsent,
	"third_party":    receipt.DocTypeConsent,
	"change":         receipt.DocTypePrivacyChange,
	"privacy_change": receipt.DocTypePrivacyChange,
	"policy_update":  receipt.DocTypePrivacyChange,
	"notice":         receipt.DocTypeNotice,
	"unknown":        receipt.DocTypeNotice,
}

// Normalizer converts payloads into receipts. Now and NewID fill in the
// received time and id when the backend leaves them out.
type Normalizer struct {
	Now   func() time.Time
	NewID func() string
}

// DefaultNormalizer uses the wall clock and random UUIDs
var DefaultNormalizer = Normalizer{
	Now:   time.Now,
	NewID: uuid.NewString,
}

// Normalize converts a payload with DefaultNormalizer
func Normalize(p Payload) receipt.Receipt {
	return DefaultNormalizer.Normalize(p)
}

// DocType maps a backend document type, defaulting to NOTICE
func DocType(documentType string) receipt.DocType {
	if t, ok := docTypes[strings.ToLower(strings.TrimSpace(documentType))]; ok {
		return t
	}
	return receipt.DocTypeNotice
}

// Normalize converts one backend payload into a receipt
func (n Normalizer) Normalize(p Payload) receipt.Receipt {
	lines := p.SevenLines
	fields := p.Fields

	dataItems := ExtractDataItems(fields)
	requiredItems := ExtractRequiredItems(fields)
	optionalItems := ExtractOptionalItems(fields)
	if !hasItemSplit(fields) {
		requiredItems = append([]string(nil), dataItems...)
	}

	category := ExtractCategory(fields)
	if category == receipt.CategoryGeneral && p.Category != "" {
		category = categoryOf(p.Category)
	}

	var revokePath *string
	if path := strings.TrimSpace(lines.HowToRevoke); path != "" {
		revokePath = receipt.StringPtr(path)
	}

	overCollection, reasons := ExtractOverCollection(fields, p.Signals)

	return receipt.Receipt{
		ID:                    n.id(p),
		ServiceName:           firstNonEmpty(lines.What, p.DocumentType, receipt.UnknownService),
		EntityName:            firstNonEmpty(lines.Who, receipt.UnknownEntity),
		DocType:               DocType(p.DocumentType),
		Category:              category,
		ReceivedAt:            n.receivedAt(p),
		Retention:             firstNonEmpty(lines.When, receipt.NotSpecified),
		RetentionDays:         ExtractRetentionDays(fields),
		RevokePath:            revokePath,
		DataItems:             dataItems,
		RequiredItems:         requiredItems,
		OptionalItems:         optionalItems,
		ThirdPartyServices:    ExtractThirdPartyServices(fields),
		Transfers:             ExtractTransfers(fields, dataItems),
		OverCollection:        overCollection,
		OverCollectionReasons: reasons,
		Summary:               firstNonEmpty(lines.RiskSummary, lines.What, receipt.NoSummary),
		Evidence:              TransformEvidence(fields, p.Signals),
	}
}

// NormalizeAll converts every payload, preserving order
func (n Normalizer) NormalizeAll(payloads []Payload) []receipt.Receipt {
	receipts := make([]receipt.Receipt, 0, len(payloads))
	for _, p := range payloads {
		receipts = append(receipts, n.Normalize(p))
	}
	return receipts
}

func hasItemSplit(fields Fields) bool {
	_, required := lookup(fields, RequiredItemsKeys)
	_, optional := lookup(fields, OptionalItemsKeys)
	return required || optional
}

func (n Normalizer) id(p Payload) string {
	if id := firstNonEmpty(p.ReceiptID, p.ID); id != "" {
		return id
	}
	if n.NewID == nil {
		return uuid.NewString()
	}
	return n.NewID()
}

func (n Normalizer) receivedAt(p Payload) string {
	if p.CreatedAt != "" {
		return p.CreatedAt
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	return now().UTC().Format(time.RFC3339)
}
