package receipt

// DocType classifies the kind of document a receipt was generated from
type DocType string

const (
	DocTypeConsent       DocType = "CONSENT"
	DocTypePrivacyChange DocType = "PRIVACY_CHANGE"
	DocTypeNotice        DocType = "NOTICE"
)

// Category is the business domain a receipt belongs to
type Category string

const (
	CategoryPayment   Category = "PAYMENT"
	CategoryCloud     Category = "CLOUD"
	CategoryHealth    Category = "HEALTH"
	CategoryEdu       Category = "EDU"
	CategoryMarketing Category = "MARKETING"
	CategoryGeneral   Category = "GENERAL"
)

// TransferType names the channel data leaves the collecting service through
type TransferType string

const (
	TransferThirdParty  TransferType = "THIRD_PARTY"
	TransferOutsourcing TransferType = "OUTSOURCING"
	TransferOverseas    TransferType = "OVERSEAS"
	TransferGeneric     TransferType = "TRANSFER"
)

// Sentinel display values used when the source document does not say
const (
	UnknownService  = "Unknown Service"
	UnknownEntity   = "Unknown Entity"
	NotSpecified    = "Not specified"
	NoSummary       = "No summary"
	Unclassified    = "Unclassified"
	OverseasPrefix  = "[Overseas] "
	NoEvidenceQuote = "No evidence extracted"
	NoEvidenceWhy   = "No evidence found in document"
)

// Receipt is the canonical summary of one consent or policy document.
// Receipts are replaced wholesale on re-ingestion and never edited in place.
type Receipt struct {
	ID                    string     `json:"id"`
	ServiceName           string     `json:"service_name"`
	EntityName            string     `json:"entity_name"`
	DocType               DocType    `json:"doc_type"`
	Category              Category   `json:"category"`
	ReceivedAt            string     `json:"received_at"`
	Retention             string     `json:"retention"`
	RetentionDays         int        `json:"retention_days"`
	RevokePath            *string    `json:"revoke_path"`
	DataItems             []string   `json:"data_items"`
	RequiredItems         []string   `json:"required_items"`
	OptionalItems         []string   `json:"optional_items"`
	ThirdPartyServices    []string   `json:"third_party_services"`
	Transfers             []Transfer `json:"transfers"`
	OverCollection        bool       `json:"over_collection"`
	OverCollectionReasons []string   `json:"over_collection_reasons"`
	Summary               string     `json:"summary"`
	Evidence              []Evidence `json:"evidence"`
}

// Transfer describes one disclosure of data outside the collecting service
type Transfer struct {
	Type        TransferType `json:"type"`
	Destination string       `json:"destination"`
	IsOverseas  bool         `json:"is_overseas"`
	DataItems   []string     `json:"data_items"`
}

// Evidence cites the source text backing a derived attribute
type Evidence struct {
	Field string `json:"field"`
	Quote string `json:"quote"`
	Why   string `json:"why"`
}

// NoEvidence is substituted when extraction finds no citations at all
func NoEvidence() Evidence {
	return Evidence{Field: "summary", Quote: NoEvidenceQuote, Why: NoEvidenceWhy}
}

// RevokePathOrEmpty returns the revocation path, or "" when none is known
func (r Receipt) RevokePathOrEmpty() string {
	if r.RevokePath == nil {
		return ""
	}
	return *r.RevokePath
}

// HasClearRevokePath reports whether the receipt names a usable revocation path.
// A missing path and one flagged as needing clarification are treated the same.
func (r Receipt) HasClearRevokePath() bool {
	path := r.RevokePathOrEmpty()
	if path == "" {
		return false
	}
	return !containsAny(fold(path), unclearRevokeMarkers)
}

// HasOverseasTransfer reports whether any transfer leaves the country
func (r Receipt) HasOverseasTransfer() bool {
	for _, t := range r.Transfers {
		if t.IsOverseas {
			return true
		}
	}
	return false
}

// StringPtr is a convenience for building optional string fields
func StringPtr(s string) *string {
	return &s
}
