// Package revocation holds the revocation and deletion request records the
// backend tracks, and drafts the letters users send to services.
package revocation

// Status is where a revocation request stands
type Status string

const (
	StatusDraft        Status = "DRAFT"
	StatusSent         Status = "SENT"
	StatusWaiting      Status = "WAITING"
	StatusDone         Status = "DONE"
	StatusRejected     Status = "REJECTED"
	StatusNeedMoreInfo Status = "NEED_MORE_INFO"
)

// Statuses lists every status in lifecycle order
var Statuses = []Status{
	StatusDraft,
	StatusSent,
	StatusWaiting,
	StatusDone,
	StatusRejected,
	StatusNeedMoreInfo,
}

// RequestType is what the user asks the service to do
type RequestType string

const (
	RequestDelete          RequestType = "DELETE"
	RequestWithdrawConsent RequestType = "WITHDRAW_CONSENT"
	RequestStopThirdParty  RequestType = "STOP_THIRD_PARTY"
	RequestLimitProcessing RequestType = "LIMIT_PROCESSING"
)

// Request is a revocation or deletion request tracked by the backend
type Request struct {
	ID          string       `json:"id"`
	ReceiptID   *string      `json:"receipt_id"`
	ServiceName string       `json:"service_name"`
	EntityName  string       `json:"entity_name"`
	EntityType  *string      `json:"entity_type"`
	RequestType RequestType  `json:"request_type"`
	Scope       *Scope       `json:"scope"`
	Routing     *RoutingInfo `json:"routing"`
	Status      Status       `json:"status"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
}

// Scope narrows a request to specific accounts, items or time ranges
type Scope struct {
	Accounts  []string `json:"accounts,omitempty"`
	DataItems []string `json:"data_items,omitempty"`
	TimeRange string   `json:"time_range,omitempty"`
}

// RoutingInfo says where and how a request should be delivered
type RoutingInfo struct {
	PrimaryChannel string   `json:"primary_channel"`
	Destination    string   `json:"destination"`
	Instructions   []string `json:"instructions"`
	Confidence     float64  `json:"confidence"`
	Source         string   `json:"source"`
}

// CreateRequest is the body for creating a revocation request
type CreateRequest struct {
	ReceiptID   string      `json:"receipt_id,omitempty"`
	ServiceName string      `json:"service_name"`
	EntityName  string      `json:"entity_name"`
	EntityType  string      `json:"entity_type,omitempty"`
	RequestType RequestType `json:"request_type"`
	Scope       *Scope      `json:"scope,omitempty"`
}

// Letter is a generated request letter
type Letter struct {
	ID              string  `json:"id"`
	RequestID       string  `json:"request_id"`
	Subject         string  `json:"subject"`
	BodyText        string  `json:"body_text"`
	RenderedPDFPath *string `json:"rendered_pdf_path"`
	CreatedAt       string  `json:"created_at"`
}

// TimelineEvent is one step in a request's history
type TimelineEvent struct {
	ID         string  `json:"id"`
	RequestID  string  `json:"request_id"`
	Event      string  `json:"event"`
	Note       *string `json:"note"`
	OccurredAt string  `json:"occurred_at"`
}

// CountByStatus tallies requests per status
func CountByStatus(requests []Request) map[Status]int {
	counts := make(map[Status]int)
	for _, r := range requests {
		counts[r.Status]++
	}
	return counts
}
