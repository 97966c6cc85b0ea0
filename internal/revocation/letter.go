package revocation

import (
	"fmt"
	"strings"

	"github.com/receiptos/receiptos/internal/receipt"
)

// LetterKind selects the letter template
type LetterKind string

const (
	LetterOptOut  LetterKind = "optout"
	LetterInquiry LetterKind = "inquiry"
	LetterDelete  LetterKind = "delete"
)

// ParseLetterKind accepts a template name, defaulting to opt-out
func ParseLetterKind(s string) (LetterKind, error) {
	switch LetterKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", LetterOptOut:
		return LetterOptOut, nil
	case LetterInquiry:
		return LetterInquiry, nil
	case LetterDelete:
		return LetterDelete, nil
	}
	return "", fmt.Errorf("unknown letter kind %q", s)
}

// Draft writes a plain-text letter addressed to the receipt's entity
func Draft(r receipt.Receipt, kind LetterKind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", r.EntityName)

	switch kind {
	case LetterInquiry:
		thirdParties := strings.Join(r.ThirdPartyServices, ", ")
		if thirdParties == "" {
			thirdParties = "None"
		}
		revokePath := r.RevokePathOrEmpty()
		if revokePath == "" {
			revokePath = "Needs clarification"
		}
		fmt.Fprintf(&b, "I am requesting details about data handling for %s.\n", r.ServiceName)
		fmt.Fprintf(&b, "Retention: %s\n", r.Retention)
		fmt.Fprintf(&b, "Third-party sharing: %s\n", thirdParties)
		fmt.Fprintf(&b, "Revoke path: %s\n\n", revokePath)
		b.WriteString("Please reply with details.")
	case LetterDelete:
		fmt.Fprintf(&b, "Please delete or rectify my personal data for %s.\n", r.ServiceName)
		fmt.Fprintf(&b, "Requested items: %s\n", strings.Join(r.DataItems, ", "))
		fmt.Fprintf(&b, "Document: %s\n\n", r.DocType)
		b.WriteString("Please confirm once completed.")
	default:
		fmt.Fprintf(&b, "I would like to opt out of marketing messages for %s.\n", r.ServiceName)
		b.WriteString("Channels: Email/SMS/App\n")
		fmt.Fprintf(&b, "Document: %s\n\n", r.DocType)
		b.WriteString("Thank you.")
	}
	return b.String()
}
