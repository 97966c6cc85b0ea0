package normalize

import (
	"strings"

	"github.com/receiptos/receiptos/internal/receipt"
)

// TransformEvidence turns field and signal citations into receipt evidence.
// Field citations come first in document order, then signal citations.
// The result is never empty.
func TransformEvidence(fields Fields, signals []Signal) []receipt.Evidence {
	evidence := make([]receipt.Evidence, 0)

	for _, name := range fields.Names() {
		field, _ := fields.Get(name)
		for _, c := range field.Evidence {
			evidence = append(evidence, receipt.Evidence{
				Field: name,
				Quote: c.Quote,
				Why:   "Extracted from " + locationOf(c),
			})
		}
	}

	for _, s := range signals {
		why := firstNonEmpty(s.Description, s.Title)
		for _, c := range s.Evidence {
			evidence = append(evidence, receipt.Evidence{
				Field: s.SignalID,
				Quote: c.Quote,
				Why:   why,
			})
		}
	}

	if len(evidence) == 0 {
		return []receipt.Evidence{receipt.NoEvidence()}
	}
	return evidence
}

func locationOf(c Citation) string {
	if loc := strings.TrimSpace(c.Location); loc != "" {
		return loc
	}
	return "document"
}
