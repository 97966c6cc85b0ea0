package receipt

import (
	"regexp"
	"strings"
	"time"
)

const (
	untitledConsent  = "Untitled Consent"
	defaultSummary   = "Summary generated from the provided text."
	needsReview      = "Needs review"
	excerptWhy       = "Excerpted from the top of the input text"
	excerptMaxRunes  = 120
	servicePrefix    = "Service:"
	excerptLineCount = 3
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// FromText builds a minimal receipt straight from pasted text, without a backend.
// The first line names the service and entity, the second line becomes the summary
// and the first three lines are quoted as the only evidence.
func FromText(id string, text string, now time.Time) Receipt {
	lines := make([]string, 0)
	for _, line := range lineBreak.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	firstLine := untitledConsent
	if len(lines) > 0 {
		firstLine = lines[0]
	}
	summary := defaultSummary
	if len(lines) > 1 {
		summary = lines[1]
	}

	name := strings.TrimSpace(strings.Replace(firstLine, servicePrefix, "", 1))
	serviceName, entityName := name, name
	if name == "" {
		serviceName, entityName = UnknownService, UnknownEntity
	}

	excerpt := strings.Join(lines[:min(len(lines), excerptLineCount)], " ")
	if excerpt == "" {
		excerpt = truncateRunes(text, excerptMaxRunes)
	}

	return Receipt{
		ID:                    id,
		ServiceName:           serviceName,
		EntityName:            entityName,
		DocType:               DocTypeNotice,
		Category:              CategoryGeneral,
		ReceivedAt:            now.UTC().Format(time.RFC3339),
		Retention:             needsReview,
		RetentionDays:         0,
		RevokePath:            nil,
		DataItems:             []string{Unclassified},
		RequiredItems:         []string{},
		OptionalItems:         []string{},
		ThirdPartyServices:    []string{},
		Transfers:             []Transfer{},
		OverCollectionReasons: []string{},
		Summary:               summary,
		Evidence: []Evidence{
			{Field: "summary", Quote: excerpt, Why: excerptWhy},
		},
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
