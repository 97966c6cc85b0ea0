package normalize

import "strings"

// Candidate field names, English first then the Korean synonym
var (
	RetentionKeys      = []string{"retention", "보유기간"}
	DataItemsKeys      = []string{"data_items", "수집항목"}
	RequiredItemsKeys  = []string{"required_items", "필수항목"}
	OptionalItemsKeys  = []string{"optional_items", "선택항목"}
	ThirdPartyKeys     = []string{"third_party", "제3자제공"}
	OutsourcingKeys    = []string{"outsourcing", "처리위탁"}
	OverseasKeys       = []string{"overseas_transfer", "국외이전"}
	TransferKeys       = []string{"transfer", "이전"}
	OverCollectionKeys = []string{"over_collection", "과다수집"}
)

// overCollectionSignal marks signals that flag over-collection
const overCollectionSignal = "over_collection"

// lookup returns the first field present under any of the candidate keys
func lookup(fields Fields, keys []string) (Field, bool) {
	for _, key := range keys {
		if field, ok := fields.Get(key); ok {
			return field, true
		}
	}
	return Field{}, false
}

// lookupString returns the field's value when it is a string
func lookupString(fields Fields, keys []string) (string, bool) {
	field, ok := lookup(fields, keys)
	if !ok {
		return "", false
	}
	s, ok := field.Value.(string)
	return s, ok
}

// lookupStrings normalises a string-or-array value into a list
func lookupStrings(fields Fields, keys []string) ([]string, bool) {
	field, ok := lookup(fields, keys)
	if !ok {
		return nil, false
	}
	return stringsOf(field.Value), true
}

// stringsOf flattens a loose JSON value into trimmed, non-empty strings.
// Nested arrays are flattened and non-string scalars are skipped.
func stringsOf(v any) []string {
	out := make([]string, 0)
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []string:
		for _, s := range t {
			out = append(out, stringsOf(s)...)
		}
	case []any:
		for _, item := range t {
			out = append(out, stringsOf(item)...)
		}
	}
	return out
}
