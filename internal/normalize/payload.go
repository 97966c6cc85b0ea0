package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Payload is one receipt as the backend returns it. Every part may be missing
// or oddly typed: numbers and booleans are read as text, and any other shape
// leaves the part at its zero value.
type Payload struct {
	ReceiptID    string     `json:"receipt_id,omitempty"`
	ID           string     `json:"id,omitempty"`
	DocumentType string     `json:"document_type,omitempty"`
	Category     string     `json:"category,omitempty"`
	CreatedAt    string     `json:"created_at,omitempty"`
	SevenLines   SevenLines `json:"seven_lines"`
	Fields       Fields     `json:"fields"`
	Signals      []Signal   `json:"signals"`
}

// SevenLines is the backend's short synopsis of a document
type SevenLines struct {
	What        string `json:"what,omitempty"`
	Who         string `json:"who,omitempty"`
	When        string `json:"when,omitempty"`
	Where       string `json:"where,omitempty"`
	Why         string `json:"why,omitempty"`
	HowToRevoke string `json:"how_to_revoke,omitempty"`
	RiskSummary string `json:"risk_summary,omitempty"`
}

// Field is one extracted value with the citations that support it
type Field struct {
	Value    any        `json:"value"`
	Evidence []Citation `json:"evidence,omitempty"`
}

// Citation points at the source text backing a field or signal
type Citation struct {
	Quote    string `json:"quote"`
	Location string `json:"location,omitempty"`
}

// Signal is a backend-flagged risk indicator
type Signal struct {
	SignalID    string     `json:"signal_id"`
	Severity    string     `json:"severity,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Evidence    []Citation `json:"evidence,omitempty"`
}

// Fields is the backend's bag of extracted fields, keyed by English or Korean
// names. Document order is kept so evidence comes out in the order it was written.
type Fields struct {
	names  []string
	values map[string]Field
}

// Set adds or replaces a field; keys are stored NFC-normalised
func (f *Fields) Set(name string, field Field) {
	name = norm.NFC.String(name)
	if f.values == nil {
		f.values = make(map[string]Field)
	}
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = field
}

// Get returns the field stored under name
func (f Fields) Get(name string) (Field, bool) {
	field, ok := f.values[norm.NFC.String(name)]
	return field, ok
}

// Names returns field names in document order
func (f Fields) Names() []string {
	return f.names
}

// Len returns the number of fields
func (f Fields) Len() int {
	return len(f.names)
}

// UnmarshalJSON reads a JSON object while keeping key order. Anything other than
// an object is treated as an empty bag, and a bare value is accepted in place of
// a {value, evidence} entry.
func (f *Fields) UnmarshalJSON(data []byte) error {
	*f = Fields{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading fields: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading field name: %w", err)
		}
		name, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("reading field %q: %w", name, err)
		}
		f.Set(name, decodeField(raw))
	}
	return nil
}

// MarshalJSON writes the fields back out in document order
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range f.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeField(raw json.RawMessage) Field {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		_, hasValue := obj["value"]
		_, hasEvidence := obj["evidence"]
		if hasValue || hasEvidence {
			var field Field
			if err := json.Unmarshal(raw, &field); err == nil {
				return field
			}
		}
	}
	var value any
	_ = json.Unmarshal(raw, &value)
	return Field{Value: value}
}

// UnmarshalJSON decodes a payload without ever failing on its contents
func (p *Payload) UnmarshalJSON(data []byte) error {
	*p = Payload{}
	obj := objectOf(data)
	if obj == nil {
		return nil
	}

	p.ReceiptID = scalarString(obj["receipt_id"])
	p.ID = scalarString(obj["id"])
	p.DocumentType = scalarString(obj["document_type"])
	p.Category = scalarString(obj["category"])
	p.CreatedAt = scalarString(obj["created_at"])
	_ = p.SevenLines.UnmarshalJSON(obj["seven_lines"])
	if err := p.Fields.UnmarshalJSON(obj["fields"]); err != nil {
		p.Fields = Fields{}
	}

	var signals []json.RawMessage
	if err := json.Unmarshal(obj["signals"], &signals); err == nil {
		for _, raw := range signals {
			var s Signal
			_ = s.UnmarshalJSON(raw)
			p.Signals = append(p.Signals, s)
		}
	}
	return nil
}

// UnmarshalJSON decodes the synopsis leniently
func (l *SevenLines) UnmarshalJSON(data []byte) error {
	obj := objectOf(data)
	*l = SevenLines{
		What:        scalarString(obj["what"]),
		Who:         scalarString(obj["who"]),
		When:        scalarString(obj["when"]),
		Where:       scalarString(obj["where"]),
		Why:         scalarString(obj["why"]),
		HowToRevoke: scalarString(obj["how_to_revoke"]),
		RiskSummary: scalarString(obj["risk_summary"]),
	}
	return nil
}

// UnmarshalJSON decodes a signal leniently
func (s *Signal) UnmarshalJSON(data []byte) error {
	obj := objectOf(data)
	*s = Signal{
		SignalID:    scalarString(obj["signal_id"]),
		Severity:    scalarString(obj["severity"]),
		Title:       scalarString(obj["title"]),
		Description: scalarString(obj["description"]),
		Evidence:    citationsOf(obj["evidence"]),
	}
	return nil
}

// UnmarshalJSON decodes a citation leniently. A bare string is taken as the quote.
func (c *Citation) UnmarshalJSON(data []byte) error {
	obj := objectOf(data)
	if obj == nil {
		*c = Citation{Quote: scalarString(data)}
		return nil
	}
	*c = Citation{
		Quote:    scalarString(obj["quote"]),
		Location: scalarString(obj["location"]),
	}
	return nil
}

func citationsOf(raw json.RawMessage) []Citation {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	citations := make([]Citation, 0, len(items))
	for _, item := range items {
		var c Citation
		_ = c.UnmarshalJSON(item)
		citations = append(citations, c)
	}
	return citations
}

// objectOf returns the members of a JSON object, or nil for any other value
func objectOf(data []byte) map[string]json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	return obj
}

// scalarString reads a JSON string, number or boolean as text. Numbers keep
// their literal form; null, objects and arrays read as "".
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}
