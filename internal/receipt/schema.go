package receipt

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed receipt.schema.json
var schemaJSON string

// ErrInvalidReceipt is returned when a receipt does not satisfy the receipt contract
var ErrInvalidReceipt = errors.New("invalid receipt")

var receiptSchema = jsonschema.MustCompileString("receipt.schema.json", schemaJSON)

// Validate checks a receipt against the published receipt contract
func Validate(r Receipt) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling receipt: %w", err)
	}
	return ValidateJSON(data)
}

// ValidateJSON checks a raw receipt document against the receipt contract
func ValidateJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	if err := receiptSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	return nil
}

// DecodeList decodes and validates a JSON array of receipts
func DecodeList(data []byte) ([]Receipt, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	receipts := make([]Receipt, 0, len(raw))
	for i, doc := range raw {
		if err := ValidateJSON(doc); err != nil {
			return nil, fmt.Errorf("receipt %d: %w", i, err)
		}
		var r Receipt
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, fmt.Errorf("unmarshaling receipt %d: %w", i, err)
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}
