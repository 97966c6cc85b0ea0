package receipt

import (
	_ "embed"
	"fmt"
)

//go:embed samples.json
var samplesJSON []byte

// Samples returns the demo receipts bundled with the binary
func Samples() ([]Receipt, error) {
	receipts, err := DecodeList(samplesJSON)
	if err != nil {
		return nil, fmt.Errorf("decoding samples: %w", err)
	}
	return receipts, nil
}
