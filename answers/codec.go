package answers

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode parses a JSON Answer Set on top of Default, so absent keys keep
// their defaults. Unknown keys are ignored; the input surface sends legacy
// fields this engine no longer reads.
func Decode(data []byte) (*Answers, error) {
	a := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("decode answers: empty payload")
	}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return a, nil
}

// Encode serializes an Answer Set. Attachment references are never written.
func Encode(a *Answers) ([]byte, error) {
	if a == nil {
		a = Default()
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	return data, nil
}
