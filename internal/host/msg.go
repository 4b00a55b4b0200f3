package host

import (
	"bytes"
	"encoding/json"
	"fmt"

	"fxrelay/internal/domain"
)

// DecodeMsg decodes raw into v, rejecting fields v does not declare. Failures
// wrap domain.ErrUnknownMessage.
func DecodeMsg(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnknownMessage, err)
	}
	return nil
}

// DecodeVariant decodes a tagged-union message into v, a struct with one
// pointer field per variant. The object must carry exactly one variant key.
func DecodeVariant(raw json.RawMessage, v any) error {
	var variants map[string]json.RawMessage
	if err := json.Unmarshal(raw, &variants); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnknownMessage, err)
	}
	if len(variants) != 1 {
		return fmt.Errorf("%w: expected exactly one variant, got %d", domain.ErrUnknownMessage, len(variants))
	}
	return DecodeMsg(raw, v)
}
