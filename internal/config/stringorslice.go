package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StringOrSlice models a JSON field that may be encoded as a single string or
// as a list of strings. The rest of the system never sees the union:
// decoding always normalizes to a []string.
type StringOrSlice []string

// UnmarshalJSON implements json.Unmarshaler. An absent field decodes to an
// empty (nil) slice rather than an error.
func (s *StringOrSlice) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}

	if trimmed[0] == '"' {
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return fmt.Errorf("command/args as string: %w", err)
		}
		*s = StringOrSlice{single}
		return nil
	}

	if trimmed[0] == '[' {
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("command/args as list: %w", err)
		}
		*s = StringOrSlice(list)
		return nil
	}

	return fmt.Errorf("command/args must be a string or list of strings, got %q", trimmed)
}

// MarshalJSON implements json.Marshaler, always emitting a list so re-encoded
// configuration documents are unambiguous.
func (s StringOrSlice) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(s))
}
