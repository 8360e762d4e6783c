package types

import (
	"encoding/json"
	"log/slog"
)

const redactedPlaceholder = "[REDACTED]"

// SecretString holds a credential such as a Redis password or signing
// key. Formatting, JSON marshaling and slog all see the placeholder
// instead of the value, so a dumped config or a logged options struct
// cannot leak it. The value itself is only reachable through Value.
type SecretString struct {
	value string
}

// NewSecretString wraps a raw credential.
func NewSecretString(value string) SecretString {
	return SecretString{value: value}
}

// Value returns the underlying credential.
func (s SecretString) Value() string {
	return s.value
}

// IsEmpty reports whether no credential is set.
func (s SecretString) IsEmpty() bool {
	return s.value == ""
}

func (s SecretString) String() string {
	if s.value == "" {
		return ""
	}
	return redactedPlaceholder
}

// LogValue implements slog.LogValuer so structured logs redact the
// secret even when the struct is logged as an attribute.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

func (s SecretString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SecretString) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	s.value = value
	return nil
}
