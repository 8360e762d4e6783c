package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// KeyValidationConfig sets the rules a raw cache key must satisfy
// before it is namespaced and handed to the layers.
type KeyValidationConfig struct {
	// ReservedPatterns are substrings keys may not contain, such as
	// prefixes the engine claims for its own bookkeeping.
	ReservedPatterns  []string
	MaxKeyLength      int
	AllowEmpty        bool
	AllowControlChars bool
	AllowWhitespace   bool
}

// DefaultKeyValidationConfig allows printable UTF-8 keys up to 1 KiB.
func DefaultKeyValidationConfig() KeyValidationConfig {
	return KeyValidationConfig{
		MaxKeyLength:      1024,
		AllowEmpty:        false,
		AllowControlChars: false,
		AllowWhitespace:   true,
		ReservedPatterns:  nil,
	}
}

// KeyValidator rejects keys that would corrupt layer storage or break
// pattern matching. Every rejection wraps ErrInvalidKey.
type KeyValidator struct {
	config KeyValidationConfig
}

func NewKeyValidator(config KeyValidationConfig) *KeyValidator {
	return &KeyValidator{config: config}
}

// Validate reports whether a raw key satisfies the configured rules.
func (v *KeyValidator) Validate(key string) error {
	if key == "" {
		if v.config.AllowEmpty {
			return nil
		}
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}

	if v.config.MaxKeyLength > 0 && len(key) > v.config.MaxKeyLength {
		return fmt.Errorf("%w: key length %d exceeds maximum %d bytes",
			ErrInvalidKey, len(key), v.config.MaxKeyLength)
	}

	if err := v.scanRunes(key); err != nil {
		return err
	}

	for _, pattern := range v.config.ReservedPatterns {
		if strings.Contains(key, pattern) {
			return fmt.Errorf("%w: key contains reserved pattern %q", ErrInvalidKey, pattern)
		}
	}

	return nil
}

// scanRunes walks the key once, catching malformed UTF-8 along with
// control and whitespace characters in the same pass.
func (v *KeyValidator) scanRunes(key string) error {
	for i := 0; i < len(key); {
		r, size := utf8.DecodeRuneInString(key[i:])
		if r == utf8.RuneError && size == 1 {
			return fmt.Errorf("%w: key contains invalid UTF-8 at position %d", ErrInvalidKey, i)
		}
		if !v.config.AllowControlChars && (r < 32 || r == 127) {
			return fmt.Errorf("%w: key contains control character at position %d", ErrInvalidKey, i)
		}
		if !v.config.AllowWhitespace && unicode.IsSpace(r) {
			return fmt.Errorf("%w: key contains whitespace at position %d", ErrInvalidKey, i)
		}
		i += size
	}
	return nil
}

// DefaultKeyValidator applies the default rules.
var DefaultKeyValidator = NewKeyValidator(DefaultKeyValidationConfig())

// ValidateKey checks a key against the default rules.
func ValidateKey(key string) error {
	return DefaultKeyValidator.Validate(key)
}

// IsInvalidKey reports whether the error is a key validation failure.
func IsInvalidKey(err error) bool {
	return errors.Is(err, ErrInvalidKey)
}
