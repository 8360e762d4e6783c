package security

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/saviornt/CacheManager/internal/config"
	"github.com/saviornt/CacheManager/internal/types"
)

func TestAESEncryptor(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef") // 32 bytes

	t.Run("round trips", func(t *testing.T) {
		enc, err := NewAESEncryptor(key)
		if err != nil {
			t.Fatalf("NewAESEncryptor() error = %v", err)
		}

		plaintext := []byte("sensitive cache payload")
		ciphertext, err := enc.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		if bytes.Contains(ciphertext, plaintext) {
			t.Error("ciphertext contains plaintext")
		}

		decrypted, err := enc.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if !bytes.Equal(decrypted, plaintext) {
			t.Errorf("Decrypt() = %q, want %q", decrypted, plaintext)
		}
	})

	t.Run("rejects bad key lengths", func(t *testing.T) {
		if _, err := NewAESEncryptor([]byte("short")); !errors.Is(err, types.ErrSecurity) {
			t.Errorf("NewAESEncryptor(short key) error = %v, want ErrSecurity", err)
		}
	})

	t.Run("nonces make ciphertexts unique", func(t *testing.T) {
		enc, err := NewAESEncryptor(key)
		if err != nil {
			t.Fatalf("NewAESEncryptor() error = %v", err)
		}

		a, _ := enc.Encrypt([]byte("same input"))
		b, _ := enc.Encrypt([]byte("same input"))
		if bytes.Equal(a, b) {
			t.Error("two encryptions of the same input are identical")
		}
	})

	t.Run("detects tampering", func(t *testing.T) {
		enc, err := NewAESEncryptor(key)
		if err != nil {
			t.Fatalf("NewAESEncryptor() error = %v", err)
		}

		ciphertext, _ := enc.Encrypt([]byte("payload"))
		ciphertext[len(ciphertext)-1] ^= 0xFF

		if _, err := enc.Decrypt(ciphertext); !errors.Is(err, types.ErrSecurity) {
			t.Errorf("Decrypt(tampered) error = %v, want ErrSecurity", err)
		}
	})

	t.Run("rejects truncated ciphertext", func(t *testing.T) {
		enc, err := NewAESEncryptor(key)
		if err != nil {
			t.Fatalf("NewAESEncryptor() error = %v", err)
		}
		if _, err := enc.Decrypt([]byte("tiny")); !errors.Is(err, types.ErrSecurity) {
			t.Errorf("Decrypt(truncated) error = %v, want ErrSecurity", err)
		}
	})
}

func TestHMACSigner(t *testing.T) {
	signer := NewHMACSigner([]byte("signing-key"))
	data := []byte("cache payload")

	t.Run("verifies its own signatures", func(t *testing.T) {
		sig := signer.Sign(data)
		if sig == "" {
			t.Fatal("Sign() returned empty signature")
		}
		if strings.ToLower(sig) != sig {
			t.Error("signature is not lowercase hex")
		}
		if !signer.Verify(data, sig) {
			t.Error("Verify() = false for a valid signature")
		}
	})

	t.Run("rejects modified data", func(t *testing.T) {
		sig := signer.Sign(data)
		if signer.Verify([]byte("other payload"), sig) {
			t.Error("Verify() = true for modified data")
		}
	})

	t.Run("rejects a foreign key's signature", func(t *testing.T) {
		other := NewHMACSigner([]byte("different-key"))
		if signer.Verify(data, other.Sign(data)) {
			t.Error("Verify() = true for a signature from another key")
		}
	})

	t.Run("rejects malformed signatures", func(t *testing.T) {
		if signer.Verify(data, "not hex!") {
			t.Error("Verify() = true for non-hex signature")
		}
	})
}

func TestRoleAccessControl(t *testing.T) {
	rc := NewRoleAccessControl(map[string][]string{
		"set":    {"writer", "admin"},
		"delete": {"admin"},
	})

	tests := []struct {
		operation string
		role      string
		want      bool
	}{
		{"set", "writer", true},
		{"set", "admin", true},
		{"set", "reader", false},
		{"delete", "admin", true},
		{"delete", "writer", false},
		{"get", "reader", true}, // unrestricted operation
		{"get", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.operation+"/"+tt.role, func(t *testing.T) {
			if got := rc.Allow(tt.operation, tt.role); got != tt.want {
				t.Errorf("Allow(%q, %q) = %v, want %v", tt.operation, tt.role, got, tt.want)
			}
		})
	}
}

func TestNewSuite(t *testing.T) {
	t.Run("disabled config yields empty suite", func(t *testing.T) {
		suite, err := NewSuite(config.SecurityConfig{})
		if err != nil {
			t.Fatalf("NewSuite() error = %v", err)
		}
		if suite.Encryptor != nil || suite.Signer != nil || suite.AccessControl != nil {
			t.Error("disabled suite has non-nil components")
		}
	})

	t.Run("builds enabled components", func(t *testing.T) {
		suite, err := NewSuite(config.SecurityConfig{
			Enabled:       true,
			EncryptionKey: config.NewSecretString("0123456789abcdef"),
			SigningKey:    config.NewSecretString("sign-key"),
			Roles:         map[string][]string{"delete": {"admin"}},
		})
		if err != nil {
			t.Fatalf("NewSuite() error = %v", err)
		}
		if suite.Encryptor == nil || suite.Signer == nil || suite.AccessControl == nil {
			t.Error("enabled suite is missing components")
		}
	})

	t.Run("surfaces bad encryption keys", func(t *testing.T) {
		_, err := NewSuite(config.SecurityConfig{
			Enabled:       true,
			EncryptionKey: config.NewSecretString("bad"),
		})
		if !errors.Is(err, types.ErrSecurity) {
			t.Errorf("NewSuite() error = %v, want ErrSecurity", err)
		}
	})
}
