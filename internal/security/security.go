// Package security provides payload encryption, signing and role-based
// access control for cache operations. Everything here is opt-in.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/saviornt/CacheManager/internal/config"
	"github.com/saviornt/CacheManager/internal/types"
)

// AESEncryptor encrypts payloads with AES-GCM. The nonce is prepended
// to the ciphertext.
type AESEncryptor struct {
	aead cipher.AEAD
}

// NewAESEncryptor creates an encryptor. The key must be 16, 24 or 32
// bytes for AES-128, AES-192 or AES-256.
func NewAESEncryptor(key []byte) (*AESEncryptor, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSecurity, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSecurity, err)
	}
	return &AESEncryptor{aead: aead}, nil
}

// Encrypt seals data with a fresh random nonce.
func (e *AESEncryptor) Encrypt(data []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce: %w", types.ErrSecurity, err)
	}
	return e.aead.Seal(nonce, nonce, data, nil), nil
}

// Decrypt opens a payload produced by Encrypt.
func (e *AESEncryptor) Decrypt(data []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", types.ErrSecurity)
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]

	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSecurity, err)
	}
	return plaintext, nil
}

// HMACSigner signs payloads with HMAC-SHA256 and hex-encoded signatures.
type HMACSigner struct {
	key []byte
}

func NewHMACSigner(key []byte) *HMACSigner {
	return &HMACSigner{key: append([]byte(nil), key...)}
}

// Sign returns the hex HMAC of data.
func (s *HMACSigner) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks sig against data in constant time.
func (s *HMACSigner) Verify(data []byte, sig string) bool {
	expected, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(data)
	return hmac.Equal(mac.Sum(nil), expected)
}

// RoleAccessControl maps operations to the roles allowed to perform
// them. Operations with no configured roles are open to everyone.
type RoleAccessControl struct {
	roles map[string]map[string]struct{}
}

func NewRoleAccessControl(roles map[string][]string) *RoleAccessControl {
	rc := &RoleAccessControl{roles: make(map[string]map[string]struct{}, len(roles))}
	for op, allowed := range roles {
		set := make(map[string]struct{}, len(allowed))
		for _, role := range allowed {
			set[role] = struct{}{}
		}
		rc.roles[op] = set
	}
	return rc
}

// Allow reports whether role may perform operation.
func (rc *RoleAccessControl) Allow(operation, role string) bool {
	allowed, restricted := rc.roles[operation]
	if !restricted {
		return true
	}
	_, ok := allowed[role]
	return ok
}

// Suite bundles the optional security components built from config.
// Any of the fields may be nil when the corresponding feature is off.
type Suite struct {
	Encryptor     types.Encryptor
	Signer        types.Signer
	AccessControl types.AccessControl
}

// NewSuite builds the enabled security components. A disabled config
// yields an empty suite.
func NewSuite(cfg config.SecurityConfig) (*Suite, error) {
	suite := &Suite{}
	if !cfg.Enabled {
		return suite, nil
	}

	if key := cfg.EncryptionKey.Value(); key != "" {
		enc, err := NewAESEncryptor([]byte(key))
		if err != nil {
			return nil, err
		}
		suite.Encryptor = enc
	}
	if key := cfg.SigningKey.Value(); key != "" {
		suite.Signer = NewHMACSigner([]byte(key))
	}
	if len(cfg.Roles) > 0 {
		suite.AccessControl = NewRoleAccessControl(cfg.Roles)
	}

	return suite, nil
}

var _ types.Encryptor = (*AESEncryptor)(nil)
var _ types.Signer = (*HMACSigner)(nil)
var _ types.AccessControl = (*RoleAccessControl)(nil)
