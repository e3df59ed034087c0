// Package cryptox implements reversible field-level encryption for PII
// (the user's email) at rest.
//
// Each value gets its own 16-byte random salt. The salt and the configured
// master key go through PBKDF2-HMAC-SHA256 to derive a per-value AES-256 key,
// which seals the plaintext with AES-GCM under a fresh 12-byte nonce. The
// caller persists the ciphertext and the salt together; neither is useful
// without the other.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the length of the per-value KDF salt in bytes.
	SaltSize = 16
	// KeySize is the derived AES key length (AES-256).
	KeySize = 32
	// MinIterations is the lowest accepted PBKDF2 iteration count.
	MinIterations = 100_000
)

var encoding = base64.URLEncoding.Strict()

// EncryptedField is one encrypted value as stored: base64url ciphertext
// (nonce followed by the sealed data) and the base64url salt its key was
// derived from.
type EncryptedField struct {
	Ciphertext string
	Salt       string
}

// FieldEncryptor encrypts and decrypts single string fields. It holds only
// read-only configuration and is safe for concurrent use.
type FieldEncryptor struct {
	masterKey  []byte
	iterations int
}

// NewFieldEncryptor validates the configuration up front: an empty master key
// is common.ErrConfigurationMissing, and iterations below MinIterations are
// rejected. Zero iterations selects MinIterations.
func NewFieldEncryptor(masterKey string, iterations int) (*FieldEncryptor, error) {
	if masterKey == "" {
		return nil, fmt.Errorf("%w: encryption master key is not set", common.ErrConfigurationMissing)
	}
	if iterations == 0 {
		iterations = MinIterations
	}
	if iterations < MinIterations {
		return nil, fmt.Errorf("kdf iterations %d below minimum %d", iterations, MinIterations)
	}
	return &FieldEncryptor{masterKey: []byte(masterKey), iterations: iterations}, nil
}

func (e *FieldEncryptor) deriveKey(salt []byte) []byte {
	return pbkdf2.Key(e.masterKey, salt, e.iterations, KeySize, sha256.New)
}

// Encrypt seals plaintext under a freshly salted key. Encrypting the same
// plaintext twice yields different ciphertexts and salts.
func (e *FieldEncryptor) Encrypt(plaintext string) (EncryptedField, error) {
	salt := common.GenerateRandByteArray(SaltSize)

	key := e.deriveKey(salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return EncryptedField{}, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	sealed := aesgcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return EncryptedField{
		Ciphertext: encoding.EncodeToString(sealed),
		Salt:       encoding.EncodeToString(salt),
	}, nil
}

// Decrypt recovers the plaintext of f. A wrong salt, a tampered or truncated
// ciphertext, or a value produced under another master key all fail with
// common.ErrDecryptionIntegrity; no partial plaintext is ever returned.
func (e *FieldEncryptor) Decrypt(f EncryptedField) (string, error) {
	salt, err := encoding.DecodeString(f.Salt)
	if err != nil || len(salt) == 0 {
		return "", fmt.Errorf("%w: malformed salt", common.ErrDecryptionIntegrity)
	}
	sealed, err := encoding.DecodeString(f.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", common.ErrDecryptionIntegrity)
	}

	key := e.deriveKey(salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	if len(sealed) < aesgcm.NonceSize()+aesgcm.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", common.ErrDecryptionIntegrity)
	}
	nonce, body := sealed[:aesgcm.NonceSize()], sealed[aesgcm.NonceSize():]

	plaintext, err := aesgcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", common.ErrDecryptionIntegrity)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptField encrypts an optional value; nil stays nil.
func EncryptField(e *FieldEncryptor, value *string) (*EncryptedField, error) {
	if value == nil {
		return nil, nil
	}
	f, err := e.Encrypt(*value)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DecryptField decrypts an optional stored value; nil stays nil.
func DecryptField(e *FieldEncryptor, f *EncryptedField) (*string, error) {
	if f == nil {
		return nil, nil
	}
	v, err := e.Decrypt(*f)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
