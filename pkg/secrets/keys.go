package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required size of the application key
	KeySize = 32

	// Changing this invalidates every stored ciphertext
	derivationInfo = "shopflow-credentials-v1"
)

// ParseKey decodes a base64 application key, as found in configuration.
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Join(ErrInvalidAppKey, err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidAppKey
	}
	return key, nil
}

// GenerateKey creates a new random 32-byte key suitable for encryption
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// deriveKey derives the per-scope key. The caller clears it after use.
func deriveKey(appKey []byte, scope string) ([]byte, error) {
	r := hkdf.New(sha256.New, appKey, []byte(scope), []byte(derivationInfo))

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return key, nil
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
