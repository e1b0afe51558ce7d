package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// Cipher encrypts values with AES-256-GCM under a key derived from the
// application key and a scope, such as a credential owner id. A value
// encrypted for one scope cannot be decrypted under another.
type Cipher struct {
	appKey []byte
}

// NewCipher creates a Cipher from a 32-byte application key.
func NewCipher(appKey []byte) (*Cipher, error) {
	if len(appKey) != KeySize {
		return nil, ErrInvalidAppKey
	}
	key := make([]byte, KeySize)
	copy(key, appKey)
	return &Cipher{appKey: key}, nil
}

// EncryptString encrypts plaintext for scope and returns base64 ciphertext.
func (c *Cipher) EncryptString(scope, plaintext string) (string, error) {
	ciphertext, err := c.Encrypt(scope, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptString reverses EncryptString.
func (c *Cipher) DecryptString(scope, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}
	plaintext, err := c.Decrypt(scope, raw)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Encrypt returns nonce || ciphertext || tag. The scope is also bound as
// additional data.
func (c *Cipher) Encrypt(scope string, data []byte) ([]byte, error) {
	aead, err := c.aead(scope)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	return aead.Seal(nonce, nonce, data, []byte(scope)), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(scope string, ciphertext []byte) ([]byte, error) {
	aead, err := c.aead(scope)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}

	nonceSize := aead.NonceSize()
	if len(ciphertext) < nonceSize+aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, []byte(scope))
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func (c *Cipher) aead(scope string) (cipher.AEAD, error) {
	if scope == "" {
		return nil, ErrEmptyScope
	}

	key, err := deriveKey(c.appKey, scope)
	if err != nil {
		return nil, err
	}
	defer clearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
