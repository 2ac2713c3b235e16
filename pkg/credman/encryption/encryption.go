// Package encryption seals short values (cookie values, passwords) with
// AES-256-GCM.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const gcmPrefix = "gcm1"

var (
	ErrTooShort      = errors.New("ciphertext too short")
	ErrUnknownFormat = errors.New("unknown ciphertext format")
)

var randReader io.Reader = rand.Reader

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptValue seals value under key. aad is authenticated but not stored;
// the same aad must be given to DecryptValue.
func EncryptValue(value string, key, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	out := make([]byte, 0, len(gcmPrefix)+len(nonce)+len(value)+gcm.Overhead())
	out = append(out, gcmPrefix...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, []byte(value), aad), nil
}

// DecryptValue opens a value sealed by EncryptValue.
func DecryptValue(ciphertext, key, aad []byte) ([]byte, error) {
	if len(ciphertext) < len(gcmPrefix) || string(ciphertext[:len(gcmPrefix)]) != gcmPrefix {
		return nil, ErrUnknownFormat
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	body := ciphertext[len(gcmPrefix):]
	if len(body) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrTooShort
	}
	nonce, data := body[:gcm.NonceSize()], body[gcm.NonceSize():]
	return gcm.Open(nil, nonce, data, aad)
}

// SealString is EncryptValue with a base64 result, for text storage.
func SealString(value string, key, aad []byte) (string, error) {
	b, err := EncryptValue(value, key, aad)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// OpenString reverses SealString.
func OpenString(sealed string, key, aad []byte) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}
	plain, err := DecryptValue(b, key, aad)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
