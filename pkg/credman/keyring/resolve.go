package keyring

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/warpdl/cookieshare/pkg/logger"
	"golang.org/x/crypto/hkdf"
)

// Purposes for Derive.
const (
	PurposeJar      = "cookieshare/jar/v1"
	PurposePassword = "cookieshare/server-password/v1"
)

// Resolve returns the master key from the first provider that has one.
// When none has a key, a new one is created in the first provider that
// accepts it.
func Resolve(log logger.Logger, providers ...Provider) ([]byte, error) {
	if len(providers) == 0 {
		return nil, errors.New("no key provider")
	}
	for _, p := range providers {
		key, err := p.GetKey()
		if err == nil {
			return key, nil
		}
		log.Debug("key provider %T: %v", p, err)
	}
	var errs []error
	for _, p := range providers {
		key, err := p.SetKey()
		if err == nil {
			log.Info("created a new master key with %T", p)
			return key, nil
		}
		log.Warning("key provider %T cannot store a key: %v", p, err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("no usable key store: %w", errors.Join(errs...))
}

// FromHex parses a master key given as hex, e.g. through the environment.
func FromHex(s string) ([]byte, error) {
	return decodeKey(s)
}

// Derive returns the KeySize-byte key for purpose.
func Derive(master []byte, purpose string) ([]byte, error) {
	if len(master) != KeySize {
		return nil, fmt.Errorf("invalid master key length %d", len(master))
	}
	out := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(purpose)), out); err != nil {
		return nil, err
	}
	return out, nil
}
