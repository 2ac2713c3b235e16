package credman

import (
	"github.com/warpdl/cookieshare/pkg/credman/encryption"
	"github.com/warpdl/cookieshare/pkg/credman/keyring"
)

var sealerAAD = []byte("cookieshare server password")

// Sealer encrypts the relay admin password for storage in the state file.
type Sealer struct {
	key []byte
}

func NewSealer(key []byte) *Sealer {
	return &Sealer{key: key}
}

func (s *Sealer) Seal(plain string) (string, error) {
	return encryption.SealString(plain, s.key, sealerAAD)
}

func (s *Sealer) Open(sealed string) (string, error) {
	return encryption.OpenString(sealed, s.key, sealerAAD)
}

// Keys holds the keys derived from the master key.
type Keys struct {
	Jar      []byte
	Password []byte
}

// DeriveKeys derives every purpose key from master.
func DeriveKeys(master []byte) (Keys, error) {
	jar, err := keyring.Derive(master, keyring.PurposeJar)
	if err != nil {
		return Keys{}, err
	}
	pw, err := keyring.Derive(master, keyring.PurposePassword)
	if err != nil {
		return Keys{}, err
	}
	return Keys{Jar: jar, Password: pw}, nil
}
