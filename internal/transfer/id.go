package transfer

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// IDLength is the length of generated cookie-set ids.
	IDLength = 10
)

// NewID returns a random cookie-set id.
func NewID() (string, error) {
	return gonanoid.Generate(idAlphabet, IDLength)
}
