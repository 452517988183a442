package fileserver

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/nacl/box"
)

var ErrInvalidPublicKey = errors.New("invalid public key")

// Sealer encrypts a file for the holder of a public key.
type Sealer interface {
	Seal(publicKey string, plaintext []byte) ([]byte, error)
}

// BoxSealer seals with an anonymous NaCl box to a base64 X25519 public
// key. Only the matching private key can open the result.
type BoxSealer struct{}

func (BoxSealer) Seal(publicKey string, plaintext []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidPublicKey
	}
	var pk [32]byte
	copy(pk[:], raw)

	out, err := box.SealAnonymous(nil, plaintext, &pk, rand.Reader)
	if err != nil {
		return nil, err
	}
	return out, nil
}
