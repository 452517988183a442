package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/dmitrijs2005/filetrade/internal/common"
)

// Address identifies a party: an offeror, a buyer or the ledger owner.
type Address string

// Amount is a quantity of value in the smallest unit. All arithmetic on
// amounts is checked.
type Amount uint64

// Add returns a+b or ErrAmountOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, common.ErrAmountOverflow
	}
	return Amount(sum), nil
}

// Sub returns a-b, or ErrInsufficientFunds when b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	diff, borrow := bits.Sub64(uint64(a), uint64(b), 0)
	if borrow != 0 {
		return 0, common.ErrInsufficientFunds
	}
	return Amount(diff), nil
}

// HashSize is the length of a file content digest.
const HashSize = 32

// Hash is a fixed-length content digest identifying the exact plaintext
// (or published ciphertext) of an offering. It is rendered as hex.
type Hash [HashSize]byte

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	if h.IsZero() {
		return []byte{}, nil
	}
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*h = Hash{}
		return nil
	}
	parsed, err := ParseHash(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a hex digest, with or without a 0x prefix.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return h, fmt.Errorf("decode hash: %w", err)
	}
	return HashFromBytes(raw)
}

// HashFromBytes copies a raw digest into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, errors.New("hash must be 32 bytes")
	}
	copy(h[:], b)
	return h, nil
}
