// Package contentid computes and parses the content identifiers used for
// published files: CIDv1 with the raw codec over a sha2-256 multihash.
package contentid

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/dmitrijs2005/filetrade/internal/common"
	"github.com/dmitrijs2005/filetrade/internal/ledger"
)

// Of returns the CID of data.
func Of(data []byte) (cid.Cid, error) {
	hash := sha256.Sum256(data)
	multihash, err := mh.Encode(hash[:], mh.SHA2_256)
	if err != nil {
		return cid.Undef, fmt.Errorf("failed to encode multihash: %w", err)
	}
	return cid.NewCidV1(cid.Raw, multihash), nil
}

// Digest returns the sha2-256 digest carried by a CID as a ledger hash.
func Digest(c cid.Cid) (ledger.Hash, error) {
	decoded, err := mh.Decode(c.Hash())
	if err != nil {
		return ledger.Hash{}, fmt.Errorf("cid %s: %v: %w", c, err, common.ErrInvalidRequest)
	}
	if decoded.Code != mh.SHA2_256 {
		return ledger.Hash{}, fmt.Errorf("cid %s uses multihash %#x, want sha2-256: %w", c, decoded.Code, common.ErrInvalidRequest)
	}
	return ledger.HashFromBytes(decoded.Digest)
}

// ParseHash accepts a hex digest (optionally 0x prefixed), a standard
// base64 digest as the file server reports it, or a CID string, and
// returns the 32-byte file hash.
func ParseHash(s string) (ledger.Hash, error) {
	s = strings.TrimSpace(s)
	if h, err := ledger.ParseHash(s); err == nil {
		return h, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil && len(raw) == ledger.HashSize {
		return ledger.HashFromBytes(raw)
	}
	c, err := cid.Decode(s)
	if err != nil {
		return ledger.Hash{}, fmt.Errorf("%q is not a hex or base64 digest nor a CID: %w", s, common.ErrInvalidRequest)
	}
	return Digest(c)
}
