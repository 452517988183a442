package ledger

import "bytes"

// ListingVersion selects the offering schema. Early listings carried no
// content digest; current listings must carry one.
type ListingVersion uint8

const (
	ListingV1 ListingVersion = 1 // no file hash
	ListingV2 ListingVersion = 2 // file hash required
)

// OfferingSpec is what an offeror supplies when listing a file.
type OfferingSpec struct {
	FileName           []byte         `json:"fileName"`
	FileHash           Hash           `json:"fileHash"`
	Version            ListingVersion `json:"version"`
	Price              Amount         `json:"price"`
	DepositRequirement Amount         `json:"depositRequirement"`
}

// Offering is one file listed for sale. Everything except Active is fixed
// at creation; Active goes from true to false exactly once.
type Offering struct {
	ID                 uint64         `json:"id"`
	Offeror            Address        `json:"offeror"`
	FileName           []byte         `json:"fileName"`
	FileHash           Hash           `json:"fileHash"`
	Version            ListingVersion `json:"version"`
	Price              Amount         `json:"price"`
	DepositRequirement Amount         `json:"depositRequirement"`
	Active             bool           `json:"active"`
}

// Request is a buyer's reservation against one offering. Request ids are
// scoped to their offering.
type Request struct {
	ID          uint64  `json:"id"`
	OfferingID  uint64  `json:"offeringId"`
	Buyer       Address `json:"buyer"`
	PublicKey   []byte  `json:"publicKey"`
	DepositHeld Amount  `json:"depositHeld"`
	Refunded    bool    `json:"refunded"`
}

// offering is the ledger-owned record behind an Offering.
type offering struct {
	Offering
	nextRequestID uint64
	requests      []*Request // requests[i].ID == i+1
}

func (o *offering) snapshot() Offering {
	out := o.Offering
	out.FileName = bytes.Clone(o.FileName)
	return out
}

func (r *Request) snapshot() Request {
	out := *r
	out.PublicKey = bytes.Clone(r.PublicKey)
	return out
}
