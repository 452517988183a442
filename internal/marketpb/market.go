package marketpb

import (
	"encoding/json"
	"time"
)

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	AccountID string `json:"accountId"`
	Username  string `json:"username"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type InfoRequest struct{}

type InfoResponse struct {
	Owner           string `json:"owner"`
	Fee             uint64 `json:"fee"`
	Custody         uint64 `json:"custody"`
	Fees            uint64 `json:"fees"`
	Funded          uint64 `json:"funded"`
	Seq             uint64 `json:"seq"`
	Offerings       uint64 `json:"offerings"`
	ActiveOfferings uint64 `json:"activeOfferings"`
}

// BalanceRequest asks for an account balance; empty Account means the caller.
type BalanceRequest struct {
	Account string `json:"account,omitempty"`
}

type BalanceResponse struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

// FundRequest credits Account, or the caller when Account is empty.
type FundRequest struct {
	Account string `json:"account,omitempty"`
	Amount  uint64 `json:"amount"`
}

type FundResponse struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

// CreateOfferingRequest lists a file. FileHash is hex, optionally 0x
// prefixed, and must be empty for version 1 listings. Paid is charged from
// the caller's wallet and must cover the listing fee.
type CreateOfferingRequest struct {
	FileName           string `json:"fileName"`
	FileHash           string `json:"fileHash,omitempty"`
	Version            uint32 `json:"version"`
	Price              uint64 `json:"price"`
	DepositRequirement uint64 `json:"depositRequirement"`
	Paid               uint64 `json:"paid"`
}

type CreateOfferingResponse struct {
	OfferingID uint64 `json:"offeringId"`
}

type RemoveOfferingRequest struct {
	OfferingID uint64 `json:"offeringId"`
}

type RemoveOfferingResponse struct{}

type RequestFileRequest struct {
	OfferingID uint64 `json:"offeringId"`
	PublicKey  string `json:"publicKey"`
	Paid       uint64 `json:"paid"`
}

type RequestFileResponse struct {
	RequestID uint64 `json:"requestId"`
}

type GetOfferingRequest struct {
	OfferingID uint64 `json:"offeringId"`
}

type Offering struct {
	ID                 uint64 `json:"id"`
	Offeror            string `json:"offeror"`
	FileName           string `json:"fileName"`
	FileHash           string `json:"fileHash,omitempty"`
	Version            uint32 `json:"version"`
	Price              uint64 `json:"price"`
	DepositRequirement uint64 `json:"depositRequirement"`
	Active             bool   `json:"active"`
}

type GetActiveOfferingIdsRequest struct{}

type GetRequestIdsRequest struct {
	OfferingID uint64 `json:"offeringId"`
}

type IdList struct {
	Ids []uint64 `json:"ids"`
}

type GetRequestRequest struct {
	OfferingID uint64 `json:"offeringId"`
	RequestID  uint64 `json:"requestId"`
}

type FileRequest struct {
	ID          uint64 `json:"id"`
	OfferingID  uint64 `json:"offeringId"`
	Buyer       string `json:"buyer"`
	PublicKey   string `json:"publicKey"`
	DepositHeld uint64 `json:"depositHeld"`
	Refunded    bool   `json:"refunded"`
}

// ListEventsRequest pages through the event history: events with seq >
// Since, at most Limit journal entries (0 means all).
type ListEventsRequest struct {
	Since uint64 `json:"since"`
	Limit uint32 `json:"limit,omitempty"`
}

type ListEventsResponse struct {
	Events []*Event `json:"events"`
}

type SubscribeEventsRequest struct {
	Since uint64 `json:"since"`
}

// Event carries one ledger event. Data is the kind-specific payload.
type Event struct {
	Seq  uint64          `json:"seq"`
	Kind string          `json:"kind"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}
