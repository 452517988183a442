package grpc

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/filetrade/internal/ledger"
	"github.com/dmitrijs2005/filetrade/internal/marketpb"
)

func hashString(h ledger.Hash) string {
	if h.IsZero() {
		return ""
	}
	return h.String()
}

func offeringToPB(o ledger.Offering) *marketpb.Offering {
	return &marketpb.Offering{
		ID:                 o.ID,
		Offeror:            string(o.Offeror),
		FileName:           string(o.FileName),
		FileHash:           hashString(o.FileHash),
		Version:            uint32(o.Version),
		Price:              uint64(o.Price),
		DepositRequirement: uint64(o.DepositRequirement),
		Active:             o.Active,
	}
}

func requestToPB(r ledger.Request) *marketpb.FileRequest {
	return &marketpb.FileRequest{
		ID:          r.ID,
		OfferingID:  r.OfferingID,
		Buyer:       string(r.Buyer),
		PublicKey:   string(r.PublicKey),
		DepositHeld: uint64(r.DepositHeld),
		Refunded:    r.Refunded,
	}
}

// eventPayload returns the payload matching e.Kind, or nil when it is
// missing.
func eventPayload(e ledger.Event) any {
	switch {
	case e.Kind == ledger.KindLedgerInitialized && e.LedgerInitialized != nil:
		return e.LedgerInitialized
	case e.Kind == ledger.KindWalletFunded && e.WalletFunded != nil:
		return e.WalletFunded
	case e.Kind == ledger.KindOfferingCreated && e.OfferingCreated != nil:
		return e.OfferingCreated
	case e.Kind == ledger.KindOfferingRemoved && e.OfferingRemoved != nil:
		return e.OfferingRemoved
	case e.Kind == ledger.KindFileRequested && e.FileRequested != nil:
		return e.FileRequested
	}
	return nil
}

func eventToPB(e ledger.Event) (*marketpb.Event, error) {
	payload := eventPayload(e)
	if payload == nil {
		return nil, fmt.Errorf("event %d: unknown kind %q", e.Seq, e.Kind)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", e.Seq, err)
	}
	return &marketpb.Event{Seq: e.Seq, Kind: string(e.Kind), At: e.At, Data: data}, nil
}
