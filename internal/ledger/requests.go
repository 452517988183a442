package ledger

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dmitrijs2005/filetrade/internal/common"
)

// RequestFile reserves a purchase of an active offering. paid moves from
// the caller's wallet into custody and is refunded in full when the
// offering is removed.
func (l *Ledger) RequestFile(ctx context.Context, caller Address, offeringID uint64, publicKey []byte, paid Amount) (uint64, error) {
	return l.submit(ctx, Command{
		Kind:       CmdRequestFile,
		Caller:     caller,
		OfferingID: offeringID,
		PublicKey:  bytes.Clone(publicKey),
		Paid:       paid,
	})
}

func (l *Ledger) prepareRequestFile(cmd Command) (*change, error) {
	if cmd.Caller == "" {
		return nil, common.ErrorUnauthorized
	}
	rec, ok := l.offerings[cmd.OfferingID]
	if !ok {
		return nil, fmt.Errorf("offering %d: %w", cmd.OfferingID, common.ErrorNotFound)
	}
	if !rec.Active {
		return nil, fmt.Errorf("offering %d: %w", cmd.OfferingID, common.ErrOfferingInactive)
	}
	if len(cmd.PublicKey) == 0 {
		return nil, fmt.Errorf("public key is required: %w", common.ErrInvalidRequest)
	}
	if cmd.Paid < rec.DepositRequirement {
		return nil, fmt.Errorf("paid %d, deposit is %d: %w", cmd.Paid, rec.DepositRequirement, common.ErrInsufficientDeposit)
	}

	b := l.escrow.begin()
	if err := b.hold(cmd.Caller, cmd.Paid); err != nil {
		return nil, err
	}

	req := &Request{
		ID:          rec.nextRequestID,
		OfferingID:  rec.ID,
		Buyer:       cmd.Caller,
		PublicKey:   bytes.Clone(cmd.PublicKey),
		DepositHeld: cmd.Paid,
	}

	return &change{
		result: req.ID,
		events: []Event{{
			Kind: KindFileRequested,
			FileRequested: &FileRequested{
				ID:         req.ID,
				OfferingID: req.OfferingID,
				Buyer:      req.Buyer,
				PublicKey:  bytes.Clone(req.PublicKey),
			},
		}},
		apply: func() {
			b.commit()
			rec.requests = append(rec.requests, req)
			rec.nextRequestID++
		},
	}, nil
}

// RequestIDs lists the request ids of an offering in ascending order,
// including requests refunded by a removal.
func (l *Ledger) RequestIDs(offeringID uint64) ([]uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.offerings[offeringID]
	if !ok {
		return nil, fmt.Errorf("offering %d: %w", offeringID, common.ErrorNotFound)
	}
	ids := make([]uint64, 0, len(rec.requests))
	for _, r := range rec.requests {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// Request returns a copy of one request.
func (l *Ledger) Request(offeringID, requestID uint64) (Request, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.offerings[offeringID]
	if !ok || requestID == 0 || requestID > uint64(len(rec.requests)) {
		return Request{}, fmt.Errorf("request %d/%d: %w", offeringID, requestID, common.ErrorNotFound)
	}
	return rec.requests[requestID-1].snapshot(), nil
}
