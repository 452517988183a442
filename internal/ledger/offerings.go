package ledger

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/filetrade/internal/common"
)

// CreateOffering lists a file for sale. paid is taken from the caller's
// wallet and kept in full by the fee account; it must cover the fee.
func (l *Ledger) CreateOffering(ctx context.Context, caller Address, spec OfferingSpec, paid Amount) (uint64, error) {
	spec.FileName = bytes.Clone(spec.FileName)
	return l.submit(ctx, Command{Kind: CmdCreateOffering, Caller: caller, Offering: &spec, Paid: paid})
}

func validateSpec(spec *OfferingSpec) error {
	if spec == nil {
		return fmt.Errorf("offering is required: %w", common.ErrInvalidOffering)
	}
	if len(spec.FileName) == 0 {
		return fmt.Errorf("file name is required: %w", common.ErrInvalidOffering)
	}
	switch spec.Version {
	case ListingV1:
		if !spec.FileHash.IsZero() {
			return fmt.Errorf("v1 listing carries no file hash: %w", common.ErrInvalidOffering)
		}
	case ListingV2:
		if spec.FileHash.IsZero() {
			return fmt.Errorf("v2 listing requires a file hash: %w", common.ErrInvalidOffering)
		}
	default:
		return fmt.Errorf("unknown listing version %d: %w", spec.Version, common.ErrInvalidOffering)
	}
	return nil
}

func (l *Ledger) prepareCreateOffering(cmd Command) (*change, error) {
	if cmd.Caller == "" {
		return nil, common.ErrorUnauthorized
	}
	if err := validateSpec(cmd.Offering); err != nil {
		return nil, err
	}
	if cmd.Paid < l.fee {
		return nil, fmt.Errorf("paid %d, fee is %d: %w", cmd.Paid, l.fee, common.ErrInsufficientFee)
	}

	b := l.escrow.begin()
	if err := b.collectFee(cmd.Caller, cmd.Paid); err != nil {
		return nil, err
	}

	spec := cmd.Offering
	rec := &offering{
		Offering: Offering{
			ID:                 l.nextOfferingID,
			Offeror:            cmd.Caller,
			FileName:           bytes.Clone(spec.FileName),
			FileHash:           spec.FileHash,
			Version:            spec.Version,
			Price:              spec.Price,
			DepositRequirement: spec.DepositRequirement,
			Active:             true,
		},
		nextRequestID: 1,
	}

	return &change{
		result: rec.ID,
		events: []Event{{
			Kind: KindOfferingCreated,
			OfferingCreated: &OfferingCreated{
				ID:       rec.ID,
				FileName: bytes.Clone(rec.FileName),
				FileHash: rec.FileHash,
				Offeror:  rec.Offeror,
				Price:    rec.Price,
			},
		}},
		apply: func() {
			b.commit()
			l.offerings[rec.ID] = rec
			l.active = append(l.active, rec.ID)
			l.nextOfferingID++
		},
	}, nil
}

// RemoveOffering deactivates an offering and refunds every deposit held
// against it. Only the offeror or the ledger owner may remove it.
func (l *Ledger) RemoveOffering(ctx context.Context, caller Address, id uint64) error {
	_, err := l.submit(ctx, Command{Kind: CmdRemoveOffering, Caller: caller, OfferingID: id})
	return err
}

func (l *Ledger) prepareRemoveOffering(cmd Command) (*change, error) {
	rec, ok := l.offerings[cmd.OfferingID]
	if !ok {
		return nil, fmt.Errorf("offering %d: %w", cmd.OfferingID, common.ErrorNotFound)
	}
	if !rec.Active {
		return nil, fmt.Errorf("offering %d: %w", cmd.OfferingID, common.ErrAlreadyRemoved)
	}
	if err := authorize(rec.Offeror, l.owner, cmd.Caller); err != nil {
		return nil, fmt.Errorf("remove offering %d: %w", cmd.OfferingID, err)
	}

	// Requests are stored in id order, so refunds go out ascending.
	b := l.escrow.begin()
	var refunded []*Request
	for _, r := range rec.requests {
		if r.Refunded {
			continue
		}
		if err := b.release(r.Buyer, r.DepositHeld); err != nil {
			return nil, fmt.Errorf("refund request %d: %w", r.ID, err)
		}
		refunded = append(refunded, r)
	}

	return &change{
		result: rec.ID,
		events: []Event{{
			Kind: KindOfferingRemoved,
			OfferingRemoved: &OfferingRemoved{
				ID:       rec.ID,
				Offeror:  rec.Offeror,
				FileName: bytes.Clone(rec.FileName),
				FileHash: rec.FileHash,
			},
		}},
		apply: func() {
			b.commit()
			for _, r := range refunded {
				r.Refunded = true
			}
			rec.Active = false
			if i, found := slices.BinarySearch(l.active, rec.ID); found {
				l.active = slices.Delete(l.active, i, i+1)
			}
		},
	}, nil
}

// ActiveOfferingIDs returns the ids of active offerings in ascending order.
func (l *Ledger) ActiveOfferingIDs() []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.active)
}

// Offering returns a copy of the offering with the given id.
func (l *Ledger) Offering(id uint64) (Offering, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.offerings[id]
	if !ok {
		return Offering{}, fmt.Errorf("offering %d: %w", id, common.ErrorNotFound)
	}
	return rec.snapshot(), nil
}
