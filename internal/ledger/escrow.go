package ledger

import (
	"fmt"

	"github.com/dmitrijs2005/filetrade/internal/common"
)

// escrow holds every unit of value the ledger knows about: party wallets,
// deposits in custody and the owner's fee account.
type escrow struct {
	wallets map[Address]Amount
	custody Amount
	fees    Amount
	funded  Amount
}

func newEscrow() *escrow {
	return &escrow{wallets: make(map[Address]Amount)}
}

// batch stages transfers against an escrow. Nothing is visible until
// commit; an error from any staged transfer leaves the escrow untouched.
type batch struct {
	e       *escrow
	wallets map[Address]Amount
	custody Amount
	fees    Amount
	funded  Amount
}

func (e *escrow) begin() *batch {
	return &batch{
		e:       e,
		wallets: make(map[Address]Amount),
		custody: e.custody,
		fees:    e.fees,
		funded:  e.funded,
	}
}

func (b *batch) balance(party Address) Amount {
	if v, ok := b.wallets[party]; ok {
		return v
	}
	return b.e.wallets[party]
}

func (b *batch) debit(party Address, amt Amount) error {
	v, err := b.balance(party).Sub(amt)
	if err != nil {
		return fmt.Errorf("debit %s: %w", party, err)
	}
	b.wallets[party] = v
	return nil
}

func (b *batch) credit(party Address, amt Amount) error {
	v, err := b.balance(party).Add(amt)
	if err != nil {
		return fmt.Errorf("credit %s: %w", party, err)
	}
	b.wallets[party] = v
	return nil
}

// mint brings outside value into a wallet.
func (b *batch) mint(party Address, amt Amount) error {
	total, err := b.funded.Add(amt)
	if err != nil {
		return err
	}
	if err := b.credit(party, amt); err != nil {
		return err
	}
	b.funded = total
	return nil
}

// collectFee moves amt from party into the fee account.
func (b *batch) collectFee(party Address, amt Amount) error {
	fees, err := b.fees.Add(amt)
	if err != nil {
		return err
	}
	if err := b.debit(party, amt); err != nil {
		return err
	}
	b.fees = fees
	return nil
}

// hold moves amt from party into custody.
func (b *batch) hold(party Address, amt Amount) error {
	custody, err := b.custody.Add(amt)
	if err != nil {
		return err
	}
	if err := b.debit(party, amt); err != nil {
		return err
	}
	b.custody = custody
	return nil
}

// release returns amt from custody to party.
func (b *batch) release(party Address, amt Amount) error {
	custody, err := b.custody.Sub(amt)
	if err != nil {
		return fmt.Errorf("custody short of %d: %w", amt, common.ErrorInternal)
	}
	if err := b.credit(party, amt); err != nil {
		return err
	}
	b.custody = custody
	return nil
}

func (b *batch) commit() {
	for party, v := range b.wallets {
		b.e.wallets[party] = v
	}
	b.e.custody = b.custody
	b.e.fees = b.fees
	b.e.funded = b.funded
}
