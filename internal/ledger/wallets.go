package ledger

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filetrade/internal/common"
)

// Fund credits party's wallet with value from outside the ledger.
func (l *Ledger) Fund(ctx context.Context, party Address, amount Amount) error {
	_, err := l.submit(ctx, Command{Kind: CmdFund, Party: party, Paid: amount})
	return err
}

func (l *Ledger) prepareFund(cmd Command) (*change, error) {
	if cmd.Party == "" {
		return nil, fmt.Errorf("party is required: %w", common.ErrInvalidRequest)
	}
	if cmd.Paid == 0 {
		return nil, fmt.Errorf("amount must be positive: %w", common.ErrInvalidRequest)
	}

	b := l.escrow.begin()
	if err := b.mint(cmd.Party, cmd.Paid); err != nil {
		return nil, err
	}

	return &change{
		events: []Event{{
			Kind:         KindWalletFunded,
			WalletFunded: &WalletFunded{Party: cmd.Party, Amount: cmd.Paid},
		}},
		apply: b.commit,
	}, nil
}

// Balance returns the spendable value in party's wallet.
func (l *Ledger) Balance(party Address) Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.escrow.wallets[party]
}

// Custody returns the sum of deposits not yet refunded.
func (l *Ledger) Custody() Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.escrow.custody
}

// FeeBalance returns the value collected for the owner.
func (l *Ledger) FeeBalance() Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.escrow.fees
}
