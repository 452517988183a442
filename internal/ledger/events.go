package ledger

import (
	"errors"
	"time"

	"github.com/hannahhoward/go-pubsub"
)

// EventKind names an event record.
type EventKind string

const (
	KindLedgerInitialized EventKind = "LedgerInitialized"
	KindWalletFunded      EventKind = "WalletFunded"
	KindOfferingCreated   EventKind = "OfferingCreated"
	KindOfferingRemoved   EventKind = "OfferingRemoved"
	KindFileRequested     EventKind = "FileRequested"
)

type LedgerInitialized struct {
	Owner Address `json:"owner"`
	Fee   Amount  `json:"fee"`
}

type WalletFunded struct {
	Party  Address `json:"party"`
	Amount Amount  `json:"amount"`
}

type OfferingCreated struct {
	ID       uint64  `json:"id"`
	FileName []byte  `json:"fileName"`
	FileHash Hash    `json:"fileHash"`
	Offeror  Address `json:"offeror"`
	Price    Amount  `json:"price"`
}

type OfferingRemoved struct {
	ID       uint64  `json:"id"`
	Offeror  Address `json:"offeror"`
	FileName []byte  `json:"fileName"`
	FileHash Hash    `json:"fileHash"`
}

type FileRequested struct {
	ID         uint64  `json:"id"`
	OfferingID uint64  `json:"offeringId"`
	Buyer      Address `json:"buyer"`
	PublicKey  []byte  `json:"publicKey"`
}

// Event is one durable record emitted by a committed operation. Exactly
// one of the payload pointers is set, matching Kind. Seq is the journal
// sequence number of the operation that produced it.
type Event struct {
	Seq  uint64    `json:"seq"`
	Kind EventKind `json:"kind"`
	At   time.Time `json:"at"`

	LedgerInitialized *LedgerInitialized `json:"ledgerInitialized,omitempty"`
	WalletFunded      *WalletFunded      `json:"walletFunded,omitempty"`
	OfferingCreated   *OfferingCreated   `json:"offeringCreated,omitempty"`
	OfferingRemoved   *OfferingRemoved   `json:"offeringRemoved,omitempty"`
	FileRequested     *FileRequested     `json:"fileRequested,omitempty"`
}

// Subscriber receives events in commit order. It runs on the committing
// goroutine and must not call mutating Ledger methods.
type Subscriber func(Event)

// Unsubscribe detaches a subscriber.
type Unsubscribe func()

func dispatch(evt pubsub.Event, fn pubsub.SubscriberFn) error {
	e, ok := evt.(Event)
	if !ok {
		return errors.New("wrong type of event")
	}
	cb, ok := fn.(Subscriber)
	if !ok {
		return errors.New("wrong type of subscriber")
	}
	cb(e)
	return nil
}
