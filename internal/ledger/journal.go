package ledger

import (
	"context"
	"slices"
	"sync"
	"time"
)

// CommandKind names a journaled operation.
type CommandKind string

const (
	CmdInit           CommandKind = "init"
	CmdFund           CommandKind = "fund"
	CmdCreateOffering CommandKind = "create_offering"
	CmdRemoveOffering CommandKind = "remove_offering"
	CmdRequestFile    CommandKind = "request_file"
)

// Command is the input of one mutating operation, recorded so the ledger
// can be rebuilt by replaying it.
type Command struct {
	Kind       CommandKind   `json:"kind"`
	Caller     Address       `json:"caller,omitempty"`
	Owner      Address       `json:"owner,omitempty"`
	Fee        Amount        `json:"fee,omitempty"`
	Party      Address       `json:"party,omitempty"`
	Paid       Amount        `json:"paid,omitempty"`
	Offering   *OfferingSpec `json:"offering,omitempty"`
	OfferingID uint64        `json:"offeringId,omitempty"`
	PublicKey  []byte        `json:"publicKey,omitempty"`
}

// Entry is one journal record. Seq starts at 1 with the init entry and has
// no gaps.
type Entry struct {
	Seq        uint64    `json:"seq"`
	Command    Command   `json:"command"`
	Events     []Event   `json:"events"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Journal durably records committed operations. Append must either persist
// the entry or return an error; the ledger applies the operation only after
// Append succeeds.
type Journal interface {
	Append(ctx context.Context, e Entry) error
}

// MemoryJournal keeps entries in process memory.
type MemoryJournal struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Append(_ context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

// Entries returns a copy of everything appended so far.
func (j *MemoryJournal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.entries)
}
