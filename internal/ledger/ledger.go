package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hannahhoward/go-pubsub"

	"github.com/dmitrijs2005/filetrade/internal/common"
	"github.com/dmitrijs2005/filetrade/internal/logging"
)

// Ledger is the marketplace state machine. It is safe for concurrent use;
// mutations are serialized and readers see only committed state.
type Ledger struct {
	mu sync.RWMutex

	// Events are published outside mu; published is the last sequence
	// number delivered, so publishers wait their turn on pubCond.
	pubMu     sync.Mutex
	pubCond   *sync.Cond
	published uint64

	owner          Address
	fee            Amount
	seq            uint64
	nextOfferingID uint64
	offerings      map[uint64]*offering
	active         []uint64 // ascending

	escrow *escrow

	journal Journal
	ps      *pubsub.PubSub
	now     func() time.Time
	log     logging.Logger
}

type Option func(*Ledger)

// WithJournal sets the journal every committed operation is appended to.
func WithJournal(j Journal) Option {
	return func(l *Ledger) { l.journal = j }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(log logging.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

func newLedger(opts ...Option) *Ledger {
	l := &Ledger{
		nextOfferingID: 1,
		offerings:      make(map[uint64]*offering),
		escrow:         newEscrow(),
		ps:             pubsub.New(dispatch),
		now:            func() time.Time { return time.Now().UTC() },
		log:            logging.Nop{},
	}
	l.pubCond = sync.NewCond(&l.pubMu)
	for _, o := range opts {
		o(l)
	}
	return l
}

// New initializes a fresh ledger with a fixed owner and listing fee. The
// init entry is the first record written to the journal.
func New(ctx context.Context, owner Address, fee Amount, opts ...Option) (*Ledger, error) {
	l := newLedger(opts...)
	l.mu.Lock()
	_, events, err := l.execute(ctx, Command{Kind: CmdInit, Owner: owner, Fee: fee}, l.now())
	seq := l.seq
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.publish(seq, events)
	return l, nil
}

// Restore rebuilds a ledger by replaying journal entries in order. The
// journal option, if any, receives only operations committed after the
// replay.
func Restore(ctx context.Context, entries []Entry, opts ...Option) (*Ledger, error) {
	if len(entries) == 0 || entries[0].Command.Kind != CmdInit {
		return nil, fmt.Errorf("first entry is not init: %w", common.ErrJournalCorrupt)
	}

	l := newLedger(opts...)
	journal := l.journal
	l.journal = nil

	for _, e := range entries {
		if e.Seq != l.seq+1 {
			return nil, fmt.Errorf("entry %d after %d: %w", e.Seq, l.seq, common.ErrJournalCorrupt)
		}
		_, events, err := l.execute(ctx, e.Command, e.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("replay entry %d: %v: %w", e.Seq, err, common.ErrJournalCorrupt)
		}
		if !sameKinds(events, e.Events) {
			return nil, fmt.Errorf("replay entry %d emitted different events: %w", e.Seq, common.ErrJournalCorrupt)
		}
	}

	l.journal = journal
	l.published = l.seq
	l.log.Info(ctx, "ledger restored", "seq", l.seq, "offerings", len(l.offerings))
	return l, nil
}

func sameKinds(a, b []Event) bool {
	return slices.EqualFunc(a, b, func(x, y Event) bool { return x.Kind == y.Kind })
}

// change is a validated operation waiting to be journaled and applied.
// apply must not fail.
type change struct {
	result uint64
	events []Event
	apply  func()
}

func (l *Ledger) prepare(cmd Command) (*change, error) {
	switch cmd.Kind {
	case CmdInit:
		return l.prepareInit(cmd)
	case CmdFund:
		return l.prepareFund(cmd)
	case CmdCreateOffering:
		return l.prepareCreateOffering(cmd)
	case CmdRemoveOffering:
		return l.prepareRemoveOffering(cmd)
	case CmdRequestFile:
		return l.prepareRequestFile(cmd)
	default:
		return nil, fmt.Errorf("unknown command %q: %w", cmd.Kind, common.ErrInvalidRequest)
	}
}

// execute runs one command under the write lock: validate and stage,
// journal, then apply.
func (l *Ledger) execute(ctx context.Context, cmd Command, at time.Time) (uint64, []Event, error) {
	ch, err := l.prepare(cmd)
	if err != nil {
		return 0, nil, err
	}

	seq := l.seq + 1
	for i := range ch.events {
		ch.events[i].Seq = seq
		ch.events[i].At = at
	}

	if l.journal != nil {
		entry := Entry{Seq: seq, Command: cmd, Events: ch.events, RecordedAt: at}
		if err := l.journal.Append(ctx, entry); err != nil {
			return 0, nil, fmt.Errorf("journal append: %w", err)
		}
	}

	ch.apply()
	l.seq = seq
	l.log.Debug(ctx, "command committed", "seq", seq, "kind", cmd.Kind)
	return ch.result, ch.events, nil
}

// submit executes cmd under the write lock and publishes its events after
// releasing it.
func (l *Ledger) submit(ctx context.Context, cmd Command) (uint64, error) {
	l.mu.Lock()
	result, events, err := l.execute(ctx, cmd, l.now())
	seq := l.seq
	l.mu.Unlock()
	if err != nil {
		return 0, err
	}
	l.publish(seq, events)
	return result, nil
}

// publish delivers the events of operation seq once every earlier
// operation has been delivered.
func (l *Ledger) publish(seq uint64, events []Event) {
	l.pubMu.Lock()
	defer l.pubMu.Unlock()
	for l.published+1 != seq {
		l.pubCond.Wait()
	}

	for _, e := range events {
		if err := l.ps.Publish(e); err != nil {
			l.log.Error(context.Background(), "publish event", "seq", e.Seq, "kind", e.Kind, "error", err)
		}
	}

	l.published = seq
	l.pubCond.Broadcast()
}

// Subscribe registers fn for every event committed from now on.
func (l *Ledger) Subscribe(fn Subscriber) Unsubscribe {
	return Unsubscribe(l.ps.Subscribe(fn))
}

func (l *Ledger) prepareInit(cmd Command) (*change, error) {
	if l.seq != 0 {
		return nil, fmt.Errorf("ledger already initialized: %w", common.ErrJournalCorrupt)
	}
	if cmd.Owner == "" {
		return nil, fmt.Errorf("owner is required: %w", common.ErrInvalidRequest)
	}
	return &change{
		events: []Event{{
			Kind:              KindLedgerInitialized,
			LedgerInitialized: &LedgerInitialized{Owner: cmd.Owner, Fee: cmd.Fee},
		}},
		apply: func() {
			l.owner = cmd.Owner
			l.fee = cmd.Fee
		},
	}, nil
}

// authorize admits the offeror or the ledger owner.
func authorize(offeror, owner, caller Address) error {
	if caller == "" || (caller != offeror && caller != owner) {
		return common.ErrorUnauthorized
	}
	return nil
}

func (l *Ledger) Owner() Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.owner
}

func (l *Ledger) Fee() Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fee
}

// Seq returns the sequence number of the last committed operation.
func (l *Ledger) Seq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

// Snapshot is a consistent summary of the ledger at one sequence number.
type Snapshot struct {
	Seq       uint64
	Owner     Address
	Fee       Amount
	Custody   Amount
	Fees      Amount
	Funded    Amount
	Offerings int
	Active    int
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		Seq:       l.seq,
		Owner:     l.owner,
		Fee:       l.fee,
		Custody:   l.escrow.custody,
		Fees:      l.escrow.fees,
		Funded:    l.escrow.funded,
		Offerings: len(l.offerings),
		Active:    len(l.active),
	}
}
