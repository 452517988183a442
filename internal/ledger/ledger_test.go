package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filetrade/internal/common"
)

const (
	owner   Address = "owner"
	alice   Address = "alice"
	bob     Address = "bob"
	carol   Address = "carol"
	mallory Address = "mallory"
)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T, fee Amount) (*Ledger, *MemoryJournal) {
	t.Helper()
	j := NewMemoryJournal()
	l, err := New(context.Background(), owner, fee, WithJournal(j), WithClock(func() time.Time { return testTime }))
	require.NoError(t, err)
	return l, j
}

func fund(t *testing.T, l *Ledger, party Address, amt Amount) {
	t.Helper()
	require.NoError(t, l.Fund(context.Background(), party, amt))
}

func listing(name string) OfferingSpec {
	var h Hash
	copy(h[:], name)
	h[HashSize-1] = 1
	return OfferingSpec{
		FileName:           []byte(name),
		FileHash:           h,
		Version:            ListingV2,
		Price:              100,
		DepositRequirement: 10,
	}
}

// assertConserved checks that no value was created or destroyed.
func assertConserved(t *testing.T, l *Ledger) {
	t.Helper()
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total Amount
	for _, v := range l.escrow.wallets {
		total += v
	}
	total += l.escrow.custody + l.escrow.fees
	assert.Equal(t, l.escrow.funded, total)
}

func TestNew(t *testing.T) {
	l, j := newTestLedger(t, 5)

	assert.Equal(t, owner, l.Owner())
	assert.Equal(t, Amount(5), l.Fee())
	assert.Equal(t, uint64(1), l.Seq())
	assert.Empty(t, l.ActiveOfferingIDs())

	entries := j.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, CmdInit, entries[0].Command.Kind)
	require.Len(t, entries[0].Events, 1)
	assert.Equal(t, KindLedgerInitialized, entries[0].Events[0].Kind)
}

func TestNew_RequiresOwner(t *testing.T) {
	_, err := New(context.Background(), "", 5)
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
}

func TestCreateOffering_IDsStartAtOneAndIncrease(t *testing.T) {
	l, _ := newTestLedger(t, 5)
	fund(t, l, alice, 100)
	fund(t, l, bob, 100)

	ctx := context.Background()
	var prev uint64
	for i, caller := range []Address{bob, alice, bob, alice} {
		id, err := l.CreateOffering(ctx, caller, listing("f"), 5)
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, uint64(1), id)
		}
		assert.Greater(t, id, prev)
		prev = id
	}

	assert.Equal(t, []uint64{1, 2, 3, 4}, l.ActiveOfferingIDs())
	assertConserved(t, l)
}

func TestCreateOffering_StoresOffering(t *testing.T) {
	l, _ := newTestLedger(t, 5)
	fund(t, l, alice, 50)

	spec := listing("report.pdf")
	id, err := l.CreateOffering(context.Background(), alice, spec, 5)
	require.NoError(t, err)

	spec.FileName[0] = 'X'

	o, err := l.Offering(id)
	require.NoError(t, err)
	assert.Equal(t, Offering{
		ID:                 1,
		Offeror:            alice,
		FileName:           []byte("report.pdf"),
		FileHash:           listing("report.pdf").FileHash,
		Version:            ListingV2,
		Price:              100,
		DepositRequirement: 10,
		Active:             true,
	}, o)

	assert.Equal(t, Amount(45), l.Balance(alice))
	assert.Equal(t, Amount(5), l.FeeBalance())
}

func TestCreateOffering_OverpaymentIsKept(t *testing.T) {
	l, _ := newTestLedger(t, 5)
	fund(t, l, alice, 50)

	_, err := l.CreateOffering(context.Background(), alice, listing("f"), 8)
	require.NoError(t, err)

	assert.Equal(t, Amount(42), l.Balance(alice))
	assert.Equal(t, Amount(8), l.FeeBalance())
	assertConserved(t, l)
}

func TestCreateOffering_InsufficientFee(t *testing.T) {
	const fee Amount = 5
	l, j := newTestLedger(t, fee)
	fund(t, l, alice, 50)
	before := len(j.Entries())

	_, err := l.CreateOffering(context.Background(), alice, listing("f"), fee-1)
	require.ErrorIs(t, err, common.ErrInsufficientFee)

	assert.Empty(t, l.ActiveOfferingIDs())
	assert.Equal(t, Amount(50), l.Balance(alice))
	assert.Zero(t, l.FeeBalance())
	assert.Len(t, j.Entries(), before)

	id, err := l.CreateOffering(context.Background(), alice, listing("f"), fee)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id, "rejected call must not consume an id")
}

func TestCreateOffering_InsufficientFunds(t *testing.T) {
	l, _ := newTestLedger(t, 5)
	fund(t, l, alice, 4)

	_, err := l.CreateOffering(context.Background(), alice, listing("f"), 5)
	require.ErrorIs(t, err, common.ErrInsufficientFunds)

	assert.Empty(t, l.ActiveOfferingIDs())
	assert.Equal(t, Amount(4), l.Balance(alice))
	assert.Zero(t, l.FeeBalance())
}

func TestCreateOffering_Validation(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	hashed := listing("f")

	tests := []struct {
		name   string
		caller Address
		spec   OfferingSpec
		want   error
	}{
		{"no caller", "", hashed, common.ErrorUnauthorized},
		{"empty name", alice, OfferingSpec{Version: ListingV2, FileHash: hashed.FileHash}, common.ErrInvalidOffering},
		{"v2 without hash", alice, OfferingSpec{FileName: []byte("f"), Version: ListingV2}, common.ErrInvalidOffering},
		{"v1 with hash", alice, OfferingSpec{FileName: []byte("f"), Version: ListingV1, FileHash: hashed.FileHash}, common.ErrInvalidOffering},
		{"unknown version", alice, OfferingSpec{FileName: []byte("f"), Version: 7}, common.ErrInvalidOffering},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.CreateOffering(context.Background(), tt.caller, tt.spec, 0)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, l.ActiveOfferingIDs())

	id, err := l.CreateOffering(context.Background(), alice, OfferingSpec{FileName: []byte("old"), Version: ListingV1}, 0)
	require.NoError(t, err)
	o, err := l.Offering(id)
	require.NoError(t, err)
	assert.True(t, o.FileHash.IsZero())
}

func TestActiveOfferingIDs_RemovalByValue(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	ctx := context.Background()
	for range 5 {
		_, err := l.CreateOffering(ctx, alice, listing("f"), 0)
		require.NoError(t, err)
	}

	require.NoError(t, l.RemoveOffering(ctx, alice, 3))
	assert.Equal(t, []uint64{1, 2, 4, 5}, l.ActiveOfferingIDs())

	require.NoError(t, l.RemoveOffering(ctx, alice, 1))
	assert.Equal(t, []uint64{2, 4, 5}, l.ActiveOfferingIDs())

	id, err := l.CreateOffering(ctx, alice, listing("f"), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), id, "ids are never reused")
	assert.Equal(t, []uint64{2, 4, 5, 6}, l.ActiveOfferingIDs())

	ids := l.ActiveOfferingIDs()
	ids[0] = 99
	assert.Equal(t, []uint64{2, 4, 5, 6}, l.ActiveOfferingIDs())
}

func TestRemoveOffering_Twice(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	ctx := context.Background()
	id, err := l.CreateOffering(ctx, alice, listing("f"), 0)
	require.NoError(t, err)

	require.NoError(t, l.RemoveOffering(ctx, alice, id))
	assert.ErrorIs(t, l.RemoveOffering(ctx, alice, id), common.ErrAlreadyRemoved)
	assert.ErrorIs(t, l.RemoveOffering(ctx, owner, id), common.ErrAlreadyRemoved)
}

func TestRemoveOffering_NotFound(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	assert.ErrorIs(t, l.RemoveOffering(context.Background(), owner, 1), common.ErrorNotFound)
}

func TestRemoveOffering_Authorization(t *testing.T) {
	ctx := context.Background()

	for _, caller := range []Address{bob, mallory, ""} {
		t.Run("rejects "+string(caller), func(t *testing.T) {
			l, _ := newTestLedger(t, 0)
			fund(t, l, bob, 10)
			id, err := l.CreateOffering(ctx, alice, listing("f"), 0)
			require.NoError(t, err)
			_, err = l.RequestFile(ctx, bob, id, []byte("pk"), 10)
			require.NoError(t, err)

			err = l.RemoveOffering(ctx, caller, id)
			require.ErrorIs(t, err, common.ErrorUnauthorized)

			o, err := l.Offering(id)
			require.NoError(t, err)
			assert.True(t, o.Active)
			assert.Equal(t, []uint64{id}, l.ActiveOfferingIDs())
			assert.Equal(t, Amount(10), l.Custody())
		})
	}

	for _, caller := range []Address{alice, owner} {
		t.Run("admits "+string(caller), func(t *testing.T) {
			l, _ := newTestLedger(t, 0)
			id, err := l.CreateOffering(ctx, alice, listing("f"), 0)
			require.NoError(t, err)
			assert.NoError(t, l.RemoveOffering(ctx, caller, id))
		})
	}
}

func TestAuthorize(t *testing.T) {
	assert.NoError(t, authorize(alice, owner, alice))
	assert.NoError(t, authorize(alice, owner, owner))
	assert.ErrorIs(t, authorize(alice, owner, bob), common.ErrorUnauthorized)
	assert.ErrorIs(t, authorize("", "", ""), common.ErrorUnauthorized)
}

func TestRemoveOffering_RefundsEveryDeposit(t *testing.T) {
	l, _ := newTestLedger(t, 1)
	ctx := context.Background()
	fund(t, l, alice, 10)
	fund(t, l, bob, 100)
	fund(t, l, carol, 100)

	a, err := l.CreateOffering(ctx, alice, listing("a"), 1)
	require.NoError(t, err)
	b, err := l.CreateOffering(ctx, alice, listing("b"), 1)
	require.NoError(t, err)

	deposits := []struct {
		buyer Address
		paid  Amount
	}{{bob, 10}, {carol, 25}, {bob, 17}}
	var held Amount
	for _, d := range deposits {
		_, err := l.RequestFile(ctx, d.buyer, a, []byte("pk"), d.paid)
		require.NoError(t, err)
		held += d.paid
	}
	_, err = l.RequestFile(ctx, carol, b, []byte("pk"), 11)
	require.NoError(t, err)

	custodyBefore := l.Custody()
	bobBefore, carolBefore := l.Balance(bob), l.Balance(carol)

	require.NoError(t, l.RemoveOffering(ctx, alice, a))

	refunded := (l.Balance(bob) - bobBefore) + (l.Balance(carol) - carolBefore)
	assert.Equal(t, held, refunded)
	assert.Equal(t, Amount(27), l.Balance(bob)-bobBefore)
	assert.Equal(t, Amount(25), l.Balance(carol)-carolBefore)
	assert.Equal(t, custodyBefore-held, l.Custody())
	assert.Equal(t, Amount(11), l.Custody(), "deposits on other offerings stay held")
	assert.Equal(t, Amount(2), l.FeeBalance(), "fees are not refunded")

	for _, id := range []uint64{1, 2, 3} {
		r, err := l.Request(a, id)
		require.NoError(t, err)
		assert.True(t, r.Refunded)
	}
	r, err := l.Request(b, 1)
	require.NoError(t, err)
	assert.False(t, r.Refunded)

	assertConserved(t, l)
}

func TestBoundary_InsufficientFeeLeavesNoOffering(t *testing.T) {
	const F Amount = 7
	l, _ := newTestLedger(t, F)
	fund(t, l, alice, 100)

	_, err := l.CreateOffering(context.Background(), alice, listing("f"), F-1)
	assert.ErrorIs(t, err, common.ErrInsufficientFee)
	assert.Empty(t, l.ActiveOfferingIDs())
	_, err = l.Offering(1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestBoundary_DepositRequirement(t *testing.T) {
	const D Amount = 10
	l, _ := newTestLedger(t, 0)
	ctx := context.Background()
	fund(t, l, bob, 100)

	spec := listing("f")
	spec.DepositRequirement = D
	id, err := l.CreateOffering(ctx, alice, spec, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)

	rid, err := l.RequestFile(ctx, bob, id, []byte("pk"), D)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rid)

	r, err := l.Request(id, rid)
	require.NoError(t, err)
	assert.Equal(t, D, r.DepositHeld)
	assert.Equal(t, bob, r.Buyer)

	_, err = l.RequestFile(ctx, bob, id, []byte("pk"), D-1)
	assert.ErrorIs(t, err, common.ErrInsufficientDeposit)

	ids, err := l.RequestIDs(id)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids)
	assert.Equal(t, Amount(100)-D, l.Balance(bob))
}

func TestBoundary_RemovalRefundsBuyers(t *testing.T) {
	const D Amount = 10
	l, _ := newTestLedger(t, 3)
	ctx := context.Background()
	fund(t, l, alice, 3)
	fund(t, l, bob, 50)
	fund(t, l, carol, 50)

	spec := listing("f")
	spec.DepositRequirement = D
	id, err := l.CreateOffering(ctx, alice, spec, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)

	_, err = l.RequestFile(ctx, bob, id, []byte("bob-key"), 2*D)
	require.NoError(t, err)
	_, err = l.RequestFile(ctx, carol, id, []byte("carol-key"), 2*D)
	require.NoError(t, err)

	bobBefore, carolBefore := l.Balance(bob), l.Balance(carol)
	require.NoError(t, l.RemoveOffering(ctx, alice, id))

	assert.Equal(t, bobBefore+2*D, l.Balance(bob))
	assert.Equal(t, carolBefore+2*D, l.Balance(carol))
	assert.Empty(t, l.ActiveOfferingIDs())

	_, err = l.RequestFile(ctx, bob, id, []byte("bob-key"), 2*D)
	assert.ErrorIs(t, err, common.ErrOfferingInactive)
	assertConserved(t, l)
}

func TestRequestFile_NumberingIsPerOffering(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	ctx := context.Background()
	fund(t, l, bob, 100)

	a, err := l.CreateOffering(ctx, alice, listing("a"), 0)
	require.NoError(t, err)
	b, err := l.CreateOffering(ctx, carol, listing("b"), 0)
	require.NoError(t, err)

	ra, err := l.RequestFile(ctx, bob, a, []byte("pk"), 10)
	require.NoError(t, err)
	rb, err := l.RequestFile(ctx, bob, b, []byte("pk"), 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ra)
	assert.Equal(t, uint64(1), rb)

	ra2, err := l.RequestFile(ctx, bob, a, []byte("pk"), 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ra2)
}

func TestRequestFile_Rejections(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	ctx := context.Background()
	fund(t, l, bob, 5)

	id, err := l.CreateOffering(ctx, alice, listing("f"), 0)
	require.NoError(t, err)

	tests := []struct {
		name       string
		caller     Address
		offeringID uint64
		key        []byte
		paid       Amount
		want       error
	}{
		{"no caller", "", id, []byte("pk"), 10, common.ErrorUnauthorized},
		{"unknown offering", bob, 42, []byte("pk"), 10, common.ErrorNotFound},
		{"empty key", bob, id, nil, 10, common.ErrInvalidRequest},
		{"below deposit", bob, id, []byte("pk"), 9, common.ErrInsufficientDeposit},
		{"wallet short", bob, id, []byte("pk"), 10, common.ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.RequestFile(ctx, tt.caller, tt.offeringID, tt.key, tt.paid)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	ids, err := l.RequestIDs(id)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, Amount(5), l.Balance(bob))
	assert.Zero(t, l.Custody())
}

func TestRequestIDs_SurviveRemoval(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	ctx := context.Background()
	fund(t, l, bob, 100)

	id, err := l.CreateOffering(ctx, alice, listing("f"), 0)
	require.NoError(t, err)
	for range 3 {
		_, err := l.RequestFile(ctx, bob, id, []byte("pk"), 10)
		require.NoError(t, err)
	}
	require.NoError(t, l.RemoveOffering(ctx, owner, id))

	ids, err := l.RequestIDs(id)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, ids)

	_, err = l.RequestIDs(9)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRequest_NotFound(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	ctx := context.Background()
	fund(t, l, bob, 100)
	id, err := l.CreateOffering(ctx, alice, listing("f"), 0)
	require.NoError(t, err)
	_, err = l.RequestFile(ctx, bob, id, []byte("pk"), 10)
	require.NoError(t, err)

	for _, pair := range [][2]uint64{{id, 0}, {id, 2}, {2, 1}} {
		_, err := l.Request(pair[0], pair[1])
		assert.ErrorIs(t, err, common.ErrorNotFound)
	}

	r, err := l.Request(id, 1)
	require.NoError(t, err)
	r.PublicKey[0] = 'X'
	r2, err := l.Request(id, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("pk"), r2.PublicKey)
}

func TestFund(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	ctx := context.Background()

	assert.ErrorIs(t, l.Fund(ctx, "", 1), common.ErrInvalidRequest)
	assert.ErrorIs(t, l.Fund(ctx, alice, 0), common.ErrInvalidRequest)

	fund(t, l, alice, ^Amount(0))
	assert.ErrorIs(t, l.Fund(ctx, bob, 1), common.ErrAmountOverflow)
	assert.Zero(t, l.Balance(bob))
	assert.Equal(t, ^Amount(0), l.Balance(alice))
	assertConserved(t, l)
}

type failingJournal struct {
	inner *MemoryJournal
	fail  bool
}

func (f *failingJournal) Append(ctx context.Context, e Entry) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.inner.Append(ctx, e)
}

func TestJournalFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	j := &failingJournal{inner: NewMemoryJournal()}
	l, err := New(ctx, owner, 1, WithJournal(j))
	require.NoError(t, err)

	fund(t, l, alice, 10)
	fund(t, l, bob, 10)
	id, err := l.CreateOffering(ctx, alice, listing("f"), 1)
	require.NoError(t, err)
	_, err = l.RequestFile(ctx, bob, id, []byte("pk"), 10)
	require.NoError(t, err)

	var got []Event
	unsub := l.Subscribe(func(e Event) { got = append(got, e) })
	defer unsub()

	j.fail = true
	seq := l.Seq()

	_, err = l.CreateOffering(ctx, alice, listing("g"), 1)
	assert.ErrorContains(t, err, "disk full")
	err = l.RemoveOffering(ctx, alice, id)
	assert.ErrorContains(t, err, "disk full")
	err = l.Fund(ctx, carol, 5)
	assert.ErrorContains(t, err, "disk full")

	assert.Equal(t, seq, l.Seq())
	assert.Equal(t, []uint64{id}, l.ActiveOfferingIDs())
	assert.Equal(t, Amount(10), l.Custody())
	assert.Equal(t, Amount(0), l.Balance(bob))
	assert.Equal(t, Amount(9), l.Balance(alice))
	assert.Zero(t, l.Balance(carol))
	assert.Empty(t, got)

	j.fail = false
	next, err := l.CreateOffering(ctx, alice, listing("g"), 1)
	require.NoError(t, err)
	assert.Equal(t, id+1, next)
}
