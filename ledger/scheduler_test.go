package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/ledger"
)

func TestSweepFinalizesOnlyExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	second := core.AssetRef{Collection: "art", Serial: 2}
	f.assets.Mint(second, seller)

	id1, err := f.ledger.CreateAuction(ctx, seller, artwork, tokenUnit, time.Hour)
	assert.Nil(t, err)
	id2, err := f.ledger.CreateAuction(ctx, seller, second, tokenUnit, 3*time.Hour)
	assert.Nil(t, err)
	assert.Nil(t, f.ledger.Bid(ctx, bob, id1, dec("600")))

	sched := ledger.NewScheduler(f.ledger, operator, time.Minute)

	check.Equal(t, 0, sched.Sweep(ctx))

	f.clock.Advance(2 * time.Hour)
	check.Equal(t, 1, sched.Sweep(ctx))

	view, err := f.ledger.Auction(id1)
	assert.Nil(t, err)
	check.Equal(t, string(ledger.StatusFinalized), view.Status)
	check.True(t, f.bank.Balance(tokenUnit, seller).Equal(dec("594")))

	view, err = f.ledger.Auction(id2)
	assert.Nil(t, err)
	check.Equal(t, string(ledger.StatusOpen), view.Status)
}

func TestSweepRetriesFailedSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.ledger.CreateAuction(ctx, seller, artwork, tokenUnit, time.Hour)
	assert.Nil(t, err)
	assert.Nil(t, f.ledger.Bid(ctx, bob, id, dec("600")))
	f.clock.Advance(2 * time.Hour)

	sched := ledger.NewScheduler(f.ledger, operator, time.Minute)

	// The seller payout leg fails: the sweep settles nothing and the auction
	// stays Open for the next pass.
	f.bank.failPushTo[seller] = true
	check.Equal(t, 0, sched.Sweep(ctx))
	view, _ := f.ledger.Auction(id)
	check.Equal(t, string(ledger.StatusOpen), view.Status)

	f.bank.failPushTo[seller] = false
	check.Equal(t, 1, sched.Sweep(ctx))
	view, _ = f.ledger.Auction(id)
	check.Equal(t, string(ledger.StatusFinalized), view.Status)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := newFixture(t)
	sched := ledger.NewScheduler(f.ledger, operator, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		check.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
