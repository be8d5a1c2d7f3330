package store

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/core"
)

func TestRecordFromViewRoundTrip(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	view := auctionapi.AuctionView{
		ID:            7,
		Seller:        "seller",
		Asset:         core.AssetRef{Collection: "art", Serial: 42},
		Unit:          core.NativeUnit,
		Deadline:      created.Add(time.Hour),
		CreatedAt:     created,
		HighestBid:    decimal.RequireFromString("0.5988"),
		HighestBidder: "bob",
		BidCount:      3,
		Status:        "finalized",
	}

	record := recordFromView(view)
	check.Equal(t, int64(7), record.AuctionID)
	check.Equal(t, "0.5988", record.HighestBid)
	check.Equal(t, int64(42), record.Serial)

	back, err := record.toView()
	assert.Nil(t, err)
	check.Equal(t, view.ID, back.ID)
	check.Equal(t, view.Seller, back.Seller)
	check.Equal(t, view.Asset, back.Asset)
	check.Equal(t, view.Unit, back.Unit)
	check.True(t, back.HighestBid.Equal(view.HighestBid))
	check.Equal(t, view.HighestBidder, back.HighestBidder)
	check.Equal(t, view.BidCount, back.BidCount)
	check.Equal(t, view.Status, back.Status)
	check.True(t, back.Deadline.Equal(view.Deadline))
}

func TestRecordFromViewNoBids(t *testing.T) {
	view := auctionapi.AuctionView{
		ID:         1,
		Seller:     "seller",
		Asset:      core.AssetRef{Collection: "art", Serial: 1},
		Unit:       "bid-token",
		HighestBid: decimal.Zero,
		Status:     "cancelled",
	}

	record := recordFromView(view)
	check.Equal(t, "0", record.HighestBid)
	check.Equal(t, "", record.HighestBidder)

	back, err := record.toView()
	assert.Nil(t, err)
	check.True(t, back.HighestBid.IsZero())
	check.Equal(t, core.Account(""), back.HighestBidder)
}

func TestToViewRejectsCorruptAmount(t *testing.T) {
	record := AuctionRecord{AuctionID: 1, HighestBid: "not-a-number"}
	_, err := record.toView()
	check.NotNil(t, err)
}
