package store

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/core"
)

// AuctionRecord is the archival row for a terminal auction. Amounts are
// stored as decimal strings so no precision is lost in transit.
type AuctionRecord struct {
	bun.BaseModel `bun:"table:auctions,alias:a"`

	ID            int64     `bun:"id,pk,autoincrement"`
	AuctionID     int64     `bun:"auction_id,notnull,unique"`
	Seller        string    `bun:"seller,notnull"`
	Collection    string    `bun:"collection,notnull"`
	Serial        int64     `bun:"serial,notnull"`
	Unit          string    `bun:"unit,notnull"`
	Deadline      time.Time `bun:"deadline,notnull"`
	HighestBid    string    `bun:"highest_bid,notnull"`
	HighestBidder string    `bun:"highest_bidder"`
	BidCount      int       `bun:"bid_count,notnull"`
	Status        string    `bun:"status,notnull"`

	CreatedAt  time.Time `bun:"created_at,notnull"`
	ArchivedAt time.Time `bun:"archived_at,notnull,default:current_timestamp"`
}

// BidRecord is the archival row for one accepted bid.
type BidRecord struct {
	bun.BaseModel `bun:"table:auction_bids,alias:ab"`

	ID        int64     `bun:"id,pk,autoincrement"`
	AuctionID int64     `bun:"auction_id,notnull"`
	Bidder    string    `bun:"bidder,notnull"`
	Amount    string    `bun:"amount,notnull"`
	PlacedAt  time.Time `bun:"placed_at,notnull"`
}

func recordFromView(view auctionapi.AuctionView) AuctionRecord {
	return AuctionRecord{
		AuctionID:     int64(view.ID),
		Seller:        string(view.Seller),
		Collection:    view.Asset.Collection,
		Serial:        int64(view.Asset.Serial),
		Unit:          string(view.Unit),
		Deadline:      view.Deadline.UTC(),
		HighestBid:    view.HighestBid.String(),
		HighestBidder: string(view.HighestBidder),
		BidCount:      view.BidCount,
		Status:        view.Status,
		CreatedAt:     view.CreatedAt.UTC(),
	}
}

func (r AuctionRecord) toView() (auctionapi.AuctionView, error) {
	highest, err := decimal.NewFromString(r.HighestBid)
	if err != nil {
		return auctionapi.AuctionView{}, err
	}
	return auctionapi.AuctionView{
		ID:     uint64(r.AuctionID),
		Seller: core.Account(r.Seller),
		Asset: core.AssetRef{
			Collection: r.Collection,
			Serial:     uint64(r.Serial),
		},
		Unit:          core.BidUnit(r.Unit),
		Deadline:      r.Deadline,
		CreatedAt:     r.CreatedAt,
		HighestBid:    highest,
		HighestBidder: core.Account(r.HighestBidder),
		BidCount:      r.BidCount,
		Status:        r.Status,
	}, nil
}
