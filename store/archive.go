// Package store persists terminal auction records and accepted bids to
// Postgres. The ledger's in-memory state stays authoritative; the archive is
// a queryable history for reporting and reconciliation.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/ledger"
)

// Archive writes settlement history to Postgres.
type Archive struct {
	db *bun.DB
}

var _ ledger.Archiver = (*Archive)(nil)

// Open connects to Postgres with the given DSN.
func Open(dsn string) *Archive {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return &Archive{db: bun.NewDB(sqldb, pgdialect.New())}
}

// Init creates the archive tables and indexes if they do not exist.
func (a *Archive) Init(ctx context.Context) error {
	models := []interface{}{
		(*AuctionRecord)(nil),
		(*BidRecord)(nil),
	}
	for _, model := range models {
		if _, err := a.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create archive table: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_auctions_seller ON auctions(seller);",
		"CREATE INDEX IF NOT EXISTS idx_auctions_status ON auctions(status);",
		"CREATE INDEX IF NOT EXISTS idx_auction_bids_auction_id ON auction_bids(auction_id);",
		"CREATE INDEX IF NOT EXISTS idx_auction_bids_bidder ON auction_bids(bidder);",
	}
	for _, stmt := range indexes {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create archive index: %w", err)
		}
	}
	return nil
}

// ArchiveAuction upserts the terminal record for an auction. Re-archival of
// the same auction id (a finalize retried after a transient failure)
// overwrites the previous row.
func (a *Archive) ArchiveAuction(ctx context.Context, view auctionapi.AuctionView) error {
	record := recordFromView(view)
	_, err := a.db.NewInsert().
		Model(&record).
		On("CONFLICT (auction_id) DO UPDATE").
		Set("highest_bid = EXCLUDED.highest_bid").
		Set("highest_bidder = EXCLUDED.highest_bidder").
		Set("bid_count = EXCLUDED.bid_count").
		Set("status = EXCLUDED.status").
		Set("archived_at = EXCLUDED.archived_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to archive auction %d: %w", view.ID, err)
	}
	return nil
}

// ArchiveBid appends one accepted bid.
func (a *Archive) ArchiveBid(ctx context.Context, auctionID uint64, bidder core.Account, amount decimal.Decimal, placedAt time.Time) error {
	record := BidRecord{
		AuctionID: int64(auctionID),
		Bidder:    string(bidder),
		Amount:    amount.String(),
		PlacedAt:  placedAt.UTC(),
	}
	if _, err := a.db.NewInsert().Model(&record).Exec(ctx); err != nil {
		return fmt.Errorf("failed to archive bid on auction %d: %w", auctionID, err)
	}
	return nil
}

// Auction returns the archived record for an auction id.
func (a *Archive) Auction(ctx context.Context, auctionID uint64) (auctionapi.AuctionView, error) {
	var record AuctionRecord
	err := a.db.NewSelect().
		Model(&record).
		Where("auction_id = ?", int64(auctionID)).
		Scan(ctx)
	if err != nil {
		return auctionapi.AuctionView{}, fmt.Errorf("failed to load archived auction %d: %w", auctionID, err)
	}
	return record.toView()
}

// Bids returns the archived bids for an auction in placement order.
func (a *Archive) Bids(ctx context.Context, auctionID uint64) ([]BidRecord, error) {
	var records []BidRecord
	err := a.db.NewSelect().
		Model(&records).
		Where("auction_id = ?", int64(auctionID)).
		Order("placed_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bids for auction %d: %w", auctionID, err)
	}
	return records, nil
}

// Close releases the underlying connection pool.
func (a *Archive) Close() error {
	return a.db.Close()
}
