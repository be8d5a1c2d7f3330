package ledger

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/core"
)

// Status of an auction record. Open is initial; Cancelled and Finalized are
// terminal and accept no further mutation.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCancelled Status = "cancelled"
	StatusFinalized Status = "finalized"
)

// Auction is the ledger's record of a single sale. While Open, the asset is
// held in engine escrow, and if HighestBidder is set, exactly HighestBid of
// the bidding unit is escrowed for that auction alone.
type Auction struct {
	ID            uint64
	Seller        core.Account
	Asset         core.AssetRef
	Unit          core.BidUnit
	Deadline      time.Time
	CreatedAt     time.Time
	HighestBid    decimal.Decimal
	HighestBidder core.Account
	BidCount      int
	Status        Status
}

// View returns a read-only snapshot of the record.
func (a *Auction) View() auctionapi.AuctionView {
	return auctionapi.AuctionView{
		ID:            a.ID,
		Seller:        a.Seller,
		Asset:         a.Asset,
		Unit:          a.Unit,
		Deadline:      a.Deadline,
		CreatedAt:     a.CreatedAt,
		HighestBid:    a.HighestBid,
		HighestBidder: a.HighestBidder,
		BidCount:      a.BidCount,
		Status:        string(a.Status),
	}
}

// Config carries the engine's settlement policy.
type Config struct {
	// Treasury receives platform fees.
	Treasury core.Account

	// MinIncrementBps is the outbid step in basis points over the standing
	// highest bid; zero selects core.DefaultMinIncrementBps.
	MinIncrementBps int64

	// FirstBidFloor is the minimum opening bid; zero means any positive
	// amount opens the bidding.
	FirstBidFloor decimal.Decimal

	// FeeSchedule is the initial fee configuration; replaced wholesale by
	// SetFeeConfig.
	FeeSchedule core.FeeSchedule
}

// Ledger is the auction state machine. It is a single-writer machine: one
// mutex serializes every mutating operation, each call either commits fully
// or unwinds fully, and the current time is read once per operation.
type Ledger struct {
	mu sync.Mutex

	assets   AssetRegistry
	bank     SettlementBank
	auth     AccessController
	treasury core.Account

	minIncrementBps int64
	firstBidFloor   decimal.Decimal
	fees            core.FeeSchedule

	oracles map[core.BidUnit]PriceOracle

	nextID   uint64
	auctions map[uint64]*Auction

	now     func() time.Time
	events  EventSink
	archive Archiver
}

// New builds a ledger over the given collaborators. All three are required;
// the fee schedule must validate.
func New(assets AssetRegistry, bank SettlementBank, auth AccessController, cfg Config) (*Ledger, error) {
	if assets == nil {
		return nil, fmt.Errorf("asset registry is required")
	}
	if bank == nil {
		return nil, fmt.Errorf("settlement bank is required")
	}
	if auth == nil {
		return nil, fmt.Errorf("access controller is required")
	}
	if cfg.Treasury == "" {
		return nil, fmt.Errorf("treasury account is required")
	}
	if err := cfg.FeeSchedule.Validate(); err != nil {
		return nil, err
	}
	if cfg.MinIncrementBps < 0 {
		return nil, fmt.Errorf("minimum increment must not be negative, got %d", cfg.MinIncrementBps)
	}
	if cfg.FirstBidFloor.IsNegative() {
		return nil, fmt.Errorf("first bid floor must not be negative, got %s", cfg.FirstBidFloor)
	}

	increment := cfg.MinIncrementBps
	if increment == 0 {
		increment = core.DefaultMinIncrementBps
	}

	return &Ledger{
		assets:          assets,
		bank:            bank,
		auth:            auth,
		treasury:        cfg.Treasury,
		minIncrementBps: increment,
		firstBidFloor:   cfg.FirstBidFloor,
		fees:            cfg.FeeSchedule,
		oracles:         make(map[core.BidUnit]PriceOracle),
		nextID:          1,
		auctions:        make(map[uint64]*Auction),
		now:             time.Now,
		events:          nopSink{},
	}, nil
}

// SetClock replaces the time source. Test seam; not safe after first use.
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }

// SetEventSink directs the observable event stream to sink.
func (l *Ledger) SetEventSink(sink EventSink) {
	if sink == nil {
		sink = nopSink{}
	}
	l.events = sink
}

// SetArchiver enables best-effort persistence of terminal auctions and bids.
func (l *Ledger) SetArchiver(a Archiver) { l.archive = a }

// CreateAuction opens an auction: the seller's asset moves into engine
// escrow, the next id is assigned, and the deadline is fixed at now+duration.
// Escrow failure aborts creation with ErrTransferFailed.
func (l *Ledger) CreateAuction(ctx context.Context, seller core.Account, asset core.AssetRef, unit core.BidUnit, duration time.Duration) (uint64, error) {
	if seller == "" {
		return 0, fmt.Errorf("seller is required")
	}
	if unit == "" {
		return 0, fmt.Errorf("bidding unit is required")
	}
	if duration <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", duration)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if err := l.assets.EscrowTransferIn(ctx, asset, seller); err != nil {
		return 0, fmt.Errorf("%w: asset escrow from %s: %v", ErrTransferFailed, seller, err)
	}

	id := l.nextID
	l.nextID++
	a := &Auction{
		ID:         id,
		Seller:     seller,
		Asset:      asset,
		Unit:       unit,
		Deadline:   now.Add(duration),
		CreatedAt:  now,
		HighestBid: decimal.Zero,
		Status:     StatusOpen,
	}
	l.auctions[id] = a

	log.Printf("INFO: Auction %d created: seller=%s asset=%s/%d unit=%s deadline=%s",
		id, seller, asset.Collection, asset.Serial, unit, a.Deadline.Format(time.RFC3339))
	l.events.Emit(auctionapi.NewAuctionCreated(id, seller, asset, unit, a.Deadline, now))
	return id, nil
}

// Bid escrows amount from the bidder and, if an earlier bidder is standing,
// refunds them in full before the record is overwritten. The refund must
// complete before the new state commits; a failed refund unwinds the escrow
// pull and leaves the record untouched.
func (l *Ledger) Bid(ctx context.Context, bidder core.Account, id uint64, amount decimal.Decimal) error {
	if bidder == "" {
		return fmt.Errorf("bidder is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.auctions[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	now := l.now()
	if a.Status != StatusOpen {
		return fmt.Errorf("%w: auction %d is %s", ErrNotOpen, id, a.Status)
	}
	if !now.Before(a.Deadline) {
		return fmt.Errorf("%w: auction %d deadline has passed", ErrNotOpen, id)
	}
	if bidder == a.Seller {
		return fmt.Errorf("%w: seller cannot bid on own auction %d", ErrUnauthorized, id)
	}

	min := l.firstBidFloor
	if a.HighestBidder == "" {
		if !amount.IsPositive() {
			return fmt.Errorf("%w: first bid must be positive, got %s", ErrIncrementTooSmall, amount)
		}
	} else {
		if step := core.MinAcceptableBid(a.HighestBid, l.minIncrementBps); step.GreaterThan(min) {
			min = step
		}
	}
	if amount.LessThan(min) {
		return fmt.Errorf("%w: amount %s below minimum %s for auction %d", ErrIncrementTooSmall, amount, min, id)
	}

	// Escrow the new amount first; prior state stays visible until the
	// refund of the outbid party has completed.
	if err := l.bank.PullFrom(ctx, a.Unit, bidder, amount); err != nil {
		return fmt.Errorf("%w: escrow pull of %s from %s: %v", ErrTransferFailed, amount, bidder, err)
	}
	if a.HighestBidder != "" {
		if err := l.bank.Push(ctx, a.Unit, a.HighestBidder, a.HighestBid); err != nil {
			if cerr := l.bank.Push(ctx, a.Unit, bidder, amount); cerr != nil {
				log.Printf("ERROR: Compensating push of %s to %s failed after refund failure on auction %d: %v",
					amount, bidder, id, cerr)
			}
			return fmt.Errorf("%w: refund of %s to %s: %v", ErrTransferFailed, a.HighestBid, a.HighestBidder, err)
		}
	}

	a.HighestBid = amount
	a.HighestBidder = bidder
	a.BidCount++

	log.Printf("INFO: Bid accepted: auction=%d bidder=%s amount=%s", id, bidder, amount)
	l.events.Emit(auctionapi.NewBidPlaced(id, bidder, amount, now))
	if l.archive != nil {
		if err := l.archive.ArchiveBid(ctx, id, bidder, amount, now); err != nil {
			log.Printf("ERROR: Failed to archive bid on auction %d: %v", id, err)
		}
	}
	return nil
}

// Cancel returns the asset to the seller and closes the auction. Only the
// seller may cancel, and only while no bid has landed.
func (l *Ledger) Cancel(ctx context.Context, caller core.Account, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.auctions[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if caller != a.Seller {
		return fmt.Errorf("%w: only the seller may cancel auction %d", ErrUnauthorized, id)
	}
	if a.Status != StatusOpen {
		return fmt.Errorf("%w: auction %d is %s", ErrNotOpen, id, a.Status)
	}
	if a.HighestBidder != "" {
		return fmt.Errorf("%w: auction %d has an active bid", ErrBidsExist, id)
	}

	now := l.now()

	// Commit the terminal status before the outward transfer so a re-entrant
	// observer sees the auction closed; revert if the transfer fails.
	a.Status = StatusCancelled
	if err := l.assets.EscrowTransferOut(ctx, a.Asset, a.Seller); err != nil {
		a.Status = StatusOpen
		return fmt.Errorf("%w: asset return to %s: %v", ErrTransferFailed, a.Seller, err)
	}

	log.Printf("INFO: Auction %d cancelled by seller %s", id, a.Seller)
	l.events.Emit(auctionapi.NewAuctionCancelled(id, a.Seller, now))
	l.archiveTerminal(ctx, a)
	return nil
}

// Finalize settles an auction after its deadline. Callable by the seller or
// an operator. Without bids the asset returns to the seller and no funds
// move. With a standing bid, the seller receives amount-fee, the treasury
// receives the fee, and the winner receives the asset; the three legs settle
// all-or-nothing, and on any failure the auction remains Open for retry.
func (l *Ledger) Finalize(ctx context.Context, caller core.Account, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.auctions[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	now := l.now()
	if a.Status != StatusOpen {
		return fmt.Errorf("%w: auction %d is %s", ErrNotOpen, id, a.Status)
	}
	if now.Before(a.Deadline) {
		return fmt.Errorf("%w: auction %d deadline not reached", ErrNotOpen, id)
	}
	if caller != a.Seller && !l.auth.IsOperator(caller) {
		return fmt.Errorf("%w: %s may not finalize auction %d", ErrUnauthorized, caller, id)
	}

	if a.HighestBidder == "" {
		a.Status = StatusFinalized
		if err := l.assets.EscrowTransferOut(ctx, a.Asset, a.Seller); err != nil {
			a.Status = StatusOpen
			return fmt.Errorf("%w: asset return to %s: %v", ErrTransferFailed, a.Seller, err)
		}
		log.Printf("INFO: Auction %d finalized with no bids, asset returned to %s", id, a.Seller)
		l.events.Emit(auctionapi.NewAuctionFinalized(id, "", decimal.Zero, decimal.Zero, now))
		l.archiveTerminal(ctx, a)
		return nil
	}

	fee := l.feeFor(ctx, a.Unit, a.HighestBid)
	net := a.HighestBid.Sub(fee)

	// Commit the terminal status before the outward transfers; each failure
	// unwinds the legs already settled and reverts to Open.
	a.Status = StatusFinalized

	if err := l.bank.Push(ctx, a.Unit, a.Seller, net); err != nil {
		a.Status = StatusOpen
		return fmt.Errorf("%w: seller payout of %s to %s: %v", ErrTransferFailed, net, a.Seller, err)
	}
	if fee.IsPositive() {
		if err := l.bank.Push(ctx, a.Unit, l.treasury, fee); err != nil {
			l.unwindPush(ctx, a.Unit, a.Seller, net, id)
			a.Status = StatusOpen
			return fmt.Errorf("%w: fee payout of %s to treasury: %v", ErrTransferFailed, fee, err)
		}
	}
	if err := l.assets.EscrowTransferOut(ctx, a.Asset, a.HighestBidder); err != nil {
		if fee.IsPositive() {
			l.unwindPush(ctx, a.Unit, l.treasury, fee, id)
		}
		l.unwindPush(ctx, a.Unit, a.Seller, net, id)
		a.Status = StatusOpen
		return fmt.Errorf("%w: asset transfer to %s: %v", ErrTransferFailed, a.HighestBidder, err)
	}

	log.Printf("INFO: Auction %d finalized: winner=%s amount=%s fee=%s net=%s",
		id, a.HighestBidder, a.HighestBid, fee, net)
	l.events.Emit(auctionapi.NewAuctionFinalized(id, a.HighestBidder, a.HighestBid, fee, now))
	l.archiveTerminal(ctx, a)
	return nil
}

// unwindPush claws a completed payout leg back into escrow.
func (l *Ledger) unwindPush(ctx context.Context, unit core.BidUnit, payee core.Account, amount decimal.Decimal, id uint64) {
	if err := l.bank.PullFrom(ctx, unit, payee, amount); err != nil {
		log.Printf("ERROR: Unwind of %s from %s failed while aborting settlement of auction %d: %v",
			amount, payee, id, err)
	}
}

// feeFor computes the settlement fee for amount in unit under the active
// schedule. A missing oracle or failed reading degrades to the default tier
// rather than blocking settlement.
func (l *Ledger) feeFor(ctx context.Context, unit core.BidUnit, amount decimal.Decimal) decimal.Decimal {
	rate := l.fees.DefaultRate()
	oracle, ok := l.oracles[unit]
	if !ok {
		log.Printf("INFO: No oracle for unit %s, applying default fee tier", unit)
		return core.Fee(amount, rate)
	}
	reading, err := oracle.LatestPrice(ctx, unit)
	if err != nil {
		log.Printf("INFO: Price for unit %s unavailable, applying default fee tier: %v", unit, err)
		return core.Fee(amount, rate)
	}
	usd := core.USDValue(amount, reading.Price, reading.Decimals)
	return core.Fee(amount, l.fees.RateFor(usd))
}

// SetFeeConfig replaces the active fee schedule wholesale. Operator only.
func (l *Ledger) SetFeeConfig(caller core.Account, schedule core.FeeSchedule) error {
	if !l.auth.IsOperator(caller) {
		return fmt.Errorf("%w: %s is not an operator", ErrUnauthorized, caller)
	}
	if err := schedule.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.fees = schedule
	log.Printf("INFO: Fee schedule replaced by %s: %d tiers", caller, len(schedule.Tiers))
	return nil
}

// RegisterOracle registers (or replaces) the price oracle for a bidding
// unit. Operator only.
func (l *Ledger) RegisterOracle(caller core.Account, unit core.BidUnit, oracle PriceOracle) error {
	if !l.auth.IsOperator(caller) {
		return fmt.Errorf("%w: %s is not an operator", ErrUnauthorized, caller)
	}
	if unit == "" {
		return fmt.Errorf("bidding unit is required")
	}
	if oracle == nil {
		return fmt.Errorf("oracle is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.oracles[unit] = oracle
	log.Printf("INFO: Oracle registered for unit %s by %s", unit, caller)
	return nil
}

// FeeQuote previews the fee a sale of amount in unit would incur right now.
func (l *Ledger) FeeQuote(ctx context.Context, unit core.BidUnit, amount decimal.Decimal) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.feeFor(ctx, unit, amount)
}

// Auction returns a snapshot of the record with the given id.
func (l *Ledger) Auction(id uint64) (auctionapi.AuctionView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.auctions[id]
	if !ok {
		return auctionapi.AuctionView{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return a.View(), nil
}

// EscrowedAmount returns how much of the auction's bidding unit the engine
// currently holds for it: zero when no bidder is standing, otherwise exactly
// the highest bid.
func (l *Ledger) EscrowedAmount(id uint64) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.auctions[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if a.Status != StatusOpen || a.HighestBidder == "" {
		return decimal.Zero, nil
	}
	return a.HighestBid, nil
}

// OpenAuctions returns snapshots of all Open auctions ordered by id.
func (l *Ledger) OpenAuctions() []auctionapi.AuctionView {
	l.mu.Lock()
	defer l.mu.Unlock()
	views := make([]auctionapi.AuctionView, 0, len(l.auctions))
	for _, a := range l.auctions {
		if a.Status == StatusOpen {
			views = append(views, a.View())
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// ExpiredOpen returns the ids of Open auctions whose deadline has passed,
// ordered by id. Used by the scheduler to drive forced finalization.
func (l *Ledger) ExpiredOpen() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	var ids []uint64
	for id, a := range l.auctions {
		if a.Status == StatusOpen && !now.Before(a.Deadline) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// archiveTerminal persists a terminal record, best effort.
func (l *Ledger) archiveTerminal(ctx context.Context, a *Auction) {
	if l.archive == nil {
		return
	}
	if err := l.archive.ArchiveAuction(ctx, a.View()); err != nil {
		log.Printf("ERROR: Failed to archive auction %d: %v", a.ID, err)
	}
}
