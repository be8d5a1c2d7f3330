package ledger

import (
	"errors"

	"github.com/cloudx-io/auctionhouse/core"
)

// Error taxonomy surfaced by ledger operations. Callers match with
// errors.Is; every failure leaves the ledger exactly as it was before the
// call, so retry is always safe.
var (
	// ErrNotOpen: operation attempted on a non-open auction, or a bid after
	// the deadline, or a finalize before it.
	ErrNotOpen = errors.New("auction not open")

	// ErrIncrementTooSmall: bid below the minimum acceptable amount.
	ErrIncrementTooSmall = errors.New("increment too small")

	// ErrBidsExist: cancel attempted after a bid landed.
	ErrBidsExist = errors.New("bids exist")

	// ErrUnauthorized: caller lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransferFailed: an escrow adapter call did not complete; all
	// attempted transfers have been unwound.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrNotFound: no auction with the given id exists.
	ErrNotFound = errors.New("auction not found")
)

// ErrInvalidConfig is produced where fee schedules are validated.
var ErrInvalidConfig = core.ErrInvalidConfig
