package inmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/ledger"
)

// escrowHolder marks an asset as held by the engine.
const escrowHolder core.Account = "__escrow__"

// AssetRegistry is an in-memory ownership registry for unique assets.
type AssetRegistry struct {
	mu     sync.Mutex
	owners map[core.AssetRef]core.Account
}

var _ ledger.AssetRegistry = (*AssetRegistry)(nil)

// NewAssetRegistry returns an empty registry.
func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{owners: make(map[core.AssetRef]core.Account)}
}

// Mint records owner as holding asset.
func (r *AssetRegistry) Mint(asset core.AssetRef, owner core.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[asset] = owner
}

// Owner returns the current holder of asset.
func (r *AssetRegistry) Owner(asset core.AssetRef) (core.Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[asset]
	return owner, ok
}

// EscrowTransferIn moves asset from its owner into engine custody. Fails
// unless from currently holds the asset.
func (r *AssetRegistry) EscrowTransferIn(_ context.Context, asset core.AssetRef, from core.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[asset]
	if !ok {
		return fmt.Errorf("unknown asset %s/%d", asset.Collection, asset.Serial)
	}
	if owner != from {
		return fmt.Errorf("asset %s/%d is held by %s, not %s", asset.Collection, asset.Serial, owner, from)
	}
	r.owners[asset] = escrowHolder
	return nil
}

// EscrowTransferOut releases asset from engine custody to the given account.
func (r *AssetRegistry) EscrowTransferOut(_ context.Context, asset core.AssetRef, to core.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[asset]
	if !ok {
		return fmt.Errorf("unknown asset %s/%d", asset.Collection, asset.Serial)
	}
	if owner != escrowHolder {
		return fmt.Errorf("asset %s/%d is not in escrow (held by %s)", asset.Collection, asset.Serial, owner)
	}
	r.owners[asset] = to
	return nil
}
