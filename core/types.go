package core

// Account identifies a participant (seller, bidder, treasury) to the engine.
// The engine treats accounts as opaque identifiers; authentication happens at
// the host boundary.
type Account string

// BidUnit selects the currency an auction accepts bids in: the native value
// unit or a specific fungible-token unit.
type BidUnit string

// NativeUnit is the engine's native value unit.
const NativeUnit BidUnit = "native"

// IsNative reports whether the unit is the native value unit.
func (u BidUnit) IsNative() bool { return u == NativeUnit }

// AssetRef identifies a unique, non-fungible asset by collection and serial.
type AssetRef struct {
	Collection string `json:"collection"`
	Serial     uint64 `json:"serial"`
}
