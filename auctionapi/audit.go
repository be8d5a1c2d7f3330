package auctionapi

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// AuditLog appends settlement events to a writer as a CBOR stream, one
// record per event in emission order. Writes are serialized; a failed write
// is logged and dropped rather than blocking settlement, since the ledger's
// own state is authoritative and the stream exists for external indexers.
type AuditLog struct {
	mu  sync.Mutex
	enc *cbor.Encoder
}

// NewAuditLog wraps a writer (typically an append-only file) as an event sink.
func NewAuditLog(w io.Writer) *AuditLog {
	return &AuditLog{enc: cbor.NewEncoder(w)}
}

// Emit appends one event to the stream.
func (l *AuditLog) Emit(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enc.Encode(ev); err != nil {
		log.Printf("ERROR: Failed to append audit event %s (%s): %v", ev.ID, ev.Type, err)
	}
}

// DecodeAuditLog reads an entire CBOR event stream back, in emission order.
func DecodeAuditLog(r io.Reader) ([]Event, error) {
	dec := cbor.NewDecoder(r)
	var events []Event
	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			if err == io.EOF {
				return events, nil
			}
			return events, fmt.Errorf("failed to decode audit record %d: %w", len(events), err)
		}
		events = append(events, ev)
	}
}
