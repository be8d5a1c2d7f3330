package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/inmem"
	"github.com/cloudx-io/auctionhouse/ledger"
)

const readTimeout = 30 * time.Second

// Server answers JSON requests over a stream socket. Each connection carries
// one request: the client writes the JSON body, half-closes, and reads back a
// single Response.
type Server struct {
	ledger     *ledger.Ledger
	listen     string
	maxWorkers int
}

func NewServer(l *ledger.Ledger, listen string, maxWorkers int) *Server {
	return &Server{ledger: l, listen: listen, maxWorkers: maxWorkers}
}

// listener opens the configured endpoint, "tcp:host:port" or "vsock:port".
func (s *Server) listener() (net.Listener, error) {
	network, addr, ok := strings.Cut(s.listen, ":")
	if !ok {
		return nil, fmt.Errorf("invalid listen address %q", s.listen)
	}
	switch network {
	case "tcp":
		return net.Listen("tcp", addr)
	case "vsock":
		port, err := strconv.ParseUint(addr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vsock port %q: %w", addr, err)
		}
		return vsock.Listen(uint32(port), nil)
	default:
		return nil, fmt.Errorf("unsupported listen network %q", network)
	}
}

// Serve accepts connections until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := s.listener()
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	}()

	log.Printf("INFO: Auction server listening on %s", s.listen)

	semaphore := make(chan struct{}, s.maxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", s.maxWorkers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("INFO: Auction server stopped")
				return ctx.Err()
			}
			log.Printf("ERROR: Failed to accept connection: %v", err)
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }() // Release worker slot
				s.handleConnection(ctx, c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		log.Printf("ERROR: Failed to read request: %v", err)
		return
	}

	response := s.handleRequest(ctx, buf.Bytes())

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(response); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}

func (s *Server) handleRequest(ctx context.Context, raw []byte) auctionapi.Response {
	var base auctionapi.BaseRequest
	if err := json.Unmarshal(raw, &base); err != nil {
		log.Printf("ERROR: Failed to decode base request: %v", err)
		return failResponse("error", fmt.Sprintf("Failed to decode request: %v", err))
	}

	log.Printf("INFO: Received request type: %s", base.Type)

	switch base.Type {
	case auctionapi.TypePing:
		return auctionapi.Response{
			Type:      "pong",
			Success:   true,
			Message:   "Auction server is healthy",
			Timestamp: time.Now().Unix(),
		}

	case auctionapi.TypeCreateAuction:
		var req auctionapi.CreateAuctionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return decodeError(base.Type, err)
		}
		duration := time.Duration(req.DurationSeconds) * time.Second
		id, err := s.ledger.CreateAuction(ctx, req.Caller, req.Asset, req.Unit, duration)
		if err != nil {
			return ledgerError(base.Type, err)
		}
		resp := okResponse(base.Type)
		resp.AuctionID = id
		return resp

	case auctionapi.TypeBid:
		var req auctionapi.BidRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return decodeError(base.Type, err)
		}
		if err := s.ledger.Bid(ctx, req.Caller, req.AuctionID, req.Amount); err != nil {
			return ledgerError(base.Type, err)
		}
		resp := okResponse(base.Type)
		resp.AuctionID = req.AuctionID
		return resp

	case auctionapi.TypeCancel:
		var req auctionapi.CancelRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return decodeError(base.Type, err)
		}
		if err := s.ledger.Cancel(ctx, req.Caller, req.AuctionID); err != nil {
			return ledgerError(base.Type, err)
		}
		resp := okResponse(base.Type)
		resp.AuctionID = req.AuctionID
		return resp

	case auctionapi.TypeFinalize:
		var req auctionapi.FinalizeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return decodeError(base.Type, err)
		}
		if err := s.ledger.Finalize(ctx, req.Caller, req.AuctionID); err != nil {
			return ledgerError(base.Type, err)
		}
		resp := okResponse(base.Type)
		resp.AuctionID = req.AuctionID
		return resp

	case auctionapi.TypeGetAuction:
		var req auctionapi.GetAuctionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return decodeError(base.Type, err)
		}
		view, err := s.ledger.Auction(req.AuctionID)
		if err != nil {
			return ledgerError(base.Type, err)
		}
		resp := okResponse(base.Type)
		resp.AuctionID = req.AuctionID
		resp.Auction = &view
		return resp

	case auctionapi.TypeEscrowedAmount:
		var req auctionapi.EscrowedAmountRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return decodeError(base.Type, err)
		}
		amount, err := s.ledger.EscrowedAmount(req.AuctionID)
		if err != nil {
			return ledgerError(base.Type, err)
		}
		resp := okResponse(base.Type)
		resp.AuctionID = req.AuctionID
		resp.Amount = &amount
		return resp

	case auctionapi.TypeFeeQuote:
		var req auctionapi.FeeQuoteRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return decodeError(base.Type, err)
		}
		fee := s.ledger.FeeQuote(ctx, req.Unit, req.Amount)
		resp := okResponse(base.Type)
		resp.Fee = &fee
		return resp

	case auctionapi.TypeSetFeeConfig:
		var req auctionapi.SetFeeConfigRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return decodeError(base.Type, err)
		}
		schedule := core.NewFeeSchedule(req.Tiers...)
		if err := s.ledger.SetFeeConfig(req.Caller, schedule); err != nil {
			return ledgerError(base.Type, err)
		}
		return okResponse(base.Type)

	case auctionapi.TypeRegisterOracle:
		var req auctionapi.RegisterOracleRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return decodeError(base.Type, err)
		}
		oracle := inmem.NewFixedOracle(req.Price, req.Decimals)
		if err := s.ledger.RegisterOracle(req.Caller, req.Unit, oracle); err != nil {
			return ledgerError(base.Type, err)
		}
		return okResponse(base.Type)

	default:
		return failResponse("error", fmt.Sprintf("Unknown request type: %s", base.Type))
	}
}

func okResponse(reqType string) auctionapi.Response {
	return auctionapi.Response{
		Type:      reqType,
		Success:   true,
		Timestamp: time.Now().Unix(),
	}
}

func failResponse(reqType, message string) auctionapi.Response {
	return auctionapi.Response{
		Type:      reqType,
		Success:   false,
		Message:   message,
		Timestamp: time.Now().Unix(),
	}
}

func ledgerError(reqType string, err error) auctionapi.Response {
	log.Printf("INFO: Request %s rejected (%s): %v", reqType, statusCategory(err), err)
	return failResponse(reqType, err.Error())
}

func decodeError(reqType string, err error) auctionapi.Response {
	log.Printf("ERROR: Failed to decode %s request: %v", reqType, err)
	return failResponse(reqType, fmt.Sprintf("Failed to decode request: %v", err))
}

// statusCategory is logged for operator visibility into rejection causes.
func statusCategory(err error) string {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return "not_found"
	case errors.Is(err, ledger.ErrNotOpen):
		return "not_open"
	case errors.Is(err, ledger.ErrIncrementTooSmall):
		return "increment_too_small"
	case errors.Is(err, ledger.ErrBidsExist):
		return "bids_exist"
	case errors.Is(err, ledger.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ledger.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ledger.ErrInvalidConfig):
		return "invalid_config"
	default:
		return "internal"
	}
}
