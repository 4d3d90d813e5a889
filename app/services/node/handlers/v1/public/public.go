// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"net/http"
	"time"

	v1 "github.com/ardanlabs/cryptochain/business/web/v1"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/state"
	"github.com/ardanlabs/cryptochain/foundation/events"
	"github.com/ardanlabs/cryptochain/foundation/nameservice"
	"github.com/ardanlabs/cryptochain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the blockchain.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the blockchain or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Chain returns every block in the chain.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveChain(), http.StatusOK)
}

// ChainLength returns the length of the chain and the hash of its latest block.
func (h Handlers) ChainLength(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cl := chainLength{
		Length:     h.State.RetrieveChainLength(),
		LatestHash: h.State.RetrieveLatestBlock().Hash,
	}

	return web.Respond(ctx, w, cl, http.StatusOK)
}

// Mine mines a block holding the data of the request as is and responds
// with the chain.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req mineRequest
	if err := web.Decode(r, &req); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	block, err := h.State.AddBlock(req.Data)
	if err != nil {
		return err
	}

	h.Log.Infow("mine", "traceid", web.GetTraceID(ctx), "block", block.Hash, "txs", len(block.Data))

	return web.Respond(ctx, w, h.State.RetrieveChain(), http.StatusOK)
}

// MinePending settles the pending transactions in a new block and responds
// with the chain.
func (h Handlers) MinePending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.MineTransactions()
	if err != nil {
		return err
	}

	h.Log.Infow("mine pending", "traceid", web.GetTraceID(ctx), "block", block.Hash, "txs", len(block.Data))

	return web.Respond(ctx, w, h.State.RetrieveChain(), http.StatusOK)
}

// Transact pays the recipient from the node's wallet. A pending transaction
// of the wallet is updated instead of creating a second one.
func (h Handlers) Transact(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req transactRequest
	if err := web.Decode(r, &req); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("transact", "traceid", web.GetTraceID(ctx), "to", req.Recipient, "amount", req.Amount)

	// Insufficient funds and invalid recipients are reported to the caller.
	tx, err := h.State.SubmitTransaction(req.Recipient, req.Amount)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	resp := transactResponse{
		Type:        "success",
		Transaction: tx,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitTransaction adds a transaction signed by a client wallet to the
// mempool and gossips it to the peers.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var tx database.Tx
	if err := web.Decode(r, &tx); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit transaction", "traceid", web.GetTraceID(ctx), "tx", tx.ID, "from", tx.Input.Address)

	if err := h.State.SubmitSignedTransaction(tx); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	resp := transactResponse{
		Type:        "success",
		Transaction: tx,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Pool returns the pending transactions keyed by transaction id.
func (h Handlers) Pool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveMempool(), http.StatusOK)
}

// WalletInfo returns the address of the node's wallet and its balance.
func (h Handlers) WalletInfo(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := h.State.RetrieveWalletAddress()

	wi := walletInfo{
		Address: address,
		Name:    h.NS.Lookup(address),
		Balance: h.State.RetrieveBalance(address),
	}

	return web.Respond(ctx, w, wi, http.StatusOK)
}

// KnownAddresses returns the addresses found on the chain with their names
// and balances.
func (h Handlers) KnownAddresses(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	addresses := h.State.RetrieveKnownAddresses()

	infos := make([]walletInfo, len(addresses))
	for i, address := range addresses {
		infos[i] = walletInfo{
			Address: address,
			Name:    h.NS.Lookup(address),
			Balance: h.State.RetrieveBalance(address),
		}
	}

	return web.Respond(ctx, w, infos, http.StatusOK)
}

// Balance returns the balance of the specified address.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	wi := walletInfo{
		Address: address,
		Name:    h.NS.Lookup(address),
		Balance: h.State.RetrieveBalance(address),
	}

	return web.Respond(ctx, w, wi, http.StatusOK)
}
