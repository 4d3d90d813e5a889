// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	v1 "github.com/ardanlabs/cryptochain/business/web/v1"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/gossip"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/peer"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/state"
	"github.com/ardanlabs/cryptochain/foundation/web"
	"go.uber.org/zap"
)

// Receiver represents the behavior required to hand a gossip message
// received from a peer to the node.
type Receiver interface {
	Deliver(env gossip.Envelope) error
}

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	State    *state.State
	Receiver Receiver
}

// Gossip receives a chain or transaction published by a peer. A chain that
// is refused by the replacement rules is reported but is not a failure of
// this node.
func (h Handlers) Gossip(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var env gossip.Envelope
	if err := web.Decode(r, &env); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("gossip", "traceid", web.GetTraceID(ctx), "channel", env.Channel, "size", len(env.Message))

	if err := h.Receiver.Deliver(env); err != nil {
		if state.IsRejectedChain(err) {
			return v1.NewRequestError(err, http.StatusNotAcceptable)
		}
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// SubmitPeer is called by a node so they can be added to the known peer list.
func (h Handlers) SubmitPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var pr peer.Peer
	if err := web.Decode(r, &pr); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	if h.State.AddKnownPeer(peer.New(pr.Host)) {
		h.Log.Infow("adding peer", "traceid", web.GetTraceID(ctx), "host", pr.Host)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latestBlock := h.State.RetrieveLatestBlock()

	status := peer.PeerStatus{
		LatestBlockHash: latestBlock.Hash,
		Length:          h.State.RetrieveChainLength(),
		KnownPeers:      h.State.RetrieveKnownPeers(),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}
