package state

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/gossip"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/peer"
	"github.com/cenkalti/backoff"
)

// Set of URL formats for the node APIs.
const (
	publicURL  = "http://%s/v1"
	privateURL = "http://%s/v1/node"
)

// maxSyncElapsed is the maximum time spent retrying the root node sync.
const maxSyncElapsed = time.Minute

// SyncWithRoot replaces the chain and the mempool of this node with the
// ones held by the root node. Unreachable roots are retried with an
// exponential backoff until the context is done or the retry time runs out.
func (s *State) SyncWithRoot(ctx context.Context, rootHost string) error {
	s.evHandler("state: SyncWithRoot: started: root[%s]", rootHost)
	defer s.evHandler("state: SyncWithRoot: completed")

	var blocks []database.Block
	var pool map[string]database.Tx

	operation := func() error {
		if err := gossip.Send(s.client, http.MethodGet, fmt.Sprintf(publicURL, rootHost)+"/chain", nil, &blocks); err != nil {
			s.evHandler("state: SyncWithRoot: WARNING: chain: %s", err)
			return err
		}

		if err := gossip.Send(s.client, http.MethodGet, fmt.Sprintf(publicURL, rootHost)+"/pool", nil, &pool); err != nil {
			s.evHandler("state: SyncWithRoot: WARNING: pool: %s", err)
			return err
		}

		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxSyncElapsed

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("sync with root %s: %w", rootHost, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.adoptChain(blocks); err != nil {
		if !errors.Is(err, database.ErrChainTooShort) {
			return fmt.Errorf("sync with root %s: %w", rootHost, err)
		}
		s.evHandler("state: SyncWithRoot: chain not replaced: %s", err)
	}

	s.mempool.SetMap(pool)

	s.evHandler("state: SyncWithRoot: length[%d]: pool[%d]", s.chain.Length(), len(pool))

	return nil
}

// NetRequestPeerStatus asks the peer for its status and the peers it knows.
func (s *State) NetRequestPeerStatus(pr peer.Peer) (peer.PeerStatus, error) {
	s.evHandler("state: NetRequestPeerStatus: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerStatus: completed: %s", pr)

	url := fmt.Sprintf(privateURL, pr.Host) + "/status"

	var ps peer.PeerStatus
	if err := gossip.Send(s.client, http.MethodGet, url, nil, &ps); err != nil {
		return peer.PeerStatus{}, err
	}

	s.evHandler("state: NetRequestPeerStatus: peer-node[%s]: length[%d]: peer-list[%s]", pr, ps.Length, ps.KnownPeers)

	return ps, nil
}

// NetRequestAddPeer lets the peer know this node is available to gossip.
func (s *State) NetRequestAddPeer(pr peer.Peer) error {
	s.evHandler("state: NetRequestAddPeer: started: %s", pr)
	defer s.evHandler("state: NetRequestAddPeer: completed: %s", pr)

	url := fmt.Sprintf(privateURL, pr.Host) + "/peers"

	return gossip.Send(s.client, http.MethodPost, url, peer.New(s.host), nil)
}
