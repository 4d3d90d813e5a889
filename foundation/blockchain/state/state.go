// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/gossip"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/mempool"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/peer"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/wallet"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks and transactions.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and peer updates.
type Worker interface {
	Shutdown()
	SignalStartMining()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Genesis    genesis.Genesis
	Wallet     *wallet.Wallet
	Host       string
	KnownPeers *peer.PeerSet
	Broker     gossip.Broker
	AutoMine   bool
	EvHandler  EventHandler
}

// State manages the chain and the mempool of a node. Every change to the
// chain or the mempool goes through mu so blocks are never appended
// concurrently, a replacement never races an append and a transaction is
// never updated while a block settling it is being mined.
type State struct {
	mu sync.Mutex

	genesis    genesis.Genesis
	wallet     *wallet.Wallet
	host       string
	knownPeers *peer.PeerSet
	broker     gossip.Broker
	autoMine   bool
	evHandler  EventHandler
	client     *http.Client

	chain   *database.Chain
	mempool *mempool.Mempool

	Worker Worker
}

// New constructs a new blockchain node state and subscribes it to the
// gossip channels.
func New(cfg Config) (*State, error) {
	if cfg.Wallet == nil {
		return nil, errors.New("wallet is required")
	}
	if cfg.Broker == nil {
		return nil, errors.New("gossip broker is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	state := State{
		genesis:    cfg.Genesis,
		wallet:     cfg.Wallet,
		host:       cfg.Host,
		knownPeers: knownPeers,
		broker:     cfg.Broker,
		autoMine:   cfg.AutoMine,
		evHandler:  ev,
		client:     &http.Client{Timeout: 10 * time.Second},

		chain:   database.NewChain(cfg.Genesis),
		mempool: mempool.New(),
	}

	cfg.Broker.Subscribe(gossip.ChannelChain, state.receiveChain)
	cfg.Broker.Subscribe(gossip.ChannelTransaction, state.receiveTransaction)

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// signalMining asks the worker to mine when the node mines on every new
// transaction.
func (s *State) signalMining() {
	if s.autoMine && s.Worker != nil {
		s.Worker.SignalStartMining()
	}
}

// =============================================================================

// receiveChain handles a chain published by a peer.
func (s *State) receiveChain(message json.RawMessage) error {
	var blocks []database.Block
	if err := json.Unmarshal(message, &blocks); err != nil {
		return fmt.Errorf("decoding chain: %w", err)
	}

	return s.ReplaceChain(blocks)
}

// receiveTransaction handles a transaction published by a peer.
func (s *State) receiveTransaction(message json.RawMessage) error {
	var tx database.Tx
	if err := json.Unmarshal(message, &tx); err != nil {
		return fmt.Errorf("decoding transaction: %w", err)
	}

	s.UpsertPeerTransaction(tx)

	return nil
}

// broadcastChain publishes the current chain to the peers.
func (s *State) broadcastChain() {
	if err := s.broker.Publish(gossip.ChannelChain, s.chain.Blocks()); err != nil {
		s.evHandler("state: broadcastChain: WARNING: %s", err)
	}
}

// broadcastTransaction publishes the transaction to the peers.
func (s *State) broadcastTransaction(tx database.Tx) {
	if err := s.broker.Publish(gossip.ChannelTransaction, tx); err != nil {
		s.evHandler("state: broadcastTransaction: WARNING: %s", err)
	}
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	data, err := json.Marshal(block)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"length":%d,"block":%s}`, block.Hash, s.chain.Length(), string(data))
}
