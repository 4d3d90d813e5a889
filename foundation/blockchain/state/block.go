package state

import (
	"errors"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
)

// AddBlock mines a block holding the data as is and broadcasts the chain.
// The data is not checked against the transaction rules.
func (s *State) AddBlock(data []database.Tx) (database.Block, error) {
	s.evHandler("state: AddBlock: started: txs[%d]", len(data))
	defer s.evHandler("state: AddBlock: completed")

	block, err := s.addBlock(data)
	if err != nil {
		return database.Block{}, err
	}

	s.broadcastChain()

	return block, nil
}

// ReplaceChain adopts the blocks when they form a valid chain longer than
// the local one. Pending transactions settled by the adopted blocks are
// removed from the mempool and the new chain is passed on to the peers.
func (s *State) ReplaceChain(blocks []database.Block) error {
	s.evHandler("state: ReplaceChain: started: length[%d]", len(blocks))
	defer s.evHandler("state: ReplaceChain: completed")

	if err := s.replaceChain(blocks); err != nil {
		s.evHandler("state: ReplaceChain: rejected: %s", err)
		return err
	}

	s.broadcastChain()

	return nil
}

// =============================================================================

func (s *State) addBlock(data []database.Tx) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	block, err := s.chain.AddBlock(data, s.evHandler)
	if err != nil {
		return database.Block{}, err
	}

	s.blockEvent(block)

	return block, nil
}

func (s *State) replaceChain(blocks []database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.adoptChain(blocks)
}

// adoptChain replaces the chain and clears the settled transactions from
// the mempool. The caller must hold mu.
func (s *State) adoptChain(blocks []database.Block) error {
	adopted, err := s.chain.ReplaceChain(blocks)
	if err != nil {
		return err
	}

	removed := s.mempool.ClearBlockchainTransactions(adopted)
	s.evHandler("state: ReplaceChain: adopted[%d]: removed from mempool[%d]", len(adopted), removed)

	for _, block := range adopted {
		s.blockEvent(block)
	}

	return nil
}

// IsRejectedChain reports whether the error is a chain that was refused
// by the replacement rules rather than a failure of the node.
func IsRejectedChain(err error) bool {
	return errors.Is(err, database.ErrChainTooShort) || errors.Is(err, database.ErrInvalidChain)
}
