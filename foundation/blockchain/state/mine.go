package state

import (
	"errors"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are no transactions to settle.
var ErrNoTransactions = errors.New("no transactions in mempool")

// =============================================================================

// MineTransactions settles the valid pending transactions in a new block
// along with the reward for this node's wallet, then broadcasts the chain.
// A block holding only the reward is mined when nothing is pending.
func (s *State) MineTransactions() (database.Block, error) {
	return s.mineTransactions(false)
}

// MinePending works like MineTransactions but returns ErrNoTransactions
// instead of mining a block without pending transactions.
func (s *State) MinePending() (database.Block, error) {
	return s.mineTransactions(true)
}

// =============================================================================

func (s *State) mineTransactions(requireTxs bool) (database.Block, error) {
	s.evHandler("state: MineTransactions: MINING: started")
	defer s.evHandler("state: MineTransactions: MINING: completed")

	block, err := s.mine(requireTxs)
	if err != nil {
		return database.Block{}, err
	}

	s.broadcastChain()

	return block, nil
}

func (s *State) mine(requireTxs bool) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := s.selectTransactions(s.chain.Blocks())
	if requireTxs && len(txs) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	reward, err := database.NewRewardTx(s.wallet.Address(), s.genesis.MiningReward)
	if err != nil {
		return database.Block{}, err
	}
	txs = append(txs, reward)

	s.evHandler("state: MineTransactions: MINING: perform POW: txs[%d]", len(txs))

	block, err := s.chain.AddBlock(txs, s.evHandler)
	if err != nil {
		return database.Block{}, err
	}

	removed := s.mempool.ClearBlockchainTransactions([]database.Block{block})
	s.evHandler("state: MineTransactions: MINING: removed from mempool[%d]", removed)

	s.blockEvent(block)

	return block, nil
}

// selectTransactions returns the pending transactions that can be settled on
// top of the blocks. A transaction is skipped when its input amount no longer
// matches the sender's balance, when it is already settled, or when another
// transaction from the same sender was selected.
func (s *State) selectTransactions(blocks []database.Block) []database.Tx {
	settled := make(map[string]struct{})
	for _, block := range blocks {
		for _, tx := range block.Data {
			settled[tx.ID] = struct{}{}
		}
	}

	senders := make(map[string]struct{})

	var txs []database.Tx
	for _, tx := range s.mempool.ValidTransactions(s.evHandler) {
		if tx.IsReward() {
			s.evHandler("state: selectTransactions: WARNING: skipping reward tx[%s]", tx)
			continue
		}

		if _, exists := settled[tx.ID]; exists {
			s.evHandler("state: selectTransactions: WARNING: skipping settled tx[%s]", tx)
			continue
		}

		if _, exists := senders[tx.Input.Address]; exists {
			s.evHandler("state: selectTransactions: WARNING: skipping second tx from sender tx[%s]", tx)
			continue
		}

		balance := database.CalculateBalance(blocks, tx.Input.Address, s.genesis.StartingBalance)
		if tx.Input.Amount != balance {
			s.evHandler("state: selectTransactions: WARNING: skipping stale tx[%s]: input[%d]: balance[%d]", tx, tx.Input.Amount, balance)
			continue
		}

		senders[tx.Input.Address] = struct{}{}
		txs = append(txs, tx)
	}

	return txs
}
