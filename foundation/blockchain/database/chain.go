// Package database maintains the in memory chain of blocks, the rules for
// validating and replacing it, and the transactions stored in its blocks.
package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/genesis"
)

// Set of error variables for chain processing.
var (
	ErrChainTooShort = errors.New("received chain is not longer than the current chain")
	ErrInvalidChain  = errors.New("received chain is invalid")
	ErrChainChanged  = errors.New("chain changed while mining")
)

// =============================================================================

// Chain is the ordered list of blocks held in memory by a node. Index 0 is
// always the genesis block.
type Chain struct {
	mu      sync.RWMutex
	genesis genesis.Genesis
	blocks  []Block
}

// NewChain constructs a chain holding only the genesis block.
func NewChain(gen genesis.Genesis) *Chain {
	return &Chain{
		genesis: gen,
		blocks:  []Block{Genesis(gen)},
	}
}

// Blocks returns a copy of the blocks in the chain.
func (c *Chain) Blocks() []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blocks := make([]Block, len(c.blocks))
	copy(blocks, c.blocks)

	return blocks
}

// LatestBlock returns the last block in the chain.
func (c *Chain) LatestBlock() Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blocks[len(c.blocks)-1]
}

// Length returns the number of blocks in the chain.
func (c *Chain) Length() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.blocks)
}

// AddBlock mines a new block holding data on top of the latest block and
// appends it. The chain is only read while the proof of work is performed.
func (c *Chain) AddBlock(data []Tx, evHandler func(v string, args ...any)) (Block, error) {
	lastBlock := c.LatestBlock()

	block, err := MineBlock(lastBlock, data, c.genesis.MineRate, evHandler)
	if err != nil {
		return Block{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The chain may have been replaced while the search was running.
	if c.blocks[len(c.blocks)-1].Hash != block.LastHash {
		return Block{}, ErrChainChanged
	}

	c.blocks = append(c.blocks, block)

	return block, nil
}

// ReplaceChain swaps the local blocks for the candidate when the candidate is
// strictly longer and valid. It returns the blocks from the candidate that
// were not already part of the local chain.
func (c *Chain) ReplaceChain(candidate []Block) ([]Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(candidate) <= len(c.blocks) {
		return nil, fmt.Errorf("%w: got %d, have %d", ErrChainTooShort, len(candidate), len(c.blocks))
	}

	if err := ValidateChain(candidate, c.genesis); err != nil {
		return nil, err
	}

	// Find where the candidate diverges from the local chain.
	fork := 0
	for fork < len(c.blocks) && c.blocks[fork].Hash == candidate[fork].Hash {
		fork++
	}

	blocks := make([]Block, len(candidate))
	copy(blocks, candidate)
	c.blocks = blocks

	adopted := make([]Block, len(blocks)-fork)
	copy(adopted, blocks[fork:])

	return adopted, nil
}

// =============================================================================

// IsValidChain reports whether the blocks form a valid chain.
func IsValidChain(blocks []Block, gen genesis.Genesis) bool {
	return ValidateChain(blocks, gen) == nil
}

// ValidateChain checks every block and every transaction in the chain and
// returns the first rule that is broken.
func ValidateChain(blocks []Block, gen genesis.Genesis) error {
	if len(blocks) == 0 {
		return fmt.Errorf("%w: empty chain", ErrInvalidChain)
	}

	if !blocks[0].IsGenesis(gen) {
		return fmt.Errorf("%w: genesis block does not match", ErrInvalidChain)
	}

	settled := make(map[string]struct{})

	for i := 1; i < len(blocks); i++ {
		block := blocks[i]
		prev := blocks[i-1]

		if block.LastHash != prev.Hash {
			return fmt.Errorf("%w: blk[%d]: last hash doesn't match parent, got %s, exp %s", ErrInvalidChain, i, block.LastHash, prev.Hash)
		}

		if hash := block.ComputeHash(); block.Hash != hash {
			return fmt.Errorf("%w: blk[%d]: hash doesn't match contents, got %s, exp %s", ErrInvalidChain, i, block.Hash, hash)
		}

		if block.Difficulty < 1 {
			return fmt.Errorf("%w: blk[%d]: difficulty below one", ErrInvalidChain, i)
		}

		if diff := int64(block.Difficulty) - int64(prev.Difficulty); diff > 1 || diff < -1 {
			return fmt.Errorf("%w: blk[%d]: difficulty jumped, parent %d, block %d", ErrInvalidChain, i, prev.Difficulty, block.Difficulty)
		}

		if !IsHashSolved(block.Difficulty, block.Hash) {
			return fmt.Errorf("%w: blk[%d]: hash %s does not solve difficulty %d", ErrInvalidChain, i, block.Hash, block.Difficulty)
		}

		if err := validateBlockData(blocks[:i], block, settled, gen); err != nil {
			return fmt.Errorf("%w: blk[%d]: %s", ErrInvalidChain, i, err)
		}
	}

	return nil
}

// validateBlockData checks the transactions of a block against the chain
// that precedes it.
func validateBlockData(prefix []Block, block Block, settled map[string]struct{}, gen genesis.Genesis) error {
	var rewards int
	senders := make(map[string]struct{})

	for _, tx := range block.Data {
		if _, exists := settled[tx.ID]; exists {
			return fmt.Errorf("transaction %s already settled", tx.ID)
		}
		settled[tx.ID] = struct{}{}

		if err := tx.Validate(); err != nil {
			return err
		}

		if tx.IsReward() {
			rewards++
			if rewards > 1 {
				return errors.New("miner rewards exceed limit")
			}

			if len(tx.OutputMap) != 1 || tx.Input.Amount != gen.MiningReward {
				return fmt.Errorf("miner reward amount is invalid, got %d, exp %d", tx.Input.Amount, gen.MiningReward)
			}

			continue
		}

		if _, exists := senders[tx.Input.Address]; exists {
			return fmt.Errorf("sender %s has more than one transaction in block", tx.Input.Address)
		}
		senders[tx.Input.Address] = struct{}{}

		balance := CalculateBalance(prefix, tx.Input.Address, gen.StartingBalance)
		if tx.Input.Amount != balance {
			return fmt.Errorf("transaction %s input amount %d does not match balance %d", tx, tx.Input.Amount, balance)
		}
	}

	return nil
}

// CalculateBalance returns the balance of the address from the blocks. The
// latest transaction sent by the address sets the balance to its change
// output, and every output to the address after it is added on top. Without
// a sent transaction the starting balance is used.
func CalculateBalance(blocks []Block, address string, startingBalance uint64) uint64 {
	balance := startingBalance

	for _, block := range blocks {
		for _, tx := range block.Data {
			if tx.Input.Address == address {
				balance = tx.OutputMap[address]
				continue
			}

			balance += tx.OutputMap[address]
		}
	}

	return balance
}
