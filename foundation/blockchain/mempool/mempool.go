// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sort"
	"sync"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
)

// Mempool represents a cache of pending transactions keyed by transaction id.
type Mempool struct {
	pool map[string]database.Tx
	mu   sync.RWMutex
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]database.Tx),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction in the mempool.
func (mp *Mempool) Upsert(tx database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool[tx.ID] = tx

	return len(mp.pool)
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(id string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, id)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.Tx)
}

// SetMap replaces the content of the pool with the specified transactions.
// This is used when a node syncs its pool from another node.
func (mp *Mempool) SetMap(pool map[string]database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.Tx, len(pool))
	for id, tx := range pool {
		mp.pool[id] = tx
	}
}

// Copy returns a copy of the pool map.
func (mp *Mempool) Copy() map[string]database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	pool := make(map[string]database.Tx, len(mp.pool))
	for id, tx := range mp.pool {
		pool[id] = tx
	}

	return pool
}

// ExistingTransaction returns the pending transaction sent by the address.
func (mp *Mempool) ExistingTransaction(address string) (database.Tx, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	for _, tx := range mp.pool {
		if tx.Input.Address == address {
			return tx, true
		}
	}

	return database.Tx{}, false
}

// ValidTransactions returns the transactions whose outputs add up to the
// input amount and whose signature verifies, ordered by the time they were
// signed. Invalid transactions are reported to the event handler and left
// in the pool.
func (mp *Mempool) ValidTransactions(evHandler func(v string, args ...any)) []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	txs := make([]database.Tx, 0, len(mp.pool))
	for _, tx := range mp.pool {
		if err := tx.Validate(); err != nil {
			evHandler("mempool: ValidTransactions: WARNING: skipping tx[%s]: %s", tx, err)
			continue
		}
		txs = append(txs, tx)
	}

	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Input.Timestamp == txs[j].Input.Timestamp {
			return txs[i].ID < txs[j].ID
		}
		return txs[i].Input.Timestamp < txs[j].Input.Timestamp
	})

	return txs
}

// ClearBlockchainTransactions removes every transaction that is settled in
// the blocks, along with any pending transaction from a sender whose
// transaction was settled in those blocks since its input amount is now
// stale. It returns the number of transactions removed.
func (mp *Mempool) ClearBlockchainTransactions(blocks []database.Block) int {
	settled := make(map[string]struct{})
	senders := make(map[string]struct{})
	for _, block := range blocks {
		for _, tx := range block.Data {
			settled[tx.ID] = struct{}{}
			if !tx.IsReward() {
				senders[tx.Input.Address] = struct{}{}
			}
		}
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	var removed int
	for id, tx := range mp.pool {
		_, isSettled := settled[id]
		_, isStale := senders[tx.Input.Address]

		if isSettled || isStale {
			delete(mp.pool, id)
			removed++
		}
	}

	return removed
}
