package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/wallet"
)

// SubmitTransaction creates a transaction from the node's wallet, or adds
// the recipient to the wallet's pending transaction, and broadcasts it.
func (s *State) SubmitTransaction(recipient string, amount uint64) (database.Tx, error) {
	return s.SubmitWalletTransaction(s.wallet, recipient, amount)
}

// SubmitWalletTransaction creates or updates the pending transaction of the
// specified wallet. Nothing changes when the amount exceeds the balance.
func (s *State) SubmitWalletTransaction(w *wallet.Wallet, recipient string, amount uint64) (database.Tx, error) {
	s.evHandler("state: SubmitTransaction: started: from[%s]: to[%s]: amount[%d]", w.Address(), recipient, amount)
	defer s.evHandler("state: SubmitTransaction: completed")

	tx, err := s.upsertWalletTransaction(w, recipient, amount)
	if err != nil {
		return database.Tx{}, err
	}

	s.broadcastTransaction(tx)
	s.signalMining()

	return tx, nil
}

// ErrPendingTransaction is returned when a sender already has a different
// transaction waiting in the mempool.
var ErrPendingTransaction = errors.New("sender has a pending transaction")

// SubmitSignedTransaction accepts a transaction signed by a client wallet.
// The input amount must match the sender's balance on the current chain.
func (s *State) SubmitSignedTransaction(tx database.Tx) error {
	s.evHandler("state: SubmitSignedTransaction: started: tx[%s]", tx)
	defer s.evHandler("state: SubmitSignedTransaction: completed")

	if err := s.upsertSignedTransaction(tx); err != nil {
		return err
	}

	s.broadcastTransaction(tx)
	s.signalMining()

	return nil
}

// UpsertPeerTransaction records a transaction received from a peer. It is
// checked when the transactions are selected for mining.
func (s *State) UpsertPeerTransaction(tx database.Tx) {
	s.evHandler("state: UpsertPeerTransaction: tx[%s]", tx)

	s.mu.Lock()
	s.mempool.Upsert(tx)
	s.mu.Unlock()

	s.signalMining()
}

// =============================================================================

// The pool is only written while holding mu, the same lock mining holds from
// selecting the transactions to clearing them, so an update can never land
// on a transaction that is being settled.

func (s *State) upsertWalletTransaction(w *wallet.Wallet, recipient string, amount uint64) (database.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tx database.Tx
	var err error

	switch existing, found := s.mempool.ExistingTransaction(w.Address()); {
	case found:
		tx, err = w.UpdateTransaction(existing, recipient, amount)
	default:
		tx, err = w.CreateTransaction(recipient, amount, s.chain.Blocks())
	}

	if err != nil {
		return database.Tx{}, err
	}

	s.mempool.Upsert(tx)

	return tx, nil
}

func (s *State) upsertSignedTransaction(tx database.Tx) error {
	if tx.IsReward() {
		return fmt.Errorf("%w: %s: reward transactions are created by miners", database.ErrInvalidTransaction, tx.ID)
	}

	if err := tx.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if balance := s.RetrieveBalance(tx.Input.Address); tx.Input.Amount != balance {
		return fmt.Errorf("%w: %s: input amount %d, balance %d", database.ErrInvalidTransaction, tx.ID, tx.Input.Amount, balance)
	}

	if existing, found := s.mempool.ExistingTransaction(tx.Input.Address); found && existing.ID != tx.ID {
		return fmt.Errorf("%w: %s", ErrPendingTransaction, existing.ID)
	}

	s.mempool.Upsert(tx)

	return nil
}
