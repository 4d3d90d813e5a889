package worker_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/gossip"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/state"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/wallet"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/worker"
	"github.com/ethereum/go-ethereum/crypto"
)

const minerHexKey = "aed31b6b5a341af8f27e66fb0b7633cf20fc27049e3eb7f6f623a4655b719ebb"

func newState(t *testing.T, autoMine bool) *state.State {
	gen := genesis.Default()

	pk, err := crypto.HexToECDSA(minerHexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	ev := func(v string, args ...any) {}

	st, err := state.New(state.Config{
		Genesis:   gen,
		Wallet:    wallet.FromPrivateKey(gen, pk),
		Host:      "localhost:9080",
		Broker:    gossip.NewMemoryBus().Join(ev),
		AutoMine:  autoMine,
		EvHandler: ev,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %s", err)
	}

	return st
}

func waitForLength(st *state.State, length int) bool {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if st.RetrieveChainLength() >= length {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// =============================================================================

func Test_SignalMining(t *testing.T) {
	st := newState(t, false)

	w := worker.Run(st, func(string, ...any) {}, worker.Config{})
	defer st.Shutdown()

	w.SignalStartMining()
	time.Sleep(50 * time.Millisecond)

	if st.RetrieveChainLength() != 1 {
		t.Fatalf("Should not mine with an empty mempool.")
	}

	if _, err := st.SubmitTransaction("foo-recipient", 10); err != nil {
		t.Fatalf("Should be able to submit a transaction: %s", err)
	}
	w.SignalStartMining()

	if !waitForLength(st, 2) {
		t.Fatalf("Should mine the pending transaction.")
	}

	if st.QueryMempoolLength() != 0 {
		t.Fatalf("Should clear the mempool after mining.")
	}
}

func Test_IntervalMining(t *testing.T) {
	st := newState(t, false)

	worker.Run(st, func(string, ...any) {}, worker.Config{MineInterval: 20 * time.Millisecond})
	defer st.Shutdown()

	if _, err := st.SubmitTransaction("foo-recipient", 10); err != nil {
		t.Fatalf("Should be able to submit a transaction: %s", err)
	}

	if !waitForLength(st, 2) {
		t.Fatalf("Should mine the pending transaction on the interval.")
	}
}

func Test_AutoMining(t *testing.T) {
	st := newState(t, true)

	worker.Run(st, func(string, ...any) {}, worker.Config{})
	defer st.Shutdown()

	if _, err := st.SubmitTransaction("foo-recipient", 10); err != nil {
		t.Fatalf("Should be able to submit a transaction: %s", err)
	}

	if !waitForLength(st, 2) {
		t.Fatalf("Should mine as soon as the transaction is submitted.")
	}
}
