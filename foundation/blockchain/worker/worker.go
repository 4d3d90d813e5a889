// Package worker implements mining and peer updates for the blockchain.
package worker

import (
	"sync"
	"time"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/state"
)

// peerUpdateInterval represents the interval of finding new peer nodes.
const peerUpdateInterval = time.Minute

// =============================================================================

// Config represents the schedule of the background operations.
type Config struct {
	MineInterval time.Duration // Zero means mining only happens when signaled.
	PeerInterval time.Duration
}

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state       *state.State
	wg          sync.WaitGroup
	peerTicker  *time.Ticker
	mineTicker  *time.Ticker
	shut        chan struct{}
	startMining chan bool
	evHandler   state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, evHandler state.EventHandler, cfg Config) *Worker {
	if cfg.PeerInterval <= 0 {
		cfg.PeerInterval = peerUpdateInterval
	}

	w := Worker{
		state:       st,
		peerTicker:  time.NewTicker(cfg.PeerInterval),
		shut:        make(chan struct{}),
		startMining: make(chan bool, 1),
		evHandler:   evHandler,
	}

	if cfg.MineInterval > 0 {
		w.mineTicker = time.NewTicker(cfg.MineInterval)
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Update this node before starting any support G's.
	w.Sync()

	// Load the set of operations we need to run.
	operations := []func(){
		w.peerOperations,
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work. A mining operation
// in progress is allowed to complete.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop tickers")
	w.peerTicker.Stop()
	if w.mineTicker != nil {
		w.mineTicker.Stop()
	}

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
