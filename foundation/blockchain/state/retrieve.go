package state

import (
	"sort"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveWalletAddress returns the address of the node's wallet.
func (s *State) RetrieveWalletAddress() string {
	return s.wallet.Address()
}

// RetrieveChain returns a copy of the blocks in the chain.
func (s *State) RetrieveChain() []database.Block {
	return s.chain.Blocks()
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.chain.LatestBlock()
}

// RetrieveChainLength returns the number of blocks in the chain.
func (s *State) RetrieveChainLength() int {
	return s.chain.Length()
}

// RetrieveMempool returns a copy of the mempool keyed by transaction id.
func (s *State) RetrieveMempool() map[string]database.Tx {
	return s.mempool.Copy()
}

// RetrieveBalance returns the balance of the address calculated from
// the chain.
func (s *State) RetrieveBalance(address string) uint64 {
	return database.CalculateBalance(s.chain.Blocks(), address, s.genesis.StartingBalance)
}

// RetrieveKnownAddresses returns every address that sent or received value
// on the chain, sorted.
func (s *State) RetrieveKnownAddresses() []string {
	known := make(map[string]struct{})
	for _, block := range s.chain.Blocks() {
		for _, tx := range block.Data {
			if !tx.IsReward() && tx.Input.Address != "" {
				known[tx.Input.Address] = struct{}{}
			}
			for address := range tx.OutputMap {
				known[address] = struct{}{}
			}
		}
	}

	addresses := make([]string, 0, len(known))
	for address := range known {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	return addresses
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// AddKnownPeer provides the ability to add a new peer.
func (s *State) AddKnownPeer(peer peer.Peer) bool {
	if peer.Match(s.host) {
		return false
	}

	return s.knownPeers.Add(peer)
}

// RemoveKnownPeer removes a peer that can no longer be reached.
func (s *State) RemoveKnownPeer(peer peer.Peer) {
	s.knownPeers.Remove(peer)
}
