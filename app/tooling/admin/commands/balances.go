// Package commands contains the functionality for the set of commands
// currently supported by the admin tooling.
package commands

import (
	"fmt"
	"sort"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/genesis"
)

// Balances prints the balance of every address found on the chain, or of
// the one address that is specified.
func Balances(args conf.Args, blocks []database.Block, gen genesis.Genesis) error {
	if len(blocks) == 0 {
		return fmt.Errorf("empty chain")
	}

	fmt.Printf("LatestBlockHash: %s\n\n", blocks[len(blocks)-1].Hash)

	addresses := []string{args.Num(1)}
	if addresses[0] == "" {
		addresses = knownAddresses(blocks)
	}

	for _, address := range addresses {
		fmt.Printf("Address: %s  Balance: %d\n", address, database.CalculateBalance(blocks, address, gen.StartingBalance))
	}

	return nil
}

func knownAddresses(blocks []database.Block) []string {
	known := make(map[string]struct{})
	for _, block := range blocks {
		for _, tx := range block.Data {
			if !tx.IsReward() {
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
