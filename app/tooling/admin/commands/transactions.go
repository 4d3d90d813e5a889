package commands

import (
	"fmt"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/genesis"
)

// Transactions prints the settled transactions, optionally only the ones
// the specified address sent or received.
func Transactions(args conf.Args, blocks []database.Block) error {
	address := args.Num(1)

	for i, block := range blocks {
		for _, tx := range block.Data {
			if _, received := tx.OutputMap[address]; address != "" && tx.Input.Address != address && !received {
				continue
			}

			fmt.Printf("Block: %d  ID: %s  From: %s  Amount: %d\n", i, tx.ID, tx.Input.Address, tx.Input.Amount)
			for to, value := range tx.OutputMap {
				fmt.Printf("    To: %s  Value: %d\n", to, value)
			}
		}
	}

	return nil
}

// Validate checks the chain against the rules every node enforces.
func Validate(blocks []database.Block, gen genesis.Genesis) error {
	if err := database.ValidateChain(blocks, gen); err != nil {
		return err
	}

	fmt.Printf("Chain of %d blocks is valid, difficulty %d\n", len(blocks), blocks[len(blocks)-1].Difficulty)

	return nil
}
