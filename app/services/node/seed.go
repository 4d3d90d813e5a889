package main

import (
	"fmt"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/state"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/wallet"
)

// seedRounds is the number of blocks mined when seeding a development chain.
const seedRounds = 10

// seed mines rounds of payments between the node's wallet and two generated
// wallets so a development node starts with a populated chain.
func seed(st *state.State, gen genesis.Genesis) error {
	foo, err := wallet.New(gen)
	if err != nil {
		return err
	}

	bar, err := wallet.New(gen)
	if err != nil {
		return err
	}

	nodeAction := func() error {
		_, err := st.SubmitTransaction(foo.Address(), 5)
		return err
	}
	fooAction := func() error {
		_, err := st.SubmitWalletTransaction(foo, bar.Address(), 10)
		return err
	}
	barAction := func() error {
		_, err := st.SubmitWalletTransaction(bar, st.RetrieveWalletAddress(), 15)
		return err
	}

	for i := 0; i < seedRounds; i++ {
		var actions []func() error
		switch i % 3 {
		case 0:
			actions = []func() error{nodeAction, fooAction}
		case 1:
			actions = []func() error{nodeAction, barAction}
		default:
			actions = []func() error{fooAction, barAction}
		}

		for _, action := range actions {
			if err := action(); err != nil {
				return fmt.Errorf("round %d: %w", i, err)
			}
		}

		if _, err := st.MineTransactions(); err != nil {
			return fmt.Errorf("round %d: mining: %w", i, err)
		}
	}

	return nil
}
