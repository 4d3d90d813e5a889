// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

// Default values for a node started without a genesis file.
const (
	DefaultStartingBalance   = 1000
	DefaultMiningReward      = 50
	DefaultInitialDifficulty = 3
	DefaultMineRate          = 1000 // milliseconds
)

// Genesis represents the genesis file.
type Genesis struct {
	Date              time.Time `json:"date"`
	StartingBalance   uint64    `json:"starting_balance"`   // Balance of a wallet before it sends its first transaction.
	MiningReward      uint64    `json:"mining_reward"`      // Reward for mining a block.
	InitialDifficulty uint      `json:"initial_difficulty"` // Number of leading zero bits the genesis block asks for.
	MineRate          int64     `json:"mine_rate"`          // Target time in milliseconds between blocks.
}

// Default returns the genesis values every node agrees on when no file
// is provided.
func Default() Genesis {
	return Genesis{
		Date:              time.Date(2019, time.September, 29, 0, 0, 0, 0, time.UTC),
		StartingBalance:   DefaultStartingBalance,
		MiningReward:      DefaultMiningReward,
		InitialDifficulty: DefaultInitialDifficulty,
		MineRate:          DefaultMineRate,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. An empty path returns the
// default genesis values.
func Load(path string) (Genesis, error) {
	if path == "" {
		return Default(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if err := genesis.validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// validate checks the values read from a file are usable.
func (g Genesis) validate() error {
	if g.InitialDifficulty < 1 {
		return errors.New("initial difficulty must be at least 1")
	}

	if g.MineRate <= 0 {
		return errors.New("mine rate must be positive")
	}

	return nil
}
