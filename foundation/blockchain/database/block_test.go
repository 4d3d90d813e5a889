package database_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// noopEv discards mining events.
func noopEv(v string, args ...any) {}

// =============================================================================

func Test_Genesis(t *testing.T) {
	gen := genesis.Default()

	t.Log("Given the need to agree on a genesis block.")
	{
		first := database.Genesis(gen)
		second := database.Genesis(gen)

		if !reflect.DeepEqual(first, second) {
			t.Fatalf("\t%s\tShould get back the same genesis block on every call.", failed)
		}
		t.Logf("\t%s\tShould get back the same genesis block on every call.", success)

		if !first.IsGenesis(gen) {
			t.Fatalf("\t%s\tShould recognize the genesis block.", failed)
		}
		t.Logf("\t%s\tShould recognize the genesis block.", success)

		if first.Difficulty != gen.InitialDifficulty {
			t.Fatalf("\t%s\tShould use the initial difficulty: got %d, exp %d", failed, first.Difficulty, gen.InitialDifficulty)
		}
		t.Logf("\t%s\tShould use the initial difficulty.", success)
	}
}

func Test_AdjustDifficulty(t *testing.T) {
	const mineRate = 1000

	type table struct {
		name       string
		last       database.Block
		timestamp  int64
		difficulty uint
	}

	tt := []table{
		{name: "fast", last: database.Block{Timestamp: 10_000, Difficulty: 3}, timestamp: 10_000 + mineRate - 100, difficulty: 4},
		{name: "slow", last: database.Block{Timestamp: 10_000, Difficulty: 3}, timestamp: 10_000 + mineRate + 100, difficulty: 2},
		{name: "exact", last: database.Block{Timestamp: 10_000, Difficulty: 3}, timestamp: 10_000 + mineRate, difficulty: 2},
		{name: "floor", last: database.Block{Timestamp: 10_000, Difficulty: 1}, timestamp: 10_000 + mineRate + 100, difficulty: 1},
		{name: "zero", last: database.Block{Timestamp: 10_000, Difficulty: 0}, timestamp: 10_000 + 1, difficulty: 1},
	}

	t.Log("Given the need to adjust the difficulty between blocks.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				got := database.AdjustDifficulty(tst.last, tst.timestamp, mineRate)
				if got != tst.difficulty {
					t.Fatalf("\t%s\tTest %d:\tShould get back the right difficulty: got %d, exp %d", failed, testID, got, tst.difficulty)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right difficulty.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_MineBlock(t *testing.T) {
	gen := genesis.Default()

	t.Log("Given the need to mine a block.")
	{
		t.Logf("\tTest 0:\tWhen mining on top of the genesis block.")
		{
			last := database.Genesis(gen)

			block, err := database.MineBlock(last, nil, gen.MineRate, noopEv)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine a block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to mine a block.", success)

			if block.LastHash != last.Hash {
				t.Fatalf("\t%s\tTest 0:\tShould link to the previous block: got %s, exp %s", failed, block.LastHash, last.Hash)
			}
			t.Logf("\t%s\tTest 0:\tShould link to the previous block.", success)

			if block.Hash != block.ComputeHash() {
				t.Fatalf("\t%s\tTest 0:\tShould store the hash of its contents.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould store the hash of its contents.", success)

			if !database.IsHashSolved(block.Difficulty, block.Hash) {
				t.Fatalf("\t%s\tTest 0:\tShould solve the proof of work.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould solve the proof of work.", success)

			// The genesis timestamp is far in the past.
			if block.Difficulty != last.Difficulty-1 {
				t.Fatalf("\t%s\tTest 0:\tShould lower the difficulty: got %d, exp %d", failed, block.Difficulty, last.Difficulty-1)
			}
			t.Logf("\t%s\tTest 0:\tShould lower the difficulty.", success)

			if block.Data == nil {
				t.Fatalf("\t%s\tTest 0:\tShould store an empty data set instead of nil.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould store an empty data set instead of nil.", success)
		}

		t.Logf("\tTest 1:\tWhen mining right after the previous block.")
		{
			last := database.Block{
				Timestamp:  time.Now().UnixMilli(),
				Hash:       "previous-hash",
				Difficulty: 3,
			}

			block, err := database.MineBlock(last, nil, gen.MineRate, noopEv)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to mine a block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to mine a block.", success)

			if block.Difficulty != last.Difficulty+1 {
				t.Fatalf("\t%s\tTest 1:\tShould raise the difficulty: got %d, exp %d", failed, block.Difficulty, last.Difficulty+1)
			}
			t.Logf("\t%s\tTest 1:\tShould raise the difficulty.", success)
		}
	}
}

func Test_IsHashSolved(t *testing.T) {
	type table struct {
		name       string
		hash       string
		difficulty uint
		solved     bool
	}

	tt := []table{
		{name: "four-bits", hash: "0fff", difficulty: 4, solved: true},
		{name: "five-bits", hash: "0fff", difficulty: 5, solved: false},
		{name: "byte", hash: "00ff", difficulty: 8, solved: true},
		{name: "nine-bits", hash: "007f", difficulty: 9, solved: true},
		{name: "no-zeros", hash: "ffff", difficulty: 1, solved: false},
		{name: "not-hex", hash: "zz", difficulty: 1, solved: false},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			if got := database.IsHashSolved(tst.difficulty, tst.hash); got != tst.solved {
				t.Fatalf("Should get back %v for %s at difficulty %d, got %v", tst.solved, tst.hash, tst.difficulty, got)
			}
		}

		t.Run(tst.name, f)
	}
}
