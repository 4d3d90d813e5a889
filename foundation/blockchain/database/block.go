package database

import (
	"encoding/hex"
	"errors"
	"math"
	"math/bits"
	"time"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/signature"
)

// ErrNonceOverflow is returned when the nonce space is exhausted without
// solving the proof of work.
var ErrNonceOverflow = errors.New("nonce overflow, proof of work not solved")

// Values for the genesis block shared by every node.
const (
	genesisTimestamp = 1
	genesisLastHash  = "-----"
	genesisHash      = "hash-one"
)

// =============================================================================

// Block represents a group of transactions batched together along with the
// proof of work that sealed them.
type Block struct {
	Timestamp  int64  `json:"timestamp"`  // Time in milliseconds the block was mined.
	LastHash   string `json:"lastHash"`   // Hash of the previous block in the chain.
	Hash       string `json:"hash"`       // Hash over every other field of this block.
	Data       []Tx   `json:"data"`       // Transactions settled by this block.
	Nonce      uint64 `json:"nonce"`      // Value identified to solve the hash solution.
	Difficulty uint   `json:"difficulty"` // Number of leading zero bits needed to solve the hash solution.
}

// Genesis returns the first block of every chain. It is a constant record
// and is never mined.
func Genesis(gen genesis.Genesis) Block {
	return Block{
		Timestamp:  genesisTimestamp,
		LastHash:   genesisLastHash,
		Hash:       genesisHash,
		Data:       []Tx{},
		Nonce:      0,
		Difficulty: gen.InitialDifficulty,
	}
}

// MineBlock constructs the block that follows lastBlock and performs the work
// to find a nonce that solves the POW puzzle. The timestamp and difficulty are
// refreshed on every attempt so the difficulty reflects how long the search
// actually took.
func MineBlock(lastBlock Block, data []Tx, mineRate int64, evHandler func(v string, args ...any)) (Block, error) {
	if data == nil {
		data = []Tx{}
	}

	nb := Block{
		LastHash: lastBlock.Hash,
		Data:     data,
	}

	evHandler("database: MineBlock: MINING: started: prevBlk[%s]: txs[%d]", lastBlock.Hash, len(data))

	for nonce := uint64(0); ; nonce++ {
		nb.Nonce = nonce
		nb.Timestamp = time.Now().UnixMilli()
		nb.Difficulty = AdjustDifficulty(lastBlock, nb.Timestamp, mineRate)
		nb.Hash = nb.ComputeHash()

		if IsHashSolved(nb.Difficulty, nb.Hash) {
			evHandler("database: MineBlock: MINING: SOLVED: newBlk[%s]: difficulty[%d]: attempts[%d]", nb.Hash, nb.Difficulty, nonce+1)
			return nb, nil
		}

		if nonce%1_000_000 == 0 && nonce > 0 {
			evHandler("database: MineBlock: MINING: attempts[%d]", nonce)
		}

		if nonce == math.MaxUint64 {
			return Block{}, ErrNonceOverflow
		}
	}
}

// AdjustDifficulty returns the difficulty for a block mined at timestamp on
// top of lastBlock. Blocks arriving faster than the mine rate raise the
// difficulty by one, anything else lowers it by one with a floor of one.
func AdjustDifficulty(lastBlock Block, timestamp int64, mineRate int64) uint {
	difficulty := lastBlock.Difficulty
	if difficulty < 1 {
		return 1
	}

	if timestamp-lastBlock.Timestamp < mineRate {
		return difficulty + 1
	}

	if difficulty == 1 {
		return 1
	}

	return difficulty - 1
}

// ComputeHash returns the hash over the block's fields, excluding the hash.
func (b Block) ComputeHash() string {
	return signature.Hash(b.Timestamp, b.LastHash, b.Data, b.Nonce, b.Difficulty)
}

// IsGenesis reports whether the block matches the genesis block.
func (b Block) IsGenesis(gen genesis.Genesis) bool {
	g := Genesis(gen)

	return b.Timestamp == g.Timestamp &&
		b.LastHash == g.LastHash &&
		b.Hash == g.Hash &&
		b.Nonce == g.Nonce &&
		b.Difficulty == g.Difficulty &&
		len(b.Data) == 0
}

// =============================================================================

// IsHashSolved checks the hex hash has at least difficulty leading zero bits.
func IsHashSolved(difficulty uint, hash string) bool {
	data, err := hex.DecodeString(hash)
	if err != nil {
		return false
	}

	var zeros uint
	for _, b := range data {
		if b != 0 {
			zeros += uint(bits.LeadingZeros8(b))
			break
		}
		zeros += 8
	}

	return zeros >= difficulty
}
