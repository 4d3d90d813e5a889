package public

import (
	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
)

// mineRequest is the body of a request to mine a block holding raw data.
type mineRequest struct {
	Data []database.Tx `json:"data"`
}

// transactRequest is the body of a request to pay a recipient from the
// node's wallet.
type transactRequest struct {
	Recipient string `json:"recipient" validate:"required"`
	Amount    uint64 `json:"amount" validate:"required,gt=0"`
}

type transactResponse struct {
	Type        string      `json:"type"`
	Transaction database.Tx `json:"transaction"`
}

type chainLength struct {
	Length     int    `json:"length"`
	LatestHash string `json:"latest_hash"`
}

type walletInfo struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Balance uint64 `json:"balance"`
}
