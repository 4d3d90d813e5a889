package database

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// RewardAddress is the pseudo address placed in the input of every reward
// transaction so validators can recognize them.
const RewardAddress = "*authorized-reward*"

// rewardKeyHex is the well known system key that signs reward transactions.
// Every node carries the same key so rewards can be verified anywhere.
const rewardKeyHex = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"

var (
	rewardKey    *ecdsa.PrivateKey
	rewardSigner string
)

func init() {
	pk, err := crypto.HexToECDSA(rewardKeyHex)
	if err != nil {
		panic(fmt.Sprintf("loading reward key: %s", err))
	}
	rewardKey = pk
	rewardSigner = signature.PublicKeyToAddress(pk.PublicKey)
}

// Set of error variables for transaction processing.
var (
	ErrInsufficientFunds  = errors.New("amount exceeds balance")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// =============================================================================

// Input identifies the sender of a transaction and carries the signature
// over the output map.
type Input struct {
	Timestamp int64  `json:"timestamp"` // Time in milliseconds the input was signed.
	Amount    uint64 `json:"amount"`    // Balance of the sender when the input was signed.
	Address   string `json:"address"`   // Public key of the sender.
	Signature string `json:"signature"` // Signature over the output map.
}

// Tx is a signed value transfer from one address to one or more recipients.
// The sender receives the change back through its own entry in the output map.
type Tx struct {
	ID        string            `json:"id"`
	OutputMap map[string]uint64 `json:"outputMap"`
	Input     Input             `json:"input"`
}

// NewTx constructs a transaction moving amount from the owner of the private
// key to the recipient. The balance is the sender's balance as computed
// from the chain.
func NewTx(privateKey *ecdsa.PrivateKey, balance uint64, recipient string, amount uint64) (Tx, error) {
	sender := signature.PublicKeyToAddress(privateKey.PublicKey)

	if recipient == "" {
		return Tx{}, errors.New("recipient is required")
	}

	if recipient == sender {
		return Tx{}, fmt.Errorf("transaction invalid, sending money to yourself, from %s", sender)
	}

	if amount > balance {
		return Tx{}, fmt.Errorf("%w: balance %d, amount %d", ErrInsufficientFunds, balance, amount)
	}

	outputMap := map[string]uint64{
		recipient: amount,
		sender:    balance - amount,
	}

	input, err := newInput(privateKey, sender, balance, outputMap)
	if err != nil {
		return Tx{}, err
	}

	tx := Tx{
		ID:        uuid.NewString(),
		OutputMap: outputMap,
		Input:     input,
	}

	return tx, nil
}

// NewRewardTx constructs the transaction that pays the miner of a block.
func NewRewardTx(minerAddress string, reward uint64) (Tx, error) {
	outputMap := map[string]uint64{
		minerAddress: reward,
	}

	input, err := newInput(rewardKey, RewardAddress, reward, outputMap)
	if err != nil {
		return Tx{}, err
	}

	tx := Tx{
		ID:        uuid.NewString(),
		OutputMap: outputMap,
		Input:     input,
	}

	return tx, nil
}

// Update produces a new signed transaction under the same id that also pays
// amount to the recipient out of the sender's change. The original
// transaction is left untouched.
func (tx Tx) Update(privateKey *ecdsa.PrivateKey, recipient string, amount uint64) (Tx, error) {
	sender := signature.PublicKeyToAddress(privateKey.PublicKey)

	if sender != tx.Input.Address {
		return Tx{}, errors.New("only the sender can update a transaction")
	}

	if recipient == sender {
		return Tx{}, fmt.Errorf("transaction invalid, sending money to yourself, from %s", sender)
	}

	change := tx.OutputMap[sender]
	if amount > change {
		return Tx{}, fmt.Errorf("%w: balance %d, amount %d", ErrInsufficientFunds, change, amount)
	}

	outputMap := make(map[string]uint64, len(tx.OutputMap)+1)
	for address, value := range tx.OutputMap {
		outputMap[address] = value
	}
	outputMap[recipient] += amount
	outputMap[sender] = change - amount

	input, err := newInput(privateKey, sender, tx.Input.Amount, outputMap)
	if err != nil {
		return Tx{}, err
	}

	updated := Tx{
		ID:        tx.ID,
		OutputMap: outputMap,
		Input:     input,
	}

	return updated, nil
}

// IsReward reports whether this is a mining reward transaction.
func (tx Tx) IsReward() bool {
	return tx.Input.Address == RewardAddress
}

// Validate checks the outputs add up to the input amount and the signature
// over the outputs belongs to the sender.
func (tx Tx) Validate() error {
	total, err := tx.outputTotal()
	if err != nil {
		return err
	}

	if total != tx.Input.Amount {
		return fmt.Errorf("%w: %s: outputs total %d, input amount %d", ErrInvalidTransaction, tx.ID, total, tx.Input.Amount)
	}

	signer := tx.Input.Address
	if tx.IsReward() {
		signer = rewardSigner
	}

	if !signature.VerifySignature(signer, tx.OutputMap, tx.Input.Signature) {
		return fmt.Errorf("%w: %s: invalid signature", ErrInvalidTransaction, tx.ID)
	}

	return nil
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	from := tx.Input.Address
	if len(from) > 12 {
		from = from[:12]
	}

	return fmt.Sprintf("%s:%s", from, tx.ID)
}

// =============================================================================

// outputTotal sums the outputs, guarding against overflow.
func (tx Tx) outputTotal() (uint64, error) {
	var total uint64
	for _, value := range tx.OutputMap {
		if value > math.MaxUint64-total {
			return 0, fmt.Errorf("%w: %s: outputs overflow", ErrInvalidTransaction, tx.ID)
		}
		total += value
	}

	return total, nil
}

// newInput signs the output map and constructs the input.
func newInput(privateKey *ecdsa.PrivateKey, address string, amount uint64, outputMap map[string]uint64) (Input, error) {
	sig, err := signature.Sign(outputMap, privateKey)
	if err != nil {
		return Input{}, fmt.Errorf("signing outputs: %w", err)
	}

	input := Input{
		Timestamp: time.Now().UnixMilli(),
		Amount:    amount,
		Address:   address,
		Signature: sig,
	}

	return input, nil
}
