// Package wallet provides the signing identity of a node along with the view
// of its balance on the chain.
package wallet

import (
	"crypto/ecdsa"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet holds a key pair. The balance is never stored, it is always
// calculated from a chain.
type Wallet struct {
	privateKey      *ecdsa.PrivateKey
	address         string
	startingBalance uint64
}

// New constructs a wallet with a newly generated key pair.
func New(gen genesis.Genesis) (*Wallet, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}

	return FromPrivateKey(gen, privateKey), nil
}

// FromPrivateKey constructs a wallet around an existing private key.
func FromPrivateKey(gen genesis.Genesis, privateKey *ecdsa.PrivateKey) *Wallet {
	return &Wallet{
		privateKey:      privateKey,
		address:         signature.PublicKeyToAddress(privateKey.PublicKey),
		startingBalance: gen.StartingBalance,
	}
}

// Load reads the private key from the specified file.
func Load(gen genesis.Genesis, path string) (*Wallet, error) {
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, err
	}

	return FromPrivateKey(gen, privateKey), nil
}

// Save writes the private key to the specified file.
func (w *Wallet) Save(path string) error {
	return crypto.SaveECDSA(path, w.privateKey)
}

// Address returns the public key of the wallet in its hex form.
func (w *Wallet) Address() string {
	return w.address
}

// Sign signs the value with the wallet's private key.
func (w *Wallet) Sign(value any) (string, error) {
	return signature.Sign(value, w.privateKey)
}

// Balance calculates the balance of the wallet from the blocks.
func (w *Wallet) Balance(blocks []database.Block) uint64 {
	return database.CalculateBalance(blocks, w.address, w.startingBalance)
}

// CreateTransaction constructs a transaction paying amount to the recipient.
// The balance is calculated from the blocks, a nil set of blocks means the
// wallet has only its starting balance.
func (w *Wallet) CreateTransaction(recipient string, amount uint64, blocks []database.Block) (database.Tx, error) {
	return database.NewTx(w.privateKey, w.Balance(blocks), recipient, amount)
}

// UpdateTransaction adds another recipient to a pending transaction the
// wallet created.
func (w *Wallet) UpdateTransaction(tx database.Tx, recipient string, amount uint64) (database.Tx, error) {
	return tx.Update(w.privateKey, recipient, amount)
}
