// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Hash returns the SHA-256 hex digest over the provided fields. Each field is
// stringified as JSON and the strings are sorted before they are joined, so
// the order the fields are passed in does not change the result.
func Hash(fields ...any) string {
	strs := make([]string, len(fields))
	for i, field := range fields {
		data, err := json.Marshal(field)
		if err != nil {
			data = []byte(fmt.Sprintf("%q", fmt.Sprint(field)))
		}
		strs[i] = string(data)
	}
	sort.Strings(strs)

	hash := sha256.Sum256([]byte(strings.Join(strs, " ")))
	return hex.EncodeToString(hash[:])
}

// =============================================================================

// PublicKeyToAddress converts the public key into the address used on the
// chain. The address is the hex encoded uncompressed public key so any node
// can verify a signature against it without recovering the key.
func PublicKeyToAddress(pk ecdsa.PublicKey) string {
	return hexutil.Encode(crypto.FromECDSAPub(&pk))
}

// Sign uses the specified private key to sign the value and returns the
// signature in its hex form.
func Sign(value any, privateKey *ecdsa.PrivateKey) (string, error) {

	// Prepare the data for signing.
	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return "", err
	}

	return hexutil.Encode(sig), nil
}

// VerifySignature reports whether the signature was produced over the value
// by the private key belonging to the address.
func VerifySignature(address string, value any, sig string) bool {
	publicKey, err := hexutil.Decode(address)
	if err != nil {
		return false
	}

	sigBytes, err := hexutil.Decode(sig)
	if err != nil || len(sigBytes) != crypto.SignatureLength {
		return false
	}

	data, err := stamp(value)
	if err != nil {
		return false
	}

	// The recovery id is not needed since the public key is known.
	return crypto.VerifySignature(publicKey, data, sigBytes[:crypto.RecoveryIDOffset])
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this data with
// the Ardan stamp embedded into the final hash.
func stamp(value any) ([]byte, error) {

	// Marshal the data.
	v, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	// Hash the data into a 32 byte array. This will provide
	// a data length consistency with all data.
	txHash := crypto.Keccak256(v)

	// This stamp is used so signatures we produce when signing data
	// are always unique to the Ardan blockchain.
	stamp := []byte("\x19Ardan Signed Message:\n32")

	// Hash the stamp and txHash together in a final 32 byte array
	// that represents the data.
	return crypto.Keccak256(stamp, txHash), nil
}
