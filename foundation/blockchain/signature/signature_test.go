package signature_test

import (
	"testing"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	pkHexKey    = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	otherHexKey = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	value := map[string]uint64{
		"0xrecipient": 50,
		"0xsender":    950,
	}

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}
	address := signature.PublicKeyToAddress(pk.PublicKey)

	sig, err := signature.Sign(value, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if !signature.VerifySignature(address, value, sig) {
		t.Fatalf("Should be able to verify the signature.")
	}

	other, err := crypto.HexToECDSA(otherHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}
	otherSig, err := signature.Sign(value, other)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if signature.VerifySignature(address, value, otherSig) {
		t.Fatalf("Should not verify a signature from a different key.")
	}

	tampered := map[string]uint64{
		"0xrecipient": 500,
		"0xsender":    500,
	}
	if signature.VerifySignature(address, tampered, sig) {
		t.Fatalf("Should not verify a signature over tampered data.")
	}

	if signature.VerifySignature("not-an-address", value, sig) {
		t.Fatalf("Should not verify against a malformed address.")
	}
}

func Test_Hash(t *testing.T) {
	h := signature.Hash("foo")
	if len(h) != 64 {
		t.Fatalf("Should get back a 64 character hex hash, got %d", len(h))
	}

	if h != signature.Hash("foo") {
		t.Fatalf("Should get back the same hash twice.")
	}

	if signature.Hash("one", "two", "three") != signature.Hash("three", "one", "two") {
		t.Fatalf("Should get back the same hash regardless of field order.")
	}

	if signature.Hash("foo") == signature.Hash("bar") {
		t.Fatalf("Should get back different hashes for different values.")
	}

	obj := struct{ Name string }{Name: "Bill"}
	if signature.Hash(obj, 1) != signature.Hash(1, obj) {
		t.Fatalf("Should get back the same hash for mixed field types.")
	}
}
