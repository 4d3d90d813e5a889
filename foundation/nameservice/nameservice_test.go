package nameservice_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/signature"
	"github.com/ardanlabs/cryptochain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
)

func Test_Lookup(t *testing.T) {
	root := t.TempDir()

	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}

	if err := crypto.SaveECDSA(filepath.Join(root, "kennedy.ecdsa"), pk); err != nil {
		t.Fatalf("Should be able to save the key: %s", err)
	}
	if err := os.WriteFile(filepath.Join(root, "README"), []byte("not a key"), 0600); err != nil {
		t.Fatalf("Should be able to write a file: %s", err)
	}

	ns, err := nameservice.New(root)
	if err != nil {
		t.Fatalf("Should be able to construct the name service: %s", err)
	}

	address := signature.PublicKeyToAddress(pk.PublicKey)
	if name := ns.Lookup(address); name != "kennedy" {
		t.Fatalf("Should find the name of the address, got %s.", name)
	}

	if name := ns.Lookup("0xunknown"); name != "0xunknown" {
		t.Fatalf("Should return the address when there is no name, got %s.", name)
	}

	if len(ns.Copy()) != 1 {
		t.Fatalf("Should only load the key files.")
	}
}
