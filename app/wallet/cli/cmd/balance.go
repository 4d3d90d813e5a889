package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

type walletInfo struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Balance uint64 `json:"balance"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	address := signature.PublicKeyToAddress(privateKey.PublicKey)
	fmt.Println("For Address:", address)

	var wi walletInfo
	if err := call(http.MethodGet, "/balance/"+address, nil, &wi); err != nil {
		log.Fatal(err)
	}

	fmt.Println(wi.Balance)
}
