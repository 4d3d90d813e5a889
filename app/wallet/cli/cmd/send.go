package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to    string
	value uint64
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address of the recipient.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
}

func sendRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	// The input amount of the transaction has to match the balance the
	// node calculates from its chain.
	var wi walletInfo
	address := signature.PublicKeyToAddress(privateKey.PublicKey)
	if err := call(http.MethodGet, "/balance/"+address, nil, &wi); err != nil {
		log.Fatal(err)
	}

	tx, err := database.NewTx(privateKey, wi.Balance, to, value)
	if err != nil {
		log.Fatal(err)
	}

	if err := call(http.MethodPost, "/tx/submit", tx, nil); err != nil {
		log.Fatal(err)
	}

	fmt.Println(tx.ID)
}
