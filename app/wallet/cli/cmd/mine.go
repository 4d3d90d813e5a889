package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask the node to mine the pending transactions",
	Run:   mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
}

func mineRun(cmd *cobra.Command, args []string) {
	var blocks []database.Block
	if err := call(http.MethodPost, "/mine-pending", nil, &blocks); err != nil {
		log.Fatal(err)
	}

	if len(blocks) == 0 {
		return
	}

	latest := blocks[len(blocks)-1]
	fmt.Printf("length: %d, hash: %s, txs: %d\n", len(blocks), latest.Hash, len(latest.Data))
}
