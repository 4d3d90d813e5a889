// This program performs administrative tasks against the chain of a node.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/cryptochain/app/tooling/admin/commands"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/gossip"
	"github.com/ardanlabs/cryptochain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args        conf.Args
		NodeURL     string        `conf:"default:http://localhost:8080"`
		GenesisPath string        `conf:"default:zblock/genesis.json"`
		Timeout     time.Duration `conf:"default:30s"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "cryptochain admin: bals [address] | trans [address] | validate",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen, err := genesis.Load(cfg.GenesisPath)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	client := http.Client{Timeout: cfg.Timeout}

	var blocks []database.Block
	url := fmt.Sprintf("%s/v1/chain", cfg.NodeURL)
	if err := gossip.Send(&client, http.MethodGet, url, nil, &blocks); err != nil {
		return fmt.Errorf("retrieving chain: %w", err)
	}
	log.Infow("admin", "status", "chain retrieved", "node", cfg.NodeURL, "length", len(blocks))

	return processCommands(cfg.Args, blocks, gen)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, blocks []database.Block, gen genesis.Genesis) error {
	switch args.Num(0) {
	case "bals":
		if err := commands.Balances(args, blocks, gen); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "trans":
		if err := commands.Transactions(args, blocks); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}
	case "validate":
		if err := commands.Validate(blocks, gen); err != nil {
			return fmt.Errorf("validating chain: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args.Num(0))
	}

	return nil
}
