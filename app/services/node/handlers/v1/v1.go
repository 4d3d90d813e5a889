// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/cryptochain/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/cryptochain/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/state"
	"github.com/ardanlabs/cryptochain/foundation/events"
	"github.com/ardanlabs/cryptochain/foundation/nameservice"
	"github.com/ardanlabs/cryptochain/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	State  *state.State
	NS     *nameservice.NameService
	Evts   *events.Events
	Gossip private.Receiver
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/chain", pbl.Chain)
	app.Handle(http.MethodGet, version, "/chain/length", pbl.ChainLength)
	app.Handle(http.MethodPost, version, "/mine", pbl.Mine)
	app.Handle(http.MethodPost, version, "/mine-pending", pbl.MinePending)
	app.Handle(http.MethodPost, version, "/transact", pbl.Transact)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
	app.Handle(http.MethodGet, version, "/pool", pbl.Pool)
	app.Handle(http.MethodGet, version, "/wallet-info", pbl.WalletInfo)
	app.Handle(http.MethodGet, version, "/known-addresses", pbl.KnownAddresses)
	app.Handle(http.MethodGet, version, "/balance/:address", pbl.Balance)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:      cfg.Log,
		State:    cfg.State,
		Receiver: cfg.Gossip,
	}

	app.Handle(http.MethodPost, version, "/node/gossip", prv.Gossip)
	app.Handle(http.MethodPost, version, "/node/peers", prv.SubmitPeer)
	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
}
