// Package handlers binds the node APIs to their muxes.
package handlers

import (
	"context"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/ardanlabs/cryptochain/app/services/node/handlers/debug/checkgrp"
	v1 "github.com/ardanlabs/cryptochain/app/services/node/handlers/v1"
	"github.com/ardanlabs/cryptochain/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/cryptochain/business/web/v1/mid"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/state"
	"github.com/ardanlabs/cryptochain/foundation/events"
	"github.com/ardanlabs/cryptochain/foundation/nameservice"
	"github.com/ardanlabs/cryptochain/foundation/web"
	"go.uber.org/zap"
)

// MuxConfig holds what the node muxes need to serve requests.
type MuxConfig struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	State    *state.State
	NS       *nameservice.NameService
	Evts     *events.Events
	Gossip   private.Receiver
}

// PublicMux serves the wallet facing api: chain and pool reads, transaction
// submission, mining triggers and the block event stream. Browsers call it
// from any origin.
func PublicMux(cfg MuxConfig) http.Handler {
	app := newApp(cfg, mid.Cors("*"))

	preflight := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", preflight, mid.Cors("*"))

	v1.PublicRoutes(app, v1.Config{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		Evts:  cfg.Evts,
	})

	return app
}

// PrivateMux serves the node to node api used for peer discovery and the
// gossip of chains and transactions.
func PrivateMux(cfg MuxConfig) http.Handler {
	app := newApp(cfg)

	v1.PrivateRoutes(app, v1.Config{
		Log:    cfg.Log,
		State:  cfg.State,
		Gossip: cfg.Gossip,
	})

	return app
}

// DebugMux serves profiling, expvar metrics and the readiness and liveness
// checks on its own mux so nothing registered on http.DefaultServeMux leaks
// onto the debug port.
func DebugMux(build string, log *zap.SugaredLogger, ready func() bool) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	cgh := checkgrp.Handlers{
		Build: build,
		Log:   log,
		Ready: ready,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	return mux
}

// =============================================================================

// newApp builds a web.App with the middleware every node api shares. Extra
// middleware runs between the shared set and the panic recovery.
func newApp(cfg MuxConfig, mw ...web.Middleware) *web.App {
	shared := []web.Middleware{
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(),
	}
	shared = append(shared, mw...)
	shared = append(shared, mid.Panics())

	return web.NewApp(cfg.Shutdown, shared...)
}
