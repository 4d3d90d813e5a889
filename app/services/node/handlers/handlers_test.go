package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/cryptochain/app/services/node/handlers"
	v1 "github.com/ardanlabs/cryptochain/business/web/v1"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/database"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/gossip"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/peer"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/state"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/wallet"
	"github.com/ardanlabs/cryptochain/foundation/events"
	"github.com/ardanlabs/cryptochain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const minerHexKey = "aed31b6b5a341af8f27e66fb0b7633cf20fc27049e3eb7f6f623a4655b719ebb"

type node struct {
	public  http.Handler
	private http.Handler
	state   *state.State
	gen     genesis.Genesis
}

func newNode(t *testing.T) node {
	gen := genesis.Default()

	pk, err := crypto.HexToECDSA(minerHexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	ev := func(v string, args ...any) {}

	knownPeers := peer.NewPeerSet()
	broker := gossip.NewPeerBroker("localhost:9080", knownPeers, ev)
	t.Cleanup(broker.Shutdown)

	st, err := state.New(state.Config{
		Genesis:    gen,
		Wallet:     wallet.FromPrivateKey(gen, pk),
		Host:       "localhost:9080",
		KnownPeers: knownPeers,
		Broker:     broker,
		EvHandler:  ev,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %s", err)
	}

	ns, err := nameservice.New(t.TempDir())
	if err != nil {
		t.Fatalf("Should be able to construct the name service: %s", err)
	}

	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		NS:       ns,
		Evts:     events.New(),
		Gossip:   broker,
	}

	return node{
		public:  handlers.PublicMux(cfg),
		private: handlers.PrivateMux(cfg),
		state:   st,
		gen:     gen,
	}
}

func call(h http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

// =============================================================================

func Test_PublicAPI(t *testing.T) {
	n := newNode(t)

	t.Log("Given the need to work with the public api.")
	{
		w := call(n.public, http.MethodGet, "/v1/chain", "")
		var blocks []database.Block
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &blocks) != nil || len(blocks) != 1 {
			t.Fatalf("\t%s\tShould get back the genesis chain: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould get back the genesis chain.", success)

		w = call(n.public, http.MethodPost, "/v1/transact", `{"recipient":"foo-recipient","amount":50}`)
		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould be able to transact: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould be able to transact.", success)

		w = call(n.public, http.MethodPost, "/v1/transact", `{"recipient":"foo-recipient","amount":999999999999}`)
		var er v1.ErrorResponse
		if w.Code != http.StatusBadRequest || json.Unmarshal(w.Body.Bytes(), &er) != nil || er.Error == "" {
			t.Fatalf("\t%s\tShould reject an amount above the balance: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould reject an amount above the balance.", success)

		w = call(n.public, http.MethodPost, "/v1/transact", `{"amount":10}`)
		er = v1.ErrorResponse{}
		if w.Code != http.StatusBadRequest || json.Unmarshal(w.Body.Bytes(), &er) != nil || er.Fields["recipient"] == "" {
			t.Fatalf("\t%s\tShould report the missing recipient: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould report the missing recipient.", success)

		w = call(n.public, http.MethodGet, "/v1/pool", "")
		var pool map[string]database.Tx
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &pool) != nil || len(pool) != 1 {
			t.Fatalf("\t%s\tShould hold the transaction in the pool: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould hold the transaction in the pool.", success)

		w = call(n.public, http.MethodPost, "/v1/mine-pending", "")
		blocks = nil
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &blocks) != nil || len(blocks) != 2 {
			t.Fatalf("\t%s\tShould mine the pending transactions: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould mine the pending transactions.", success)

		w = call(n.public, http.MethodGet, "/v1/wallet-info", "")
		var info struct {
			Address string `json:"address"`
			Balance uint64 `json:"balance"`
		}
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &info) != nil {
			t.Fatalf("\t%s\tShould get back the wallet info: %d %s", failed, w.Code, w.Body.String())
		}
		exp := n.gen.StartingBalance - 50 + n.gen.MiningReward
		if info.Address != n.state.RetrieveWalletAddress() || info.Balance != exp {
			t.Fatalf("\t%s\tShould calculate the wallet balance: got %d, exp %d", failed, info.Balance, exp)
		}
		t.Logf("\t%s\tShould calculate the wallet balance.", success)

		w = call(n.public, http.MethodPost, "/v1/mine", `{"data":[]}`)
		blocks = nil
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &blocks) != nil || len(blocks) != 3 {
			t.Fatalf("\t%s\tShould mine a block of raw data: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould mine a block of raw data.", success)

		client, err := wallet.New(n.gen)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a wallet: %v", failed, err)
		}
		signed, err := client.CreateTransaction("foo-recipient", 30, n.state.RetrieveChain())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to create a transaction: %v", failed, err)
		}
		data, err := json.Marshal(signed)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to marshal the transaction: %v", failed, err)
		}

		w = call(n.public, http.MethodPost, "/v1/tx/submit", string(data))
		if w.Code != http.StatusOK || n.state.QueryMempoolLength() != 1 {
			t.Fatalf("\t%s\tShould accept a signed transaction: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould accept a signed transaction.", success)

		w = call(n.public, http.MethodGet, "/v1/balance/"+client.Address(), "")
		info.Balance = 0
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &info) != nil || info.Balance != n.gen.StartingBalance {
			t.Fatalf("\t%s\tShould get back the balance of the address: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould get back the balance of the address.", success)

		w = call(n.public, http.MethodGet, "/v1/known-addresses", "")
		var known []struct {
			Address string `json:"address"`
		}
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &known) != nil || len(known) != 2 {
			t.Fatalf("\t%s\tShould list the addresses on the chain: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould list the addresses on the chain.", success)
	}
}

func Test_PrivateAPI(t *testing.T) {
	n := newNode(t)

	t.Log("Given the need to work with the private api.")
	{
		chain := database.NewChain(n.gen)
		if _, err := chain.AddBlock(nil, func(string, ...any) {}); err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}

		data, err := json.Marshal(chain.Blocks())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to marshal the chain: %v", failed, err)
		}
		env, err := json.Marshal(gossip.Envelope{Channel: gossip.ChannelChain, Message: data})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to marshal the envelope: %v", failed, err)
		}

		w := call(n.private, http.MethodPost, "/v1/node/gossip", string(env))
		if w.Code != http.StatusNoContent || n.state.RetrieveChainLength() != 2 {
			t.Fatalf("\t%s\tShould adopt a longer chain: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould adopt a longer chain.", success)

		w = call(n.private, http.MethodPost, "/v1/node/gossip", string(env))
		if w.Code != http.StatusNotAcceptable {
			t.Fatalf("\t%s\tShould refuse a chain that is not longer: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould refuse a chain that is not longer.", success)

		w = call(n.private, http.MethodPost, "/v1/node/gossip", `{"channel":"BLOCK","message":"{}"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould reject an unknown channel: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould reject an unknown channel.", success)

		w = call(n.private, http.MethodPost, "/v1/node/peers", `{"host":"localhost:9180"}`)
		if w.Code != http.StatusNoContent {
			t.Fatalf("\t%s\tShould be able to add a peer: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould be able to add a peer.", success)

		w = call(n.private, http.MethodGet, "/v1/node/status", "")
		var status peer.PeerStatus
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &status) != nil {
			t.Fatalf("\t%s\tShould get back the status: %d %s", failed, w.Code, w.Body.String())
		}
		if status.Length != 2 || len(status.KnownPeers) != 1 || status.KnownPeers[0].Host != "localhost:9180" {
			t.Fatalf("\t%s\tShould report the chain and the peers: %+v", failed, status)
		}
		t.Logf("\t%s\tShould report the chain and the peers.", success)
	}
}

func Test_Muxes(t *testing.T) {
	n := newNode(t)

	t.Log("Given the need to route requests to the right mux.")
	{
		t.Logf("\tTest 0:\tWhen a browser sends a preflight request.")
		{
			w := call(n.public, http.MethodOptions, "/preflight", "")
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Fatalf("\t%s\tTest 0:\tShould allow any origin on the public api: got %q", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould allow any origin on the public api.", success)

			w = call(n.private, http.MethodOptions, "/preflight", "")
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
				t.Fatalf("\t%s\tTest 0:\tShould not allow cross origin calls on the private api: got %q", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould not allow cross origin calls on the private api.", success)
		}

		t.Logf("\tTest 1:\tWhen the debug checks are called.")
		{
			var ready bool
			debug := handlers.DebugMux("test", zap.NewNop().Sugar(), func() bool { return ready })

			if w := call(debug, http.MethodGet, "/debug/readiness", ""); w.Code != http.StatusServiceUnavailable {
				t.Fatalf("\t%s\tTest 1:\tShould not be ready while syncing: got %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 1:\tShould not be ready while syncing.", success)

			ready = true
			if w := call(debug, http.MethodGet, "/debug/readiness", ""); w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 1:\tShould be ready once synced: got %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 1:\tShould be ready once synced.", success)

			if w := call(debug, http.MethodGet, "/debug/liveness", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"build":"test"`) {
				t.Fatalf("\t%s\tTest 1:\tShould report the build when alive: %s", failed, w.Body.String())
			}
			t.Logf("\t%s\tTest 1:\tShould report the build when alive.", success)

			if w := call(debug, http.MethodGet, "/debug/vars", ""); w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 1:\tShould serve the expvar metrics: got %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 1:\tShould serve the expvar metrics.", success)
		}
	}
}
