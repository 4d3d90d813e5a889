package gossip_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/gossip"
	"github.com/ardanlabs/cryptochain/foundation/blockchain/peer"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

type message struct {
	Value string `json:"value"`
}

func Test_MemoryBus(t *testing.T) {
	t.Log("Given the need to gossip between nodes in the same process.")
	{
		bus := gossip.NewMemoryBus()

		var warnings int
		ev := func(v string, args ...any) {
			if strings.Contains(v, "WARNING") {
				warnings++
			}
		}

		node1 := bus.Join(ev)
		node2 := bus.Join(ev)
		node3 := bus.Join(ev)

		var got1, got2 []string
		node1.Subscribe(gossip.ChannelChain, func(msg json.RawMessage) error {
			var m message
			if err := json.Unmarshal(msg, &m); err != nil {
				return err
			}
			got1 = append(got1, m.Value)
			return nil
		})
		node2.Subscribe(gossip.ChannelChain, func(msg json.RawMessage) error {
			var m message
			if err := json.Unmarshal(msg, &m); err != nil {
				return err
			}
			got2 = append(got2, m.Value)
			return nil
		})
		node3.Subscribe(gossip.ChannelChain, func(msg json.RawMessage) error {
			return errors.New("rejected")
		})

		if err := node1.Publish(gossip.ChannelChain, message{Value: "foo"}); err != nil {
			t.Fatalf("\t%s\tShould be able to publish: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to publish.", success)

		if len(got1) != 0 {
			t.Fatalf("\t%s\tShould not deliver a message to the publisher.", failed)
		}
		t.Logf("\t%s\tShould not deliver a message to the publisher.", success)

		if len(got2) != 1 || got2[0] != "foo" {
			t.Fatalf("\t%s\tShould deliver the message to the other nodes: %v", failed, got2)
		}
		t.Logf("\t%s\tShould deliver the message to the other nodes.", success)

		if warnings != 1 {
			t.Fatalf("\t%s\tShould log the subscriber that failed: got %d", failed, warnings)
		}
		t.Logf("\t%s\tShould log the subscriber that failed.", success)

		if err := node2.Publish(gossip.ChannelTransaction, message{Value: "bar"}); err != nil {
			t.Fatalf("\t%s\tShould be able to publish on a channel without subscribers: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to publish on a channel without subscribers.", success)
	}
}

func Test_PeerBroker(t *testing.T) {
	received := make(chan gossip.Envelope, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/node/gossip" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var env gossip.Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received <- env

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	knownPeers := peer.NewPeerSet()
	knownPeers.Add(peer.New(srv.URL))
	knownPeers.Add(peer.New("localhost:1"))

	pb := gossip.NewPeerBroker("localhost:9080", knownPeers, func(string, ...any) {})
	defer pb.Shutdown()

	if err := pb.Publish(gossip.ChannelTransaction, message{Value: "foo"}); err != nil {
		t.Fatalf("Should be able to publish: %s", err)
	}

	select {
	case env := <-received:
		if env.Channel != gossip.ChannelTransaction {
			t.Fatalf("Should receive the channel, got %s.", env.Channel)
		}

		var m message
		if err := json.Unmarshal(env.Message, &m); err != nil || m.Value != "foo" {
			t.Fatalf("Should receive the message, got %s.", env.Message)
		}

	case <-time.After(5 * time.Second):
		t.Fatalf("Should deliver the message to the peer.")
	}

	var got string
	pb.Subscribe(gossip.ChannelChain, func(msg json.RawMessage) error {
		got = string(msg)
		return nil
	})

	if err := pb.Deliver(gossip.Envelope{Channel: gossip.ChannelChain, Message: json.RawMessage(`"bar"`)}); err != nil {
		t.Fatalf("Should be able to deliver a message: %s", err)
	}
	if got != `"bar"` {
		t.Fatalf("Should hand the message to the subscriber, got %s.", got)
	}

	if err := pb.Deliver(gossip.Envelope{Channel: gossip.ChannelTransaction, Message: json.RawMessage(`"bar"`)}); err == nil {
		t.Fatalf("Should fail to deliver a message without subscribers.")
	}
}
