package gossip

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ardanlabs/cryptochain/foundation/blockchain/peer"
)

// maxPendingMessages represents the max number of messages waiting to be
// sent before new messages are dropped.
const maxPendingMessages = 100

// gossipURL is the private endpoint of a node receiving gossip.
const gossipURL = "http://%s/v1/node/gossip"

// =============================================================================

// PeerBroker publishes messages by posting them to the gossip endpoint of
// every known peer. Messages are queued and sent by a single goroutine so
// publishing never blocks the caller.
type PeerBroker struct {
	host       string
	knownPeers *peer.PeerSet
	subs       *subscribers
	client     *http.Client
	evHandler  func(v string, args ...any)

	queue chan Envelope
	shut  chan struct{}
	wg    sync.WaitGroup
}

// NewPeerBroker constructs a broker for the node listening on host and
// starts the goroutine that delivers messages.
func NewPeerBroker(host string, knownPeers *peer.PeerSet, evHandler func(v string, args ...any)) *PeerBroker {
	pb := PeerBroker{
		host:       host,
		knownPeers: knownPeers,
		subs:       newSubscribers(),
		client:     &http.Client{Timeout: 5 * time.Second},
		evHandler:  evHandler,
		queue:      make(chan Envelope, maxPendingMessages),
		shut:       make(chan struct{}),
	}

	pb.wg.Add(1)
	go func() {
		defer pb.wg.Done()
		pb.sendOperations()
	}()

	return &pb
}

// Shutdown stops the delivery goroutine. Messages still queued are dropped.
func (pb *PeerBroker) Shutdown() {
	pb.evHandler("gossip: shutdown: started")
	defer pb.evHandler("gossip: shutdown: completed")

	close(pb.shut)
	pb.wg.Wait()
}

// Publish queues the payload for delivery to the known peers. When the
// queue is full the message is dropped and logged.
func (pb *PeerBroker) Publish(channel string, payload any) error {
	env, err := newEnvelope(channel, payload)
	if err != nil {
		return err
	}

	select {
	case pb.queue <- env:
		pb.evHandler("gossip: Publish: channel[%s]: queued", channel)
	default:
		pb.evHandler("gossip: Publish: channel[%s]: WARNING: queue full, message dropped", channel)
	}

	return nil
}

// Subscribe registers the handler for messages on the channel.
func (pb *PeerBroker) Subscribe(channel string, handler Handler) {
	pb.subs.add(channel, handler)
}

// Deliver hands an envelope received from a peer to the subscribers.
func (pb *PeerBroker) Deliver(env Envelope) error {
	pb.evHandler("gossip: Deliver: channel[%s]: size[%d]", env.Channel, len(env.Message))

	return pb.subs.dispatch(env)
}

// =============================================================================

// sendOperations sends queued messages until shutdown.
func (pb *PeerBroker) sendOperations() {
	pb.evHandler("gossip: sendOperations: G started")
	defer pb.evHandler("gossip: sendOperations: G completed")

	for {
		select {
		case env := <-pb.queue:
			pb.sendToPeers(env)
		case <-pb.shut:
			pb.evHandler("gossip: sendOperations: received shut signal")
			return
		}
	}
}

// sendToPeers posts the envelope to every known peer. Failures are logged
// and never retried.
func (pb *PeerBroker) sendToPeers(env Envelope) {
	for _, p := range pb.knownPeers.Copy(pb.host) {
		url := fmt.Sprintf(gossipURL, p.Host)
		if err := Send(pb.client, http.MethodPost, url, env, nil); err != nil {
			pb.evHandler("gossip: sendToPeers: peer[%s]: channel[%s]: WARNING: %s", p, env.Channel, err)
			continue
		}
		pb.evHandler("gossip: sendToPeers: peer[%s]: channel[%s]: sent", p, env.Channel)
	}
}

// =============================================================================

// Send is a helper function to send an HTTP request to a node.
func Send(client *http.Client, method string, url string, dataSend any, dataRecv any) error {
	var body io.Reader
	if dataSend != nil {
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return errors.New(string(msg))
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}
