package events_test

import (
	"testing"

	"github.com/ardanlabs/cryptochain/foundation/events"
)

func Test_Events(t *testing.T) {
	evts := events.New()

	ch1 := evts.Acquire("viewer1")
	ch2 := evts.Acquire("viewer2")

	if evts.Count() != 2 {
		t.Fatalf("Should register two viewers, got %d.", evts.Count())
	}

	evts.Send("state: MineTransactions: MINING: started")
	evts.Send(`viewer: block: {"hash":"foo"}`)

	for _, ch := range []<-chan string{ch1, ch2} {
		select {
		case msg := <-ch:
			if msg != `block: {"hash":"foo"}` {
				t.Fatalf("Should receive the viewer message without the prefix, got %q.", msg)
			}
		default:
			t.Fatalf("Should receive the viewer message.")
		}

		select {
		case msg := <-ch:
			t.Fatalf("Should not receive other messages, got %q.", msg)
		default:
		}
	}

	if err := evts.Release("viewer1"); err != nil {
		t.Fatalf("Should be able to release a viewer: %s", err)
	}
	if err := evts.Release("viewer1"); err == nil {
		t.Fatalf("Should not be able to release a viewer twice.")
	}

	evts.Shutdown()
	if _, open := <-ch2; open {
		t.Fatalf("Should close the channels on shutdown.")
	}
}
