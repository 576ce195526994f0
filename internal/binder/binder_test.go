// +build !windows

package binder

import (
	"errors"
	"net"
	"testing"

	"github.com/wlmux/wlmux/internal/metrics"
	"github.com/wlmux/wlmux/internal/proto"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConnIDIncrements(t *testing.T) {
	b := New(proto.NewRegistry(), nil, nil, nil, nil, nil)
	first := b.connID()
	second := b.connID()
	if second != first+1 {
		t.Fatalf("connID not monotonic: %d then %d", first, second)
	}
}

func TestBindDialFailureClosesClient(t *testing.T) {
	coll := metrics.NewCollector(prometheus.NewRegistry())
	bound := 0
	b := New(proto.NewRegistry(), coll, nil, func() (*net.UnixConn, error) {
		return nil, errors.New("no upstream")
	}, func(p *Pair) { bound++ }, nil)

	client, server := socketpair(t)
	defer server.Close()

	b.bind(client)

	if bound != 0 {
		t.Fatal("OnBound must not run when the upstream dial fails")
	}
	if b.Active() != 0 {
		t.Fatal("a failed dial must never register an active pair")
	}
}

func TestUnbindIsIdempotent(t *testing.T) {
	coll := metrics.NewCollector(prometheus.NewRegistry())
	b := New(proto.NewRegistry(), coll, nil, nil, nil, nil)

	client, _ := socketpair(t)
	server, _ := socketpair(t)
	pair := &Pair{
		ID:         "tok1",
		ClientConn: newTestEndpoint(client, false),
		ServerConn: newTestEndpoint(server, true),
	}
	b.mu.Lock()
	b.active["tok1"] = pair
	b.mu.Unlock()
	if b.Active() != 1 {
		t.Fatal("expected one active pair before Unbind")
	}

	b.Unbind(pair)
	if b.Active() != 0 {
		t.Fatal("expected zero active pairs after Unbind")
	}
	// second call must not panic or double-decrement metrics.
	b.Unbind(pair)
	if b.Active() != 0 {
		t.Fatal("Unbind must be idempotent")
	}
}
