package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func hubClient(h *ReloadHub) *reloadClient {
	c := &reloadClient{ch: make(chan string, 8), done: make(chan struct{})}
	h.mu.Lock()
	c.id = h.nextID
	h.nextID++
	h.clients[c.id] = c
	h.mu.Unlock()
	return c
}

func TestReloadHub_BroadcastReachesClients(t *testing.T) {
	h := NewReloadHub(nil)
	c := hubClient(h)

	h.Broadcast("build-1")

	select {
	case got := <-c.ch:
		require.Equal(t, "build-1", got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestReloadHub_DuplicateBuildIDNotRebroadcast(t *testing.T) {
	h := NewReloadHub(nil)
	c := hubClient(h)

	h.Broadcast("build-1")
	<-c.ch
	h.Broadcast("build-1")

	select {
	case <-c.ch:
		t.Fatal("duplicate build id should not broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReloadHub_EmptyBuildIDIgnored(t *testing.T) {
	h := NewReloadHub(nil)
	c := hubClient(h)

	h.Broadcast("")

	select {
	case <-c.ch:
		t.Fatal("empty build id should not broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReloadHub_SlowClientDropped(t *testing.T) {
	h := NewReloadHub(nil)
	c := hubClient(h)

	// Fill the client's buffer so the next broadcast cannot be delivered.
	for i := 0; i < cap(c.ch); i++ {
		c.ch <- "fill"
	}
	h.Broadcast("build-overflow")

	h.mu.RLock()
	defer h.mu.RUnlock()
	require.Empty(t, h.clients)
}

func TestReloadHub_ShutdownClosesClients(t *testing.T) {
	h := NewReloadHub(nil)
	c := hubClient(h)

	h.Shutdown()

	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("client not closed on shutdown")
	}

	// Broadcasts after shutdown are no-ops.
	h.Broadcast("build-after")
}
