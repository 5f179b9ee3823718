package protocol

import (
	"testing"
	"time"

	"dgusui/host/serial"
)

func newTestLink(t *testing.T, cfg LinkConfig, kill KillFunc) (*Link, *serial.MockPort) {
	t.Helper()
	port := serial.NewMockPort()
	link := NewLink(port, cfg, kill)
	t.Cleanup(func() { link.Close() })
	return link, port
}

func newTestEngine(t *testing.T) (*Engine, *serial.MockPort) {
	t.Helper()
	link, port := newTestLink(t, DefaultLinkConfig(), nil)
	return NewEngine(link, EngineConfig{MaxGarbageBytes: 5}, nil), port
}

// waitAvailable waits for the reader goroutine to move n bytes into the ring
func waitAvailable(t *testing.T, link *Link, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for link.Available() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d bytes, have %d", n, link.Available())
		}
		time.Sleep(time.Millisecond)
	}
}
