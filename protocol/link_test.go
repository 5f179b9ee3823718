package protocol

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestLinkReadWord(t *testing.T) {
	link, port := newTestLink(t, DefaultLinkConfig(), nil)

	port.Feed(0x12, 0x34, 0x56)

	w, err := link.ReadWord()
	if err != nil {
		t.Fatal(err)
	}
	if w != 0x1234 {
		t.Errorf("Expected 0x1234, got 0x%04X", w)
	}

	b, err := link.ReadByte()
	if err != nil || b != 0x56 {
		t.Errorf("ReadByte = 0x%02X, %v", b, err)
	}
}

func TestLinkWaitNonBlocking(t *testing.T) {
	link, port := newTestLink(t, DefaultLinkConfig(), nil)

	if err := link.Wait(1, false); !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}

	port.Feed(1, 2)
	waitAvailable(t, link, 2)

	if err := link.Wait(2, false); err != nil {
		t.Errorf("Wait(2) with 2 bytes buffered: %v", err)
	}

	link.Flush()
	if link.Available() != 0 {
		t.Errorf("Flush should drop buffered bytes, %d left", link.Available())
	}
}

func TestLinkWrite(t *testing.T) {
	link, port := newTestLink(t, DefaultLinkConfig(), nil)

	link.WriteByte(0x5A)
	link.WriteWord(0xA503)

	sent := port.Sent()
	if len(sent) != 3 || sent[0] != 0x5A || sent[1] != 0xA5 || sent[2] != 0x03 {
		t.Errorf("Sent % X", sent)
	}

	port.Close()
	if _, err := link.Write([]byte{1}); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Expected wrapped io.ErrClosedPipe, got %v", err)
	}
}

func TestLinkKill(t *testing.T) {
	kills := 0
	var reason string
	link, _ := newTestLink(t, LinkConfig{ReadDelay: time.Millisecond, KillCount: 3}, func(r string) {
		kills++
		reason = r
	})

	start := time.Now()
	if _, err := link.ReadByte(); !errors.Is(err, ErrCommunicationLost) {
		t.Fatalf("Expected ErrCommunicationLost, got %v", err)
	}
	if time.Since(start) < 3*time.Millisecond {
		t.Error("Link declared lost before KillCount polls")
	}
	if kills != 1 || reason == "" {
		t.Errorf("kill called %d times with reason %q", kills, reason)
	}
	if !link.Lost() {
		t.Error("Link should be lost")
	}

	// Dead for good
	if err := link.Wait(1, false); !errors.Is(err, ErrCommunicationLost) {
		t.Errorf("Expected ErrCommunicationLost after kill, got %v", err)
	}
	if _, err := link.ReadWord(); !errors.Is(err, ErrCommunicationLost) {
		t.Errorf("Expected ErrCommunicationLost after kill, got %v", err)
	}
	if _, err := link.Write([]byte{1}); !errors.Is(err, ErrCommunicationLost) {
		t.Errorf("Write after kill: expected ErrCommunicationLost, got %v", err)
	}
	if kills != 1 {
		t.Errorf("kill must be called once, called %d times", kills)
	}
}
