package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// KillFunc is called once when the link is declared lost. It must halt the
// printer; it is never expected to recover.
type KillFunc func(reason string)

// LinkConfig holds the timing of blocking waits
type LinkConfig struct {
	// Delay between two polls of the receive buffer
	ReadDelay time.Duration

	// Number of polls without data before the link is declared lost
	KillCount int
}

// DefaultLinkConfig returns the default wait timing
func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		ReadDelay: DefaultReadDelayMs * time.Millisecond,
		KillCount: DefaultKillCount,
	}
}

// Link is the raw byte channel to the display.
//
// A background goroutine copies everything the port delivers into a fixed
// receive ring; the main loop consumes it through the Read*/Wait methods.
type Link struct {
	port io.ReadWriteCloser
	cfg  LinkConfig
	kill KillFunc

	mu sync.Mutex
	rx *FifoBuffer

	lost     uint32 // atomic bool
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewLink wraps an opened port and starts reading from it
func NewLink(port io.ReadWriteCloser, cfg LinkConfig, kill KillFunc) *Link {
	if cfg.ReadDelay <= 0 {
		cfg.ReadDelay = DefaultReadDelayMs * time.Millisecond
	}
	if cfg.KillCount <= 0 {
		cfg.KillCount = DefaultKillCount
	}

	l := &Link{
		port:     port,
		cfg:      cfg,
		kill:     kill,
		rx:       NewFifoBuffer(RxBufferSize),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}

	go l.readLoop()

	return l
}

// readLoop continuously reads from the port into the receive ring
func (l *Link) readLoop() {
	defer close(l.doneChan)

	buffer := make([]byte, 64)

	for {
		select {
		case <-l.stopChan:
			return
		default:
		}

		n, err := l.port.Read(buffer)
		if n > 0 {
			l.mu.Lock()
			free := l.rx.Free()
			l.rx.Write(buffer[:n])
			l.mu.Unlock()
			if n > free {
				log.Warn().Int("dropped", n-free).Msg("display receive buffer overflow")
			}
		}

		switch {
		case err == nil && n > 0:
		case err == nil, errors.Is(err, io.EOF):
			// Read timeout with nothing received
			time.Sleep(time.Millisecond)
		default:
			log.Debug().Err(err).Msg("display read error")
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// Available returns the number of received bytes not consumed yet
func (l *Link) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rx.Available()
}

// Wait waits until at least n bytes are available.
//
// A non-blocking wait returns ErrNoData immediately. A blocking wait polls
// every ReadDelay; after KillCount unsuccessful polls the link is declared
// lost, the kill function is called and ErrCommunicationLost is returned.
func (l *Link) Wait(n int, blocking bool) error {
	if l.Lost() {
		return ErrCommunicationLost
	}
	if l.Available() >= n {
		return nil
	}
	if !blocking {
		return ErrNoData
	}

	for i := 0; i < l.cfg.KillCount; i++ {
		time.Sleep(l.cfg.ReadDelay)
		if l.Available() >= n {
			return nil
		}
	}

	l.declareLost(n)
	return ErrCommunicationLost
}

// declareLost marks the link dead and kills the printer
func (l *Link) declareLost(waiting int) {
	if !atomic.CompareAndSwapUint32(&l.lost, 0, 1) {
		return
	}
	log.Error().
		Int("waiting_for", waiting).
		Int("available", l.Available()).
		Dur("timeout", l.cfg.ReadDelay*time.Duration(l.cfg.KillCount)).
		Msg("no answer from the display")
	if l.kill != nil {
		l.kill("display communication lost")
	}
}

// Lost returns true once the link has been declared dead
func (l *Link) Lost() bool {
	return atomic.LoadUint32(&l.lost) != 0
}

// ReadByte reads one byte, waiting for it if necessary
func (l *Link) ReadByte() (byte, error) {
	if err := l.Wait(1, true); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, _ := l.rx.Next()
	return b, nil
}

// ReadWord reads a big-endian 16-bit word
func (l *Link) ReadWord() (uint16, error) {
	if err := l.Wait(2, true); err != nil {
		return 0, err
	}
	var w [2]byte
	l.mu.Lock()
	l.rx.Read(w[:])
	l.mu.Unlock()
	return uint16(w[0])<<8 | uint16(w[1]), nil
}

// Write sends raw bytes to the display
func (l *Link) Write(p []byte) (int, error) {
	if l.Lost() {
		return 0, ErrCommunicationLost
	}
	n, err := l.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("display write failed: %w", err)
	}
	if n != len(p) {
		return n, fmt.Errorf("display write incomplete: %d of %d bytes", n, len(p))
	}
	return n, nil
}

// WriteByte sends a single byte
func (l *Link) WriteByte(b byte) error {
	_, err := l.Write([]byte{b})
	return err
}

// WriteWord sends a big-endian 16-bit word
func (l *Link) WriteWord(w uint16) error {
	_, err := l.Write([]byte{byte(w >> 8), byte(w)})
	return err
}

// Flush drops everything received and not consumed yet
func (l *Link) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.rx.IsEmpty() {
		log.Debug().Int("dropped", l.rx.Available()).Msg("receive buffer flushed")
	}
	l.rx.Reset()
}

// Close stops the reader and closes the port
func (l *Link) Close() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.stopChan)
		err = l.port.Close()
		<-l.doneChan
	})
	return err
}
