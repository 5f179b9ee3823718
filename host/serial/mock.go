package serial

import (
	"io"
	"sync"
	"time"
)

// MockPort is an in-memory Port. Bytes fed with Feed are returned by Read,
// bytes written are recorded and optionally answered by a Responder.
type MockPort struct {
	mu     sync.Mutex
	rx     []byte
	tx     []byte
	closed bool

	// Responder, when set, is called with every write and its result is
	// queued for reading. It emulates the panel answering requests.
	Responder func(written []byte) []byte
}

// NewMockPort creates an empty mock port
func NewMockPort() *MockPort {
	return &MockPort{}
}

// Feed queues bytes to be read
func (m *MockPort) Feed(data ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx = append(m.rx, data...)
}

// Read returns queued bytes. With nothing queued it waits briefly and returns
// no data, like a serial read timeout.
func (m *MockPort) Read(b []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, io.EOF
	}
	if len(m.rx) == 0 {
		m.mu.Unlock()
		time.Sleep(100 * time.Microsecond)
		return 0, nil
	}
	n := copy(b, m.rx)
	m.rx = m.rx[n:]
	m.mu.Unlock()
	return n, nil
}

// Write records the bytes written
func (m *MockPort) Write(b []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	m.tx = append(m.tx, b...)
	responder := m.Responder
	m.mu.Unlock()

	if responder != nil {
		if reply := responder(append([]byte(nil), b...)); len(reply) > 0 {
			m.Feed(reply...)
		}
	}
	return len(b), nil
}

// Sent returns a copy of everything written so far
func (m *MockPort) Sent() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.tx...)
}

// TakeSent returns everything written so far and forgets it
func (m *MockPort) TakeSent() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := m.tx
	m.tx = nil
	return sent
}

// Pending returns the number of fed bytes not read yet
func (m *MockPort) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rx)
}

// Close closes the port
func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Flush drops queued input
func (m *MockPort) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx = nil
	return nil
}
