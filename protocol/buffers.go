package protocol

// ScratchOutput is a fixed-size buffer holding one outgoing frame
type ScratchOutput struct {
	buf [MaxFrameSize]byte
	pos int
}

// Output appends data to the buffer. It returns false, writing nothing, when
// the data does not fit.
func (s *ScratchOutput) Output(data []byte) bool {
	if s.pos+len(data) > len(s.buf) {
		return false
	}
	s.pos += copy(s.buf[s.pos:], data)
	return true
}

// OutputByte appends a single byte
func (s *ScratchOutput) OutputByte(b byte) bool {
	if s.pos >= len(s.buf) {
		return false
	}
	s.buf[s.pos] = b
	s.pos++
	return true
}

// CurPosition returns the current write position
func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

// DataSince returns data from a specific position to current
func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
}

// FifoBuffer is a circular buffer for serial I/O
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends data to the FIFO buffer
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		nextWrite := (f.write + 1) % f.size
		if nextWrite == f.read {
			// Buffer full
			break
		}
		f.buf[f.write] = b
		f.write = nextWrite
		written++
	}
	return written
}

// Read reads up to len(data) bytes from the FIFO buffer
func (f *FifoBuffer) Read(data []byte) int {
	read := 0
	for i := range data {
		if f.read == f.write {
			break
		}
		data[i] = f.buf[f.read]
		f.read = (f.read + 1) % f.size
		read++
	}
	return read
}

// Next removes and returns the oldest byte
func (f *FifoBuffer) Next() (byte, bool) {
	if f.read == f.write {
		return 0, false
	}
	b := f.buf[f.read]
	f.read = (f.read + 1) % f.size
	return b, true
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}

// pushBackStack is the bounded LIFO of bytes handed back to the engine
type pushBackStack struct {
	buf [PushBackSize]byte
	n   int
}

func (s *pushBackStack) push(b byte) bool {
	if s.n >= len(s.buf) {
		return false
	}
	s.buf[s.n] = b
	s.n++
	return true
}

func (s *pushBackStack) pop() (byte, bool) {
	if s.n == 0 {
		return 0, false
	}
	s.n--
	return s.buf[s.n], true
}

func (s *pushBackStack) len() int {
	return s.n
}

func (s *pushBackStack) reset() {
	s.n = 0
}
