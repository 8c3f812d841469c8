package netutil

import "fmt"

// RingBuffer is a fixed-capacity circular byte buffer used to absorb
// bursts of inbound UDP datagrams and outbound Wires-X reply frames
// without ever blocking the owning loop. Overflowing writes are
// dropped (spec.md §7 "ring buffer overflow").
type RingBuffer struct {
	buffer   []byte
	head     int
	tail     int
	size     int
	capacity int
	name     string
}

// NewRingBuffer creates a buffer with room for capacity bytes.
func NewRingBuffer(capacity int, name string) *RingBuffer {
	return &RingBuffer{
		buffer:   make([]byte, capacity+1),
		capacity: capacity,
		name:     name,
	}
}

// AddData appends data, returning false (and dropping it) if there
// isn't enough free space.
func (rb *RingBuffer) AddData(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if !rb.HasSpace(len(data)) {
		return false
	}
	for _, b := range data {
		rb.buffer[rb.head] = b
		rb.head = (rb.head + 1) % len(rb.buffer)
		rb.size++
	}
	return true
}

// GetData fills data with the oldest len(data) bytes, returning false
// if fewer bytes are available.
func (rb *RingBuffer) GetData(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if rb.size < len(data) {
		return false
	}
	for i := range data {
		data[i] = rb.buffer[rb.tail]
		rb.tail = (rb.tail + 1) % len(rb.buffer)
		rb.size--
	}
	return true
}

// Peek reads without consuming.
func (rb *RingBuffer) Peek(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if rb.size < len(data) {
		return false
	}
	t := rb.tail
	for i := range data {
		data[i] = rb.buffer[t]
		t = (t + 1) % len(rb.buffer)
	}
	return true
}

// Clear empties the buffer.
func (rb *RingBuffer) Clear() { rb.head, rb.tail, rb.size = 0, 0, 0 }

// FreeSpace returns the number of bytes that can still be written.
func (rb *RingBuffer) FreeSpace() int { return rb.capacity - rb.size }

// DataSize returns the number of bytes currently stored.
func (rb *RingBuffer) DataSize() int { return rb.size }

// HasSpace reports whether length more bytes fit.
func (rb *RingBuffer) HasSpace(length int) bool { return rb.FreeSpace() >= length }

// HasData reports whether any bytes are stored.
func (rb *RingBuffer) HasData() bool { return rb.size > 0 }

// AddLength stores a 2-byte big-endian length prefix followed by data,
// the framing every link uses to queue variable-length datagrams.
func (rb *RingBuffer) AddLength(data []byte) bool {
	length := len(data)
	prefix := []byte{byte(length >> 8), byte(length)}
	if !rb.HasSpace(len(prefix) + length) {
		return false
	}
	rb.AddData(prefix)
	if length > 0 {
		rb.AddData(data)
	}
	return true
}

// GetLength pops one length-prefixed record into data, returning the
// record length, or (0, false) if no full record is buffered yet or
// data is too small to hold it.
func (rb *RingBuffer) GetLength(data []byte) (int, bool) {
	if rb.size < 2 {
		return 0, false
	}
	var prefix [2]byte
	if !rb.Peek(prefix[:]) {
		return 0, false
	}
	length := int(prefix[0])<<8 | int(prefix[1])
	if rb.size < 2+length {
		return 0, false
	}
	rb.GetData(prefix[:])
	if len(data) < length {
		return 0, false
	}
	if length > 0 {
		if !rb.GetData(data[:length]) {
			return 0, false
		}
	}
	return length, true
}

func (rb *RingBuffer) String() string {
	return fmt.Sprintf("RingBuffer[%s]: size=%d/%d", rb.name, rb.size, rb.capacity)
}
