package fixmem

import (
	"github.com/openziti/fixmem/util"
	"github.com/pkg/errors"
)

// RecordHeaderSz is the per-record overhead: a uint32 offset of the following record and a
// uint32 payload size.
const RecordHeaderSz = 8

var (
	ErrQueueEmpty     = errors.New("queue empty")
	ErrQueueFull      = errors.New("insufficient contiguous queue space")
	ErrRecordTooLarge = errors.New("record larger than queue buffer")
	ErrEmptyRecord    = errors.New("empty record")
)

// BoundedQueue stores variable-length records back to back in a caller supplied buffer and
// hands them out in FIFO order without copying.
//
// Each record's header points at the offset where the next record starts. New records go at
// the tail's next offset; when that runs off the end of the buffer and the record fits below
// head, it is placed at offset 0 instead and the tail's next offset is rewritten to 0. A
// record is never split, so every payload is one contiguous slice. Not safe for concurrent
// use.
type BoundedQueue struct {
	buffer []byte
	head   int
	tail   int
	count  int
	pins   uint16
	writer util.ByteWriter
	ii     InstrumentInstance
}

// NewBoundedQueue uses all of buffer as record storage. The buffer stays owned by the caller
// and must outlive the queue. ii may be nil.
func NewBoundedQueue(buffer []byte, ii InstrumentInstance) *BoundedQueue {
	debugAssert(uint64(len(buffer)) <= 1<<32-1, "queue buffer exceeds 32-bit offsets")
	if ii == nil {
		ii = NilInstrumentInstance{}
	}
	return &BoundedQueue{buffer: buffer, ii: ii}
}

func (self *BoundedQueue) Close() {
	self.ii.Shutdown()
	self.buffer = nil
	self.head = 0
	self.tail = 0
	self.count = 0
	self.pins = 0
	self.writer.Reset(nil)
}

// Clear forgets every record. Stored bytes are not touched.
func (self *BoundedQueue) Clear() {
	self.head = 0
	self.tail = 0
	self.count = 0
	self.pins = 0
}

// Put appends a copy of p as one record.
func (self *BoundedQueue) Put(p []byte) error {
	dest, err := self.reserve(len(p))
	if err != nil {
		return err
	}
	copy(dest, p)
	return nil
}

// PutScatter appends one record assembled from chunks, copied in order straight into the
// record's slot.
func (self *BoundedQueue) PutScatter(chunks ...[]byte) error {
	sz := 0
	for _, chunk := range chunks {
		sz += len(chunk)
	}
	dest, err := self.reserve(sz)
	if err != nil {
		return err
	}
	// dest is exactly sz bytes, so no write can come up short
	self.writer.Reset(dest)
	for _, chunk := range chunks {
		_, _ = self.writer.Write(chunk)
	}
	debugAssert(self.writer.Remaining() == 0, "scatter left the record partially written")
	self.writer.Reset(nil)
	return nil
}

// Get returns the head record's payload in place and pins it. The slice stays valid until the
// matching Purge; it aliases the queue buffer.
func (self *BoundedQueue) Get() ([]byte, error) {
	if self.count < 1 {
		return nil, ErrQueueEmpty
	}
	self.pins++
	debugAssert(self.pins != 0, "pin count overflow")
	return self.payload(self.head), nil
}

// Peek is Get without the pin.
func (self *BoundedQueue) Peek() ([]byte, error) {
	if self.count < 1 {
		return nil, ErrQueueEmpty
	}
	return self.payload(self.head), nil
}

// Purge retires the head record whether or not it is pinned. The pin count is bookkeeping
// only: one pin is released if any is outstanding.
func (self *BoundedQueue) Purge() {
	if self.count < 1 {
		return
	}
	if self.pins > 0 {
		self.pins--
		if self.pins != 0 {
			self.ii.PinMismatch(int(self.pins))
		}
		debugAssert(self.pins == 0, "purged with more than one pin outstanding")
	} else {
		self.ii.PinMismatch(0)
		debugAssert(false, "purged without a pin")
	}

	sz := self.sizeAt(self.head)
	self.count--
	if self.count == 0 {
		self.head = 0
		self.tail = 0
	} else {
		self.head = self.nextAt(self.head)
	}
	self.ii.RecordPurged(sz)
}

func (self *BoundedQueue) ItemCount() int { return self.count }
func (self *BoundedQueue) Capacity() int  { return len(self.buffer) }
func (self *BoundedQueue) IsPinned() bool { return self.pins != 0 }
func (self *BoundedQueue) Pins() int      { return int(self.pins) }

// HeadItemSize is the payload size of the head record, 0 when empty.
func (self *BoundedQueue) HeadItemSize() int {
	if self.count < 1 {
		return 0
	}
	return self.sizeAt(self.head)
}

// reserve places a record header for a payload of sz bytes and returns the payload slot.
func (self *BoundedQueue) reserve(sz int) ([]byte, error) {
	debugAssert(sz > 0, "zero sized record")
	if sz < 1 {
		self.ii.RecordRejected(sz, ErrEmptyRecord)
		return nil, ErrEmptyRecord
	}
	total := RecordHeaderSz + sz
	if total > len(self.buffer) {
		self.ii.RecordRejected(sz, ErrRecordTooLarge)
		return nil, ErrRecordTooLarge
	}

	next := 0
	if self.count > 0 {
		next = self.nextAt(self.tail)
	}
	nextAfter := next + total
	wrapped := false

	if self.count > 0 && next <= self.head {
		// write position already wrapped below head; only the gap up to head is usable
		if nextAfter > self.head {
			self.ii.RecordRejected(sz, ErrQueueFull)
			return nil, ErrQueueFull
		}

	} else if nextAfter > len(self.buffer) {
		if total < self.head {
			next = 0
			util.WriteUint32(self.buffer[self.tail:], 0)
			wrapped = true
		} else {
			self.ii.RecordRejected(sz, ErrQueueFull)
			return nil, ErrQueueFull
		}
	}

	util.WriteUint32(self.buffer[next:], uint32(next+total))
	util.WriteUint32(self.buffer[next+4:], uint32(sz))
	if self.count == 0 {
		self.head = next
	}
	self.tail = next
	self.count++
	self.ii.RecordPut(sz, wrapped)

	start := next + RecordHeaderSz
	end := next + total
	return self.buffer[start:end:end], nil
}

func (self *BoundedQueue) nextAt(off int) int {
	return int(util.ReadUint32(self.buffer[off:]))
}

func (self *BoundedQueue) sizeAt(off int) int {
	return int(util.ReadUint32(self.buffer[off+4:]))
}

func (self *BoundedQueue) payload(off int) []byte {
	start := off + RecordHeaderSz
	end := start + self.sizeAt(off)
	return self.buffer[start:end:end]
}
