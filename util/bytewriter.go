package util

import (
	"github.com/pkg/errors"
)

var ErrShortWrite = errors.New("short write")

// ByteWriter fills a fixed destination slice front to back. It never grows the destination;
// a write that does not fit is rejected whole.
type ByteWriter struct {
	buffer []byte
	pos    int
}

func (self *ByteWriter) Reset(buffer []byte) {
	self.buffer = buffer
	self.pos = 0
}

func (self *ByteWriter) Write(p []byte) (n int, err error) {
	if self.pos+len(p) > len(self.buffer) {
		return 0, ErrShortWrite
	}
	n = copy(self.buffer[self.pos:], p)
	self.pos += n
	return n, nil
}

func (self *ByteWriter) Remaining() int {
	return len(self.buffer) - self.pos
}
