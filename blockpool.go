package fixmem

import (
	"github.com/pkg/errors"
	"unsafe"
)

// UninitializedByte fills every pool buffer on creation, making never-allocated memory easy
// to spot in a dump.
const UninitializedByte = 0xCD

var (
	ErrInvalidPoolArgs = errors.New("invalid block pool arguments")
	ErrPoolExhausted   = errors.New("block pool exhausted")
	ErrForeignBlock    = errors.New("block not in pool")
	ErrMisalignedBlock = errors.New("block not at a block boundary")
	ErrDoubleFree      = errors.New("block not allocated")
)

const (
	endOfList = int32(-1)
	inUse     = int32(-2)
)

// BlockPool hands out fixed-size blocks carved from a caller supplied buffer.
//
// Blocks below maxUsed have been handed out at least once. Those currently free are chained
// through links in the order they were freed, so reuse is FIFO. Blocks at or above maxUsed
// have never been touched and are claimed in index order once the free list is empty. The
// pool never allocates after NewBlockPool and is not safe for concurrent use.
type BlockPool struct {
	pool       []byte
	links      []int32
	head       int32
	tail       int32
	maxUsed    int
	numBlocks  int
	blocksUsed int
	blockSize  int
	ii         InstrumentInstance
}

// NewBlockPool lays numBlocks blocks of blockSize bytes over the front of buffer. The buffer
// stays owned by the caller and must outlive the pool. ii may be nil.
func NewBlockPool(buffer []byte, numBlocks, blockSize int, ii InstrumentInstance) (*BlockPool, error) {
	if numBlocks < 1 || blockSize < 1 {
		return nil, errors.Wrapf(ErrInvalidPoolArgs, "%d blocks of %d bytes", numBlocks, blockSize)
	}
	if numBlocks > (1<<31-1)/blockSize || len(buffer) < numBlocks*blockSize {
		return nil, errors.Wrapf(ErrInvalidPoolArgs, "buffer of %d bytes cannot hold %d blocks of %d bytes", len(buffer), numBlocks, blockSize)
	}
	if ii == nil {
		ii = NilInstrumentInstance{}
	}
	self := &BlockPool{
		pool:      buffer[:numBlocks*blockSize],
		links:     make([]int32, numBlocks),
		head:      endOfList,
		tail:      endOfList,
		numBlocks: numBlocks,
		blockSize: blockSize,
		ii:        ii,
	}
	for i := range self.pool {
		self.pool[i] = UninitializedByte
	}
	return self, nil
}

// Close drops the pool's references and shuts its instrument down. The buffer contents are
// left as they are.
func (self *BlockPool) Close() {
	self.ii.Shutdown()
	self.pool = nil
	self.links = nil
	self.head = endOfList
	self.tail = endOfList
	self.maxUsed = 0
	self.numBlocks = 0
	self.blocksUsed = 0
	self.blockSize = 0
}

// Alloc returns a zeroed block, preferring the oldest freed block over a never-used one.
// ErrPoolExhausted is an ordinary result when every block is in use.
func (self *BlockPool) Alloc() ([]byte, error) {
	var idx int
	reused := false
	if self.maxUsed-self.blocksUsed > 0 {
		idx = int(self.head)
		self.head = self.links[idx]
		if self.head == endOfList {
			self.tail = endOfList
		}
		reused = true

	} else if self.blocksUsed < self.numBlocks {
		idx = self.maxUsed
		self.maxUsed++

	} else {
		self.ii.PoolExhausted()
		return nil, ErrPoolExhausted
	}

	self.links[idx] = inUse
	self.blocksUsed++
	block := self.block(idx)
	for i := range block {
		block[i] = 0
	}
	self.ii.BlockAllocated(idx, reused)
	return block, nil
}

// Free returns block to the tail of the free list. Anything that is not a block currently
// handed out by this pool is rejected with an error and leaves the pool untouched.
func (self *BlockPool) Free(block []byte) error {
	idx, err := self.indexOf(block)
	if err == nil && (idx >= self.maxUsed || self.links[idx] != inUse) {
		err = ErrDoubleFree
	}
	if err != nil {
		self.ii.InvalidFree(err)
		return err
	}

	self.links[idx] = endOfList
	if self.maxUsed-self.blocksUsed > 0 {
		self.links[self.tail] = int32(idx)
	} else {
		self.head = int32(idx)
	}
	self.tail = int32(idx)
	self.blocksUsed--
	self.ii.BlockFreed(idx)
	return nil
}

func (self *BlockPool) NumBlocks() int     { return self.numBlocks }
func (self *BlockPool) BlockSize() int     { return self.blockSize }
func (self *BlockPool) BlocksUsed() int    { return self.blocksUsed }
func (self *BlockPool) NumFreeBlocks() int { return self.numBlocks - self.blocksUsed }

// MaxUsed is the high-water mark: how many distinct blocks have ever been handed out.
func (self *BlockPool) MaxUsed() int { return self.maxUsed }

// IsInPool reports whether the first byte of block lies inside the pool's blocks.
func (self *BlockPool) IsInPool(block []byte) bool {
	_, ok := self.offsetOf(block)
	return ok
}

func (self *BlockPool) block(idx int) []byte {
	start := idx * self.blockSize
	end := start + self.blockSize
	return self.pool[start:end:end]
}

func (self *BlockPool) offsetOf(block []byte) (int, bool) {
	if len(block) < 1 || len(self.pool) < 1 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(&self.pool[0]))
	p := uintptr(unsafe.Pointer(&block[0]))
	if p < base || p-base >= uintptr(len(self.pool)) {
		return 0, false
	}
	return int(p - base), true
}

func (self *BlockPool) indexOf(block []byte) (int, error) {
	offset, ok := self.offsetOf(block)
	if !ok {
		return 0, ErrForeignBlock
	}
	if offset%self.blockSize != 0 {
		return 0, ErrMisalignedBlock
	}
	return offset / self.blockSize, nil
}
