package fixmem

import (
	"github.com/pkg/errors"
	"sync/atomic"
)

// Buffer wraps one pool block with a reference count and a fill mark. The block goes back to
// its pool when the last reference is dropped. Like the pool underneath, a Buffer belongs to a
// single goroutine.
type Buffer struct {
	Data []byte
	Size uint32
	Used uint32
	refs int32
	pool *BufferPool
}

func (buf *Buffer) Ref() {
	atomic.AddInt32(&buf.refs, 1)
}

// Unref drops a reference, freeing the block on the last one.
func (buf *Buffer) Unref() error {
	refs := atomic.AddInt32(&buf.refs, -1)
	if refs < 0 {
		atomic.AddInt32(&buf.refs, 1)
		return errors.Wrap(ErrDoubleFree, "buffer already released")
	}
	if refs == 0 {
		buf.Used = 0
		return buf.pool.blocks.Free(buf.Data)
	}
	return nil
}

// Refs is the current reference count.
func (buf *Buffer) Refs() int {
	return int(atomic.LoadInt32(&buf.refs))
}

// BufferPool hands out ref-counted Buffers backed by a BlockPool. Buffer descriptors are
// preallocated, one per block, so Get does not allocate either.
type BufferPool struct {
	id      string
	blocks  *BlockPool
	buffers []Buffer
}

func NewBufferPool(id string, buffer []byte, numBlocks, blockSize int, ii InstrumentInstance) (*BufferPool, error) {
	blocks, err := NewBlockPool(buffer, numBlocks, blockSize, ii)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating buffer pool [%s]", id)
	}
	pool := &BufferPool{
		id:      id,
		blocks:  blocks,
		buffers: make([]Buffer, numBlocks),
	}
	return pool, nil
}

// Get returns a zeroed Buffer holding one reference.
func (pool *BufferPool) Get() (*Buffer, error) {
	data, err := pool.blocks.Alloc()
	if err != nil {
		return nil, err
	}
	idx, err := pool.blocks.indexOf(data)
	if err != nil {
		return nil, err
	}
	buf := &pool.buffers[idx]
	buf.Data = data
	buf.Size = uint32(len(data))
	buf.Used = 0
	buf.pool = pool
	atomic.StoreInt32(&buf.refs, 1)
	return buf, nil
}

func (pool *BufferPool) Id() string {
	return pool.id
}

func (pool *BufferPool) Blocks() *BlockPool {
	return pool.blocks
}
