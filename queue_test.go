package fixmem

import (
	"github.com/openziti/fixmem/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func item(i int) []byte {
	return []byte{byte(i), byte(i >> 8), 0xaa, 0x55}
}

func retire(t *testing.T, q *BoundedQueue) {
	_, err := q.Get()
	require.Nil(t, err)
	q.Purge()
}

func TestQueueRoundTrip(t *testing.T) {
	q := NewBoundedQueue(make([]byte, 64), nil)
	_, err := q.Get()
	assert.Equal(t, ErrQueueEmpty, err)
	assert.Equal(t, 0, q.HeadItemSize())

	in := []byte("hello, queue")
	assert.Nil(t, q.Put(in))
	assert.Equal(t, 1, q.ItemCount())
	assert.Equal(t, len(in), q.HeadItemSize())

	out, err := q.Get()
	assert.Nil(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, len(in), cap(out))
	assert.True(t, q.IsPinned())

	q.Purge()
	assert.Equal(t, 0, q.ItemCount())
	assert.False(t, q.IsPinned())
}

func TestQueueFifo(t *testing.T) {
	q := NewBoundedQueue(make([]byte, 256), nil)
	for i := 0; i < 5; i++ {
		assert.Nil(t, q.Put(item(i)))
	}
	for i := 0; i < 5; i++ {
		out, err := q.Get()
		require.Nil(t, err)
		assert.Equal(t, item(i), out)
		q.Purge()
	}
	_, err := q.Peek()
	assert.Equal(t, ErrQueueEmpty, err)
}

func TestQueueExactFill(t *testing.T) {
	ci := &countingInstance{}
	q := NewBoundedQueue(make([]byte, 192), ci)
	for i := 0; i < 16; i++ {
		assert.Nil(t, q.Put(item(i)))
	}
	assert.Equal(t, 16, q.ItemCount())
	assert.Equal(t, ErrQueueFull, q.Put(item(16)))
	assert.Equal(t, 16, q.ItemCount())
	assert.Equal(t, []error{ErrQueueFull}, ci.rejects)
}

func TestQueueWraparound(t *testing.T) {
	ci := &countingInstance{}
	q := NewBoundedQueue(make([]byte, 192), ci)
	for i := 0; i < 16; i++ {
		require.Nil(t, q.Put(item(i)))
	}
	for i := 0; i < 8; i++ {
		out, err := q.Get()
		require.Nil(t, err)
		assert.Equal(t, item(i), out)
		q.Purge()
	}
	assert.Equal(t, 8, q.ItemCount())

	for i := 16; i < 24; i++ {
		assert.Nil(t, q.Put(item(i)))
	}
	assert.Equal(t, 16, q.ItemCount())
	assert.Equal(t, 1, ci.wraps)
	assert.Equal(t, ErrQueueFull, q.Put(item(24)))

	for i := 8; i < 24; i++ {
		out, err := q.Get()
		require.Nil(t, err)
		assert.Equal(t, item(i), out)
		q.Purge()
	}
	assert.Equal(t, 0, q.ItemCount())
	assert.Equal(t, 0, len(ci.pinMismatches))
}

func TestQueueWrappedDoesNotOverrunHead(t *testing.T) {
	q := NewBoundedQueue(make([]byte, 100), nil)
	// three 24 byte records at 0, 24, 48
	for i := 0; i < 3; i++ {
		require.Nil(t, q.Put(make([]byte, 16)))
	}
	retire(t, q)
	retire(t, q)
	// head at 48; 40 byte record cannot go at 72, wraps to 0
	require.Nil(t, q.Put(make([]byte, 32)))
	// write position 40 is below head 48; 12 bytes would end at 52 and overrun
	// the live head even though 52 <= capacity
	assert.Equal(t, ErrQueueFull, q.Put(make([]byte, 4)))
	assert.Equal(t, 2, q.ItemCount())

	// retiring the record at 48 follows the rewritten link back to 0
	retire(t, q)
	assert.Equal(t, 32, q.HeadItemSize())
	assert.Nil(t, q.Put(make([]byte, 4)))
	assert.Equal(t, 2, q.ItemCount())
}

func TestQueueDrainResets(t *testing.T) {
	q := NewBoundedQueue(make([]byte, 64), nil)
	require.Nil(t, q.Put(make([]byte, 24)))
	require.Nil(t, q.Put(make([]byte, 16)))
	retire(t, q)
	retire(t, q)
	assert.Equal(t, 0, q.ItemCount())

	// a drained queue offers the whole buffer again
	assert.Nil(t, q.Put(make([]byte, 64-RecordHeaderSz)))
	out, err := q.Peek()
	assert.Nil(t, err)
	assert.Equal(t, 64-RecordHeaderSz, len(out))
}

func TestQueueRejects(t *testing.T) {
	ci := &countingInstance{}
	q := NewBoundedQueue(make([]byte, 32), ci)
	assert.Equal(t, ErrRecordTooLarge, q.Put(make([]byte, 25)))
	assert.Nil(t, q.Put(make([]byte, 24)))
	assert.Equal(t, ErrQueueFull, q.Put(make([]byte, 1)))
	assert.Equal(t, 1, q.ItemCount())
	assert.Equal(t, []error{ErrRecordTooLarge, ErrQueueFull}, ci.rejects)
}

func TestQueuePutScatter(t *testing.T) {
	q := NewBoundedQueue(make([]byte, 64), nil)
	assert.Nil(t, q.PutScatter([]byte("abc"), nil, []byte("defg"), []byte("h")))
	out, err := q.Peek()
	assert.Nil(t, err)
	assert.Equal(t, []byte("abcdefgh"), out)
	assert.Equal(t, 8, q.HeadItemSize())
}

func TestQueuePutScatterWrapped(t *testing.T) {
	ci := &countingInstance{}
	q := NewBoundedQueue(make([]byte, 64), ci)
	for i := 0; i < 3; i++ {
		require.Nil(t, q.Put(make([]byte, 12)))
	}
	retire(t, q)
	retire(t, q)

	// head at 40; a 20 byte record cannot go at 60 and wraps to 0
	assert.Nil(t, q.PutScatter([]byte("0123"), []byte("45678"), []byte("9ab")))
	assert.Equal(t, 1, ci.wraps)
	assert.Equal(t, 2, q.ItemCount())

	retire(t, q)
	out, err := q.Peek()
	assert.Nil(t, err)
	assert.Equal(t, []byte("0123456789ab"), out)
}

func TestQueueRecordLayout(t *testing.T) {
	buffer := make([]byte, 64)
	q := NewBoundedQueue(buffer, nil)
	require.Nil(t, q.Put([]byte{1, 2, 3}))
	require.Nil(t, q.Put([]byte{4}))
	assert.Equal(t, uint32(11), util.ReadUint32(buffer[0:]))
	assert.Equal(t, uint32(3), util.ReadUint32(buffer[4:]))
	assert.Equal(t, []byte{1, 2, 3}, buffer[8:11])
	assert.Equal(t, uint32(20), util.ReadUint32(buffer[11:]))
	assert.Equal(t, uint32(1), util.ReadUint32(buffer[15:]))
}

func TestQueuePeekDoesNotPin(t *testing.T) {
	q := NewBoundedQueue(make([]byte, 64), nil)
	require.Nil(t, q.Put(item(7)))
	p0, err := q.Peek()
	assert.Nil(t, err)
	p1, err := q.Peek()
	assert.Nil(t, err)
	assert.Equal(t, p0, p1)
	assert.False(t, q.IsPinned())
	assert.Equal(t, q.ItemCount(), q.ItemCount())
	assert.Equal(t, q.HeadItemSize(), q.HeadItemSize())
	assert.Equal(t, 1, q.ItemCount())
}

func TestQueueClear(t *testing.T) {
	buffer := make([]byte, 64)
	q := NewBoundedQueue(buffer, nil)
	require.Nil(t, q.Put(item(1)))
	_, err := q.Get()
	require.Nil(t, err)

	q.Clear()
	assert.Equal(t, 0, q.ItemCount())
	assert.False(t, q.IsPinned())
	assert.Equal(t, item(1), buffer[RecordHeaderSz:RecordHeaderSz+4])

	require.Nil(t, q.Put(item(2)))
	out, err := q.Get()
	assert.Nil(t, err)
	assert.Equal(t, item(2), out)
}

func TestQueuePayloadsDisjoint(t *testing.T) {
	q := NewBoundedQueue(make([]byte, 97), nil)
	var model [][]byte
	retired := 0
	for round := 0; round < 200; round++ {
		sz := 1 + (round*7)%19
		p := make([]byte, sz)
		for i := range p {
			p[i] = byte(round)
		}
		if err := q.Put(p); err == nil {
			model = append(model, p)
		} else {
			assert.Equal(t, ErrQueueFull, err)
		}
		if round%3 == 2 || len(model) > 4 {
			for j := 0; j < 2 && len(model) > 0; j++ {
				out, err := q.Get()
				require.Nil(t, err)
				assert.Equal(t, model[0], out)
				model = model[1:]
				q.Purge()
				retired++
			}
		}
		assert.Equal(t, len(model), q.ItemCount())
	}
	assert.True(t, retired > 0)
}

func BenchmarkQueuePutGetPurge(b *testing.B) {
	q := NewBoundedQueue(make([]byte, 4096), nil)
	payload := make([]byte, 100)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := q.Put(payload); err != nil {
			b.Fatal(err)
		}
		if _, err := q.Get(); err != nil {
			b.Fatal(err)
		}
		q.Purge()
	}
}
