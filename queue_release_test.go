// +build !fixmem_debug

package fixmem

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestQueueEmptyRecordRejected(t *testing.T) {
	ci := &countingInstance{}
	q := NewBoundedQueue(make([]byte, 32), ci)
	assert.Equal(t, ErrEmptyRecord, q.Put(nil))
	assert.Equal(t, ErrEmptyRecord, q.PutScatter())
	assert.Equal(t, ErrEmptyRecord, q.PutScatter(nil, []byte{}))
	assert.Equal(t, 0, q.ItemCount())
	assert.Equal(t, []error{ErrEmptyRecord, ErrEmptyRecord, ErrEmptyRecord}, ci.rejects)
}

func TestQueuePinsAdvisory(t *testing.T) {
	ci := &countingInstance{}
	q := NewBoundedQueue(make([]byte, 64), ci)
	require.Nil(t, q.Put(item(0)))
	require.Nil(t, q.Put(item(1)))
	require.Nil(t, q.Put(item(2)))

	// purge without a pin still retires
	q.Purge()
	assert.Equal(t, 2, q.ItemCount())
	assert.Equal(t, []int{0}, ci.pinMismatches)

	// two pins, one purge: retires anyway, one pin left
	_, err := q.Get()
	require.Nil(t, err)
	_, err = q.Get()
	require.Nil(t, err)
	assert.Equal(t, 2, q.Pins())
	q.Purge()
	assert.Equal(t, 1, q.ItemCount())
	assert.Equal(t, 1, q.Pins())
	assert.Equal(t, []int{0, 1}, ci.pinMismatches)

	q.Purge()
	assert.Equal(t, 0, q.ItemCount())
	assert.False(t, q.IsPinned())

	// purge on empty is a no-op
	q.Purge()
	assert.Equal(t, 3, ci.purges)
	assert.Equal(t, []int{0, 1}, ci.pinMismatches)
}
