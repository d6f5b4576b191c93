package exercise

import (
	"github.com/openziti/fixmem/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestRecordEncodeDecode(t *testing.T) {
	ds, err := NewDataSet(8, 1, 512, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, ds.Len())

	for i := 0; i < ds.Len(); i++ {
		record := ds.Record(i)
		assert.Equal(t, sha512Sz, int(util.ReadUint16(record[:2])))
		hash, body, err := decodeRecord(record)
		assert.NoError(t, err)
		assert.EqualValues(t, record[2:2+64], hash)
		assert.EqualValues(t, record[2+64:], body)
		assert.True(t, len(body) >= 1 && len(body) <= 512)
		assert.NoError(t, verifyRecord(record))
		assert.True(t, len(record) <= ds.MaxRecordSz())
	}
}

func TestRecordCorruption(t *testing.T) {
	ds, err := NewDataSet(1, 32, 32, 2)
	require.NoError(t, err)
	record := append([]byte(nil), ds.Record(0)...)
	record[len(record)-1] ^= 0xff
	assert.Error(t, verifyRecord(record))

	_, _, err = decodeRecord([]byte{0})
	assert.Error(t, err)
	_, _, err = decodeRecord([]byte{0, 64, 1, 2})
	assert.Error(t, err)
}

func TestNewDataSetInvalid(t *testing.T) {
	_, err := NewDataSet(0, 1, 1, 0)
	assert.Error(t, err)
	_, err = NewDataSet(1, 8, 4, 0)
	assert.Error(t, err)
}

func TestDataSetDeterministic(t *testing.T) {
	a, err := NewDataSet(4, 16, 64, 42)
	require.NoError(t, err)
	b, err := NewDataSet(4, 16, 64, 42)
	require.NoError(t, err)
	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, a.Record(i), b.Record(i))
	}
}
