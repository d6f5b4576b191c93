package exercise

import (
	"crypto/sha512"
	"github.com/openziti/fixmem/util"
	"github.com/pkg/errors"
	"math/rand"
)

const hashSizeSz = 2
const sha512Sz = 64
const dataHeaderSz = hashSizeSz + sha512Sz

// DataSet is a fixed collection of self-verifying records. Each record carries a uint16 hash
// length and the sha512 of its body ahead of the body itself.
type DataSet struct {
	records [][]byte
}

// NewDataSet generates count records with random bodies of minSz to maxSz bytes.
func NewDataSet(count, minSz, maxSz int, seed int64) (*DataSet, error) {
	if count < 1 || minSz < 1 || maxSz < minSz {
		return nil, errors.Errorf("invalid data set [count=%d, min=%d, max=%d]", count, minSz, maxSz)
	}
	r := rand.New(rand.NewSource(seed))
	ds := &DataSet{}
	for i := 0; i < count; i++ {
		body := make([]byte, minSz+r.Intn(maxSz-minSz+1))
		for j := range body {
			body[j] = byte(r.Intn(255))
		}
		ds.records = append(ds.records, encodeRecord(body))
	}
	return ds, nil
}

func (self *DataSet) Len() int {
	return len(self.records)
}

func (self *DataSet) Record(i int) []byte {
	return self.records[i]
}

// MaxRecordSz is the size of the largest encoded record.
func (self *DataSet) MaxRecordSz() int {
	max := 0
	for _, record := range self.records {
		if len(record) > max {
			max = len(record)
		}
	}
	return max
}

func encodeRecord(body []byte) []byte {
	record := make([]byte, dataHeaderSz+len(body))
	util.WriteUint16(record, sha512Sz)
	hash := sha512.Sum512(body)
	copy(record[hashSizeSz:], hash[:])
	copy(record[dataHeaderSz:], body)
	return record
}

func decodeRecord(record []byte) (hash []byte, body []byte, err error) {
	if len(record) < hashSizeSz {
		return nil, nil, errors.Errorf("record too small [%d < %d]", len(record), hashSizeSz)
	}
	hashSz := int(util.ReadUint16(record))
	if len(record) < hashSizeSz+hashSz {
		return nil, nil, errors.Errorf("record too small [%d current, at least %d required]", len(record), hashSizeSz+hashSz)
	}
	return record[hashSizeSz : hashSizeSz+hashSz], record[hashSizeSz+hashSz:], nil
}

func verifyRecord(record []byte) error {
	hash, body, err := decodeRecord(record)
	if err != nil {
		return err
	}
	if len(hash) != sha512Sz {
		return errors.Errorf("unexpected hash size [%d]", len(hash))
	}
	actual := sha512.Sum512(body)
	for i := range actual {
		if actual[i] != hash[i] {
			return errors.New("hash mismatch")
		}
	}
	return nil
}
