package exercise

import (
	"bytes"
	"github.com/emirpasic/gods/lists/doublylinkedlist"
	"github.com/openziti/fixmem"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"math/rand"
)

type QueueSoakResult struct {
	Puts     int
	Scatters int
	Full     int
	Retired  int
	Bytes    int64
	MaxDepth int
}

// QueueSoak drives a random mix of Put, PutScatter and Get+Purge against q using records from
// ds. A list mirrors the expected queue contents; every retired record must match the model's
// front byte for byte and pass its sha512 check.
func QueueSoak(q *fixmem.BoundedQueue, ds *DataSet, iterations int, seed int64, rate *Reporter) (*QueueSoakResult, error) {
	if q.ItemCount() != 0 {
		return nil, errors.Errorf("queue not empty [%d items]", q.ItemCount())
	}
	if ds.MaxRecordSz()+fixmem.RecordHeaderSz > q.Capacity() {
		return nil, errors.Errorf("records up to [%d] bytes cannot fit queue of [%d]", ds.MaxRecordSz(), q.Capacity())
	}
	r := rand.New(rand.NewSource(seed))
	model := doublylinkedlist.New()
	result := &QueueSoakResult{}
	ops := int64(0)
	opBytes := int64(0)

	for i := 0; i < iterations; i++ {
		consume := model.Size() > 0 && r.Intn(100) >= 55
		if !consume {
			idx := r.Intn(ds.Len())
			record := ds.Record(idx)
			var err error
			if r.Intn(4) == 0 {
				err = q.PutScatter(split(r, record)...)
				if err == nil {
					result.Scatters++
				}
			} else {
				err = q.Put(record)
			}
			if err == nil {
				model.Add(idx)
				result.Puts++
				result.Bytes += int64(len(record))
				opBytes += int64(len(record))
				if model.Size() > result.MaxDepth {
					result.MaxDepth = model.Size()
				}
			} else if err == fixmem.ErrQueueFull {
				if model.Size() == 0 {
					return result, errors.Errorf("empty queue rejected [%d] bytes at iteration [%d]", len(record), i)
				}
				result.Full++
				consume = true
			} else {
				return result, errors.Wrapf(err, "put at iteration [%d]", i)
			}
		}

		if consume {
			if err := retire(q, ds, model); err != nil {
				return result, errors.Wrapf(err, "retire at iteration [%d]", i)
			}
			result.Retired++
		}
		ops++

		if q.ItemCount() != model.Size() {
			return result, errors.Errorf("item count [%d] != model [%d] at iteration [%d]", q.ItemCount(), model.Size(), i)
		}
		if q.IsPinned() {
			return result, errors.Errorf("pinned after retire at iteration [%d]", i)
		}

		if ops == 1024 {
			rate.Report(ops, opBytes)
			ops = 0
			opBytes = 0
		}
	}
	rate.Report(ops, opBytes)

	for model.Size() > 0 {
		if err := retire(q, ds, model); err != nil {
			return result, errors.Wrap(err, "draining")
		}
		result.Retired++
	}
	logrus.Infof("puts [%d] (%d scattered), full [%d], retired [%d], max depth [%d]",
		result.Puts, result.Scatters, result.Full, result.Retired, result.MaxDepth)
	return result, nil
}

func retire(q *fixmem.BoundedQueue, ds *DataSet, model *doublylinkedlist.List) error {
	v, found := model.Get(0)
	if !found {
		return errors.New("model empty")
	}
	expected := ds.Record(v.(int))
	if q.HeadItemSize() != len(expected) {
		return errors.Errorf("head size [%d] != expected [%d]", q.HeadItemSize(), len(expected))
	}
	payload, err := q.Get()
	if err != nil {
		return err
	}
	if !bytes.Equal(payload, expected) {
		return errors.Errorf("payload mismatch for record [%d]", v)
	}
	if err := verifyRecord(payload); err != nil {
		return errors.Wrapf(err, "record [%d]", v)
	}
	q.Purge()
	model.Remove(0)
	return nil
}

// split cuts record into up to four chunks at random points, including empty chunks.
func split(r *rand.Rand, record []byte) [][]byte {
	var chunks [][]byte
	for n := r.Intn(4); n > 0 && len(record) > 0; n-- {
		at := r.Intn(len(record) + 1)
		chunks = append(chunks, record[:at])
		record = record[at:]
	}
	return append(chunks, record)
}
