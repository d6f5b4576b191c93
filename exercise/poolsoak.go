package exercise

import (
	"github.com/emirpasic/gods/lists/doublylinkedlist"
	"github.com/emirpasic/gods/trees/btree"
	"github.com/emirpasic/gods/utils"
	"github.com/openziti/fixmem"
	"github.com/openziti/fixmem/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"math/rand"
)

type PoolSoakResult struct {
	Allocs    int
	Reuses    int
	Frees     int
	Exhausted int
	MaxUsed   int
}

// PoolSoak drives a random mix of Alloc and Free against pool and checks it against a model.
// Live blocks are kept in a btree keyed by allocation serial and stamped with a fill byte
// derived from it; freed blocks are queued in a list so every reuse can be checked for FIFO
// order. The pool must start empty.
func PoolSoak(pool *fixmem.BlockPool, iterations int, seed int64, rate *Reporter) (*PoolSoakResult, error) {
	if pool.BlocksUsed() != 0 {
		return nil, errors.Errorf("pool not empty [%d blocks used]", pool.BlocksUsed())
	}
	r := rand.New(rand.NewSource(seed))
	live := btree.NewWith(3, utils.Int64Comparator)
	freed := doublylinkedlist.New()
	// blocks freed before the soak are in an unknown order
	for i := 0; i < pool.MaxUsed(); i++ {
		freed.Add(nil)
	}
	result := &PoolSoakResult{}
	serials := util.NewSequence(1)
	lastMax := pool.MaxUsed()
	ops := int64(0)

	for i := 0; i < iterations; i++ {
		if live.Size() == 0 || r.Intn(100) < 55 {
			block, err := pool.Alloc()
			if err == fixmem.ErrPoolExhausted {
				result.Exhausted++
				if live.Size() != pool.NumBlocks() {
					return result, errors.Errorf("exhausted with [%d/%d] live", live.Size(), pool.NumBlocks())
				}
				continue
			}
			if err != nil {
				return result, errors.Wrap(err, "alloc")
			}
			for _, b := range block {
				if b != 0 {
					return result, errors.Errorf("block not zeroed at iteration [%d]", i)
				}
			}
			if pool.MaxUsed() == lastMax {
				expected, found := freed.Get(0)
				if !found {
					return result, errors.Errorf("reuse with empty free model at iteration [%d]", i)
				}
				if expected != nil && &expected.([]byte)[0] != &block[0] {
					return result, errors.Errorf("reuse out of FIFO order at iteration [%d]", i)
				}
				freed.Remove(0)
				result.Reuses++
			}
			serial := int64(serials.Next())
			stamp(block, serial)
			live.Put(serial, block)
			result.Allocs++

		} else {
			var key interface{}
			if r.Intn(2) == 0 {
				key = live.LeftKey()
			} else {
				key = live.RightKey()
			}
			v, _ := live.Get(key)
			block := v.([]byte)
			if !stamped(block, key.(int64)) {
				return result, errors.Errorf("block [%d] overwritten", key)
			}
			if err := pool.Free(block); err != nil {
				return result, errors.Wrapf(err, "free [%d]", key)
			}
			live.Remove(key)
			freed.Add(block)
			result.Frees++
		}
		ops++

		if pool.NumFreeBlocks() != pool.NumBlocks()-pool.BlocksUsed() || pool.BlocksUsed() != live.Size() {
			return result, errors.Errorf("conservation violated at iteration [%d]", i)
		}
		if pool.MaxUsed() < lastMax || pool.MaxUsed() > pool.NumBlocks() {
			return result, errors.Errorf("high-water mark [%d] after [%d] at iteration [%d]", pool.MaxUsed(), lastMax, i)
		}
		lastMax = pool.MaxUsed()

		if ops == 1024 {
			rate.Report(ops, ops*int64(pool.BlockSize()))
			ops = 0
		}
	}
	rate.Report(ops, ops*int64(pool.BlockSize()))

	for _, key := range live.Keys() {
		v, _ := live.Get(key)
		if err := pool.Free(v.([]byte)); err != nil {
			return result, errors.Wrapf(err, "draining [%d]", key)
		}
		result.Frees++
	}
	result.MaxUsed = pool.MaxUsed()
	logrus.Infof("allocs [%d], reuses [%d], frees [%d], exhausted [%d], high-water [%d/%d]",
		result.Allocs, result.Reuses, result.Frees, result.Exhausted, result.MaxUsed, pool.NumBlocks())
	return result, nil
}

func stamp(block []byte, serial int64) {
	for i := range block {
		block[i] = byte(serial)
	}
}

func stamped(block []byte, serial int64) bool {
	for _, b := range block {
		if b != byte(serial) {
			return false
		}
	}
	return true
}
