package fixmem

import (
	"fmt"
	"github.com/openziti/fixmem/cf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"io"
	"os"
	"sync"
)

type traceInstrument struct {
	config *traceInstrumentConfig
	out    io.Writer
	lock   sync.Mutex
}

type traceInstrumentConfig struct {
	Pool  bool `cf:"pool"`
	Queue bool `cf:"queue"`
	Error bool `cf:"error"`
}

type traceInstrumentInstance struct {
	id string
	i  *traceInstrument
}

func NewTraceInstrument(config map[string]interface{}) (Instrument, error) {
	i := &traceInstrument{
		config: &traceInstrumentConfig{Pool: true, Queue: true, Error: true},
		out:    os.Stdout,
	}
	if err := cf.Load(config, i.config); err != nil {
		return nil, errors.Wrap(err, "unable to load config")
	}
	logrus.Info(cf.Dump("trace", i.config))
	return i, nil
}

func (self *traceInstrument) NewInstance(id string) InstrumentInstance {
	return &traceInstrumentInstance{id: id, i: self}
}

func (self *traceInstrumentInstance) printf(format string, args ...interface{}) {
	self.i.lock.Lock()
	defer self.i.lock.Unlock()
	_, _ = fmt.Fprintf(self.i.out, "&& %-24s "+format+"\n", append([]interface{}{self.id}, args...)...)
}

/*
 * block pool
 */

func (self *traceInstrumentInstance) BlockAllocated(index int, reused bool) {
	if self.i.config.Pool {
		mode := "NEW"
		if reused {
			mode = "REUSE"
		}
		self.printf("%-8s #%-8d %s", "ALLOC", index, mode)
	}
}

func (self *traceInstrumentInstance) PoolExhausted() {
	if self.i.config.Pool {
		self.printf("%-8s", "EXHAUSTED")
	}
}

func (self *traceInstrumentInstance) BlockFreed(index int) {
	if self.i.config.Pool {
		self.printf("%-8s #%-8d", "FREE", index)
	}
}

func (self *traceInstrumentInstance) InvalidFree(err error) {
	if self.i.config.Error {
		self.printf("INVALID FREE: %v", err)
	}
}

/*
 * queue
 */

func (self *traceInstrumentInstance) RecordPut(sz int, wrapped bool) {
	if self.i.config.Queue {
		if wrapped {
			self.printf("%-8s %-8d {wrapped}", "PUT", sz)
		} else {
			self.printf("%-8s %-8d", "PUT", sz)
		}
	}
}

func (self *traceInstrumentInstance) RecordRejected(sz int, err error) {
	if self.i.config.Error {
		self.printf("%-8s %-8d (%v)", "REJECT", sz, err)
	}
}

func (self *traceInstrumentInstance) RecordPurged(sz int) {
	if self.i.config.Queue {
		self.printf("%-8s %-8d", "PURGE", sz)
	}
}

func (self *traceInstrumentInstance) PinMismatch(pins int) {
	if self.i.config.Error {
		self.printf("PIN MISMATCH: %d outstanding after purge", pins)
	}
}

/*
 * instrument lifecycle
 */

func (self *traceInstrumentInstance) Shutdown() {}
