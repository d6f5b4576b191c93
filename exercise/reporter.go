package exercise

import (
	"github.com/openziti/fixmem/util"
	"github.com/sirupsen/logrus"
	"time"
)

type report struct {
	stamp time.Time
	ops   int64
	bytes int64
}

// Reporter logs operation and byte rates once a second. Reports are queued on a channel so
// the exercise loop never waits on logging.
type Reporter struct {
	label      string
	in         chan *report
	pending    []*report
	lastReport time.Time
	totalOps   int64
	totalBytes int64
	done       chan struct{}
}

func NewReporter(label string) *Reporter {
	return &Reporter{
		label: label,
		in:    make(chan *report, 1024),
		done:  make(chan struct{}),
	}
}

func (self *Reporter) Report(ops, bytes int64) {
	if self == nil {
		return
	}
	self.in <- &report{stamp: time.Now(), ops: ops, bytes: bytes}
}

// Close stops the reporter and waits for the final totals to be logged.
func (self *Reporter) Close() {
	if self == nil {
		return
	}
	close(self.in)
	<-self.done
}

func (self *Reporter) Totals() (ops, bytes int64) {
	return self.totalOps, self.totalBytes
}

func (self *Reporter) Run() {
	logrus.Infof("[%s] started", self.label)
	defer logrus.Infof("[%s] exited", self.label)
	defer close(self.done)

	self.lastReport = time.Now()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-self.in:
			if !ok {
				self.flush(time.Now(), true)
				logrus.Infof("[%s] %d ops, %s total", self.label, self.totalOps, util.BytesToSize(self.totalBytes))
				return
			}
			self.pending = append(self.pending, r)
			self.totalOps += r.ops
			self.totalBytes += r.bytes

		case now := <-ticker.C:
			self.flush(now, false)
		}
	}
}

func (self *Reporter) flush(now time.Time, final bool) {
	if !final && now.Sub(self.lastReport) < time.Second {
		return
	}
	ops := int64(0)
	bytes := int64(0)
	lastI := -1
	for i := 0; i < len(self.pending); i++ {
		if !final && !self.pending[i].stamp.Before(self.lastReport.Add(time.Second)) {
			break
		}
		ops += self.pending[i].ops
		bytes += self.pending[i].bytes
		lastI = i
	}
	self.pending = self.pending[lastI+1:]
	self.lastReport = now
	if ops > 0 {
		logrus.Infof("[%s] %d ops/sec, %s/sec [%d pending]", self.label, ops, util.BytesToSize(bytes), len(self.pending))
	}
}
