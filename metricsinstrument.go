package fixmem

import (
	"fmt"
	"github.com/openziti/fixmem/cf"
	"github.com/openziti/fixmem/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"io/ioutil"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsId labels every directory written by the metrics instrument.
const MetricsId = "fixmem"

type MetricsInstrument struct {
	lock      sync.Mutex
	Config    *MetricsInstrumentConfig
	enabled   int32
	ctrl      *util.CtrlListener
	instances []*metricsInstrumentInstance
}

type MetricsInstrumentConfig struct {
	Path       string `cf:"path"`
	SnapshotMs int    `cf:"snapshot_ms"`
	Enabled    bool   `cf:"enabled"`
}

func NewMetricsInstrument(config map[string]interface{}) (Instrument, error) {
	i := &MetricsInstrument{
		Config: &MetricsInstrumentConfig{
			Path:       "/tmp/fixmem",
			SnapshotMs: 1000,
		},
	}
	if err := cf.Load(config, i.Config); err != nil {
		return nil, errors.Wrap(err, "unable to load config")
	}
	if i.Config.SnapshotMs < 1 {
		return nil, errors.Errorf("invalid snapshot_ms [%d]", i.Config.SnapshotMs)
	}
	i.SetEnabled(i.Config.Enabled)
	if err := i.addCtrlListener(); err != nil {
		return nil, err
	}
	logrus.Info(cf.Dump("metrics", i.Config))
	return i, nil
}

func (self *MetricsInstrument) addCtrlListener() error {
	cl, err := util.GetCtrlListener(self.Config.Path, MetricsId)
	if err != nil {
		return errors.Wrap(err, "unable to get metrics ctrl listener")
	}
	cl.AddCallback("start", func(string) error {
		self.SetEnabled(true)
		return nil
	})
	cl.AddCallback("stop", func(string) error {
		self.SetEnabled(false)
		return nil
	})
	cl.AddCallback("write", func(string) error {
		err := self.WriteAllSamples()
		if err != nil {
			logrus.Errorf("error writing samples (%v)", err)
		}
		return err
	})
	cl.AddCallback("clean", func(string) error {
		self.clean()
		return nil
	})
	cl.Start()
	self.ctrl = cl
	return nil
}

// CtrlAddr is the unix socket accepting start, stop, write and clean.
func (self *MetricsInstrument) CtrlAddr() string {
	return self.ctrl.Addr()
}

func (self *MetricsInstrument) Enabled() bool {
	return atomic.LoadInt32(&self.enabled) == 1
}

func (self *MetricsInstrument) SetEnabled(enabled bool) {
	if enabled {
		atomic.StoreInt32(&self.enabled, 1)
	} else {
		atomic.StoreInt32(&self.enabled, 0)
	}
}

func (self *MetricsInstrument) NewInstance(id string) InstrumentInstance {
	self.lock.Lock()
	defer self.lock.Unlock()
	ii := newMetricsInstrumentInstance(id, self)
	go ii.snapshotter(self.Config.SnapshotMs)
	self.instances = append(self.instances, ii)
	return ii
}

// WriteAllSamples writes one directory per instance below Config.Path, each holding a
// metrics.id and one CSV per series.
func (self *MetricsInstrument) WriteAllSamples() error {
	self.lock.Lock()
	defer self.lock.Unlock()

	for _, ii := range self.instances {
		if err := os.MkdirAll(self.Config.Path, os.ModePerm); err != nil {
			return err
		}
		instanceName := strings.ReplaceAll(fmt.Sprintf("%s_", ii.id), ":", "-")
		outPath, err := ioutil.TempDir(self.Config.Path, instanceName)
		if err != nil {
			return err
		}
		logrus.Infof("writing metrics to: %s", outPath)

		if err := util.WriteMetricsId(MetricsId, outPath, map[string]string{"instance": ii.id}); err != nil {
			return err
		}
		if err := ii.writeSamples(outPath); err != nil {
			return err
		}
	}
	return nil
}

func (self *MetricsInstrument) clean() {
	self.lock.Lock()
	defer self.lock.Unlock()

	idx := self.findClosed()
	for idx != -1 {
		logrus.Infof("removed metricsInstrumentInstance [%s]", self.instances[idx].id)
		self.instances = append(self.instances[:idx], self.instances[idx+1:]...)
		idx = self.findClosed()
	}
}

func (self *MetricsInstrument) findClosed() int {
	for i, ii := range self.instances {
		if ii.isClosed() {
			return i
		}
	}
	return -1
}

type series struct {
	name    string
	accum   int64
	samples []*util.Sample
}

type metricsInstrumentInstance struct {
	id     string
	i      *MetricsInstrument
	close  chan struct{}
	closed int32
	lock   sync.Mutex

	allocs    series
	reuses    series
	frees     series
	exhausted series
	puts      series
	putBytes  series
	wraps     series
	rejects   series
	purges    series
	errors    series
}

func newMetricsInstrumentInstance(id string, i *MetricsInstrument) *metricsInstrumentInstance {
	return &metricsInstrumentInstance{
		id:        id,
		i:         i,
		close:     make(chan struct{}),
		allocs:    series{name: "allocs"},
		reuses:    series{name: "reuses"},
		frees:     series{name: "frees"},
		exhausted: series{name: "exhausted"},
		puts:      series{name: "puts"},
		putBytes:  series{name: "put_bytes"},
		wraps:     series{name: "wraps"},
		rejects:   series{name: "rejects"},
		purges:    series{name: "purges"},
		errors:    series{name: "errors"},
	}
}

func (self *metricsInstrumentInstance) all() []*series {
	return []*series{
		&self.allocs, &self.reuses, &self.frees, &self.exhausted,
		&self.puts, &self.putBytes, &self.wraps, &self.rejects, &self.purges,
		&self.errors,
	}
}

func (self *metricsInstrumentInstance) add(s *series, v int64) {
	if self.i.Enabled() {
		atomic.AddInt64(&s.accum, v)
	}
}

/*
 * block pool
 */

func (self *metricsInstrumentInstance) BlockAllocated(_ int, reused bool) {
	self.add(&self.allocs, 1)
	if reused {
		self.add(&self.reuses, 1)
	}
}

func (self *metricsInstrumentInstance) PoolExhausted() {
	self.add(&self.exhausted, 1)
}

func (self *metricsInstrumentInstance) BlockFreed(int) {
	self.add(&self.frees, 1)
}

func (self *metricsInstrumentInstance) InvalidFree(err error) {
	if self.i.Enabled() {
		logrus.Errorf("[%s] invalid free (%v)", self.id, err)
	}
	self.add(&self.errors, 1)
}

/*
 * queue
 */

func (self *metricsInstrumentInstance) RecordPut(sz int, wrapped bool) {
	self.add(&self.puts, 1)
	self.add(&self.putBytes, int64(sz))
	if wrapped {
		self.add(&self.wraps, 1)
	}
}

func (self *metricsInstrumentInstance) RecordRejected(int, error) {
	self.add(&self.rejects, 1)
}

func (self *metricsInstrumentInstance) RecordPurged(int) {
	self.add(&self.purges, 1)
}

func (self *metricsInstrumentInstance) PinMismatch(pins int) {
	if self.i.Enabled() {
		logrus.Errorf("[%s] purge with [%d] outstanding pins", self.id, pins)
	}
	self.add(&self.errors, 1)
}

/*
 * instrument lifecycle
 */

func (self *metricsInstrumentInstance) Shutdown() {
	if atomic.CompareAndSwapInt32(&self.closed, 0, 1) {
		close(self.close)
	}
}

func (self *metricsInstrumentInstance) isClosed() bool {
	return atomic.LoadInt32(&self.closed) == 1
}

func (self *metricsInstrumentInstance) snapshotter(ms int) {
	logrus.Infof("[%s] started", self.id)
	defer logrus.Infof("[%s] exited", self.id)

	ticker := time.NewTicker(time.Duration(ms) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if self.i.Enabled() {
				self.snapshot()
			}
		case <-self.close:
			self.snapshot()
			return
		}
	}
}

func (self *metricsInstrumentInstance) snapshot() {
	self.lock.Lock()
	defer self.lock.Unlock()

	now := time.Now()
	for _, s := range self.all() {
		s.samples = append(s.samples, &util.Sample{Ts: now, V: atomic.SwapInt64(&s.accum, 0)})
	}
}

func (self *metricsInstrumentInstance) writeSamples(outPath string) error {
	self.lock.Lock()
	defer self.lock.Unlock()

	for _, s := range self.all() {
		if err := util.WriteSamples(s.name, outPath, s.samples); err != nil {
			return errors.Wrapf(err, "error writing [%s]", s.name)
		}
	}
	return nil
}
