package fixmem

import (
	"github.com/openziti/fixmem/cf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"io/ioutil"
)

const profileVersion = 1

// Profile sizes the pool and queue used by the exercisers and carries the instrument choice.
type Profile struct {
	ProfileVersion int                    `cf:"profile_version"`
	PoolBlocks     int                    `cf:"pool_blocks"`
	PoolBlockSz    int                    `cf:"pool_block_sz"`
	QueueBufferSz  int                    `cf:"queue_buffer_sz"`
	Instrument     map[string]interface{} `cf:"instrument"`
	i              Instrument
}

func NewBaselineProfile() *Profile {
	return &Profile{
		ProfileVersion: profileVersion,
		PoolBlocks:     1024,
		PoolBlockSz:    1024,
		QueueBufferSz:  1024 * 1024,
	}
}

func LoadProfile(path string) (*Profile, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading profile [%s]", path)
	}
	raw := make(map[interface{}]interface{})
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "error parsing profile [%s]", path)
	}
	p := NewBaselineProfile()
	if err := p.Load(cf.MapIToMapS(raw)); err != nil {
		return nil, errors.Wrapf(err, "error loading profile [%s]", path)
	}
	logrus.Infof("loaded profile [%s]", path)
	return p, nil
}

func (self *Profile) Load(data map[string]interface{}) error {
	if v, found := data["profile_version"]; found {
		if i, ok := v.(int); ok {
			if i != profileVersion {
				return errors.Errorf("invalid profile version [%d != %d]", i, profileVersion)
			}
		} else {
			return errors.New("invalid 'profile_version' value")
		}
	} else {
		return errors.New("missing 'profile_version'")
	}
	if err := cf.Load(data, self); err != nil {
		return err
	}
	if self.PoolBlocks < 1 || self.PoolBlockSz < 1 || self.QueueBufferSz <= RecordHeaderSz {
		return errors.Errorf("invalid sizing [pool_blocks=%d, pool_block_sz=%d, queue_buffer_sz=%d]", self.PoolBlocks, self.PoolBlockSz, self.QueueBufferSz)
	}
	self.i = nil
	return nil
}

// NewInstrument resolves the instrument section once; later calls return the same instrument.
func (self *Profile) NewInstrument() (Instrument, error) {
	if self.i != nil {
		return self.i, nil
	}
	name := ""
	var config map[string]interface{}
	if self.Instrument != nil {
		if v, found := self.Instrument["name"]; found {
			s, ok := v.(string)
			if !ok {
				return nil, errors.New("invalid 'instrument/name' value")
			}
			name = s
		}
		if v, found := self.Instrument["config"]; found {
			m, ok := v.(map[string]interface{})
			if !ok {
				return nil, errors.New("invalid 'instrument/config' value")
			}
			config = m
		}
	}
	i, err := NewInstrument(name, config)
	if err != nil {
		return nil, errors.Wrap(err, "error creating instrument")
	}
	self.i = i
	return i, nil
}

// NewBlockPool allocates a fresh buffer and lays a pool over it, sized by the profile.
func (self *Profile) NewBlockPool(id string) (*BlockPool, error) {
	i, err := self.NewInstrument()
	if err != nil {
		return nil, err
	}
	return NewBlockPool(make([]byte, self.PoolBlocks*self.PoolBlockSz), self.PoolBlocks, self.PoolBlockSz, i.NewInstance(id))
}

// NewBoundedQueue allocates a fresh buffer and lays a queue over it, sized by the profile.
func (self *Profile) NewBoundedQueue(id string) (*BoundedQueue, error) {
	i, err := self.NewInstrument()
	if err != nil {
		return nil, err
	}
	return NewBoundedQueue(make([]byte, self.QueueBufferSz), i.NewInstance(id)), nil
}

func (self *Profile) Dump() string {
	return cf.Dump("profile", self)
}
