package fixmem

import "github.com/pkg/errors"

// Instrument creates per-structure event sinks. Implementations decide what to keep; the
// structures themselves only ever call InstrumentInstance methods.
type Instrument interface {
	NewInstance(id string) InstrumentInstance
}

type InstrumentInstance interface {
	// block pool
	BlockAllocated(index int, reused bool)
	PoolExhausted()
	BlockFreed(index int)
	InvalidFree(err error)

	// queue
	RecordPut(sz int, wrapped bool)
	RecordRejected(sz int, err error)
	RecordPurged(sz int)
	PinMismatch(pins int)

	// instrument lifecycle
	Shutdown()
}

func NewInstrument(name string, config map[string]interface{}) (i Instrument, err error) {
	switch name {
	case "metrics":
		return NewMetricsInstrument(config)
	case "nil", "":
		return NewNilInstrument(), nil
	case "trace":
		return NewTraceInstrument(config)
	default:
		return nil, errors.Errorf("unknown instrument '%s'", name)
	}
}
