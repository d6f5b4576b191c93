package fixmem

type nilInstrument struct{}

func NewNilInstrument() Instrument {
	return &nilInstrument{}
}

func (self *nilInstrument) NewInstance(_ string) InstrumentInstance {
	return NilInstrumentInstance{}
}

type NilInstrumentInstance struct{}

func (n NilInstrumentInstance) BlockAllocated(int, bool) {}

func (n NilInstrumentInstance) PoolExhausted() {}

func (n NilInstrumentInstance) BlockFreed(int) {}

func (n NilInstrumentInstance) InvalidFree(error) {}

func (n NilInstrumentInstance) RecordPut(int, bool) {}

func (n NilInstrumentInstance) RecordRejected(int, error) {}

func (n NilInstrumentInstance) RecordPurged(int) {}

func (n NilInstrumentInstance) PinMismatch(int) {}

func (n NilInstrumentInstance) Shutdown() {}
