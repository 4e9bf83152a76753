package coil

// TrimUpdate is a DAC write computed by a trim coil but not yet sent to
// hardware.  Trim writes are batched with the other DAC channels by an
// external writer to keep the DAC link traffic down, so SetField hands
// the value back instead of transmitting it.
type TrimUpdate struct {
	// DAC is the name of the DAC channel driving the trim winding
	DAC string `json:"dac"`

	// Volts is the voltage to program on that channel
	Volts float64 `json:"volts"`
}

// TrimCoil is a small auxiliary winding driven by a DAC through an
// op-amp current source.  It is fast to command and continuous, but
// only covers a narrow band of field around the main coil's setting.
type TrimCoil struct {
	dac         string
	fieldGain   float64 // T/A
	voltsPerAmp float64 // op-amp current source gain, V/A

	field    float64 // T, portion of the net field assigned here
	dacVolts float64 // V, pending value for the DAC
}

// NewTrimCoil returns a TrimCoil on the named DAC channel.
// fieldGain is the winding's T/A constant; voltsPerAmp is the op-amp
// current source's transconductance (250 V/A on the standard board).
func NewTrimCoil(dac string, fieldGain, voltsPerAmp float64) *TrimCoil {
	return &TrimCoil{dac: dac, fieldGain: fieldGain, voltsPerAmp: voltsPerAmp}
}

// SetField assigns the trim winding a field in Tesla.  Only the pending
// DAC voltage is computed; nothing is transmitted.  Collect the write
// with Pending.
func (t *TrimCoil) SetField(tesla float64) error {
	t.field = tesla
	// V = I*R for the op-amp current source
	t.dacVolts = tesla / t.fieldGain * t.voltsPerAmp
	return nil
}

// GetField returns the field presently assigned to the trim winding.
func (t *TrimCoil) GetField() (float64, error) {
	return t.field, nil
}

// Pending returns the DAC write that realizes the last SetField.
func (t *TrimCoil) Pending() TrimUpdate {
	return TrimUpdate{DAC: t.dac, Volts: t.dacVolts}
}
