package coil

const (
	// fineRangeSteps sizes the trim winding's usable half-range in
	// units of the main coil's smallest field step.  Stays clear of the
	// op-amp's clamping band near the rails.
	fineRangeSteps = 2.5

	// offsetSteps is how far the main coil is deliberately undershot,
	// in the same units, leaving trim headroom on both sides.  The
	// extra half step biases the supply's %05.1f command rounding
	// toward truncation; boundary deltas land inside the safe band
	// because of it.  Verified against hardware; do not re-center.
	offsetSteps = 3.5
)

// TrimmedCoil splits a field between a supply-driven main coil and a
// DAC-driven trim winding.  Supply writes are slow (serial round trip,
// mode check, settle delay) and coarsely quantized; trim writes are
// cheap and continuous but narrow.  The main coil is re-commanded only
// when the requested change walks the trim winding out of its band.
type TrimmedCoil struct {
	coarse *Coil
	fine   *TrimCoil

	net float64 // T, best estimate of the achieved field
}

// NewTrimmedCoil composes a main coil and a trim winding.
func NewTrimmedCoil(coarse *Coil, fine *TrimCoil) *TrimmedCoil {
	return &TrimmedCoil{
		coarse: coarse,
		fine:   fine,
		net:    coarse.Field(),
	}
}

// step is the smallest field increment the main coil can resolve.
func (tc *TrimmedCoil) step() float64 {
	cal := tc.coarse.Calibration()
	return cal.CurrentStep * cal.FieldGain
}

// SetField drives the pair to the given net field in Tesla.  The main
// coil's contribution is taken from its quantized cache, never assumed
// from the previous target.  The returned TrimUpdate is the DAC write
// that realizes the trim winding's share; it has not been transmitted.
//
// The sequence is fixed: read the main contribution, re-command the
// main coil if the residual is out of band, re-read the contribution,
// then assign the residual to the trim winding.
func (tc *TrimmedCoil) SetField(tesla float64) (TrimUpdate, error) {
	step := tc.step()
	fineRange := fineRangeSteps * step
	offset := offsetSteps * step

	delta := tesla - tc.coarse.Field()
	if delta > offset+fineRange || delta < offset-fineRange {
		// renormalize: park the main coil below the target so the trim
		// winding lands mid-band
		if err := tc.coarse.SetField(tesla - offset); err != nil {
			return TrimUpdate{}, err
		}
	}
	// the main coil's cache now reflects its quantized true setting
	delta = tesla - tc.coarse.Field()
	if err := tc.fine.SetField(delta); err != nil {
		return TrimUpdate{}, err
	}
	tc.net = tesla
	return tc.fine.Pending(), nil
}

// NetField returns the controller's estimate of the achieved field, as
// recorded by the last completed SetField.
func (tc *TrimmedCoil) NetField() float64 {
	return tc.net
}

// GetField reads the field back: the main coil's true current is
// re-queried from the supply and the trim winding's assignment is added.
func (tc *TrimmedCoil) GetField() (float64, error) {
	coarse, err := tc.coarse.GetField()
	if err != nil {
		return 0, err
	}
	fine, err := tc.fine.GetField()
	if err != nil {
		return 0, err
	}
	return coarse + fine, nil
}

// Pending returns the trim winding's deferred DAC write without
// recomputing it.
func (tc *TrimmedCoil) Pending() TrimUpdate {
	return tc.fine.Pending()
}
