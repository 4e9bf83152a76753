/*Package coil maps magnetic fields onto power supply currents.

A Coil drives one electromagnet from a B+K supply in constant current
mode.  A TrimmedCoil pairs a Coil with a DAC-driven trim winding and
splits a requested field between them, re-commanding the supply only
when the trim winding cannot absorb the change on its own.
*/
package coil

import (
	"fmt"
	"log"

	"github.com/maglab/coilctl/mathx"
)

// CurrentSupply is the slice of the supply's command surface a coil
// needs: set and read back an output current, in amps.
type CurrentSupply interface {
	SetCurrent(amps float64) error
	GetCurrent() (float64, error)
}

// FieldActuator is anything that can produce a magnetic field on
// command.  Coil and TrimCoil both implement it.
type FieldActuator interface {
	SetField(tesla float64) error
	GetField() (float64, error)
}

// Calibration holds the constants of one supply-driven winding.  They
// are fixed for the lifetime of the coil.
type Calibration struct {
	// FieldGain is the field at the coil center per amp of drive, T/A
	FieldGain float64

	// MinCurrent and MaxCurrent bound what the supply may be commanded, A
	MinCurrent float64
	MaxCurrent float64

	// CurrentStep is the smallest commandable current increment, A
	CurrentStep float64
}

// DefaultCalibration returns the command limits of a 1739-driven coil
// with the given field gain.
func DefaultCalibration(fieldGain float64) Calibration {
	return Calibration{
		FieldGain:   fieldGain,
		MinCurrent:  0.001,
		MaxCurrent:  0.9990,
		CurrentStep: 0.0001,
	}
}

// Coil is a single supply-driven electromagnet.  It caches the last
// commanded current and the field it implies; the cache reflects the
// quantization actually sent to the supply, not the value requested.
type Coil struct {
	supply CurrentSupply
	cal    Calibration

	current float64 // A
	field   float64 // T
}

// NewCoil returns a Coil over the given supply.  The cache is primed
// from the supply's true output current, so a coil constructed against
// a hand-adjusted supply starts from reality.
func NewCoil(supply CurrentSupply, cal Calibration) (*Coil, error) {
	cur, err := supply.GetCurrent()
	if err != nil {
		return nil, err
	}
	return &Coil{
		supply:  supply,
		cal:     cal,
		current: cur,
		field:   cur * cal.FieldGain,
	}, nil
}

// Calibration returns the coil's calibration constants.
func (c *Coil) Calibration() Calibration {
	return c.cal
}

// Field returns the cached field in Tesla without touching hardware.
func (c *Coil) Field() float64 {
	return c.field
}

// Current returns the cached drive current in amps without touching
// hardware.
func (c *Coil) Current() float64 {
	return c.current
}

// MaxField returns the largest field this coil can produce.
func (c *Coil) MaxField() float64 {
	return c.cal.MaxCurrent * c.cal.FieldGain
}

// MinField returns the smallest nonzero field this coil can produce.
func (c *Coil) MinField() float64 {
	return c.cal.MinCurrent * c.cal.FieldGain
}

// SetField drives the coil to the given field in Tesla.  Commanding the
// field the coil is already producing is a no-op and performs no device
// write.  The commanded current is quantized to 4 decimal digits, and
// the cache is updated to the quantized value before the write; after a
// failed set the supply state is indeterminate and the caller should
// GetField to re-sync.
func (c *Coil) SetField(tesla float64) error {
	if tesla == c.field {
		log.Printf("coil already set to %v T", c.field)
		return nil
	}
	current := mathx.RoundPlaces(tesla/c.cal.FieldGain, 4)
	if current < c.cal.MinCurrent || current > c.cal.MaxCurrent {
		return fmt.Errorf("coil: field %g T needs %g A, outside the supply's [%g, %g] A",
			tesla, current, c.cal.MinCurrent, c.cal.MaxCurrent)
	}
	c.current = current
	c.field = current * c.cal.FieldGain
	return c.supply.SetCurrent(c.current)
}

// GetField queries the supply's true output current and returns the
// field it implies, refreshing the cache.  Useful after the supply was
// adjusted by hand.
func (c *Coil) GetField() (float64, error) {
	cur, err := c.supply.GetCurrent()
	if err != nil {
		return 0, err
	}
	c.current = cur
	c.field = cur * c.cal.FieldGain
	return c.field, nil
}
