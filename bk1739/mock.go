package bk1739

import (
	"sync"

	"github.com/maglab/coilctl/mathx"
)

// MockSupply is an in-memory stand-in for a 1739.  It applies the same
// mode discipline, quantization, and limits as the hardware so the coil
// layers and the HTTP surface can be exercised without a serial line.
type MockSupply struct {
	sync.Mutex
	mode   Mode
	volts  float64
	amps   float64
	writes int
}

// NewMockSupply returns a mock supply in constant current mode with
// zero output.
func NewMockSupply(addr string) *MockSupply {
	return &MockSupply{mode: ConstantCurrent}
}

// SetMode adjusts the operating mode, standing in for the front-panel
// switch the hardware has.
func (m *MockSupply) SetMode(mode Mode) {
	m.Lock()
	defer m.Unlock()
	m.mode = mode
}

// WriteCount returns how many set commands have been accepted.
func (m *MockSupply) WriteCount() int {
	m.Lock()
	defer m.Unlock()
	return m.writes
}

// ID implements Controller.
func (m *MockSupply) ID() (string, error) {
	return "B+K PRECISION 1739 Revision 1.3 (mock)", nil
}

// Mode implements Controller.
func (m *MockSupply) Mode() (Mode, error) {
	m.Lock()
	defer m.Unlock()
	return m.mode, nil
}

// SetVoltage implements Controller with the hardware's limits:
// minimum 0.01 V, maximum 99.99 V.
func (m *MockSupply) SetVoltage(volts float64) error {
	m.Lock()
	defer m.Unlock()
	if m.mode != ConstantVoltage {
		return IncorrectModeError{Expected: ConstantVoltage, Actual: m.mode}
	}
	if volts > 99.99 {
		return ErrSyntax
	}
	if volts < 0.01 {
		return ErrOutOfRange
	}
	m.volts = mathx.RoundPlaces(volts, 2)
	m.writes++
	return nil
}

// GetVoltage implements Controller.
func (m *MockSupply) GetVoltage() (float64, error) {
	m.Lock()
	defer m.Unlock()
	if m.mode != ConstantVoltage {
		return 0, IncorrectModeError{Expected: ConstantVoltage, Actual: m.mode}
	}
	return m.volts, nil
}

// SetCurrent implements Controller with the hardware's limits:
// minimum 0.1 mA, maximum 999.9 mA, quantized to 0.1 mA.
func (m *MockSupply) SetCurrent(amps float64) error {
	m.Lock()
	defer m.Unlock()
	if m.mode != ConstantCurrent {
		return IncorrectModeError{Expected: ConstantCurrent, Actual: m.mode}
	}
	mA := amps * 1e3
	if mA > 999.9 {
		return ErrSyntax
	}
	if mA < 0.1 {
		return ErrOutOfRange
	}
	m.amps = mathx.RoundPlaces(mA, 1) * 1e-3
	m.writes++
	return nil
}

// GetCurrent implements Controller.  Reads work in either mode, like
// the hardware.
func (m *MockSupply) GetCurrent() (float64, error) {
	m.Lock()
	defer m.Unlock()
	return m.amps, nil
}
