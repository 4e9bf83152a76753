/*Package bk1739 provides an interface to B+K Precision 1739 power supplies.

The 1739 speaks a small ASCII vocabulary over RS-232 at 9600 8N1:

	STAT?        query operating mode, replies CV or CC
	IDN?         query identity
	VOLT dd.dd   set voltage, 5 characters, 2 decimals
	VOLT?        query voltage in volts
	CURR ddd.d   set current in milliamps, 5 characters, 1 decimal
	CURR?        query current in milliamps

Set commands succeed silently; any reply to one is an error message.
The supply needs a settle delay between a command and its response, and
mode-specific commands fail unless the front-panel mode matches, so
every public method queries the mode fresh rather than caching it.

Currents cross this API in amps; the conversion to the supply's
milliamps happens at the wire.
*/
package bk1739

import (
	"context"
	"fmt"
	"time"

	"github.com/maglab/coilctl/comm"

	"github.com/tarm/serial"
	"golang.org/x/time/rate"
)

// settleDelay is how long the supply needs after a command before its
// response begins to arrive.  Lengthen this if commands error out.
const settleDelay = 50 * time.Millisecond

// Mode is an operating mode of the supply.
type Mode int

const (
	// ConstantVoltage is the CV operating mode
	ConstantVoltage Mode = iota

	// ConstantCurrent is the CC operating mode
	ConstantCurrent
)

func (m Mode) String() string {
	if m == ConstantVoltage {
		return "CV"
	}
	return "CC"
}

// parseMode maps the STAT? reply text onto a Mode.
func parseMode(s string) (Mode, bool) {
	switch s {
	case "CV":
		return ConstantVoltage, true
	case "CC":
		return ConstantCurrent, true
	default:
		return 0, false
	}
}

// Controller is the command surface of a 1739.  *Supply implements it
// against hardware and *MockSupply implements it in memory.
type Controller interface {
	ID() (string, error)
	Mode() (Mode, error)
	SetVoltage(volts float64) error
	GetVoltage() (float64, error)
	SetCurrent(amps float64) error
	GetCurrent() (float64, error)
}

// makeSerConf makes a new serial.Config with the 1739's line
// parameters: 9600 baud, 8 data bits, no parity, one stop bit.
func makeSerConf(addr string) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        9600,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: settleDelay}
}

// Supply represents a single 1739 power supply on a serial line.
// It is not safe for concurrent use; the supply cannot interleave
// commands on one line.
type Supply struct {
	conn *comm.Connection

	// Settle is the post-write delay before reads begin.
	Settle time.Duration

	limiter *rate.Limiter
}

// NewSupply returns a new Supply on the given port address.  The port
// is opened lazily around each operation and left open if it already
// was, so a caller holding the port open across several commands pays
// for one open.
func NewSupply(addr string) *Supply {
	return &Supply{
		conn:    comm.NewConnection(makeSerConf(addr)),
		Settle:  settleDelay,
		limiter: rate.NewLimiter(rate.Every(settleDelay), 1),
	}
}

// Conn exposes the underlying connection so a caller may hold the port
// open across a batch of commands.
func (s *Supply) Conn() *comm.Connection {
	return s.conn
}

// exchange writes one command and extracts one response.  The port must
// already be open.  No response within the drain window decodes as
// RespEmpty; a timeout is indistinguishable from a silent ack.
func (s *Supply) exchange(cmd string) (Response, error) {
	s.limiter.Wait(context.Background())
	if err := s.conn.Write(encode(cmd)); err != nil {
		return Response{}, err
	}
	time.Sleep(s.Settle)
	payload, found, err := extractFrame(s.conn.ReadAvailable)
	if err != nil {
		return Response{}, err
	}
	if found {
		// clear partial frames or echo noise lingering behind the message
		if err := s.conn.FlushInput(); err != nil {
			return Response{}, err
		}
	}
	return decodeResponse(payload), nil
}

// requireMode fails with IncorrectModeError unless the supply is in the
// expected mode.  The mode is queried fresh on every call; the front
// panel may have been adjusted by hand since the last command.
func (s *Supply) requireMode(expected Mode) error {
	resp, err := s.exchange("STAT?")
	if err != nil {
		return err
	}
	if resp.Kind != RespText {
		return classifyError(resp.Text)
	}
	actual, ok := parseMode(resp.Text)
	if !ok {
		return classifyError(resp.Text)
	}
	if actual != expected {
		return IncorrectModeError{Expected: expected, Actual: actual}
	}
	return nil
}

// ID returns the supply's identity string,
// usually "B+K PRECISION 1739 Revision x.x".
func (s *Supply) ID() (string, error) {
	wasOpen, err := s.conn.EnsureOpen()
	if err != nil {
		return "", err
	}
	defer s.conn.CloseIfOpened(wasOpen)
	resp, err := s.exchange("IDN?")
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Mode returns the present operating mode of the supply.
func (s *Supply) Mode() (Mode, error) {
	wasOpen, err := s.conn.EnsureOpen()
	if err != nil {
		return 0, err
	}
	defer s.conn.CloseIfOpened(wasOpen)
	resp, err := s.exchange("STAT?")
	if err != nil {
		return 0, err
	}
	if resp.Kind != RespText {
		return 0, classifyError(resp.Text)
	}
	m, ok := parseMode(resp.Text)
	if !ok {
		return 0, classifyError(resp.Text)
	}
	return m, nil
}

// SetVoltage sets the output voltage in volts.  Resolution is 0.01 V,
// maximum 99.99 V.  The supply must be in constant voltage mode.
func (s *Supply) SetVoltage(volts float64) error {
	wasOpen, err := s.conn.EnsureOpen()
	if err != nil {
		return err
	}
	defer s.conn.CloseIfOpened(wasOpen)
	if err := s.requireMode(ConstantVoltage); err != nil {
		return err
	}
	resp, err := s.exchange(fmt.Sprintf("VOLT %05.2f", volts))
	if err != nil {
		return err
	}
	if resp.Kind != RespEmpty {
		return classifyError(resp.Text)
	}
	return nil
}

// GetVoltage returns the output voltage in volts.  The supply must be
// in constant voltage mode.
func (s *Supply) GetVoltage() (float64, error) {
	wasOpen, err := s.conn.EnsureOpen()
	if err != nil {
		return 0, err
	}
	defer s.conn.CloseIfOpened(wasOpen)
	if err := s.requireMode(ConstantVoltage); err != nil {
		return 0, err
	}
	resp, err := s.exchange("VOLT?")
	if err != nil {
		return 0, err
	}
	if resp.Kind != RespNumeric {
		return 0, classifyError(resp.Text)
	}
	return resp.Value, nil
}

// SetCurrent sets the output current in amps.  Resolution is 0.1 mA,
// maximum 0.9999 A.  The supply must be in constant current mode.
func (s *Supply) SetCurrent(amps float64) error {
	wasOpen, err := s.conn.EnsureOpen()
	if err != nil {
		return err
	}
	defer s.conn.CloseIfOpened(wasOpen)
	if err := s.requireMode(ConstantCurrent); err != nil {
		return err
	}
	// the supply speaks milliamps
	resp, err := s.exchange(fmt.Sprintf("CURR %05.1f", amps*1e3))
	if err != nil {
		return err
	}
	if resp.Kind != RespEmpty {
		return classifyError(resp.Text)
	}
	return nil
}

// GetCurrent returns the output current in amps.  Reads do not need a
// mode guard; CURR? answers in either mode.
func (s *Supply) GetCurrent() (float64, error) {
	wasOpen, err := s.conn.EnsureOpen()
	if err != nil {
		return 0, err
	}
	defer s.conn.CloseIfOpened(wasOpen)
	resp, err := s.exchange("CURR?")
	if err != nil {
		return 0, err
	}
	if resp.Kind != RespNumeric {
		return 0, classifyError(resp.Text)
	}
	return resp.Value * 1e-3, nil
}

// Raw sends an arbitrary command to the supply and returns the decoded
// response without interpretation.  An escape hatch for commands not
// covered by the typed methods.
func (s *Supply) Raw(cmd string) (Response, error) {
	wasOpen, err := s.conn.EnsureOpen()
	if err != nil {
		return Response{}, err
	}
	defer s.conn.CloseIfOpened(wasOpen)
	return s.exchange(cmd)
}
