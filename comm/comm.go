/*Package comm provides scoped serial connection handling for lab hardware.

The B+K supplies live on RS-232 lines that may be shared between several
call sites in one process.  A Connection tracks whether the port is open
and offers a pair of primitives, EnsureOpen and CloseIfOpened, that give
every operation "open if not already open, close only if we opened it"
semantics:

	wasOpen, err := conn.EnsureOpen()
	if err != nil {
		return err
	}
	defer conn.CloseIfOpened(wasOpen)
	// ... talk to the device ...

Nested call sites compose naturally; the outermost caller that performed
the open is the one that closes.
*/
package comm

import (
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

var (
	// ErrNotConnected is generated when an I/O method is called on a
	// Connection whose port is not open.
	ErrNotConnected = errors.New("comm: port is not open")
)

// CreationFunc is a function which returns a new "connection" to something.
// A closure should be used to encapsulate the variables and functions needed.
type CreationFunc func() (io.ReadWriteCloser, error)

// flusher is any port which can discard its pending input.
// *serial.Port satisfies this.
type flusher interface {
	Flush() error
}

// Connection owns a serial port and its open/closed state.
type Connection struct {
	// Addr is the filesystem address of the port, e.g. /dev/ttyS4
	Addr string

	// Opener produces the underlying port.  The default opens Addr as a
	// serial port with cfg; it may be replaced to wire in a different
	// transport or a loopback for testing.
	Opener CreationFunc

	conn io.ReadWriteCloser
}

// NewConnection returns a Connection that opens addr with the given
// serial configuration.  The port is not opened until Open or EnsureOpen.
func NewConnection(cfg *serial.Config) *Connection {
	return &Connection{
		Addr: cfg.Name,
		Opener: func() (io.ReadWriteCloser, error) {
			return serial.OpenPort(cfg)
		},
	}
}

// IsOpen reports whether the port is currently open.
func (c *Connection) IsOpen() bool {
	return c.conn != nil
}

// Open opens the port.  Transient open failures are retried with an
// exponential backoff; serial drivers do not like being thrashed.
func (c *Connection) Open() error {
	op := func() error {
		conn, err := c.Opener()
		if err != nil {
			return err
		}
		c.conn = conn
		return nil
	}
	return backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
}

// Close discards any pending input and closes the port.  Bytes that
// arrived but were never read are dropped, not delivered later.
func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	c.FlushInput()
	err := c.conn.Close()
	if err == nil {
		c.conn = nil
	}
	return err
}

// EnsureOpen opens the port if it is not already open.  The returned
// flag records whether the port was open beforehand and must be handed
// to CloseIfOpened when the operation completes.
func (c *Connection) EnsureOpen() (wasOpen bool, err error) {
	if c.IsOpen() {
		return true, nil
	}
	return false, c.Open()
}

// CloseIfOpened closes the port only if the paired EnsureOpen call
// performed the open.  Safe to defer on every exit path.
func (c *Connection) CloseIfOpened(wasOpen bool) error {
	if wasOpen || !c.IsOpen() {
		return nil
	}
	return c.Close()
}

// Write sends raw bytes to the port.
func (c *Connection) Write(b []byte) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	_, err := c.conn.Write(b)
	return err
}

// ReadAvailable drains whatever bytes have arrived on the port.  A
// timeout with nothing waiting yields an empty slice and a nil error;
// it is not distinguishable from the device staying silent.
func (c *Connection) ReadAvailable() ([]byte, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	buf := make([]byte, 128)
	n, err := c.conn.Read(buf)
	if err == io.EOF {
		// tarm/serial reports a read timeout as EOF
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// FlushInput discards any bytes waiting in the input buffer.
func (c *Connection) FlushInput() error {
	if c.conn == nil {
		return ErrNotConnected
	}
	if f, ok := c.conn.(flusher); ok {
		return f.Flush()
	}
	return nil
}
