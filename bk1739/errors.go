package bk1739

import (
	"errors"
	"fmt"
)

// the supply reports failures as plain-text frames.  These are protocol
// errors from a healthy device; transport failures (port missing, line
// dead) surface as the underlying I/O error and are never classified
// into this taxonomy.

var (
	// ErrSyntax is generated when the supply rejects a command as
	// malformed, which includes values formatted wider than it accepts.
	ErrSyntax = errors.New("bk1739: syntax error, command not a number or value too large for the supply")

	// ErrOutOfRange is generated when the supply rejects a value outside
	// its accepted bounds.  The minimums are 0.01 V and 0.1 mA.
	ErrOutOfRange = errors.New("bk1739: value out of range for the supply")
)

// UnknownDeviceError is any device text not in the known error
// vocabulary.  The raw message is preserved for diagnostics.
type UnknownDeviceError struct {
	Raw string
}

func (e UnknownDeviceError) Error() string {
	return fmt.Sprintf("bk1739: unrecognized message from supply: %q", e.Raw)
}

// IncorrectModeError is generated when a command requires the supply to
// be in one operating mode and it is in the other.
type IncorrectModeError struct {
	Expected, Actual Mode
}

func (e IncorrectModeError) Error() string {
	return fmt.Sprintf("bk1739: supply is in %s mode, command requires %s", e.Actual, e.Expected)
}

// classifyError maps device error text onto the error taxonomy.
func classifyError(text string) error {
	switch text {
	case "Syntax Error":
		return ErrSyntax
	case "Out Of Range":
		return ErrOutOfRange
	default:
		return UnknownDeviceError{Raw: text}
	}
}
