package bk1739

import (
	"bytes"
)

// the 1739 frames its responses on the wire as
// [0x13] [payload] [0x11 or CR]
// commands sent to it are terminated with a single CR.
// a command that succeeded with nothing to report produces no frame at
// all; the absence of a start marker is a silent acknowledgement.

const (
	// frameStart is the byte that opens a device response
	frameStart = 0x13

	// frameStop is the byte that closes a device response
	frameStop = 0x11

	// terminator ends outgoing commands and is accepted as a fallback
	// close for incoming frames
	terminator = '\r'

	// maxEmptyDrains is how many consecutive empty reads are tolerated
	// before the device is assumed to be done talking
	maxEmptyDrains = 3
)

// encode renders a command string into its on-wire form.
func encode(cmd string) []byte {
	return append([]byte(cmd), terminator)
}

// delimiterIndex returns the index of the first frame delimiter in b,
// or -1 if none is present.
func delimiterIndex(b []byte) int {
	for i, v := range b {
		if v == frameStop || v == terminator {
			return i
		}
	}
	return -1
}

// extractFrame repeatedly drains the input and scans for a single
// delimited message.  It returns the payload between the start marker
// and the first delimiter, and whether a frame was seen at all.  Noise
// ahead of the start marker is discarded.  Only the first fully
// delimited message per call is captured; anything behind it is left
// for the caller to flush.
func extractFrame(drain func() ([]byte, error)) (payload []byte, found bool, err error) {
	var acc []byte
	empties := 0
	for empties < maxEmptyDrains {
		chunk, err := drain()
		if err != nil {
			return nil, false, err
		}
		if len(chunk) == 0 {
			empties++
		} else {
			empties = 0
			acc = append(acc, chunk...)
		}
		start := bytes.IndexByte(acc, frameStart)
		if start < 0 {
			continue
		}
		body := acc[start+1:]
		if i := delimiterIndex(body); i >= 0 {
			return body[:i], true, nil
		}
	}
	start := bytes.IndexByte(acc, frameStart)
	if start < 0 {
		// the device never spoke; a silent ack, not an error
		return nil, false, nil
	}
	// started but never delimited; hand back the partial frame so the
	// caller's flush clears the line behind it
	return acc[start+1:], true, nil
}
