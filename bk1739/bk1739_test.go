package bk1739

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/maglab/coilctl/comm"

	"golang.org/x/time/rate"
)

var (
	_ Controller = &Supply{}
	_ Controller = &MockSupply{}
)

// scriptPort plays back canned device responses, one chunk per read.
type scriptPort struct {
	reads   [][]byte
	writes  [][]byte
	flushes int
	closed  bool
}

func (p *scriptPort) Read(b []byte) (int, error) {
	if len(p.reads) == 0 {
		return 0, io.EOF
	}
	n := copy(b, p.reads[0])
	p.reads = p.reads[1:]
	return n, nil
}

func (p *scriptPort) Write(b []byte) (int, error) {
	cp := make([]byte, len(b))
	copy(cp, b)
	p.writes = append(p.writes, cp)
	return len(b), nil
}

func (p *scriptPort) Close() error {
	p.closed = true
	return nil
}

func (p *scriptPort) Flush() error {
	p.flushes++
	p.reads = nil
	return nil
}

// frame wraps a payload in the device's start/stop markers.
func frame(payload string) []byte {
	b := []byte{frameStart}
	b = append(b, payload...)
	return append(b, frameStop)
}

func newTestSupply(p *scriptPort) *Supply {
	conn := &comm.Connection{
		Addr: "fake",
		Opener: func() (io.ReadWriteCloser, error) {
			return p, nil
		},
	}
	return &Supply{
		conn:    conn,
		Settle:  time.Millisecond,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func TestExtractFrameSkipsLeadingNoise(t *testing.T) {
	chunks := [][]byte{
		{0x02, 'x'},
		append([]byte{frameStart}, "12."...),
		append([]byte("3"), frameStop, 'j', 'u', 'n', 'k'),
	}
	drain := func() ([]byte, error) {
		if len(chunks) == 0 {
			return nil, nil
		}
		c := chunks[0]
		chunks = chunks[1:]
		return c, nil
	}
	payload, found, err := extractFrame(drain)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("frame not found")
	}
	if string(payload) != "12.3" {
		t.Errorf("expected payload 12.3, got %q", payload)
	}
}

func TestExtractFrameAcceptsCarriageReturnDelimiter(t *testing.T) {
	chunks := [][]byte{append([]byte{frameStart}, "CV\r"...)}
	drain := func() ([]byte, error) {
		if len(chunks) == 0 {
			return nil, nil
		}
		c := chunks[0]
		chunks = chunks[1:]
		return c, nil
	}
	payload, found, err := extractFrame(drain)
	if err != nil || !found {
		t.Fatal("frame not found:", err)
	}
	if string(payload) != "CV" {
		t.Errorf("expected payload CV, got %q", payload)
	}
}

func TestExtractFrameSilentAck(t *testing.T) {
	drain := func() ([]byte, error) { return nil, nil }
	payload, found, err := extractFrame(drain)
	if err != nil {
		t.Fatal(err)
	}
	if found || len(payload) != 0 {
		t.Errorf("expected silent ack, got found=%v payload=%q", found, payload)
	}
}

func TestDecodeResponse(t *testing.T) {
	r := decodeResponse(nil)
	if r.Kind != RespEmpty {
		t.Error("empty payload did not decode as RespEmpty")
	}
	r = decodeResponse([]byte("CV"))
	if r.Kind != RespText || r.Text != "CV" {
		t.Errorf("CV decoded as %+v", r)
	}
	r = decodeResponse([]byte("012.3"))
	if r.Kind != RespNumeric || r.Value != 12.3 {
		t.Errorf("012.3 decoded as %+v", r)
	}
	r = decodeResponse([]byte("Syntax Error"))
	if r.Kind != RespText || r.Text != "Syntax Error" {
		t.Errorf("Syntax Error decoded as %+v", r)
	}
}

func TestClassifyError(t *testing.T) {
	if err := classifyError("Syntax Error"); !errors.Is(err, ErrSyntax) {
		t.Error("Syntax Error did not classify to ErrSyntax")
	}
	if err := classifyError("Out Of Range"); !errors.Is(err, ErrOutOfRange) {
		t.Error("Out Of Range did not classify to ErrOutOfRange")
	}
	err := classifyError("gibberish")
	var unk UnknownDeviceError
	if !errors.As(err, &unk) {
		t.Fatal("unrecognized text did not classify to UnknownDeviceError")
	}
	if unk.Raw != "gibberish" {
		t.Errorf("raw text not preserved, got %q", unk.Raw)
	}
}

func TestModeQuery(t *testing.T) {
	p := &scriptPort{reads: [][]byte{frame("CC")}}
	s := newTestSupply(p)
	m, err := s.Mode()
	if err != nil {
		t.Fatal(err)
	}
	if m != ConstantCurrent {
		t.Errorf("expected CC, got %s", m)
	}
	if !bytes.Equal(p.writes[0], []byte("STAT?\r")) {
		t.Errorf("expected STAT? command, wrote %q", p.writes[0])
	}
}

func TestRequireModeMatchPasses(t *testing.T) {
	p := &scriptPort{reads: [][]byte{frame("CC")}}
	s := newTestSupply(p)
	if err := s.conn.Open(); err != nil {
		t.Fatal(err)
	}
	if err := s.requireMode(ConstantCurrent); err != nil {
		t.Error("requireMode failed with matching mode:", err)
	}
}

func TestSetCurrentWrongMode(t *testing.T) {
	p := &scriptPort{reads: [][]byte{frame("CV")}}
	s := newTestSupply(p)
	err := s.SetCurrent(0.1)
	var ime IncorrectModeError
	if !errors.As(err, &ime) {
		t.Fatal("expected IncorrectModeError, got", err)
	}
	if ime.Expected != ConstantCurrent || ime.Actual != ConstantVoltage {
		t.Errorf("wrong modes in error: %+v", ime)
	}
	if len(p.writes) != 1 {
		t.Errorf("set command went out despite wrong mode: %d writes", len(p.writes))
	}
}

func TestSetCurrentFormatsMilliamps(t *testing.T) {
	p := &scriptPort{reads: [][]byte{frame("CC")}}
	s := newTestSupply(p)
	if err := s.SetCurrent(0.1); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p.writes[1], []byte("CURR 100.0\r")) {
		t.Errorf("expected CURR 100.0, wrote %q", p.writes[1])
	}
	if !p.closed {
		t.Error("auto-opened port was not closed after the operation")
	}
}

func TestSetCurrentDeviceError(t *testing.T) {
	p := &scriptPort{reads: [][]byte{frame("CC")}}
	s := newTestSupply(p)
	// Flush clears the script, so queue the error reply after the mode
	// frame has been consumed
	if err := s.conn.Open(); err != nil {
		t.Fatal(err)
	}
	if err := s.requireMode(ConstantCurrent); err != nil {
		t.Fatal(err)
	}
	p.reads = [][]byte{frame("Out Of Range")}
	resp, err := s.exchange("CURR 000.0")
	if err != nil {
		t.Fatal(err)
	}
	if err := classifyError(resp.Text); !errors.Is(err, ErrOutOfRange) {
		t.Error("device error text did not classify to ErrOutOfRange")
	}
}

func TestGetCurrentConvertsUnits(t *testing.T) {
	p := &scriptPort{reads: [][]byte{frame("100.0")}}
	s := newTestSupply(p)
	a, err := s.GetCurrent()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(a-0.1) > 1e-12 {
		t.Errorf("expected 0.1 A for a 100.0 mA reply, got %v", a)
	}
}

func TestInputFlushedOncePerMessage(t *testing.T) {
	p := &scriptPort{reads: [][]byte{frame("100.0")}}
	s := newTestSupply(p)
	// hold the port open so the close-time flush does not run
	if err := s.conn.Open(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetCurrent(); err != nil {
		t.Fatal(err)
	}
	if p.flushes != 1 {
		t.Errorf("expected exactly one flush per extracted message, got %d", p.flushes)
	}
}

func TestSilentAckDoesNotFlush(t *testing.T) {
	p := &scriptPort{}
	s := newTestSupply(p)
	if err := s.conn.Open(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ID(); err != nil {
		t.Fatal(err)
	}
	if p.flushes != 0 {
		t.Errorf("flush ran with no message extracted, %d times", p.flushes)
	}
}

func TestMockCurrentRoundTrip(t *testing.T) {
	m := NewMockSupply("mock")
	for c := 0.0005; c < 0.9995; c += 0.0007 {
		if err := m.SetCurrent(c); err != nil {
			t.Fatal("set", c, "errored:", err)
		}
		got, err := m.GetCurrent()
		if err != nil {
			t.Fatal(err)
		}
		// one quantization step is 0.1 mA
		if math.Abs(got-c) > 0.5e-4+1e-12 {
			t.Fatalf("set %v A read back %v A, outside quantization", c, got)
		}
	}
}

func TestMockEnforcesLimits(t *testing.T) {
	m := NewMockSupply("mock")
	if err := m.SetCurrent(1.5); !errors.Is(err, ErrSyntax) {
		t.Error("over-wide current did not produce ErrSyntax")
	}
	if err := m.SetCurrent(0.00001); !errors.Is(err, ErrOutOfRange) {
		t.Error("sub-minimum current did not produce ErrOutOfRange")
	}
	if err := m.SetVoltage(5); err == nil {
		t.Error("voltage set accepted in CC mode")
	}
	m.SetMode(ConstantVoltage)
	if err := m.SetVoltage(5); err != nil {
		t.Error("voltage set rejected in CV mode:", err)
	}
}
