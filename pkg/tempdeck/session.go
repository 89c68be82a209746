package tempdeck

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate matches the tempdeck firmware's USB-CDC link (8N1).
	DefaultBaudRate = 9600
	// DefaultReadTimeout bounds the wait for each response line.
	DefaultReadTimeout = 500 * time.Millisecond

	// Documented operating range of the device family in °C. Targets
	// outside it are rejected locally, before any wire traffic.
	MinTargetTemp = 4.0
	MaxTargetTemp = 95.0
)

// Option configures a Session at construction time.
type Option func(*options)

type options struct {
	readTimeout time.Duration
	baudRate    int
	vid, pid    string
	logger      zerolog.Logger
}

func defaultOptions() options {
	return options{
		readTimeout: DefaultReadTimeout,
		baudRate:    DefaultBaudRate,
		vid:         USBVendorID,
		pid:         USBProductID,
		logger:      zerolog.Nop(),
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithReadTimeout overrides the per-response read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.readTimeout = d
		}
	}
}

// WithBaudRate overrides the serial baud rate. Only useful against bench
// setups; real firmware is fixed at DefaultBaudRate.
func WithBaudRate(rate int) Option {
	return func(o *options) {
		if rate > 0 {
			o.baudRate = rate
		}
	}
}

// WithVIDPID overrides the USB signature used by the discovery-driven
// constructors, for prototype hardware flashed with different descriptors.
func WithVIDPID(vid, pid string) Option {
	return func(o *options) {
		o.vid, o.pid = vid, pid
	}
}

// WithLogger enables wire-level debug logging on the session.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Session drives one tempdeck over an open serial connection. All protocol
// exchanges are synchronous request/response pairs on a single half-duplex
// link; a Session must not be shared across goroutines driving commands
// concurrently. Identity fields are populated once by the open-time
// handshake and never re-queried.
type Session struct {
	transport Transport
	cfg       options

	portName  string
	modelName string
	serialNo  string
	fwVersion string

	mu     sync.Mutex
	rbuf   []byte // unconsumed response bytes
	closed bool
}

// FromSerialPortname opens the named serial port and performs the identity
// handshake. The handle is closed again on any handshake failure.
func FromSerialPortname(portname string, opts ...Option) (*Session, error) {
	return fromPortname(portname, applyOptions(opts))
}

// OpenFirstDevice discovers attached tempdecks and opens the first one
// found. Fails with ErrDeviceNotFound when none are attached.
func OpenFirstDevice(opts ...Option) (*Session, error) {
	o := applyOptions(opts)
	devices, err := listConnectedDevices(o.vid, o.pid)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no tempdecks attached: %w", ErrDeviceNotFound)
	}
	return fromPortname(devices[0].PortName, o)
}

// FromUSBLocation discovers attached tempdecks and opens the one at the
// given physical USB location (see DeviceDescriptor.USBLocation). Exactly
// one device must match: zero matches fail with ErrDeviceNotFound, and so
// do several, rather than picking one arbitrarily.
func FromUSBLocation(location string, opts ...Option) (*Session, error) {
	o := applyOptions(opts)
	devices, err := listConnectedDevices(o.vid, o.pid)
	if err != nil {
		return nil, err
	}
	var matches []DeviceDescriptor
	for _, dev := range devices {
		if dev.USBLocation == location {
			matches = append(matches, dev)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no tempdeck at USB location %q: %w", location, ErrDeviceNotFound)
	case 1:
		return fromPortname(matches[0].PortName, o)
	default:
		return nil, fmt.Errorf("%d tempdecks report USB location %q: %w", len(matches), location, ErrDeviceNotFound)
	}
}

// NewSession wraps an already-open transport and performs the identity
// handshake. The transport is closed on handshake failure. Used with Mock
// and by callers that open ports themselves.
func NewSession(t Transport, opts ...Option) (*Session, error) {
	return newSession(t, "", applyOptions(opts))
}

func fromPortname(portname string, o options) (*Session, error) {
	mode := &serial.Mode{
		BaudRate: o.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	t, err := openSerialPort(portname, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", portname, err)
	}
	return newSession(t, portname, o)
}

func newSession(t Transport, portname string, o options) (*Session, error) {
	if err := t.SetReadTimeout(o.readTimeout); err != nil {
		t.Close()
		return nil, fmt.Errorf("setting read timeout: %w", err)
	}

	s := &Session{
		transport: t,
		cfg:       o,
		portName:  portname,
	}
	line, err := s.ask(cmdQueryInfo)
	if err == nil {
		var info deviceInfo
		if info, err = parseInfo(line); err == nil {
			s.modelName = info.model
			s.serialNo = info.serial
			s.fwVersion = info.version
		}
	}
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("identity handshake: %w", err)
	}
	s.cfg.logger.Debug().
		Str("port", portname).
		Str("model", s.modelName).
		Str("serial", s.serialNo).
		Str("version", s.fwVersion).
		Msg("tempdeck: session open")
	return s, nil
}

// PortName returns the serial port the session was opened on, or "" when it
// was constructed directly over a Transport.
func (s *Session) PortName() string { return s.portName }

// ModelName returns the model name reported by the handshake.
func (s *Session) ModelName() string { return s.modelName }

// SerialNo returns the serial number reported by the handshake.
func (s *Session) SerialNo() string { return s.serialNo }

// FWVersion returns the firmware version reported by the handshake.
func (s *Session) FWVersion() string { return s.fwVersion }

// GetTemps queries the current and target temperature in one round trip.
func (s *Session) GetTemps() (TemperatureReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return TemperatureReading{}, ErrSessionClosed
	}

	line, err := s.ask(cmdQueryTemp)
	if err != nil {
		return TemperatureReading{}, s.teardownOnTimeout(err)
	}
	return parseTemps(line)
}

// GetCurrentTemp queries the measured plate temperature. Callers needing
// both temperatures should use GetTemps and save a round trip.
func (s *Session) GetCurrentTemp() (float64, error) {
	reading, err := s.GetTemps()
	if err != nil {
		return 0, err
	}
	return reading.Current, nil
}

// GetTargetTemp queries the setpoint. The second return is false while
// temperature control is deactivated.
func (s *Session) GetTargetTemp() (float64, bool, error) {
	reading, err := s.GetTemps()
	if err != nil {
		return 0, false, err
	}
	return reading.Target, reading.Active, nil
}

// SetTargetTemp sets the setpoint and activates closed-loop control. Targets
// outside [MinTargetTemp, MaxTargetTemp] fail with ErrOutOfRange before any
// bytes are written.
func (s *Session) SetTargetTemp(temp float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if temp < MinTargetTemp || temp > MaxTargetTemp {
		return fmt.Errorf("%.1f°C outside [%.1f, %.1f]: %w", temp, MinTargetTemp, MaxTargetTemp, ErrOutOfRange)
	}

	if err := s.sendCommand(formatSetTarget(temp)); err != nil {
		return err
	}
	return s.teardownOnTimeout(s.waitForAck())
}

// Deactivate stops active temperature control. It is idempotent: calling it
// while already deactivated is not an error.
func (s *Session) Deactivate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	if err := s.sendCommand(cmdDeactivate); err != nil {
		return err
	}
	return s.teardownOnTimeout(s.waitForAck())
}

// Close releases the serial handle. It is safe to call multiple times.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Session) closeLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cfg.logger.Debug().Str("port", s.portName).Msg("tempdeck: session closed")
	return s.transport.Close()
}

// teardownOnTimeout forces the session to CLOSED after a response timeout:
// the request/response pairing is desynchronized and a late reply would be
// attributed to the wrong command. A framed-but-invalid response leaves the
// link in sync, so other errors pass through with the session open.
func (s *Session) teardownOnTimeout(err error) error {
	if errors.Is(err, ErrResponseTimeout) {
		s.closeLocked()
	}
	return err
}

// ask sends a command and returns its single response line, after draining
// the trailing acknowledgements.
func (s *Session) ask(cmd string) (string, error) {
	if err := s.sendCommand(cmd); err != nil {
		return "", err
	}
	line, err := s.readLine()
	if err != nil {
		return "", err
	}
	if err := s.waitForAck(); err != nil {
		return "", err
	}
	return line, nil
}

func (s *Session) sendCommand(cmd string) error {
	s.cfg.logger.Debug().Str("cmd", cmd).Msg("tempdeck: send")
	if _, err := s.transport.Write([]byte(cmd + cmdTerminator)); err != nil {
		return fmt.Errorf("writing command %q: %w", cmd, err)
	}
	return nil
}

// waitForAck consumes the fixed number of "ok" lines the firmware sends
// after every command.
func (s *Session) waitForAck() error {
	for i := 0; i < ackCount; i++ {
		line, err := s.readLine()
		if err != nil {
			return err
		}
		if line != ackLine {
			return fmt.Errorf("expected %q, got %q: %w", ackLine, line, ErrInvalidResponse)
		}
	}
	return nil
}

// readLine returns the next newline-terminated response line, stripped of
// line endings. A Read that yields no data within the transport's read
// timeout fails with ErrResponseTimeout.
func (s *Session) readLine() (string, error) {
	for {
		if i := bytes.IndexByte(s.rbuf, '\n'); i >= 0 {
			line := strings.TrimSpace(string(s.rbuf[:i]))
			s.rbuf = s.rbuf[i+1:]
			s.cfg.logger.Debug().Str("line", line).Msg("tempdeck: recv")
			return line, nil
		}

		buf := make([]byte, 256)
		n, err := s.transport.Read(buf)
		if err != nil {
			return "", fmt.Errorf("reading response: %w", err)
		}
		if n == 0 {
			return "", fmt.Errorf("no complete response within %v: %w", s.cfg.readTimeout, ErrResponseTimeout)
		}
		s.rbuf = append(s.rbuf, buf[:n]...)
	}
}
