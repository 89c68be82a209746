package tempdeck

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/otkit/tempdeck/pkg/config"
)

// Ensure Mock implements Transport.
var _ Transport = (*Mock)(nil)

// Mock simulates tempdeck firmware for testing and development. It
// implements Transport: commands written to it are answered with the same
// framing real firmware produces, so a Session opened over it behaves
// exactly like one opened over a physical device.
type Mock struct {
	cfg *config.MockConfig

	mu       sync.Mutex
	pending  []byte // device → host bytes not yet read
	partial  []byte // host → device bytes short of a full line
	lastCmd  string
	closed   bool
	current  float64
	target   float64
	active   bool
	lastStep time.Time
}

// NewMock creates a simulated tempdeck. A nil config uses defaults.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}
	return &Mock{
		cfg:      cfg,
		current:  cfg.InitialTemp,
		lastStep: time.Now(),
	}
}

// Write consumes host command bytes, replying to each complete line.
func (m *Mock) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, fmt.Errorf("mock tempdeck: %w", ErrSessionClosed)
	}

	m.partial = append(m.partial, p...)
	for {
		i := bytes.IndexByte(m.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(m.partial[:i]))
		m.partial = m.partial[i+1:]
		if line != "" {
			m.handleCommand(line)
		}
	}
	return len(p), nil
}

// Read hands out queued reply bytes, or (0, nil) when none are pending,
// mirroring a serial port read timeout.
func (m *Mock) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, fmt.Errorf("mock tempdeck: %w", ErrSessionClosed)
	}
	if len(m.pending) == 0 {
		return 0, nil
	}
	n := copy(p, m.pending)
	m.pending = m.pending[n:]
	return n, nil
}

// SetReadTimeout implements Transport; the mock replies instantly, so the
// timeout has nothing to bound.
func (m *Mock) SetReadTimeout(time.Duration) error { return nil }

// Close implements Transport. Safe to call multiple times.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Active reports whether simulated temperature control is engaged.
func (m *Mock) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// LastCommand returns the most recent complete command line received.
func (m *Mock) LastCommand() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCmd
}

func (m *Mock) handleCommand(line string) {
	m.lastCmd = line

	cmd, args, _ := strings.Cut(line, " ")
	switch cmd {
	case cmdQueryInfo:
		m.reply(fmt.Sprintf("%s:%s %s:%s %s:%s",
			keySerial, m.cfg.SerialNo,
			keyModel, m.cfg.ModelName,
			keyVersion, m.cfg.FWVersion))
	case cmdQueryTemp:
		m.step()
		target := targetNone
		if m.active {
			target = fmt.Sprintf("%.2f", m.target)
		}
		m.reply(fmt.Sprintf("%s:%s %s:%.2f", keyTarget, target, keyCurrent, m.current))
	case cmdSetTarget:
		if temp, err := strconv.ParseFloat(strings.TrimPrefix(args, "S"), 64); err == nil {
			m.target = temp
			m.active = true
		}
		m.reply("")
	case cmdDeactivate:
		m.active = false
		m.reply("")
	default:
		// real firmware acks unknown commands too
		m.reply("")
	}
}

// reply queues a payload line (when non-empty) followed by the standard
// acknowledgements.
func (m *Mock) reply(payload string) {
	if payload != "" {
		m.pending = append(m.pending, payload+cmdTerminator...)
	}
	for i := 0; i < ackCount; i++ {
		m.pending = append(m.pending, ackLine+cmdTerminator...)
	}
}

// step advances the thermal simulation: the plate relaxes toward the target
// (or back toward its initial temperature when deactivated) at ThermalRate
// °C per second of wall time since the last poll.
func (m *Mock) step() {
	now := time.Now()
	elapsed := now.Sub(m.lastStep).Seconds()
	m.lastStep = now
	if m.cfg.ThermalRate <= 0 {
		return
	}

	goal := m.cfg.InitialTemp
	if m.active {
		goal = m.target
	}
	delta := m.cfg.ThermalRate * elapsed
	switch {
	case m.current < goal-delta:
		m.current += delta
	case m.current > goal+delta:
		m.current -= delta
	default:
		m.current = goal
	}
}
