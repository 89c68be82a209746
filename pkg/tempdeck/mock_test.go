package tempdeck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otkit/tempdeck/pkg/config"
)

func newTestMock(t *testing.T, initialTemp float64) *Mock {
	t.Helper()
	cfg := config.Default().Mock
	cfg.InitialTemp = initialTemp
	return NewMock(&cfg)
}

// exchange writes one command line and returns everything the mock replies.
func exchange(t *testing.T, m *Mock, cmd string) string {
	t.Helper()
	_, err := m.Write([]byte(cmd + "\r\n"))
	require.NoError(t, err)

	var out []byte
	buf := make([]byte, 256)
	for {
		n, err := m.Read(buf)
		require.NoError(t, err)
		if n == 0 {
			return string(out)
		}
		out = append(out, buf[:n]...)
	}
}

func TestMock_QueryInfo(t *testing.T) {
	m := NewMock(nil)
	reply := exchange(t, m, "M115")
	assert.Equal(t, "serial:TDV0118052801 model:temp_deck_v1.0.1 version:edge-1a2b3c4\r\nok\r\nok\r\n", reply)
}

func TestMock_QueryTemp_Deactivated(t *testing.T) {
	m := newTestMock(t, 22.56)
	reply := exchange(t, m, "M105")
	assert.Equal(t, "T:none C:22.56\r\nok\r\nok\r\n", reply)
}

func TestMock_SetTargetAndDeactivate(t *testing.T) {
	m := newTestMock(t, 22.56)

	assert.Equal(t, "ok\r\nok\r\n", exchange(t, m, "M104 S42.3"))
	assert.True(t, m.Active())
	assert.Equal(t, "M104 S42.3", m.LastCommand())
	assert.Equal(t, "T:42.30 C:22.56\r\nok\r\nok\r\n", exchange(t, m, "M105"))

	assert.Equal(t, "ok\r\nok\r\n", exchange(t, m, "M18"))
	assert.False(t, m.Active())
	assert.Equal(t, "T:none C:22.56\r\nok\r\nok\r\n", exchange(t, m, "M105"))
}

func TestMock_UnknownCommandAcked(t *testing.T) {
	m := NewMock(nil)
	assert.Equal(t, "ok\r\nok\r\n", exchange(t, m, "G28"))
}

func TestMock_PartialWrites(t *testing.T) {
	m := newTestMock(t, 22.56)

	// command split across writes is only handled once the line completes
	_, err := m.Write([]byte("M1"))
	require.NoError(t, err)
	n, err := m.Read(make([]byte, 16))
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, "T:none C:22.56\r\nok\r\nok\r\n", exchange(t, m, "05"))
}

func TestMock_ReadWithoutData(t *testing.T) {
	m := NewMock(nil)
	n, err := m.Read(make([]byte, 16))
	require.NoError(t, err)
	assert.Zero(t, n) // behaves like a read timeout
}

func TestMock_Closed(t *testing.T) {
	m := NewMock(nil)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err := m.Read(make([]byte, 16))
	assert.Error(t, err)
	_, err = m.Write([]byte("M105\r\n"))
	assert.Error(t, err)
}

func TestMock_ThermalSimulation(t *testing.T) {
	cfg := config.Default().Mock
	cfg.InitialTemp = 20.0
	cfg.ThermalRate = 100.0 // fast enough to observe within a test
	m := NewMock(&cfg)

	exchange(t, m, "M104 S25.0")

	// force a full simulated second since the last step
	m.mu.Lock()
	m.lastStep = m.lastStep.Add(-time.Second)
	m.mu.Unlock()

	reply := exchange(t, m, "M105")
	assert.Equal(t, "T:25.00 C:25.00\r\nok\r\nok\r\n", reply, "plate clamps at the setpoint")
}

func TestMock_NilConfigDefaults(t *testing.T) {
	m := NewMock(nil)
	assert.Equal(t, config.Default().Mock, *m.cfg)
	assert.Equal(t, 25.0, m.current)
	assert.False(t, m.Active())
}
