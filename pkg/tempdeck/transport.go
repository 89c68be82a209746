package tempdeck

import (
	"io"
	"time"

	"go.bug.st/serial"
)

// Transport is the byte-level link a Session talks over. Real ports from
// go.bug.st/serial satisfy it directly; Mock provides an in-memory
// implementation. Read must return (0, nil) when no data arrives within the
// configured read timeout, matching go.bug.st/serial semantics.
type Transport interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// allow tests to override external dependencies
var openSerialPort = func(name string, mode *serial.Mode) (Transport, error) {
	return serial.Open(name, mode)
}
