package tempdeck

import (
	"fmt"
	"strconv"
	"strings"
)

// Wire protocol of the tempdeck firmware. Commands are CRLF-terminated ASCII
// lines; replies are newline-terminated lines of space-separated key:value
// tokens, followed by two "ok" lines. These tokens are a fixed contract with
// the firmware and must not be changed.
const (
	cmdQueryInfo  = "M115"
	cmdQueryTemp  = "M105"
	cmdSetTarget  = "M104"
	cmdDeactivate = "M18"

	cmdTerminator = "\r\n"
	ackLine       = "ok"
	ackCount      = 2

	// targetNone is the sentinel the firmware reports for the target
	// temperature while control is deactivated.
	targetNone = "none"

	keyModel   = "model"
	keySerial  = "serial"
	keyVersion = "version"
	keyCurrent = "C"
	keyTarget  = "T"
)

// TemperatureReading is one QUERY_TEMP result. Readings are produced fresh
// on every query, never cached.
type TemperatureReading struct {
	Current float64 // measured plate temperature in °C
	Target  float64 // setpoint in °C, meaningful only when Active
	Active  bool    // false while temperature control is deactivated
}

// String fulfils the Stringer interface.
func (r TemperatureReading) String() string {
	if !r.Active {
		return fmt.Sprintf("Current: %.2f°C, Target: (deactivated)", r.Current)
	}
	return fmt.Sprintf("Current: %.2f°C, Target: %.2f°C", r.Current, r.Target)
}

// deviceInfo holds the identity fields reported by QUERY_INFO.
type deviceInfo struct {
	model   string
	serial  string
	version string
}

// formatSetTarget renders the SET_TARGET command. The firmware resolves
// tenths of a degree; extra precision is never emitted.
func formatSetTarget(temp float64) string {
	return fmt.Sprintf("%s S%.1f", cmdSetTarget, temp)
}

// parseResponse splits a response line into a key→raw-value map. Tokens are
// space-separated and split on the first ':'.
func parseResponse(line string) (map[string]string, error) {
	fields := map[string]string{}
	for _, token := range strings.Fields(line) {
		key, value, ok := strings.Cut(token, ":")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed token %q in response %q: %w", token, line, ErrInvalidResponse)
		}
		fields[key] = value
	}
	return fields, nil
}

// parseInfo parses a QUERY_INFO response line into identity fields.
func parseInfo(line string) (deviceInfo, error) {
	fields, err := parseResponse(line)
	if err != nil {
		return deviceInfo{}, err
	}
	for _, key := range []string{keyModel, keySerial, keyVersion} {
		if _, ok := fields[key]; !ok {
			return deviceInfo{}, fmt.Errorf("response %q missing %q: %w", line, key, ErrInvalidResponse)
		}
	}
	return deviceInfo{
		model:   fields[keyModel],
		serial:  fields[keySerial],
		version: fields[keyVersion],
	}, nil
}

// parseTemps parses a QUERY_TEMP response line into a TemperatureReading.
func parseTemps(line string) (TemperatureReading, error) {
	fields, err := parseResponse(line)
	if err != nil {
		return TemperatureReading{}, err
	}

	raw, ok := fields[keyCurrent]
	if !ok {
		return TemperatureReading{}, fmt.Errorf("response %q missing current temp: %w", line, ErrInvalidResponse)
	}
	current, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return TemperatureReading{}, fmt.Errorf("bad current temp %q in response %q: %w", raw, line, ErrInvalidResponse)
	}

	raw, ok = fields[keyTarget]
	if !ok {
		return TemperatureReading{}, fmt.Errorf("response %q missing target temp: %w", line, ErrInvalidResponse)
	}
	reading := TemperatureReading{Current: current}
	if raw != targetNone {
		target, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return TemperatureReading{}, fmt.Errorf("bad target temp %q in response %q: %w", raw, line, ErrInvalidResponse)
		}
		reading.Target = target
		reading.Active = true
	}
	return reading, nil
}
