// SPDX-License-Identifier: MIT

// Package device drives the Busy Tag accessory: serial discovery and
// commands, the device-side config file, and attach detection.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mabrink/busybeat/internal/log"
	"go.bug.st/serial"
)

const (
	baudRate = 115200

	identifyCommand = "AT+GDN"
	identifyPrefix  = "+DN:busytag-"
	showCommand     = "AT+SP"
)

// ErrUnavailable reports that no device was reachable. It is a normal,
// recoverable outcome for callers; the accessory may simply be unplugged.
var ErrUnavailable = errors.New("busy tag device unavailable")

// Conn is one open serial connection.
type Conn interface {
	io.ReadWriteCloser
}

// Session performs per-operation serial exchanges. No connection survives
// an operation: each command opens, talks and closes.
type Session struct {
	timeout time.Duration

	// Injection points for tests; production uses go.bug.st/serial.
	listPorts func() ([]string, error)
	openPort  func(name string, timeout time.Duration) (Conn, error)
}

// NewSession builds a Session with the given per-read timeout.
func NewSession(timeout time.Duration) *Session {
	return &Session{
		timeout:   timeout,
		listPorts: serial.GetPortsList,
		openPort:  openSerialPort,
	}
}

func openSerialPort(name string, timeout time.Duration) (Conn, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, err
	}
	return port, nil
}

// Discover probes every serial-capable port with the identification
// command and returns the first one whose response carries the device
// prefix. ok is false when no candidate matches; probe errors and wrong
// devices are treated identically as non-matches.
func (s *Session) Discover(ctx context.Context) (port string, ok bool) {
	logger := log.WithComponentFromContext(ctx, "device")

	ports, err := s.listPorts()
	if err != nil {
		logger.Debug().Err(err).Msg("serial port enumeration failed")
		return "", false
	}

	for _, candidate := range ports {
		if ctx.Err() != nil {
			return "", false
		}
		resp, err := s.exchange(candidate, identifyCommand)
		if err != nil {
			logger.Debug().Err(err).Str(log.FieldPort, candidate).Msg("probe failed")
			continue
		}
		if strings.HasPrefix(resp, identifyPrefix) {
			logger.Debug().Str(log.FieldPort, candidate).Str("device", resp).Msg("busy tag found")
			return candidate, true
		}
	}
	return "", false
}

// Show discovers the device and asks it to display the named file from its
// storage. Returns ErrUnavailable when no device is present.
func (s *Session) Show(ctx context.Context, filename string) error {
	port, ok := s.Discover(ctx)
	if !ok {
		return ErrUnavailable
	}

	resp, err := s.exchange(port, fmt.Sprintf("%s=%s", showCommand, filename))
	if err != nil {
		return fmt.Errorf("send show command: %w", err)
	}
	logger := log.WithComponentFromContext(ctx, "device")
	logger.Info().
		Str(log.FieldPort, port).
		Str("file", filename).
		Str("response", resp).
		Msg("display command sent")
	return nil
}

// exchange opens the port, writes one command line and reads one response
// line within the session timeout.
func (s *Session) exchange(port, command string) (string, error) {
	conn, err := s.openPort(port, s.timeout)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", port, err)
	}
	defer conn.Close() //nolint:errcheck

	if _, err := conn.Write([]byte(command + "\r\n")); err != nil {
		return "", fmt.Errorf("write %s: %w", port, err)
	}
	return readLine(conn)
}

// readLine reads up to one newline. A zero-byte read means the serial
// timeout elapsed; whatever arrived so far is the response.
func readLine(r io.Reader) (string, error) {
	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", err
		}
		if n == 0 {
			break
		}
		if buf[0] == '\n' {
			break
		}
		line = append(line, buf[0])
		if len(line) > 512 {
			break
		}
	}
	return strings.TrimSpace(string(line)), nil
}
