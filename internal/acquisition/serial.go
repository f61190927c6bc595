package acquisition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Serial scanner defaults. Most USB HID-to-serial QR scanners ship at 9600 8N1.
const (
	DefaultSerialBaud    = 9600
	DefaultSerialTimeout = 30 * time.Second

	serialPollInterval = 100 * time.Millisecond
	maxScanLength      = 4096
)

// serialPort is the subset of serial.Port the scanner uses.
type serialPort interface {
	io.Reader
	SetReadTimeout(t time.Duration) error
	Close() error
}

// SerialScanner reads one scan from a serial QR scanner.
type SerialScanner struct {
	// Port is the device name (/dev/ttyACM0, COM3). Empty means auto-detect.
	Port    string
	Baud    int
	Timeout time.Duration
	Logger  Logger

	// Hooks replaced in tests.
	openPort  func(name string, baud int) (serialPort, error)
	listPorts func() ([]string, error)
}

// NewSerialScanner creates a scanner for port (empty to auto-detect).
func NewSerialScanner(port string, baud int, timeout time.Duration, logger Logger) *SerialScanner {
	return &SerialScanner{Port: port, Baud: baud, Timeout: timeout, Logger: logger}
}

func openSerialPort(name string, baud int) (serialPort, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", name, err)
	}
	return port, nil
}

// Acquire waits for the scanner to send a line and returns it trimmed.
//
// The first non-empty line wins; anything after it is discarded. On timeout
// or cancellation the error wraps ErrNotAcquired. The port is closed before
// Acquire returns.
func (s *SerialScanner) Acquire(ctx context.Context) (string, error) {
	log := s.Logger
	if log == nil {
		log = noopLogger{}
	}
	baud := s.Baud
	if baud <= 0 {
		baud = DefaultSerialBaud
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultSerialTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	port, name, err := s.open(baud)
	if err != nil {
		log.Error("serial scanner unavailable", "port", s.Port, "error", err)
		return "", fmt.Errorf("%w: %w", ErrNotAcquired, err)
	}
	defer func() {
		if closeErr := port.Close(); closeErr != nil {
			log.Warn("closing serial port", "port", name, "error", closeErr)
		}
	}()

	if err := port.SetReadTimeout(serialPollInterval); err != nil {
		return "", fmt.Errorf("%w: setting read timeout on %s: %w", ErrNotAcquired, name, err)
	}

	log.Info("listening on serial scanner", "port", name, "baud", baud, "timeout", timeout)

	var buf bytes.Buffer
	chunk := make([]byte, 256)
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Info("serial scan ended without payload", "port", name, "error", ctxErr)
			return "", fmt.Errorf("%w: serial scan on %s: %w", ErrNotAcquired, name, ctxErr)
		}

		n, readErr := port.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if line, ok := firstLine(buf.String()); ok {
				log.Info("payload acquired from serial scanner", "port", name, "length", len(line))
				return line, nil
			}
			if buf.Len() > maxScanLength {
				buf.Reset()
				log.Warn("discarding oversized serial input without line break", "port", name)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				continue
			}
			log.Error("serial read failed", "port", name, "error", readErr)
			return "", fmt.Errorf("%w: reading %s: %w", ErrNotAcquired, name, readErr)
		}
	}
}

// open returns the configured port or the first port that opens.
func (s *SerialScanner) open(baud int) (serialPort, string, error) {
	open := s.openPort
	if open == nil {
		open = openSerialPort
	}
	if s.Port != "" {
		p, err := open(s.Port, baud)
		return p, s.Port, err
	}

	list := s.listPorts
	if list == nil {
		list = serial.GetPortsList
	}
	names, err := list()
	if err != nil {
		return nil, "", fmt.Errorf("listing serial ports: %w", err)
	}
	for _, name := range names {
		p, openErr := open(name, baud)
		if openErr == nil {
			return p, name, nil
		}
	}
	return nil, "", ErrNoScanner
}

// firstLine returns the first non-empty, terminated line in s.
func firstLine(s string) (string, bool) {
	for {
		i := strings.IndexAny(s, "\r\n")
		if i < 0 {
			return "", false
		}
		if line := strings.TrimSpace(s[:i]); line != "" {
			return line, true
		}
		s = s[i+1:]
	}
}
