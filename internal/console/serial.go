package console

import (
	"errors"
	"fmt"
	"io"

	serial "github.com/allbin/go-serial"
	"go.uber.org/zap"

	"github.com/boardlab/boardlab/internal/infrastructure/logging"
)

// SerialConfig describes a console on a physical serial line.
type SerialConfig struct {
	// Device is the port path, e.g. /dev/ttyUSB0. Required.
	Device string
	// Baud defaults to 115200.
	Baud int
}

const defaultBaud = 115200

// SerialPort adapts a hardware serial line to the Port contract. The
// library's own read timeout provides the bounded wait; a quiet line reads
// as zero bytes, not as an error.
type SerialPort struct {
	rwc    io.ReadWriteCloser
	device string
	log    *logging.Logger
}

// OpenSerial opens the configured device.
func OpenSerial(cfg SerialConfig, log *logging.Logger) (*SerialPort, error) {
	if cfg.Device == "" {
		return nil, errors.New("serial console: empty device")
	}
	if cfg.Baud <= 0 {
		cfg.Baud = defaultBaud
	}
	if log == nil {
		log = logging.NewNop()
	}

	port, err := serial.Open(cfg.Device, serial.WithBaudRate(cfg.Baud))
	if err != nil {
		return nil, fmt.Errorf("open serial console %s: %w", cfg.Device, err)
	}

	log.Info("serial console opened",
		zap.String("device", cfg.Device),
		zap.Int("baud", cfg.Baud),
	)
	return &SerialPort{rwc: port, device: cfg.Device, log: log}, nil
}

// Read returns pending line bytes. EOF from a serial line only means the
// line is quiet, so it reads as no data.
func (s *SerialPort) Read(b []byte) (int, error) {
	n, err := s.rwc.Read(b)
	if err != nil {
		if errors.Is(err, serial.ErrPortClosed) {
			return n, fmt.Errorf("serial console %s closed: %w", s.device, err)
		}
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		return n, fmt.Errorf("serial console %s: %w", s.device, err)
	}
	return n, nil
}

// Write forwards bytes to the line.
func (s *SerialPort) Write(b []byte) (int, error) {
	return s.rwc.Write(b)
}

// Close releases the device. Closing twice is tolerated.
func (s *SerialPort) Close() error {
	if err := s.rwc.Close(); err != nil && !errors.Is(err, serial.ErrPortClosed) {
		return err
	}
	return nil
}

var _ Port = (*SerialPort)(nil)
