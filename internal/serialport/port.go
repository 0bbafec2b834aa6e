// Package serialport opens the RS232 link to the deck's remote port.
package serialport

import (
	"fmt"

	"go.bug.st/serial"

	"deckhand/internal/config"
)

// Open connects to the configured serial device. The deck's remote protocol
// runs over 8 data bits, no parity, one stop bit; only the baud rate is
// taken from configuration.
func Open(cfg config.Serial) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	return port, nil
}
