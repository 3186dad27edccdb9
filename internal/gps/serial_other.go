//go:build !linux

package gps

import (
	"io"
	"time"

	"go.bug.st/serial"
)

func openSerial(path string, mode serialMode) (io.ReadWriteCloser, error) {
	m := &serial.Mode{
		BaudRate: mode.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if mode.DataBits == 7 {
		m.DataBits = 7
	}
	switch mode.Parity {
	case parityOdd:
		m.Parity = serial.OddParity
	case parityEven:
		m.Parity = serial.EvenParity
	}
	if mode.StopBits == 2 {
		m.StopBits = serial.TwoStopBits
	}

	port, err := serial.Open(path, m)
	if err != nil {
		return nil, err
	}
	// Reads return (0, nil) on timeout so the reader loop can observe ctx.
	if err := port.SetReadTimeout(time.Second); err != nil {
		_ = port.Close()
		return nil, err
	}
	return port, nil
}
