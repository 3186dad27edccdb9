package gps

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.bug.st/serial"

	"nmeaparse/internal/nmea"
)

const (
	parityNone = 0
	parityOdd  = 1
	parityEven = 2
)

// serialMode carries the line settings of a PSRF100 command to the port.
type serialMode struct {
	Baud     int
	DataBits int
	StopBits int
	Parity   int
}

func modeFromCommand(c nmea.SerialConfiguration) serialMode {
	m := serialMode{Baud: c.Baud, DataBits: c.DataBits, StopBits: c.StopBits, Parity: c.Parity}
	if m.Baud == 0 {
		m.Baud = 4800
	}
	if m.DataBits == 0 {
		m.DataBits = 8
	}
	return m
}

var listPortsFn = serial.GetPortsList

// ListPorts returns the serial ports the OS reports, sorted.
func ListPorts() ([]string, error) {
	ports, err := listPortsFn()
	if err != nil {
		return nil, fmt.Errorf("gps: list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

func looksLikeReceiver(port string) bool {
	for _, s := range []string{"ttyACM", "ttyUSB", "usbmodem", "usbserial"} {
		if strings.Contains(port, s) {
			return true
		}
	}
	return false
}

// autoDetectDevice picks the first USB serial port the OS reports, falling
// back to probing the usual Linux device names.
func autoDetectDevice() string {
	if ports, err := ListPorts(); err == nil {
		for _, p := range ports {
			if looksLikeReceiver(p) {
				return p
			}
		}
	}

	var candidates []string
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
