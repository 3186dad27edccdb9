//go:build linux && (arm || arm64)

package pps

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// openEdges requests the BCM GPIO as a rising-edge input on the GPIO character
// device and calls onEdge from the gpiocdev event goroutine for every pulse.
func openEdges(pin int, chipPath string, onEdge func(time.Time)) (io.Closer, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("pps: invalid gpio pin %d", pin)
	}
	lineName := fmt.Sprintf("GPIO%d", pin)

	chipCandidates := []string{chipPath}
	if chipPath == "" {
		chipCandidates = []string{"/dev/gpiochip0", "/dev/gpiochip4"}
		entries, _ := os.ReadDir("/dev")
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, "gpiochip") {
				chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
			}
		}
	}

	handler := func(gpiocdev.LineEvent) { onEdge(time.Now()) }
	for _, path := range chipCandidates {
		chip, err := gpiocdev.NewChip(path)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset,
			gpiocdev.WithConsumer("nmeaparse-pps"),
			gpiocdev.WithRisingEdge,
			gpiocdev.WithEventHandler(handler))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &gpiodLine{chip: chip, line: line}, nil
	}
	return nil, fmt.Errorf("pps: gpio line %q not found (or busy)", lineName)
}

var openEdgesFn = openEdges

type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLine) Close() error {
	err := g.line.Close()
	_ = g.chip.Close()
	return err
}
