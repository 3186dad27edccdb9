//go:build !linux || (!arm && !arm64)

package pps

import (
	"fmt"
	"io"
	"time"
)

func openEdges(pin int, chipPath string, onEdge func(time.Time)) (io.Closer, error) {
	return nil, fmt.Errorf("pps: gpio unsupported on this platform")
}

var openEdgesFn = openEdges
