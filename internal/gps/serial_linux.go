//go:build linux

package gps

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

func openSerial(path string, mode serialMode) (io.ReadWriteCloser, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}

	ok := false
	defer func() {
		if !ok {
			_ = unix.Close(fd)
		}
	}()

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}
	spd, err := baudToUnix(mode.Baud)
	if err != nil {
		return nil, err
	}

	// Raw mode: the parser sees the bytes exactly as the receiver sent them.
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag |= unix.CREAD | unix.CLOCAL

	t.Cflag &^= unix.CSIZE
	if mode.DataBits == 7 {
		t.Cflag |= unix.CS7
	} else {
		t.Cflag |= unix.CS8
	}

	t.Cflag &^= unix.CSTOPB
	if mode.StopBits == 2 {
		t.Cflag |= unix.CSTOPB
	}

	t.Cflag &^= unix.PARENB | unix.PARODD
	switch mode.Parity {
	case parityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case parityEven:
		t.Cflag |= unix.PARENB
	}

	// Return whatever arrived within one second, possibly nothing.
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 10

	t.Cflag &^= unix.CBAUD
	t.Cflag |= spd
	t.Ispeed = spd
	t.Ospeed = spd

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return nil, err
	}

	f := os.NewFile(uintptr(fd), path)
	if f == nil {
		return nil, fmt.Errorf("gps: os.NewFile failed for %s", path)
	}
	ok = true
	return ttyPort{f}, nil
}

// ttyPort reports an empty VTIME read as (0, nil) instead of io.EOF so the
// reader loop can observe ctx on a silent device.
type ttyPort struct {
	*os.File
}

func (p ttyPort) Read(b []byte) (int, error) {
	n, err := p.File.Read(b)
	if n == 0 && err == io.EOF {
		return 0, nil
	}
	return n, err
}

func baudToUnix(baud int) (uint32, error) {
	switch baud {
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	default:
		return 0, fmt.Errorf("gps: unsupported baud %d", baud)
	}
}
