//go:build linux

package gateway

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

func setSocketMark(fd uintptr, mark uint32) error {
	if mark == 0 {
		return nil
	}
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_MARK, int(mark)); err != nil {
		return fmt.Errorf("setsockopt SO_MARK=%d: %w", mark, err)
	}
	return nil
}

// socketMarkControl tags every socket the dialer opens so routing policy can
// steer gateway traffic.
func socketMarkControl(mark uint32) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var ctrlErr error
		if err := c.Control(func(fd uintptr) {
			ctrlErr = setSocketMark(fd, mark)
		}); err != nil {
			return err
		}
		return ctrlErr
	}
}
