//go:build !linux

package gateway

import (
	"fmt"
	"syscall"
)

func setSocketMark(fd uintptr, mark uint32) error {
	if mark == 0 {
		return nil
	}
	return fmt.Errorf("fwmark is supported only on linux")
}

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
