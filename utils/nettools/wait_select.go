//go:build darwin || linux
// +build darwin linux

package nettools

import (
	"time"

	"golang.org/x/sys/unix"
)

var _ = func() error { // make sure this executes before func init()
	supported[ModeSelect] = selectWait
	return nil
}()

func selectWait(fd int, dir Direction, slice time.Duration) (bool, error) {
	var set unix.FdSet
	set.Set(fd)
	tv := unix.NsecToTimeval(int64(slice))

	var n int
	var err error
	if dir == Write {
		n, err = unix.Select(fd+1, nil, &set, nil, &tv)
	} else {
		n, err = unix.Select(fd+1, &set, nil, nil, &tv)
	}
	if err == unix.EINTR {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0 && set.IsSet(fd), nil
}
