//go:build darwin || linux
// +build darwin linux

package nettools

import (
	"time"

	"golang.org/x/sys/unix"
)

var _ = func() error { // make sure this executes before func init()
	supported[ModePoll] = pollWait
	return nil
}()

func pollWait(fd int, dir Direction, slice time.Duration) (bool, error) {
	events := int16(unix.POLLIN)
	if dir == Write {
		events = unix.POLLOUT
	}
	pfd := []unix.PollFd{{Fd: int32(fd), Events: events}}
	n, err := unix.Poll(pfd, int(slice.Milliseconds()))
	if err == unix.EINTR {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	// error conditions count as ready: the retried operation surfaces them
	return pfd[0].Revents&(events|unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0, nil
}
