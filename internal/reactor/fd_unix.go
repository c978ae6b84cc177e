//go:build unix

package reactor

import (
	"golang.org/x/sys/unix"
)

// pollFD polls fd for readability using unix.Poll and delivers handler to
// fanIn each time data becomes available, until done is closed. A poll
// failure other than EINTR is delivered as a handler returning that error,
// so Run exits with a non-zero code, and polling stops.
func pollFD(fd int, handler func() error, fanIn chan<- fdDelivery, done <-chan struct{}) {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	const pollTimeoutMillis = 200
	for {
		select {
		case <-done:
			return
		default:
		}
		n, err := unix.Poll(pfd, pollTimeoutMillis)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			pollErr := err
			select {
			case fanIn <- fdDelivery{handler: func() error { return pollErr }}:
			case <-done:
			}
			return
		}
		if n > 0 && pfd[0].Revents&unix.POLLIN != 0 {
			select {
			case fanIn <- fdDelivery{handler: handler}:
			case <-done:
				return
			}
		}
	}
}
