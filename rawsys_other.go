//go:build unix && !linux

package closefds

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// On platforms without raw syscall numbers in x/sys these helpers go through
// the thin libc wrappers instead. Neither fcntl nor getrlimit allocates or
// takes a userspace lock there.

func rawFcntl(fd, cmd, arg int) (int, syscall.Errno) {
	flags, err := unix.FcntlInt(uintptr(fd), cmd, arg)
	if err != nil {
		if errno, ok := err.(syscall.Errno); ok {
			return flags, errno
		}

		return flags, syscall.EIO
	}

	return flags, 0
}

func rawNofileLimit() (uint64, syscall.Errno) {
	var lim unix.Rlimit

	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		if errno, ok := err.(syscall.Errno); ok {
			return 0, errno
		}

		return 0, syscall.EIO
	}

	return uint64(lim.Cur), 0
}
