//go:build unix

package closefds

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SetCloseOnExec sets the close-on-exec flag on a single file descriptor.
// Parent-side convenience; not safe for use between fork and exec.
func SetCloseOnExec(fd uintptr) error {
	flags, err := unix.FcntlInt(fd, unix.F_GETFD, 0)
	if err != nil {
		return fmt.Errorf("getting file descriptor flags: %w", err)
	}

	if (flags & unix.FD_CLOEXEC) == 0 {
		_, err = unix.FcntlInt(fd, unix.F_SETFD, flags|unix.FD_CLOEXEC)
		if err != nil {
			return fmt.Errorf("setting close-on-exec file descriptor flag: %w", err)
		}
	}

	return nil
}

// ClearCloseOnExec clears the close-on-exec flag on a single file descriptor,
// e.g. on a descriptor from a Hook's keep set that its creator opened with
// O_CLOEXEC. A sweep never clears the flag itself: preserved descriptors are
// left exactly as found.
func ClearCloseOnExec(fd uintptr) error {
	flags, err := unix.FcntlInt(fd, unix.F_GETFD, 0)
	if err != nil {
		return fmt.Errorf("getting file descriptor flags: %w", err)
	}

	if (flags & unix.FD_CLOEXEC) != 0 {
		_, err = unix.FcntlInt(fd, unix.F_SETFD, flags & ^unix.FD_CLOEXEC)
		if err != nil {
			return fmt.Errorf("clearing close-on-exec file descriptor flag: %w", err)
		}
	}

	return nil
}
