//go:build unix && !linux

package closefds

import (
	"errors"
	"syscall"
)

// Reading a fd directory without going through libc's opendir/readdir is not
// possible on libc-only platforms, and opendir allocates through a locking
// allocator. The probe strategy is used unconditionally instead.

func openFDDir() (int, error) {
	return -1, errors.ErrUnsupported
}

//go:nosplit
func (h *Hook) sweepFDDir() (SweepOp, syscall.Errno) {
	return OpReadDir, syscall.ENOSYS
}
