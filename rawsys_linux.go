package closefds

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The helpers below wrap the raw system calls used inside the fork-to-exec
// window. They must stay free of heap allocation and must not go through any
// buffered or locking convenience layer, which is why they return plain
// errnos instead of wrapped errors.

//go:nosplit
func rawFcntl(fd, cmd, arg int) (int, syscall.Errno) {
	r, _, errno := syscall.RawSyscall(unix.SYS_FCNTL, uintptr(fd), uintptr(cmd), uintptr(arg))
	return int(r), errno
}

//go:nosplit
func rawRewind(fd int) syscall.Errno {
	_, _, errno := syscall.RawSyscall(unix.SYS_LSEEK, uintptr(fd), 0, unix.SEEK_SET)
	return errno
}

//go:nosplit
func rawGetdents(fd int, buf []byte) (int, syscall.Errno) {
	n, _, errno := syscall.RawSyscall(unix.SYS_GETDENTS64, uintptr(fd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return int(n), errno
}

// rawNofileLimit queries the RLIMIT_NOFILE ceiling. prlimit64 is used instead
// of getrlimit to avoid the 32-bit legacy interface (Linux >= 3.2).
//
//go:nosplit
func rawNofileLimit() (uint64, syscall.Errno) {
	var lim unix.Rlimit

	_, _, errno := syscall.RawSyscall6(unix.SYS_PRLIMIT64, 0, unix.RLIMIT_NOFILE, 0, uintptr(unsafe.Pointer(&lim)), 0, 0)
	if errno != 0 {
		return 0, errno
	}

	return lim.Cur, 0
}
