package closefds

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// fdDirPath is the kernel-provided listing of the calling process's open file
// descriptors, one directory entry per descriptor.
const fdDirPath = "/proc/self/fd"

func openFDDir() (int, error) {
	fd, err := unix.Open(fdDirPath, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("opening %s: %w", fdDirPath, err)
	}

	return fd, nil
}

// sweepFDDir walks the fd directory with getdents64 into the buffer allocated
// in New and flags every listed descriptor. The directory descriptor itself
// is skipped; it already carries close-on-exec and is closed by the parent.
// Returns a zero errno on success.
//
//go:nosplit
func (h *Hook) sweepFDDir() (SweepOp, syscall.Errno) {
	// The directory was opened in the parent and may have been read
	// before, e.g. by an earlier sweep.
	if errno := rawRewind(h.dirFD); errno != 0 {
		return OpRewind, errno
	}

	for {
		n, errno := rawGetdents(h.dirFD, h.buf)
		if errno != 0 {
			return OpReadDir, errno
		}
		if n == 0 {
			return 0, 0
		}

		for off := 0; off < n; {
			dirent := (*unix.Dirent)(unsafe.Pointer(&h.buf[off]))

			if fd := parseFdName(&dirent.Name); fd >= 0 && fd != h.dirFD {
				h.setOne(fd)
			}

			off += int(dirent.Reclen)
		}
	}
}

// parseFdName decodes a NUL-terminated directory entry name as a decimal
// descriptor number. Entries containing anything but digits ("." and ".."
// included) yield -1 and are ignored by the caller.
//
//go:nosplit
func parseFdName(name *[256]int8) int {
	fd := 0

	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == 0 {
			if i == 0 {
				return -1
			}

			return fd
		}
		if c < '0' || c > '9' {
			return -1
		}

		fd = fd*10 + int(c-'0')
	}

	return -1
}
