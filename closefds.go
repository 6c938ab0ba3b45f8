//go:build unix

package closefds

import (
	"fmt"
	"slices"
	"syscall"

	"golang.org/x/sys/unix"
)

// maxProbeFds caps the brute-force enumeration strategy when RLIMIT_NOFILE
// reports "unlimited" or a value too large to probe within the fork-to-exec
// window.
const maxProbeFds = 65536

// direntBufSize is the read buffer for the fd directory listing. It is
// allocated once in New so the sweep itself never allocates.
const direntBufSize = 4096

// nofileLimit is swapped out by tests simulating a broken enumeration
// environment. Replacements run between fork and exec and must not grow the
// stack.
var nofileLimit = rawNofileLimit

// Options configures which descriptors a Hook leaves untouched.
type Options struct {
	// Keep lists descriptor numbers whose close-on-exec flag must not be
	// modified by the sweep.
	Keep []int

	// KeepBelow preserves all descriptors numerically below the given
	// value. Standard input/output/error are not preserved by default;
	// pass 3 to keep them.
	KeepBelow int

	// ProbeOnly forces the brute-force enumeration strategy even when the
	// kernel exposes a listing of open descriptors.
	ProbeOnly bool
}

// Hook flags open file descriptors as close-on-exec. It is built in the
// parent process and invoked in the child between fork and exec.
type Hook struct {
	keep      []int
	keepBelow int

	// dirFD is the fd directory opened in the parent, or -1 when the
	// probe strategy is in effect.
	dirFD int
	buf   []byte

	skipped int
	hardErr SweepError
}

// New builds a Hook for the given options. It runs in the parent process
// before forking and may allocate freely: the preserve set is copied and
// sorted, and the fd directory listing is opened if the platform has one.
// Opening the listing with close-on-exec already set keeps the Hook itself
// from leaking.
//
// The caller must call Close once the Hook is no longer needed, and must do
// so in the parent process only.
func New(opts Options) (*Hook, error) {
	for _, fd := range opts.Keep {
		if fd < 0 {
			return nil, fmt.Errorf("invalid descriptor number %d in keep set", fd)
		}
	}

	h := &Hook{
		keep:      slices.Clone(opts.Keep),
		keepBelow: opts.KeepBelow,
		dirFD:     -1,
	}

	slices.Sort(h.keep)

	if !opts.ProbeOnly {
		// A missing or unreadable fd directory is not an error; the
		// probe strategy covers that case.
		if fd, err := openFDDir(); err == nil {
			h.dirFD = fd
			h.buf = make([]byte, direntBufSize)
		}
	}

	return h, nil
}

// BeforeExec enumerates the open file descriptors of the calling process and
// sets the close-on-exec flag on every one that is not preserved. It is meant
// to run in a forked child as the very last action before exec and therefore
// performs no heap allocation and acquires no locks; all failures are
// reported through a value preallocated in New.
//
// Per-descriptor failures do not abort the sweep: a descriptor that was
// closed between enumeration and flagging is skipped silently, any other
// flagging failure is counted (see Skipped). Only the inability to enumerate
// at all is returned as an error, in which case the caller must not proceed
// to exec.
//
// The runtime forbids stack growth between fork and exec, so everything
// reachable from here must be nosplit.
//
//go:nosplit
func (h *Hook) BeforeExec() error {
	h.skipped = 0

	if h.dirFD >= 0 {
		if _, errno := h.sweepFDDir(); errno == 0 {
			return nil
		}

		// The listing became unreadable; fall back to probing rather
		// than giving up.
	}

	if op, errno := h.sweepProbe(); errno != 0 {
		h.hardErr = SweepError{Op: op, Errno: errno}
		return &h.hardErr
	}

	return nil
}

// Skipped returns the number of descriptors the last sweep failed to flag for
// reasons other than "already closed". The counter lives in the address space
// the sweep ran in, so it is only meaningful when BeforeExec was invoked in
// the current process (as tests do).
func (h *Hook) Skipped() int {
	return h.skipped
}

// Close releases the fd directory descriptor held by the Hook. It must be
// called in the parent process; in the child everything is released by exec.
func (h *Hook) Close() error {
	if h.dirFD >= 0 {
		fd := h.dirFD
		h.dirFD = -1

		if err := unix.Close(fd); err != nil {
			return fmt.Errorf("closing fd directory: %w", err)
		}
	}

	return nil
}

// sweepProbe probes every descriptor number up to the RLIMIT_NOFILE ceiling.
// Descriptor numbers that turn out closed are expected and skipped by setOne.
//
//go:nosplit
func (h *Hook) sweepProbe() (SweepOp, syscall.Errno) {
	ceiling, errno := nofileLimit()
	if errno != 0 {
		return OpRlimit, errno
	}

	if ceiling > maxProbeFds {
		ceiling = maxProbeFds
	}

	for fd := 0; fd < int(ceiling); fd++ {
		if fd == h.dirFD {
			continue
		}

		h.setOne(fd)
	}

	return 0, 0
}

// setOne applies the close-on-exec flag to a single descriptor unless it is
// preserved, already flagged or no longer open. EBADF means the descriptor
// was closed after enumeration (or never existed under the probe strategy)
// and is not an error.
//
//go:nosplit
func (h *Hook) setOne(fd int) {
	if h.preserved(fd) {
		return
	}

	flags, errno := rawFcntl(fd, unix.F_GETFD, 0)
	if errno == syscall.EBADF {
		return
	}
	if errno != 0 {
		h.skipped++
		return
	}

	if flags&unix.FD_CLOEXEC != 0 {
		return
	}

	if _, errno := rawFcntl(fd, unix.F_SETFD, flags|unix.FD_CLOEXEC); errno != 0 && errno != syscall.EBADF {
		h.skipped++
	}
}

// preserved reports whether fd must be left untouched. The keep slice was
// sorted in New; the search is written out so the sweep stays free of calls
// into generic library code.
//
//go:nosplit
func (h *Hook) preserved(fd int) bool {
	if fd < h.keepBelow {
		return true
	}

	lo, hi := 0, len(h.keep)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if h.keep[mid] < fd {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return lo < len(h.keep) && h.keep[lo] == fd
}
