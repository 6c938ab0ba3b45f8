//go:build unix

package closefds

import (
	"fmt"
	"syscall"
)

// SweepOp identifies the operation a sweep failed on.
type SweepOp int

const (
	OpRewind SweepOp = iota + 1 // rewinding the fd directory
	OpReadDir
	OpRlimit
)

var opNames = []string{
	"unknown",
	"rewind",
	"readdir",
	"getrlimit",
}

func (op SweepOp) String() string {
	if op >= OpRewind && op <= OpRlimit {
		return opNames[op]
	}

	return "unknown"
}

// SweepError reports a hard failure of a sweep: the enumeration of open
// descriptors itself failed and the descriptor-leak state is unknown. The
// value returned by BeforeExec is preallocated within the Hook so that
// reporting it from the fork-to-exec window does not allocate.
type SweepError struct {
	Op    SweepOp
	Errno syscall.Errno
}

func (e *SweepError) Error() string {
	return fmt.Sprintf("enumerating open file descriptors: %s: %s", e.Op, e.Errno)
}
