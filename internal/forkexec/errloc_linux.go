package forkexec

import (
	"fmt"
	"syscall"
)

// errorLocation identifies the child-side step a spawn failed at. The child
// cannot construct error strings between fork and exec, so it reports a plain
// location/errno pair over the status pipe and the parent formats it.
type errorLocation int

const (
	locClone errorLocation = iota + 1
	locClosePipe
	locDup3
	locFcntl
	locChdir
	locCloseFds
	locExecve
)

var locNames = []string{
	"unknown",
	"clone",
	"close(pipe)",
	"dup3",
	"fcntl",
	"chdir",
	"closefds",
	"execve",
}

func (l errorLocation) String() string {
	if l >= locClone && l <= locExecve {
		return locNames[l]
	}

	return "unknown"
}

// ChildError is the failure report of a forked child that never reached exec.
type ChildError struct {
	Err      syscall.Errno
	Location errorLocation
}

func (e ChildError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Err)
}
