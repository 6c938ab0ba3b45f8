// Package forkexec spawns a child process the classic UNIX way, invoking a
// closefds sweep in the child as the last action before exec. Go's os/exec
// offers no pre-exec hook, so the fork/exec sequencing lives here.
//
// Only plain spawning is supported: a descriptor mapping onto 0..n-1, an
// optional working directory and the hook itself. Everything executed in the
// child between clone and execve is restricted to raw system calls.
package forkexec

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/DaGenix/closefds"
)

// Attr describes the child process to spawn.
type Attr struct {
	// Args is the command and its arguments. Args[0] must be the resolved
	// path of the executable.
	Args []string

	// Env is the environment in NAME=VALUE form.
	Env []string

	// Dir is an optional working directory for the child.
	Dir string

	// Files maps descriptors into the child: entry i becomes descriptor i.
	Files []uintptr

	// CloseFds, when set, is invoked in the child immediately before exec.
	// A hard sweep failure aborts the spawn instead of executing with
	// descriptors in an unverified state.
	CloseFds *closefds.Hook
}

var errNoCommand = errors.New("no command specified")

// Spawn forks and executes the described child, returning its process ID.
// The caller is responsible for reaping the child with wait.
func Spawn(attr Attr) (int, error) {
	if len(attr.Args) == 0 {
		return 0, errNoCommand
	}

	argv0, argv, envv, err := prepareExec(attr.Args, attr.Env)
	if err != nil {
		return 0, fmt.Errorf("preparing exec arguments: %w", err)
	}

	dir, err := dirPtr(attr.Dir)
	if err != nil {
		return 0, fmt.Errorf("preparing working directory: %w", err)
	}

	// Status pipe: close-on-exec, so a successful exec reports itself as
	// EOF while any child-side failure arrives as a ChildError.
	var p [2]int

	if err := syscall.Pipe2(p[:], syscall.O_CLOEXEC); err != nil {
		return 0, fmt.Errorf("creating status pipe: %w", err)
	}

	pid, errno := forkAndExecInChild(&attr, argv0, argv, envv, dir, p)

	syscall.Close(p[1])

	if errno != 0 {
		syscall.Close(p[0])
		return 0, fmt.Errorf("spawning child: %w", ChildError{Err: errno, Location: locClone})
	}

	childErr, failed := readChildError(p[0])

	syscall.Close(p[0])

	if failed {
		// The child exited before exec; reap it so it does not linger
		// as a zombie.
		var ws syscall.WaitStatus

		for {
			if _, err := syscall.Wait4(int(pid), &ws, 0, nil); err != syscall.EINTR {
				break
			}
		}

		return 0, fmt.Errorf("spawning child: %w", childErr)
	}

	return int(pid), nil
}

// readChildError reads the child's failure report from the status pipe.
// End-of-file means the child reached exec.
func readChildError(fd int) (ChildError, bool) {
	var childErr ChildError

	buf := (*[unsafe.Sizeof(childErr)]byte)(unsafe.Pointer(&childErr))[:]

	for {
		n, err := syscall.Read(fd, buf)
		if err == syscall.EINTR {
			continue
		}

		if err == nil && n == 0 {
			return ChildError{}, false
		}

		if uintptr(n) != unsafe.Sizeof(childErr) {
			return ChildError{Err: syscall.EPIPE, Location: locClosePipe}, true
		}

		return childErr, true
	}
}

// forkAndExecInChild clones the process and, in the child, wires up the
// descriptor mapping, runs the closefds sweep and executes the new image.
// From the clone call until exec the child performs raw system calls only:
// no allocation, no locks, no ordinary Go function calls.
//
//go:norace
func forkAndExecInChild(attr *Attr, argv0 *byte, argv, envv []*byte, dir *byte, p [2]int) (pid uintptr, err1 syscall.Errno) {
	fd, nextfd := prepareFds(attr.Files)

	// No other thread may create descriptors without close-on-exec while
	// the fork is in flight.
	syscall.ForkLock.Lock()

	beforeFork()

	pid, _, err1 = syscall.RawSyscall6(syscall.SYS_CLONE, uintptr(syscall.SIGCHLD), 0, 0, 0, 0, 0)
	if err1 != 0 || pid != 0 {
		// Parent.
		afterFork()
		syscall.ForkLock.Unlock()
		return
	}

	afterForkInChild()

	pipe := p[1]

	if _, _, err1 = syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(p[0]), 0, 0); err1 != 0 {
		childFailure(pipe, locClosePipe, err1)
	}

	// Park the status pipe above all mapping targets.
	if pipe < nextfd {
		_, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, uintptr(pipe), uintptr(nextfd), syscall.O_CLOEXEC)
		if err1 != 0 {
			childFailure(pipe, locDup3, err1)
		}

		pipe = nextfd
		nextfd++
	}

	// First pass: entries whose source would be clobbered by an earlier
	// target are parked above nextfd.
	for i := 0; i < len(fd); i++ {
		if fd[i] >= 0 && fd[i] < i {
			for nextfd == pipe {
				nextfd++
			}

			_, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, uintptr(fd[i]), uintptr(nextfd), syscall.O_CLOEXEC)
			if err1 != 0 {
				childFailure(pipe, locDup3, err1)
			}

			fd[i] = nextfd
			nextfd++
		}
	}

	// Second pass: move every entry onto its target descriptor.
	for i := 0; i < len(fd); i++ {
		if fd[i] == -1 {
			syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(i), 0, 0)
			continue
		}

		if fd[i] == i {
			// The descriptor already sits on its target; clear
			// close-on-exec in place, dup3 onto itself would fail.
			_, _, err1 = syscall.RawSyscall(syscall.SYS_FCNTL, uintptr(i), syscall.F_SETFD, 0)
			if err1 != 0 {
				childFailure(pipe, locFcntl, err1)
			}

			continue
		}

		_, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, uintptr(fd[i]), uintptr(i), 0)
		if err1 != 0 {
			childFailure(pipe, locDup3, err1)
		}
	}

	if dir != nil {
		_, _, err1 = syscall.RawSyscall(syscall.SYS_CHDIR, uintptr(unsafe.Pointer(dir)), 0, 0)
		if err1 != 0 {
			childFailure(pipe, locChdir, err1)
		}
	}

	// Flag stray descriptors as the very last action: nothing below this
	// point may create new descriptors.
	if attr.CloseFds != nil {
		if err := attr.CloseFds.BeforeExec(); err != nil {
			errno := syscall.EIO

			if sweepErr, ok := err.(*closefds.SweepError); ok {
				errno = sweepErr.Errno
			}

			childFailure(pipe, locCloseFds, errno)
		}
	}

	_, _, err1 = syscall.RawSyscall(unix.SYS_EXECVE, uintptr(unsafe.Pointer(argv0)),
		uintptr(unsafe.Pointer(&argv[0])), uintptr(unsafe.Pointer(&envv[0])))

	childFailure(pipe, locExecve, err1)
	return
}

// childFailure reports the failed step over the status pipe and exits the
// child. Never returns.
//
//go:nosplit
func childFailure(pipe int, loc errorLocation, errno syscall.Errno) {
	childErr := ChildError{
		Err:      errno,
		Location: loc,
	}

	syscall.RawSyscall(unix.SYS_WRITE, uintptr(pipe), uintptr(unsafe.Pointer(&childErr)), unsafe.Sizeof(childErr))

	for {
		syscall.RawSyscall(syscall.SYS_EXIT, uintptr(errno), 0, 0)
	}
}
