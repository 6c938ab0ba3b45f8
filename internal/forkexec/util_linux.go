package forkexec

import (
	"syscall"
)

// prepareExec converts argv and the environment into the NUL-terminated form
// execve expects. Must run before forking; conversion allocates.
func prepareExec(args, env []string) (*byte, []*byte, []*byte, error) {
	argv0, err := syscall.BytePtrFromString(args[0])
	if err != nil {
		return nil, nil, nil, err
	}

	argv, err := syscall.SlicePtrFromStrings(args)
	if err != nil {
		return nil, nil, nil, err
	}

	envv, err := syscall.SlicePtrFromStrings(env)
	if err != nil {
		return nil, nil, nil, err
	}

	return argv0, argv, envv, nil
}

// prepareFds copies the descriptor mapping into a mutable int slice and
// determines the first descriptor number guaranteed to be above both the
// mapping's targets and sources, so duplicates can be parked there without
// clobbering anything.
func prepareFds(files []uintptr) ([]int, int) {
	fd := make([]int, len(files))
	nextfd := len(files)

	for i, ufd := range files {
		if nextfd < int(ufd) {
			nextfd = int(ufd)
		}

		fd[i] = int(ufd)
	}

	nextfd++

	return fd, nextfd
}

// dirPtr converts an optional directory path for use with chdir. An empty
// path yields nil, meaning the working directory is left alone.
func dirPtr(dir string) (*byte, error) {
	if dir == "" {
		return nil, nil
	}

	return syscall.BytePtrFromString(dir)
}
