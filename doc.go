// Package closefds sets the close-on-exec flag on all open file descriptors
// of the calling process in the window between fork(2) and exec(2).
//
// Descriptors created without O_CLOEXEC (for example by pipe(2)) stay open
// across exec and leak into the new program image, keeping pipes from ever
// reporting end-of-file and exposing resources the child was never meant to
// see. The usual fix is to flag every descriptor right before exec, but that
// has to happen in the child, where only the forking thread survived and any
// lock held by another thread at fork time will never be released. Code
// running there must not allocate through the Go heap or take locks.
//
// A Hook is therefore built in the parent with New, where allocation is still
// safe: the preserve set is normalized and, where the kernel exposes a
// listing of open descriptors, that listing is opened ahead of time. The
// returned Hook's BeforeExec method performs the sweep using raw system calls
// only and is the one piece meant to run in the child. Close releases the
// parent-side resources; it must never run in the child.
//
// On Linux the sweep reads /proc/self/fd. Where no such listing is available
// the process's RLIMIT_NOFILE ceiling is probed descriptor by descriptor
// instead.
package closefds
