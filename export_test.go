//go:build unix

package closefds

import "syscall"

// StubNofileLimit replaces the rlimit query until the returned restore
// function is called. The replacement may run between fork and exec and must
// be a small leaf function.
func StubNofileLimit(f func() (uint64, syscall.Errno)) (restore func()) {
	orig := nofileLimit
	nofileLimit = f

	return func() { nofileLimit = orig }
}
