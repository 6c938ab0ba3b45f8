package forkexec

import _ "unsafe"

// The runtime must be told about an upcoming fork so it can quiesce the other
// threads and restore its state afterwards. These hooks are what the syscall
// package itself uses around its fork calls.

//go:linkname beforeFork syscall.runtime_BeforeFork
func beforeFork()

//go:linkname afterFork syscall.runtime_AfterFork
func afterFork()

//go:linkname afterForkInChild syscall.runtime_AfterForkInChild
func afterForkInChild()
