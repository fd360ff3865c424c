//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package runner

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func sendInterrupt() {
	_ = syscall.Kill(os.Getpid(), syscall.SIGINT)
}

// fixOutputProcessing re-enables OPOST after term.MakeRaw so that \n is
// still translated to \r\n. Without it result lines printed during a batch
// scan start mid-row.
func fixOutputProcessing(fd int) {
	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return
	}
	t.Oflag |= unix.OPOST
	_ = unix.IoctlSetTermios(fd, ioctlSetTermios, t)
}
