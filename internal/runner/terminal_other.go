//go:build !windows && !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package runner

import "os"

func sendInterrupt() {
	if p, err := os.FindProcess(os.Getpid()); err == nil {
		_ = p.Signal(os.Interrupt)
	}
}

// fixOutputProcessing is a no-op where the termios ioctls are not wired.
func fixOutputProcessing(int) {}
