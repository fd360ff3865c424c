package runner

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/maxvaer/rschunter/internal/scanner"
)

// startStdinToggle puts the terminal in raw mode and toggles a pauser on
// Enter or Space. Workers finish the host they are on and then wait. The
// returned cleanup restores the terminal. When stdin is not a terminal the
// pauser is nil and cleanup is a no-op.
func startStdinToggle(quiet bool) (*scanner.Pauser, func()) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, func() {}
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		if !quiet {
			fmt.Fprintf(os.Stderr, "[!] Could not enable raw terminal: %v\n", err)
		}
		return nil, func() {}
	}
	fixOutputProcessing(fd)

	pauser := scanner.NewPauser()
	cleanup := func() { _ = term.Restore(fd, oldState) }

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}

			switch buf[0] {
			case 0x03:
				// Ctrl+C is not delivered as a signal in raw mode.
				cleanup()
				sendInterrupt()
				return
			case '\r', '\n', ' ':
				paused := pauser.Toggle()
				if quiet {
					continue
				}
				if paused {
					fmt.Fprint(os.Stderr, "\r\033[K[*] Scan PAUSED, press Enter or Space to resume\n")
				} else {
					fmt.Fprint(os.Stderr, "\r\033[K[*] Scan RESUMED\n")
				}
			}
		}
	}()

	return pauser, cleanup
}
