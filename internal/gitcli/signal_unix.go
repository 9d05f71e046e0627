//go:build !windows

package gitcli

import (
	"os"
	"syscall"
)

// terminateSignal asks a child git process to wind down cleanly on cancel.
var terminateSignal os.Signal = syscall.SIGTERM
