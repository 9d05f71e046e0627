//go:build windows

package gitcli

import "os"

// Windows has no SIGTERM delivery for arbitrary processes; Kill is the only
// portable option.
var terminateSignal os.Signal = os.Kill
