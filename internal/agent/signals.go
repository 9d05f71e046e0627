package agent

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// InstallInterruptHandler makes an OS interrupt cancel the run loop instead
// of killing the process: the loop drains in-flight jobs and deletes its
// session before exiting. A second interrupt exits immediately.
//
// Before this is installed, the run command's configuration stage exits
// with code 1 on an interrupt.
func InstallInterruptHandler(cancel context.CancelFunc) (stop func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-ch
		if !ok {
			return
		}
		slog.Info("Interrupt received; shutting down run loop", slog.String("signal", sig.String()))
		cancel()
		if sig, ok := <-ch; ok {
			slog.Warn("Second interrupt; exiting immediately", slog.String("signal", sig.String()))
			os.Exit(1)
		}
	}()
	return func() {
		signal.Stop(ch)
		close(ch)
	}
}
