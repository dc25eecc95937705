//go:build !windows

package commands

import (
	"os"
	"os/signal"
	"syscall"
)

// waitForInterrupt blocks until SIGINT/SIGTERM so a long-running
// foreground command can end cleanly.
func waitForInterrupt() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}
