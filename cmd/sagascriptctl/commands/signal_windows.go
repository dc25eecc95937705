//go:build windows

package commands

import (
	"os"
	"os/signal"
)

func waitForInterrupt() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	<-ch
}
