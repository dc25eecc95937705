package main

import (
	"os"

	"golang.design/x/mainthread"

	"github.com/sagascript/sagascript/cmd/sagascriptctl/commands"
)

// main wraps command dispatch in mainthread.Init for the same reason
// cmd/sagascript does: PasteSink funnels every platform-trusted call
// through mainthread.Call, and that primitive only works if Init owns the
// OS main thread for the life of the process — even in a one-shot CLI.
func main() {
	exitCode := 0
	mainthread.Init(func() {
		if err := commands.Root().Execute(); err != nil {
			exitCode = 1
		}
	})
	os.Exit(exitCode)
}
