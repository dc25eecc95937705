package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List audio file formats transcribe accepts",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("wav")
		},
	}
}

// retryCmd only makes sense against a running sagascript instance with
// state to retry, so it explains the limitation rather than silently
// no-op'ing — sagascriptctl is a one-shot process with no prior
// dictation session to retry.
func retryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Retry the last failed transcription (desktop app only)",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(os.Stderr, "retry is only meaningful against a running sagascript session; this CLI process has no prior recording to retry.")
			os.Exit(1)
		},
	}
}

func completionsCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:       "completions <shell>",
		Short:     "Generate shell completion scripts",
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Run: func(cmd *cobra.Command, args []string) {
			var err error
			switch args[0] {
			case "bash":
				err = root.GenBashCompletion(os.Stdout)
			case "zsh":
				err = root.GenZshCompletion(os.Stdout)
			case "fish":
				err = root.GenFishCompletion(os.Stdout, true)
			case "powershell":
				err = root.GenPowerShellCompletionWithDesc(os.Stdout)
			}
			if err != nil {
				fail("generating completion: %v", err)
			}
		},
	}
}

func manpagesCmd(root *cobra.Command) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "manpages",
		Short: "Generate man pages",
		Run: func(cmd *cobra.Command, args []string) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fail("creating %s: %v", dir, err)
			}
			header := &doc.GenManHeader{Title: "SAGASCRIPTCTL", Section: "1"}
			if err := doc.GenManTree(root, header, dir); err != nil {
				fail("generating man pages: %v", err)
			}
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./man", "output directory")
	return cmd
}
