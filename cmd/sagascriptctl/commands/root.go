// Package commands implements the sagascriptctl subcommands on top of
// github.com/spf13/cobra.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagascript/sagascript/internal/core"
)

var (
	flagLanguage  string
	flagModel     string
	flagJSON      bool
	flagClipboard bool
)

// Root returns the sagascriptctl root command with all subcommands attached.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "sagascriptctl",
		Short: "Command-line dictation client for Sagascript",
		Long:  "sagascriptctl transcribes audio files, records from the microphone, and manages Whisper models without the desktop tray app.",
	}

	root.PersistentFlags().StringVar(&flagLanguage, "language", "", "language override (en, sv, no, auto)")
	root.PersistentFlags().StringVar(&flagModel, "model", "", "model id override")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON output")
	root.PersistentFlags().BoolVar(&flagClipboard, "clipboard", false, "copy the result to the clipboard instead of printing it")

	root.AddCommand(
		transcribeCmd(),
		recordCmd(),
		listModelsCmd(),
		downloadModelCmd(),
		configCmd(),
		formatsCmd(),
		retryCmd(),
		completionsCmd(root),
		manpagesCmd(root),
	)
	return root
}

func resolveLanguage(settings core.Settings) core.Language {
	if flagLanguage != "" {
		return core.Language(flagLanguage)
	}
	return settings.Language
}

func resolveModel(settings core.Settings, lang core.Language) core.ModelID {
	if flagModel != "" {
		return core.ModelID(flagModel)
	}
	if flagLanguage != "" {
		return core.RecommendedModel(lang)
	}
	return settings.EffectiveModel()
}

// transcribeProgress returns a per-percent progress printer for interactive
// runs, or nil when --json output must stay parseable.
func transcribeProgress() func(int) {
	if flagJSON {
		return nil
	}
	return func(percent int) {
		fmt.Fprintf(os.Stderr, "\rTranscribing... %d%%", percent)
		if percent >= 100 {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func deliver(text string, sink *core.PasteSink) {
	if flagClipboard {
		if err := sink.CopyToClipboard(text); err != nil {
			fail("copying to clipboard: %v", err)
		}
		if !flagJSON {
			fmt.Println("Copied to clipboard.")
		}
		return
	}
	if flagJSON {
		fmt.Printf("{%q: %q}\n", "text", text)
		return
	}
	fmt.Println(text)
}
