package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagascript/sagascript/internal/audio"
	"github.com/sagascript/sagascript/internal/core"
)

func transcribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe an audio file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runTranscribe(args[0])
		},
	}
}

func runTranscribe(path string) {
	store := core.NewSettingsStore()
	settings, err := store.Load()
	if err != nil {
		fail("loading settings: %v", err)
	}

	pcm, err := audio.DecodeFile(path)
	if err != nil {
		fail("decoding %s: %v", path, err)
	}

	lang := resolveLanguage(settings)
	modelID := resolveModel(settings, lang)

	models := core.NewModelStore()
	if !models.IsPresent(modelID) {
		fail("model %q is not on disk; run `sagascriptctl download-model %s` first", modelID, modelID)
	}

	engine := core.NewEngine()
	if err := engine.EnsureLoaded(models, modelID); err != nil {
		fail("loading model: %v", err)
	}
	defer engine.Close()

	text, err := engine.Transcribe(context.Background(), pcm, lang, "", transcribeProgress())
	if err != nil {
		fail("transcribing: %v", err)
	}
	if text == "" {
		fmt.Println("(no speech detected)")
		return
	}

	deliver(text, core.NewPasteSink())
}
