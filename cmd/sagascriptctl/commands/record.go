package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagascript/sagascript/internal/audio"
	"github.com/sagascript/sagascript/internal/core"
)

func recordCmd() *cobra.Command {
	var duration int
	var output string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the microphone and transcribe (or save to a WAV file)",
		Run: func(cmd *cobra.Command, args []string) {
			runRecord(duration, output)
		},
	}
	cmd.Flags().IntVar(&duration, "duration", 0, "stop after N seconds (0 = stop with Ctrl+C)")
	cmd.Flags().StringVar(&output, "output", "", "write captured audio to this WAV path instead of transcribing")
	return cmd
}

func runRecord(durationSeconds int, output string) {
	capture := core.NewCaptureSource()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := capture.Start(ctx); err != nil {
		fail("starting capture: %v", err)
	}
	fmt.Println("Recording... press Ctrl+C to stop.")

	if durationSeconds > 0 {
		time.Sleep(time.Duration(durationSeconds) * time.Second)
	} else {
		waitForInterrupt()
	}

	pcm, err := capture.Stop()
	if err != nil {
		fail("stopping capture: %v", err)
	}

	if output != "" {
		if err := audio.EncodeWAV(output, pcm); err != nil {
			fail("writing %s: %v", output, err)
		}
		fmt.Printf("Wrote %s (%.1fs captured)\n", output, pcm.DurationSeconds())
		return
	}

	store := core.NewSettingsStore()
	settings, err := store.Load()
	if err != nil {
		fail("loading settings: %v", err)
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
