package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagascript/sagascript/internal/core"
)

func listModelsCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "list-models",
		Short: "List known models and their on-disk status",
		Run: func(cmd *cobra.Command, args []string) {
			runListModels(language)
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "filter by language (en, sv, no, auto)")
	return cmd
}

func runListModels(language string) {
	store := core.NewModelStore()

	var ids []core.ModelID
	if language != "" {
		ids = core.ModelsForLanguage(core.Language(language))
	} else {
		for _, m := range core.ModelRegistry {
			ids = append(ids, m.ID)
		}
	}

	for _, id := range ids {
		info, ok := core.LookupModel(id)
		if !ok {
			continue
		}
		status := "not downloaded"
		if store.IsPresent(id) {
			status = "downloaded"
		}
		fmt.Printf("%-20s %-28s %5d MB  %s\n", info.ID, info.DisplayName, info.ApproxMB, status)
	}
}

func downloadModelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download-model <id>",
		Short: "Download a model by id",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runDownloadModel(args[0])
		},
	}
}

func runDownloadModel(id string) {
	store := core.NewModelStore()
	modelID := core.ModelID(id)
	if _, ok := core.LookupModel(modelID); !ok {
		fail("unknown model %q", id)
	}

	lastPct := -1
	path, err := store.Download(context.Background(), modelID, func(downloaded, total int64) {
		if total <= 0 {
			return
		}
		pct := int(downloaded * 100 / total)
		if pct != lastPct {
			lastPct = pct
			fmt.Printf("\r%s: %d%%", id, pct)
		}
	})
	if err != nil {
		fmt.Println()
		fail("downloading %s: %v", id, err)
	}
	fmt.Printf("\n%s ready at %s\n", id, path)
}
