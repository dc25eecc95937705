package main

import (
	_ "embed"

	"github.com/getlantern/systray"

	"github.com/sagascript/sagascript/internal/core"
)

//go:embed assets/icon-template.png
var iconBytes []byte

// StartSystray launches the tray icon in a background goroutine. Must be
// called after Wails startup() fires so the Cocoa run loop is already
// running; calling it earlier deadlocks.
func StartSystray(app *App) {
	go systray.Run(
		func() { onSystrayReady(app) },
		func() {},
	)
}

func onSystrayReady(app *App) {
	HideFromDock()
	systray.SetTemplateIcon(iconBytes, iconBytes)
	systray.SetTooltip("Sagascript — click to show")

	mToggle := systray.AddMenuItem("Show / Hide", "Toggle the Sagascript window")
	systray.AddSeparator()
	mRetry := systray.AddMenuItem("Retry last transcription", "Re-run inference on the last unsent recording")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit Sagascript", "Exit the application")

	go func() {
		for {
			select {
			case <-mToggle.ClickedCh:
				app.ToggleWindow()
			case <-mRetry.ClickedCh:
				app.coordinator.RetryLastTranscription()
			case <-mQuit.ClickedCh:
				systray.Quit()
				app.Quit()
				return
			}
		}
	}()
}

// setTrayIconForState would swap the tray glyph per-state (idle/recording/
// processing) given per-state icon assets; this rewrite ships a single
// template icon (see assets/icon-template.png) so it only updates the
// tooltip, leaving room for distinct glyphs as a follow-up asset addition.
func setTrayIconForState(s core.State) {
	systray.SetTooltip("Sagascript — " + s.String())
}
