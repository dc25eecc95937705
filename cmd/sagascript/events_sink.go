package main

import (
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/sagascript/sagascript/internal/core"
)

// appEventSink bridges core.Event notifications to Wails' JS event bus and
// the tray icon tooltip. Constructed before the Coordinator (which needs an
// EventSink at NewCoordinator time) but only starts actually emitting once
// startup() has populated app.ctx — safe because Publish is a no-op until
// then, and nothing publishes before the hotkey/model subsystems start.
type appEventSink struct {
	app *App
}

func newAppEventSink(app *App) *appEventSink {
	return &appEventSink{app: app}
}

func (s *appEventSink) Publish(e core.Event) {
	s.app.mu.RLock()
	ctx := s.app.ctx
	s.app.mu.RUnlock()
	if ctx == nil {
		return
	}

	switch e.Kind {
	case core.EventStateChanged:
		setTrayIconForState(e.State)
		runtime.EventsEmit(ctx, "state:changed", e.State.String())
	case core.EventTranscriptionResult:
		runtime.EventsEmit(ctx, "transcription:result", e.Text)
	case core.EventTranscriptionProgress:
		runtime.EventsEmit(ctx, "transcription:progress", e.Percent)
	case core.EventError:
		runtime.EventsEmit(ctx, "app:error", e.Err.Error())
	case core.EventModelDownloadProgress:
		percent := 0
		if e.Total > 0 {
			percent = int(e.Downloaded * 100 / e.Total)
		}
		runtime.EventsEmit(ctx, "model:download:progress", string(e.Model), e.Downloaded, e.Total, percent)
	case core.EventModelReady:
		runtime.EventsEmit(ctx, "model:ready", string(e.Model))
	}
}
