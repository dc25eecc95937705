package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/sagascript/sagascript/internal/core"
)

// App is the Wails-bound application struct. It owns no dictation logic
// itself — that lives in core.Coordinator — and exists only to translate
// between Wails' lifecycle/JS-binding conventions and the Coordinator's API.
type App struct {
	mu        sync.RWMutex
	ctx       context.Context
	startupCh chan struct{}
	once      sync.Once

	loginItems *LoginItemService

	coordinator *core.Coordinator
	events      core.EventSink
	engine      *core.Engine
	hotkeys     *core.HotkeyBridge
	models      *core.ModelStore
	settings    *core.SettingsStore
	paste       *core.PasteSink

	windowVisible bool
}

// NewApp wires the App around an already-constructed Coordinator and its
// subsystems; main.go performs that construction before calling this.
func NewApp(coordinator *core.Coordinator, engine *core.Engine, hotkeys *core.HotkeyBridge, models *core.ModelStore, settings *core.SettingsStore, paste *core.PasteSink) *App {
	svc, err := NewLoginItemService()
	if err != nil {
		log.Printf("app: failed to create login item service: %v", err)
	}
	return &App{
		startupCh:   make(chan struct{}),
		loginItems:  svc,
		coordinator: coordinator,
		events:      core.NopEventSink,
		engine:      engine,
		hotkeys:     hotkeys,
		models:      models,
		settings:    settings,
		paste:       paste,
	}
}

// startup is called by Wails once its runtime is ready.
func (a *App) startup(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()
	a.once.Do(func() { close(a.startupCh) })

	a.coordinator.SetContextCapturer(newContextCapturer())

	go StartSystray(a)

	a.paste.PromptAccessibility()

	cfg, err := a.settings.Load()
	if err != nil {
		log.Printf("app: settings load failed, using defaults: %v", err)
		cfg = core.DefaultSettings()
	}

	if err := a.hotkeys.Start(ctx, cfg.Hotkey, a.onHotkeyTriggered); err != nil {
		if errors.Is(err, core.ErrHotkeyConflict) {
			log.Printf("hotkey: %s already registered by another app", cfg.Hotkey)
			runtime.EventsEmit(ctx, "hotkey:conflict")
		} else {
			log.Printf("hotkey: failed to register: %v", err)
		}
	}

	if !a.models.IsPresent(cfg.EffectiveModel()) {
		log.Printf("app: recommended model %s not on disk yet", cfg.EffectiveModel())
		runtime.EventsEmit(ctx, "model:missing")
	}
}

// onHotkeyTriggered is invoked on every physical key-press reported by
// golang.design/x/hotkey. The OS layer gives presses only, so push-to-talk
// and toggle are both driven from this single entry point: a press while
// Idle always starts a recording; a press while Recording always ends it,
// routed through OnHotkeyUp for push-to-talk mode (matching the logical
// "key released" semantics the Coordinator models) and through OnHotkeyDown
// for toggle mode.
func (a *App) onHotkeyTriggered() {
	a.mu.RLock()
	ctx := a.ctx
	a.mu.RUnlock()

	cfg, err := a.settings.Load()
	if err != nil {
		log.Printf("app: settings load failed on hotkey trigger: %v", err)
		cfg = core.DefaultSettings()
	}

	if a.coordinator.State() == core.StateRecording && cfg.HotkeyMode == core.HotkeyModePushToTalk {
		a.coordinator.OnHotkeyUp(cfg.HotkeyMode)
	} else {
		a.coordinator.OnHotkeyDown(ctx, cfg.HotkeyMode)
	}

	runtime.EventsEmit(ctx, "hotkey:triggered")
}

// waitForStartup blocks until Wails has initialised (startup() has run).
func (a *App) waitForStartup() context.Context {
	<-a.startupCh
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ctx
}

// ShowWindow shows the main settings window.
func (a *App) ShowWindow() {
	go func() {
		ctx := a.waitForStartup()
		runtime.WindowShow(ctx)
		a.mu.Lock()
		a.windowVisible = true
		a.mu.Unlock()
	}()
}

// ToggleWindow shows the window if hidden, or hides it if visible.
func (a *App) ToggleWindow() {
	go func() {
		ctx := a.waitForStartup()
		a.mu.Lock()
		if a.windowVisible {
			runtime.WindowHide(ctx)
			a.windowVisible = false
		} else {
			runtime.WindowShow(ctx)
			a.windowVisible = true
		}
		a.mu.Unlock()
	}()
}

// Quit performs an ordered shutdown: unregister the hotkey while the event
// loop is still alive, free the Whisper model's native resources, then ask
// Wails to tear down.
func (a *App) Quit() {
	go func() {
		ctx := a.waitForStartup()
		a.hotkeys.Stop()
		a.coordinator.Cancel()
		if err := a.engine.Close(); err != nil {
			log.Printf("app: engine close on quit: %v", err)
		}
		<-time.After(100 * time.Millisecond)
		runtime.Quit(ctx)
	}()
}

// GetSettings returns the current persisted configuration.
func (a *App) GetSettings() core.Settings {
	cfg, err := a.settings.Load()
	if err != nil {
		log.Printf("app: GetSettings load failed: %v", err)
		return core.DefaultSettings()
	}
	return cfg
}

// SetModel pins a specific model and disables auto-selection, persisting
// the change. The model is loaded lazily on the next dictation.
func (a *App) SetModel(model string) error {
	id := core.ModelID(model)
	if _, ok := core.LookupModel(id); !ok {
		return fmt.Errorf("unknown model %q", model)
	}
	cfg, err := a.settings.Load()
	if err != nil {
		return err
	}
	cfg.Model = id
	cfg.AutoSelectModel = false
	return a.settings.Save(cfg)
}

// ModelStatus is the JSON shape returned by GetModelStatuses.
type ModelStatus struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	ApproxMB    int    `json:"approx_mb"`
	Downloaded  bool   `json:"downloaded"`
}

// GetModelStatuses returns the on-disk status of every known model.
func (a *App) GetModelStatuses() []ModelStatus {
	out := make([]ModelStatus, 0, len(core.ModelRegistry))
	for _, m := range core.ModelRegistry {
		out = append(out, ModelStatus{
			ID:          string(m.ID),
			DisplayName: m.DisplayName,
			ApproxMB:    m.ApproxMB,
			Downloaded:  a.models.IsPresent(m.ID),
		})
	}
	return out
}

// DownloadModel starts a download, streaming progress through the core
// event stream (which the sink forwards to the JS side as
// "model:download:progress" and completion as "model:ready").
func (a *App) DownloadModel(model string) error {
	id := core.ModelID(model)
	if _, ok := core.LookupModel(id); !ok {
		return fmt.Errorf("unknown model %q", model)
	}

	a.waitForStartup()
	go func() {
		_, err := a.models.Download(context.Background(), id, func(downloaded, total int64) {
			a.events.Publish(core.Event{Kind: core.EventModelDownloadProgress, Model: id, Downloaded: downloaded, Total: total})
		})
		if err != nil {
			log.Printf("app: download of %s failed: %v", model, err)
			a.events.Publish(core.Event{Kind: core.EventError, Err: err, Model: id})
			return
		}
		a.events.Publish(core.Event{Kind: core.EventModelReady, Model: id})
	}()
	return nil
}

// SetLanguage updates the transcription language and persists the change.
func (a *App) SetLanguage(lang string) error {
	l := core.Language(lang)
	if !l.Valid() {
		return fmt.Errorf("unknown language %q", lang)
	}
	cfg, err := a.settings.Load()
	if err != nil {
		return err
	}
	cfg.Language = l
	return a.settings.Save(cfg)
}

// GetHotkey returns the current hotkey combo string.
func (a *App) GetHotkey() string {
	return a.hotkeys.Combo()
}

// SetHotkey re-registers the global hotkey to combo and persists it. Emits
// "hotkey:conflict" and returns an error if the combo is already taken.
func (a *App) SetHotkey(combo string) error {
	if _, _, err := core.ParseHotkey(combo); err != nil {
		return err
	}
	if err := a.hotkeys.Reregister(combo); err != nil {
		if errors.Is(err, core.ErrHotkeyConflict) {
			ctx := a.waitForStartup()
			runtime.EventsEmit(ctx, "hotkey:conflict")
		}
		return err
	}
	cfg, err := a.settings.Load()
	if err != nil {
		return err
	}
	cfg.Hotkey = combo
	return a.settings.Save(cfg)
}

// SetHotkeyMode switches between push-to-talk and toggle semantics.
func (a *App) SetHotkeyMode(mode string) error {
	m := core.HotkeyMode(mode)
	if m != core.HotkeyModePushToTalk && m != core.HotkeyModeToggle {
		return fmt.Errorf("unknown hotkey mode %q", mode)
	}
	cfg, err := a.settings.Load()
	if err != nil {
		return err
	}
	cfg.HotkeyMode = m
	return a.settings.Save(cfg)
}

// SetAutoPaste toggles whether a successful transcription is pasted
// automatically into the focused application.
func (a *App) SetAutoPaste(enabled bool) error {
	cfg, err := a.settings.Load()
	if err != nil {
		return err
	}
	cfg.AutoPaste = enabled
	return a.settings.Save(cfg)
}

// GetStatus returns the Coordinator's current state as a string, for the UI
// to render without subscribing to the event stream.
func (a *App) GetStatus() string {
	return a.coordinator.State().String()
}

// GetLastTranscription returns the most recent successful transcription, so
// the settings window can offer a "copy last result" affordance.
func (a *App) GetLastTranscription() string {
	return a.coordinator.LastTranscription()
}

// RetryLastTranscription re-runs inference on the last recording that
// didn't produce pasted output.
func (a *App) RetryLastTranscription() {
	a.coordinator.RetryLastTranscription()
}

// OpenSystemSettings opens the macOS Privacy & Security microphone pane.
// The accessibility pane is not opened.
func (a *App) OpenSystemSettings() error {
	return exec.Command("open",
		"x-apple.systempreferences:com.apple.preference.security?Privacy_Microphone",
	).Run()
}

// GetLaunchAtLogin reports whether the app is registered as a login item.
func (a *App) GetLaunchAtLogin() bool {
	if a.loginItems == nil {
		return false
	}
	return a.loginItems.IsEnabled()
}

// SetLaunchAtLogin enables or disables the launch-at-login login item.
func (a *App) SetLaunchAtLogin(enabled bool) error {
	if a.loginItems == nil {
		return nil
	}
	if enabled {
		execPath, err := os.Executable()
		if err != nil {
			return err
		}
		return a.loginItems.Enable(execPath)
	}
	return a.loginItems.Disable()
}
