package main

import (
	"embed"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"golang.design/x/mainthread"

	"github.com/sagascript/sagascript/internal/core"
)

//go:embed all:frontend/dist
var assets embed.FS

// initLogging prepares a log file in ~/.sagascript/app.log, writing to both
// stdout and the file.
func initLogging() *os.File {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("logging: failed to get home dir: %v", err)
		return nil
	}
	logDir := filepath.Join(home, ".sagascript")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Printf("logging: failed to create log dir: %v", err)
		return nil
	}

	logPath := filepath.Join(logDir, "app.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		log.Printf("logging: failed to open log file: %v", err)
		return nil
	}

	log.SetOutput(io.MultiWriter(os.Stdout, f))
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	log.Println("=== Sagascript started ===")
	return f
}

func runApp() {
	logFile := initLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	capture := core.NewCaptureSource()
	engine := core.NewEngine()
	models := core.NewModelStore()
	hotkeys := core.NewHotkeyBridge()
	paste := core.NewPasteSink()
	settings := core.NewSettingsStore()

	app := NewApp(nil, engine, hotkeys, models, settings, paste)
	sink := newAppEventSink(app)
	app.events = sink
	coordinator := core.NewCoordinator(capture, engine, models, paste, settings, sink)
	app.coordinator = coordinator

	appMenu := menu.NewMenu()
	fileMenu := appMenu.AddSubmenu("Sagascript")
	fileMenu.AddText("Show / Hide", keys.CmdOrCtrl(","), func(_ *menu.CallbackData) {
		app.ToggleWindow()
	})
	fileMenu.AddSeparator()
	fileMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
		app.Quit()
	})

	err := wails.Run(&options.App{
		Title:     "Sagascript",
		Width:     360,
		Height:    420,
		MinWidth:  300,
		MinHeight: 380,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 18, G: 18, B: 18, A: 0},
		OnStartup:        app.startup,
		Bind:             []interface{}{app},
		Mac: &mac.Options{
			TitleBar:             mac.TitleBarHiddenInset(),
			Appearance:           mac.NSAppearanceNameDarkAqua,
			WebviewIsTransparent: true,
			WindowIsTranslucent:  true,
			About: &mac.AboutInfo{
				Title:   "Sagascript",
				Message: "A fast, private, offline dictation tool.",
			},
		},
		StartHidden:       true,
		HideWindowOnClose: true,
		Menu:              appMenu,
		Logger:            logger.NewDefaultLogger(),
		LogLevel:          logger.WARNING,
	})

	if err != nil {
		log.Fatalf("fatal: wails.Run failed: %v", err)
	}
}

// main hands control to golang.design/x/mainthread so that every
// platform-trusted call PasteSink makes via mainthread.Call
// actually runs on the OS thread that owns the Cocoa/Win32 message loop —
// mainthread.Init must own the OS main thread for the lifetime of the
// process, so the rest of the app runs inside runApp.
func main() {
	mainthread.Init(runApp)
}
