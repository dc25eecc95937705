package core

import (
	"log"
	"time"

	"github.com/atotto/clipboard"
	"golang.design/x/mainthread"
)

// platformPaster is implemented per-OS in paste_darwin.go / paste_other.go.
// PasteHere synthesizes keystrokes into the frontmost application; it must
// only ever run on the OS main thread (see mainthread.Call below).
type platformPaster interface {
	IsAccessibilityTrusted(prompt bool) bool
	PasteHere(text string) error
}

// PasteSink delivers transcribed text to whatever application has focus:
// try a native synthetic paste, and if that's refused
// (no accessibility permission, or the platform doesn't support it) fall
// back to leaving the text on the clipboard and telling the caller so the
// UI can prompt the user to paste manually.
type PasteSink struct {
	platform platformPaster
	clip     clipboardBackend

	// dispatch hops the given function onto the OS main thread.
	// mainthread.Call in production; tests run it inline since no
	// mainthread.Init loop exists under `go test`.
	dispatch func(func())
}

// clipboardBackend abstracts atotto/clipboard for tests.
type clipboardBackend interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type realClipboardBackend struct{}

func (realClipboardBackend) ReadAll() (string, error)     { return clipboard.ReadAll() }
func (realClipboardBackend) WriteAll(text string) error { return clipboard.WriteAll(text) }

// NewPasteSink returns a PasteSink backed by the real platform paster and
// system clipboard.
func NewPasteSink() *PasteSink {
	return &PasteSink{platform: newPlatformPaster(), clip: realClipboardBackend{}, dispatch: mainthread.Call}
}

// newPasteSinkWithBackends injects fakes (tests only).
func newPasteSinkWithBackends(p platformPaster, c clipboardBackend) *PasteSink {
	return &PasteSink{platform: p, clip: c, dispatch: func(f func()) { f() }}
}

// PasteHere delivers text to the focused application. It always runs the
// platform-specific call on the OS main thread via mainthread.Call — on
// macOS CGEventPost must originate from the thread that owns the
// application's run loop, and funnelling both GUI and CLI paste calls
// through the same primitive means there is exactly one "run on main"
// code path in the whole repo.
//
// On success the clipboard is saved before the synthetic paste and
// restored ~100ms later, so the user's existing clipboard contents survive
// a dictation. If the platform paste is refused, text is left on the
// clipboard and PasteHere returns a *DictationError{Kind: KindPasteError}
// so the caller can prompt "press Cmd+V" instead.
func (s *PasteSink) PasteHere(text string) error {
	if text == "" {
		return nil
	}

	var pasteErr error
	s.dispatch(func() {
		if !s.platform.IsAccessibilityTrusted(true) {
			pasteErr = PasteError(ErrAccessibilityDenied)
			return
		}

		saved, _ := s.clip.ReadAll()
		if err := s.platform.PasteHere(text); err != nil {
			pasteErr = PasteError(err)
			return
		}

		if saved != "" {
			go func() {
				time.Sleep(100 * time.Millisecond)
				if err := s.clip.WriteAll(saved); err != nil {
					log.Printf("pastesink: clipboard restore failed: %v", err)
				}
			}()
		}
	})

	if pasteErr != nil {
		if err := s.clip.WriteAll(text); err != nil {
			log.Printf("pastesink: clipboard fallback failed: %v", err)
		}
	}
	return pasteErr
}

// CopyToClipboard writes text to the system clipboard without attempting a
// synthetic paste — used by the CLI's --clipboard flag.
func (s *PasteSink) CopyToClipboard(text string) error {
	return s.clip.WriteAll(text)
}

// PromptAccessibility surfaces the macOS accessibility-permission dialog (if
// not already granted) at startup, rather than waiting for the first
// dictation result to be silently lost to a clipboard fallback. No-op on
// platforms whose platformPaster reports always-trusted.
func (s *PasteSink) PromptAccessibility() {
	s.dispatch(func() {
		s.platform.IsAccessibilityTrusted(true)
	})
}
