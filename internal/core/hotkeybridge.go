package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.design/x/hotkey"
)

// hotkeyBackend abstracts golang.design/x/hotkey so tests can inject a fake.
type hotkeyBackend interface {
	Register() error
	Unregister() error
	Keydown() <-chan struct{}
}

// realHotkeyBackend wraps golang.design/x/hotkey. Created lazily in
// Register() so constructing a HotkeyBridge never spawns a CGo goroutine —
// keeps unit tests free of OS-level hotkey registration.
type realHotkeyBackend struct {
	hk        *hotkey.Hotkey
	mods      []hotkey.Modifier
	key       hotkey.Key
	keyCh     chan struct{}
	closeOnce sync.Once
}

func newRealHotkeyBackend(combo string) (*realHotkeyBackend, error) {
	mods, key, err := ParseHotkey(combo)
	if err != nil {
		return nil, err
	}
	return &realHotkeyBackend{mods: mods, key: key}, nil
}

func (r *realHotkeyBackend) Register() error {
	r.hk = hotkey.New(r.mods, r.key)
	if err := r.hk.Register(); err != nil {
		_ = r.hk.Unregister()
		r.hk = nil
		return ErrHotkeyConflict
	}
	r.keyCh = make(chan struct{}, 4)
	src := r.hk.Keydown()
	go func() {
		for range src {
			select {
			case r.keyCh <- struct{}{}:
			default:
			}
		}
		r.closeOnce.Do(func() { close(r.keyCh) })
	}()
	return nil
}

func (r *realHotkeyBackend) Unregister() error {
	if r.hk == nil {
		return nil
	}
	return r.hk.Unregister()
}

func (r *realHotkeyBackend) Keydown() <-chan struct{} { return r.keyCh }

// HotkeyBridge manages global hotkey registration and dispatches triggers
// to the Coordinator. golang.design/x/hotkey only exposes a press event (no
// release), so HotkeyModePushToTalk degrades to toggle semantics at the OS
// layer exactly like HotkeyModeToggle — the Coordinator still enforces
// MinRecordingDuration on whichever event ends the recording.
//
// Suspend/Resume exists so the settings window's "press a new hotkey"
// capture mode doesn't retrigger dictation while the user types a combo.
type HotkeyBridge struct {
	mu             sync.Mutex
	backend        hotkeyBackend
	combo          string
	registered     atomic.Bool
	suspended      atomic.Bool
	shuttingDown   atomic.Bool
	doneCh         chan struct{}
	parentCtx      context.Context
	cancel         context.CancelFunc
	onTrigger      func()
	backendFactory func(string) (hotkeyBackend, error)
}

// NewHotkeyBridge returns a HotkeyBridge backed by the real OS hotkey API.
func NewHotkeyBridge() *HotkeyBridge {
	return &HotkeyBridge{
		combo:          "ctrl+space",
		backendFactory: func(c string) (hotkeyBackend, error) { return newRealHotkeyBackend(c) },
	}
}

// newHotkeyBridgeWithBackend injects a fake backend (tests only). The
// factory always hands back the same fake, after validating the combo
// parses, which is enough to exercise Reregister's conflict paths.
func newHotkeyBridgeWithBackend(b hotkeyBackend) *HotkeyBridge {
	return &HotkeyBridge{
		backend: b,
		combo:   "ctrl+space",
		backendFactory: func(c string) (hotkeyBackend, error) {
			if _, _, err := ParseHotkey(c); err != nil {
				return nil, err
			}
			return b, nil
		},
	}
}

// Start registers combo and begins dispatching onTrigger on each press.
// Returns ErrHotkeyConflict if another application owns the combination,
// ErrHotkeyInvalid if combo doesn't parse.
func (s *HotkeyBridge) Start(ctx context.Context, combo string, onTrigger func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if combo != "" && (combo != s.combo || s.backend == nil) {
		b, err := s.backendFactory(combo)
		if err != nil {
			return err
		}
		s.backend = b
		s.combo = combo
	}

	if err := s.backend.Register(); err != nil {
		return err
	}
	s.registered.Store(true)
	s.onTrigger = onTrigger
	s.parentCtx = ctx
	log.Printf("hotkey: %s registered", s.combo)

	listenCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	curBackend := s.backend
	curCombo := s.combo
	keydown := curBackend.Keydown()
	doneCh := make(chan struct{})
	s.doneCh = doneCh

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("hotkey: recovered panic during shutdown race: %v", r)
			}
			if !s.shuttingDown.Load() {
				curBackend.Unregister() //nolint:errcheck
			}
			s.registered.Store(false)
			log.Printf("hotkey: %s unregistered", curCombo)
			close(doneCh)
		}()
		for {
			select {
			case <-listenCtx.Done():
				return
			case _, ok := <-keydown:
				if !ok {
					return
				}
				if s.suspended.Load() {
					continue
				}
				log.Printf("hotkey: %s triggered", curCombo)
				onTrigger()
			}
		}
	}()
	return nil
}

// Reregister swaps to a new combo at runtime. On any error the original
// hotkey stays registered — the new one is proven free before the old one
// is torn down.
func (s *HotkeyBridge) Reregister(newCombo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newBackend, err := s.backendFactory(newCombo)
	if err != nil {
		return err
	}
	if err := newBackend.Register(); err != nil {
		return err
	}
	if s.cancel != nil {
		s.cancel()
	}
	oldCombo := s.combo
	s.backend = newBackend
	s.combo = newCombo
	s.registered.Store(true)
	log.Printf("hotkey: re-registered %s -> %s", oldCombo, newCombo)

	parent := s.parentCtx
	if parent == nil {
		parent = context.Background()
	}
	listenCtx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	trigger := s.onTrigger
	newDoneCh := make(chan struct{})
	s.doneCh = newDoneCh
	keydown := newBackend.Keydown()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("hotkey: recovered panic during shutdown race: %v", r)
			}
			if !s.shuttingDown.Load() {
				newBackend.Unregister() //nolint:errcheck
			}
			s.registered.Store(false)
			log.Printf("hotkey: %s unregistered", newCombo)
			close(newDoneCh)
		}()
		for {
			select {
			case <-listenCtx.Done():
				return
			case _, ok := <-keydown:
				if !ok {
					return
				}
				if s.suspended.Load() {
					continue
				}
				log.Printf("hotkey: %s triggered", newCombo)
				if trigger != nil {
					trigger()
				}
			}
		}
	}()
	return nil
}

// Suspend stops dispatching onTrigger without tearing down the OS
// registration — used while the settings window is capturing a new combo.
func (s *HotkeyBridge) Suspend() { s.suspended.Store(true) }

// Resume re-enables dispatch after Suspend.
func (s *HotkeyBridge) Resume() { s.suspended.Store(false) }

// Stop unregisters and waits (briefly) for the listen goroutine to exit.
func (s *HotkeyBridge) Stop() {
	s.shuttingDown.Store(true)

	s.mu.Lock()
	backend := s.backend
	doneCh := s.doneCh
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	if backend != nil {
		if err := backend.Unregister(); err != nil {
			log.Printf("hotkey: Unregister in Stop() returned: %v", err)
		}
	}
	if doneCh != nil {
		select {
		case <-doneCh:
		case <-time.After(200 * time.Millisecond):
			log.Printf("hotkey: Stop() timed out waiting for goroutine to exit")
		}
	}
}

// IsRegistered reports whether the hotkey is currently registered.
func (s *HotkeyBridge) IsRegistered() bool { return s.registered.Load() }

// Combo returns the currently active hotkey combo string.
func (s *HotkeyBridge) Combo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.combo
}

// modMap is platform-specific (see hotkeymods_*.go): the modifier
// constants golang.design/x/hotkey exposes differ per OS, and the
// cmdorctrl alias resolves to Cmd on macOS and Ctrl elsewhere.

// keyMap covers every terminal key golang.design/x/hotkey exposes on all
// supported platforms: letters, digits, F1-F20, arrows, and the
// space/tab/return/escape/delete block. Nav-cluster, punctuation, numpad,
// and media keys are not representable through this backend; see the
// vocabulary note in DESIGN.md.
var keyMap = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "tab": hotkey.KeyTab, "return": hotkey.KeyReturn, "enter": hotkey.KeyReturn,
	"escape": hotkey.KeyEscape, "esc": hotkey.KeyEscape, "delete": hotkey.KeyDelete, "del": hotkey.KeyDelete,
	"up": hotkey.KeyUp, "down": hotkey.KeyDown, "left": hotkey.KeyLeft, "right": hotkey.KeyRight,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
	"f13": hotkey.KeyF13, "f14": hotkey.KeyF14, "f15": hotkey.KeyF15, "f16": hotkey.KeyF16,
	"f17": hotkey.KeyF17, "f18": hotkey.KeyF18, "f19": hotkey.KeyF19, "f20": hotkey.KeyF20,
}

// ParseHotkey parses a combo string like "ctrl+space" into modifiers and a
// key. It distinguishes "modifier used as key" from "key used as modifier"
// so the error names which token was wrong instead of a blanket "invalid".
func ParseHotkey(combo string) ([]hotkey.Modifier, hotkey.Key, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 {
		return nil, 0, fmt.Errorf("%w: %q (need at least one modifier)", ErrHotkeyInvalid, combo)
	}
	keyPart := parts[len(parts)-1]
	modParts := parts[:len(parts)-1]

	key, ok := keyMap[keyPart]
	if !ok {
		if _, isMod := modMap[keyPart]; isMod {
			return nil, 0, fmt.Errorf("%w: %q is a modifier, not a key", ErrHotkeyInvalid, keyPart)
		}
		return nil, 0, fmt.Errorf("%w: unknown key %q", ErrHotkeyInvalid, keyPart)
	}

	var mods []hotkey.Modifier
	seen := map[string]bool{}
	for _, m := range modParts {
		if seen[m] {
			continue
		}
		seen[m] = true
		mod, ok := modMap[m]
		if !ok {
			if _, isKey := keyMap[m]; isKey {
				return nil, 0, fmt.Errorf("%w: %q is a key, not a modifier", ErrHotkeyInvalid, m)
			}
			return nil, 0, fmt.Errorf("%w: unknown modifier %q", ErrHotkeyInvalid, m)
		}
		mods = append(mods, mod)
	}
	if len(mods) == 0 {
		return nil, 0, fmt.Errorf("%w: no valid modifier in %q", ErrHotkeyInvalid, combo)
	}
	return mods, key, nil
}

// FormatHotkey renders a combo string for display, e.g. "ctrl+space" -> "⌃Space".
func FormatHotkey(combo string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "+")
	if len(parts) < 2 {
		return combo
	}
	modSymbols := map[string]string{
		"ctrl": "⌃", "control": "⌃",
		"option": "⌥", "alt": "⌥",
		"shift": "⇧",
		"cmd":   "⌘", "command": "⌘", "super": "⌘", "cmdorctrl": "⌘",
	}
	keyDisplay := map[string]string{"space": "Space", "tab": "Tab", "return": "Return", "enter": "Return"}

	var out strings.Builder
	for _, p := range parts[:len(parts)-1] {
		if s, ok := modSymbols[p]; ok {
			out.WriteString(s)
		}
	}
	key := parts[len(parts)-1]
	if d, ok := keyDisplay[key]; ok {
		out.WriteString(d)
	} else {
		out.WriteString(strings.ToUpper(key))
	}
	return out.String()
}
