//go:build !darwin && !windows

package core

import "golang.design/x/hotkey"

// X11 has no named Alt/Super modifiers; by convention Mod1 is Alt and
// Mod4 is Super on stock keymaps.
var modMap = map[string]hotkey.Modifier{
	"ctrl": hotkey.ModCtrl, "control": hotkey.ModCtrl,
	"shift": hotkey.ModShift,
	"alt":   hotkey.Mod1,
	"option": hotkey.Mod1,
	"cmd":   hotkey.Mod4, "command": hotkey.Mod4, "super": hotkey.Mod4,
	"cmdorctrl": hotkey.ModCtrl, "commandorcontrol": hotkey.ModCtrl,
}
