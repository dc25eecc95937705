//go:build windows

package core

import "golang.design/x/hotkey"

var modMap = map[string]hotkey.Modifier{
	"ctrl": hotkey.ModCtrl, "control": hotkey.ModCtrl,
	"shift": hotkey.ModShift,
	"alt":   hotkey.ModAlt,
	"option": hotkey.ModAlt,
	"cmd":   hotkey.ModWin, "command": hotkey.ModWin, "super": hotkey.ModWin, "win": hotkey.ModWin,
	"cmdorctrl": hotkey.ModCtrl, "commandorcontrol": hotkey.ModCtrl,
}
