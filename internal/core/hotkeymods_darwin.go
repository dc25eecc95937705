//go:build darwin

package core

import "golang.design/x/hotkey"

var modMap = map[string]hotkey.Modifier{
	"ctrl": hotkey.ModCtrl, "control": hotkey.ModCtrl,
	"shift":  hotkey.ModShift,
	"alt":    hotkey.ModOption,
	"option": hotkey.ModOption,
	"cmd":    hotkey.ModCmd, "command": hotkey.ModCmd, "super": hotkey.ModCmd,
	"cmdorctrl": hotkey.ModCmd, "commandorcontrol": hotkey.ModCmd,
}
