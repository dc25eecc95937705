package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sagascript/sagascript/internal/core"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit persisted settings",
	}
	cmd.AddCommand(configListCmd(), configGetCmd(), configSetCmd(), configResetCmd(), configPathCmd())
	return cmd
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the settings file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(core.NewSettingsStore().Path())
		},
	}
}

func configListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print all settings as JSON",
		Run: func(cmd *cobra.Command, args []string) {
			settings, err := core.NewSettingsStore().Load()
			if err != nil {
				fail("loading settings: %v", err)
			}
			out, _ := json.MarshalIndent(settings, "", "  ")
			fmt.Println(string(out))
		},
	}
}

func configGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			settings, err := core.NewSettingsStore().Load()
			if err != nil {
				fail("loading settings: %v", err)
			}
			v, ok := settingsField(settings, args[0])
			if !ok {
				fail("unknown setting %q", args[0])
			}
			fmt.Println(v)
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist one setting",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			store := core.NewSettingsStore()
			settings, err := store.Load()
			if err != nil {
				fail("loading settings: %v", err)
			}
			if err := setSettingsField(&settings, args[0], args[1]); err != nil {
				fail("%v", err)
			}
			if err := store.Save(settings); err != nil {
				fail("saving settings: %v", err)
			}
		},
	}
}

func configResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore factory default settings",
		Run: func(cmd *cobra.Command, args []string) {
			store := core.NewSettingsStore()
			if err := store.Save(core.DefaultSettings()); err != nil {
				fail("resetting settings: %v", err)
			}
		},
	}
}

func settingsField(s core.Settings, key string) (string, bool) {
	switch key {
	case "language":
		return string(s.Language), true
	case "model":
		return string(s.Model), true
	case "auto_select_model":
		return strconv.FormatBool(s.AutoSelectModel), true
	case "hotkey_mode":
		return string(s.HotkeyMode), true
	case "hotkey":
		return s.Hotkey, true
	case "auto_paste":
		return strconv.FormatBool(s.AutoPaste), true
	case "show_overlay":
		return strconv.FormatBool(s.ShowOverlay), true
	default:
		return "", false
	}
}

func setSettingsField(s *core.Settings, key, value string) error {
	switch key {
	case "language":
		lang := core.Language(value)
		if !lang.Valid() {
			return fmt.Errorf("invalid language %q", value)
		}
		s.Language = lang
	case "model":
		if _, ok := core.LookupModel(core.ModelID(value)); !ok {
			return fmt.Errorf("unknown model %q", value)
		}
		s.Model = core.ModelID(value)
	case "auto_select_model":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool %q", value)
		}
		s.AutoSelectModel = b
	case "hotkey_mode":
		mode := core.HotkeyMode(value)
		if mode != core.HotkeyModePushToTalk && mode != core.HotkeyModeToggle {
			return fmt.Errorf("invalid hotkey_mode %q", value)
		}
		s.HotkeyMode = mode
	case "hotkey":
		if _, _, err := core.ParseHotkey(value); err != nil {
			return err
		}
		s.Hotkey = value
	case "auto_paste":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool %q", value)
		}
		s.AutoPaste = b
	case "show_overlay":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool %q", value)
		}
		s.ShowOverlay = b
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}
