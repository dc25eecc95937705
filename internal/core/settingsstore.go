package core

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds persistent user preferences. Stored as JSON at
// {platform_config_dir}/Sagascript/settings.json.
type Settings struct {
	Language               Language   `json:"language"`
	Model                  ModelID    `json:"model"`
	AutoSelectModel        bool       `json:"auto_select_model"`
	HotkeyMode             HotkeyMode `json:"hotkey_mode"`
	Hotkey                 string     `json:"hotkey"`
	AutoPaste              bool       `json:"auto_paste"`
	ShowOverlay            bool       `json:"show_overlay"`
	HasCompletedOnboarding bool       `json:"has_completed_onboarding"`
}

// DefaultSettings returns factory defaults.
func DefaultSettings() Settings {
	return Settings{
		Language:        LanguageEnglish,
		Model:           RecommendedModel(LanguageEnglish),
		AutoSelectModel: true,
		HotkeyMode:      HotkeyModeToggle,
		Hotkey:          "ctrl+space",
		AutoPaste:       true,
		ShowOverlay:     true,
	}
}

// EffectiveModel resolves which model to load: the pinned Model if
// AutoSelectModel is false, otherwise the language's recommended model.
// Spec invariant: effective_model is always a member of
// models_for_language(Language) when AutoSelectModel is true.
func (s Settings) EffectiveModel() ModelID {
	if !s.AutoSelectModel {
		return s.Model
	}
	return RecommendedModel(s.Language)
}

// SettingsStore loads and saves Settings, preserving any JSON keys it
// doesn't itself model by read-merge-writing against a
// map[string]json.RawMessage rather than round-tripping through the
// Settings struct alone — the settings UI writes keys this process never
// models, and they must survive a save.
type SettingsStore struct {
	path string
}

// NewSettingsStore returns a SettingsStore at the standard config path.
func NewSettingsStore() *SettingsStore {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return &SettingsStore{path: filepath.Join(dir, "Sagascript", "settings.json")}
}

// newSettingsStoreAt returns a SettingsStore at an arbitrary path (tests only).
func newSettingsStoreAt(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// Load reads Settings from disk, filling any missing/zero fields with
// defaults. Returns defaults (without writing anything) if the file
// doesn't exist. A corrupt file is reported via SettingsError without
// being overwritten, so the user's file survives for inspection.
func (s *SettingsStore) Load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return DefaultSettings(), SettingsError(err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return DefaultSettings(), SettingsError(err)
	}

	cfg := DefaultSettings()
	_ = json.Unmarshal(data, &cfg) // field-by-field zero values stay at defaults on error

	if !cfg.Language.Valid() {
		cfg.Language = DefaultSettings().Language
	}
	if _, ok := LookupModel(cfg.Model); !ok {
		cfg.Model = RecommendedModel(cfg.Language)
	}
	if cfg.HotkeyMode != HotkeyModePushToTalk && cfg.HotkeyMode != HotkeyModeToggle {
		cfg.HotkeyMode = DefaultSettings().HotkeyMode
	}
	if cfg.Hotkey == "" {
		cfg.Hotkey = DefaultSettings().Hotkey
	}
	return cfg, nil
}

// Save writes cfg to disk atomically (temp file + rename), merging it into
// whatever JSON object is already on disk so unknown keys (written by a
// newer version of the settings UI, say) survive the round-trip.
func (s *SettingsStore) Save(cfg Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return SettingsError(err)
	}

	merged := map[string]json.RawMessage{}
	if existing, err := os.ReadFile(s.path); err == nil {
		_ = json.Unmarshal(existing, &merged)
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return SettingsError(err)
	}
	var cfgFields map[string]json.RawMessage
	if err := json.Unmarshal(cfgJSON, &cfgFields); err != nil {
		return SettingsError(err)
	}
	for k, v := range cfgFields {
		merged[k] = v
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return SettingsError(err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return SettingsError(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return SettingsError(err)
	}
	return nil
}

// Path returns the on-disk location of the settings file (exposed for the
// CLI's `config path` subcommand).
func (s *SettingsStore) Path() string { return s.path }
