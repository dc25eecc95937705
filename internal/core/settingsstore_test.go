package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSettingsStoreLoadMissingFileReturnsDefaults(t *testing.T) {
	store := newSettingsStoreAt(filepath.Join(t.TempDir(), "settings.json"))

	cfg, err := store.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error for a missing file: %v", err)
	}
	if cfg != DefaultSettings() {
		t.Fatalf("Load() = %+v, want defaults %+v", cfg, DefaultSettings())
	}
}

func TestSettingsStoreSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := newSettingsStoreAt(path)

	cfg := DefaultSettings()
	cfg.Language = LanguageSwedish
	cfg.AutoSelectModel = false
	cfg.Model = ModelKBWhisperSmall
	cfg.Hotkey = "cmd+shift+space"

	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if got != cfg {
		t.Fatalf("Load() = %+v, want %+v", got, cfg)
	}
}

func TestSettingsStorePreservesUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"language":"en","future_field":"keep-me"}`), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	store := newSettingsStoreAt(path)

	cfg, err := store.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(raw), "future_field") {
		t.Fatalf("Save() dropped an unrecognised key; file contents: %s", raw)
	}
}

func TestSettingsStoreCorruptFileSurfacesErrorWithoutClobbering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	const corrupt = "{not valid json"
	if err := os.WriteFile(path, []byte(corrupt), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	store := newSettingsStoreAt(path)

	_, err := store.Load()
	if err == nil {
		t.Fatal("Load() error = nil, want a SettingsError for corrupt JSON")
	}
	de, ok := AsDictationError(err)
	if !ok || de.Kind != KindSettingsError {
		t.Fatalf("Load() error = %v, want a KindSettingsError DictationError", err)
	}

	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("ReadFile: %v", readErr)
	}
	if string(raw) != corrupt {
		t.Fatal("Load() modified a corrupt file on disk instead of leaving it for inspection")
	}
}

func TestSettingsEffectiveModel(t *testing.T) {
	cfg := DefaultSettings()
	cfg.Language = LanguageSwedish
	cfg.AutoSelectModel = true
	if got := cfg.EffectiveModel(); got != RecommendedModel(LanguageSwedish) {
		t.Fatalf("EffectiveModel() = %v, want %v", got, RecommendedModel(LanguageSwedish))
	}

	cfg.AutoSelectModel = false
	cfg.Model = ModelLargeV3Turbo
	if got := cfg.EffectiveModel(); got != ModelLargeV3Turbo {
		t.Fatalf("EffectiveModel() with pinned model = %v, want %v", got, ModelLargeV3Turbo)
	}
}
