package core

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
)

// ModelRegistry lists every model identifier known to the app, in display
// order: the OpenAI Whisper tiers plus the KBLab (Swedish) and NbAiLab
// (Norwegian) fine-tunes.
var ModelRegistry = []ModelInfo{
	{ID: ModelTinyEn, DisplayName: "Whisper Tiny (EN)", Description: "OpenAI Whisper, English-only. Fastest, less accurate", RemoteURL: hfWhisperCpp("ggml-tiny.en.bin"), OnDiskFilename: "ggml-tiny.en.bin", ApproxMB: 75, NoSpeechThreshold: 0.3, Language: LanguageEnglish},
	{ID: ModelTiny, DisplayName: "Whisper Tiny", Description: "OpenAI Whisper, multilingual. Fastest, less accurate", RemoteURL: hfWhisperCpp("ggml-tiny.bin"), OnDiskFilename: "ggml-tiny.bin", ApproxMB: 75, NoSpeechThreshold: 0.3, Language: LanguageAuto},
	{ID: ModelBaseEn, DisplayName: "Whisper Base (EN)", Description: "OpenAI Whisper, English-only. Balanced speed and accuracy", RemoteURL: hfWhisperCpp("ggml-base.en.bin"), OnDiskFilename: "ggml-base.en.bin", ApproxMB: 142, NoSpeechThreshold: 0.3, Language: LanguageEnglish},
	{ID: ModelBase, DisplayName: "Whisper Base", Description: "OpenAI Whisper, multilingual. Balanced speed and accuracy", RemoteURL: hfWhisperCpp("ggml-base.bin"), OnDiskFilename: "ggml-base.bin", ApproxMB: 142, NoSpeechThreshold: 0.3, Language: LanguageAuto},
	{ID: ModelKBWhisperTiny, DisplayName: "KB-Whisper Tiny", Description: "By KBLab. Swedish-optimized. Fastest, less accurate", RemoteURL: "https://huggingface.co/KBLab/kb-whisper-tiny/resolve/main/ggml-model-q5_0.bin", OnDiskFilename: "kb-whisper-tiny-q5_0.bin", ApproxMB: 40, NoSpeechThreshold: 0.3, Language: LanguageSwedish},
	{ID: ModelKBWhisperBase, DisplayName: "KB-Whisper Base", Description: "By KBLab. Swedish-optimized. Balanced speed and accuracy", RemoteURL: "https://huggingface.co/KBLab/kb-whisper-base/resolve/main/ggml-model-q5_0.bin", OnDiskFilename: "kb-whisper-base-q5_0.bin", ApproxMB: 60, NoSpeechThreshold: 0.3, Language: LanguageSwedish},
	{ID: ModelKBWhisperSmall, DisplayName: "KB-Whisper Small", Description: "By KBLab. Swedish-optimized. More accurate, slower", RemoteURL: "https://huggingface.co/KBLab/kb-whisper-small/resolve/main/ggml-model-q5_0.bin", OnDiskFilename: "kb-whisper-small-q5_0.bin", ApproxMB: 190, NoSpeechThreshold: 0.3, Language: LanguageSwedish},
	{ID: ModelKBWhisperMedium, DisplayName: "KB-Whisper Medium", Description: "By KBLab. Swedish-optimized. High accuracy, slow", RemoteURL: "https://huggingface.co/KBLab/kb-whisper-medium/resolve/main/ggml-model-q5_0.bin", OnDiskFilename: "kb-whisper-medium-q5_0.bin", ApproxMB: 514, NoSpeechThreshold: 0.3, Language: LanguageSwedish},
	{ID: ModelKBWhisperLarge, DisplayName: "KB-Whisper Large", Description: "By KBLab. Swedish-optimized. Highest accuracy, slowest", RemoteURL: "https://huggingface.co/KBLab/kb-whisper-large/resolve/main/ggml-model-q5_0.bin", OnDiskFilename: "kb-whisper-large-q5_0.bin", ApproxMB: 1031, NoSpeechThreshold: 0.3, Language: LanguageSwedish},
	{ID: ModelNBWhisperTiny, DisplayName: "NB-Whisper Tiny", Description: "By NbAiLab. Norwegian-optimized. Fastest, less accurate", RemoteURL: "https://huggingface.co/NbAiLab/nb-whisper-tiny/resolve/main/ggml-model-q5_0.bin", OnDiskFilename: "nb-whisper-tiny-q5_0.bin", ApproxMB: 30, NoSpeechThreshold: 0.3, Language: LanguageNorwegian},
	{ID: ModelNBWhisperBase, DisplayName: "NB-Whisper Base", Description: "By NbAiLab. Norwegian-optimized. Balanced speed and accuracy", RemoteURL: "https://huggingface.co/NbAiLab/nb-whisper-base/resolve/main/ggml-model-q5_0.bin", OnDiskFilename: "nb-whisper-base-q5_0.bin", ApproxMB: 55, NoSpeechThreshold: 0.3, Language: LanguageNorwegian},
	{ID: ModelNBWhisperSmall, DisplayName: "NB-Whisper Small", Description: "By NbAiLab. Norwegian-optimized. More accurate, slower", RemoteURL: "https://huggingface.co/NbAiLab/nb-whisper-small/resolve/main/ggml-model-q5_0.bin", OnDiskFilename: "nb-whisper-small-q5_0.bin", ApproxMB: 175, NoSpeechThreshold: 0.3, Language: LanguageNorwegian},
	{ID: ModelNBWhisperMedium, DisplayName: "NB-Whisper Medium", Description: "By NbAiLab. Norwegian-optimized. High accuracy, slow", RemoteURL: "https://huggingface.co/NbAiLab/nb-whisper-medium/resolve/main/ggml-model-q5_0.bin", OnDiskFilename: "nb-whisper-medium-q5_0.bin", ApproxMB: 514, NoSpeechThreshold: 0.3, Language: LanguageNorwegian},
	{ID: ModelNBWhisperLarge, DisplayName: "NB-Whisper Large", Description: "By NbAiLab. Norwegian-optimized. Highest accuracy, slowest", RemoteURL: "https://huggingface.co/NbAiLab/nb-whisper-large/resolve/main/ggml-model-q5_0.bin", OnDiskFilename: "nb-whisper-large-q5_0.bin", ApproxMB: 1031, NoSpeechThreshold: 0.3, Language: LanguageNorwegian},
	{ID: ModelSmallEn, DisplayName: "Whisper Small (EN)", Description: "OpenAI Whisper, English-only. More accurate, slower", RemoteURL: hfWhisperCpp("ggml-small.en.bin"), OnDiskFilename: "ggml-small.en.bin", ApproxMB: 466, NoSpeechThreshold: 0.0, Language: LanguageEnglish},
	{ID: ModelSmall, DisplayName: "Whisper Small", Description: "OpenAI Whisper, multilingual. More accurate, slower", RemoteURL: hfWhisperCpp("ggml-small.bin"), OnDiskFilename: "ggml-small.bin", ApproxMB: 466, NoSpeechThreshold: 0.3, Language: LanguageAuto},
	{ID: ModelMediumEn, DisplayName: "Whisper Medium (EN)", Description: "OpenAI Whisper, English-only. High accuracy, slow", RemoteURL: hfWhisperCpp("ggml-medium.en.bin"), OnDiskFilename: "ggml-medium.en.bin", ApproxMB: 1530, NoSpeechThreshold: 0.3, Language: LanguageEnglish},
	{ID: ModelMedium, DisplayName: "Whisper Medium", Description: "OpenAI Whisper, multilingual. High accuracy, slow", RemoteURL: hfWhisperCpp("ggml-medium.bin"), OnDiskFilename: "ggml-medium.bin", ApproxMB: 1530, NoSpeechThreshold: 0.3, Language: LanguageAuto},
	{ID: ModelLargeV3Turbo, DisplayName: "Whisper Large v3 Turbo", Description: "OpenAI Whisper, multilingual. Highest accuracy, slowest", RemoteURL: hfWhisperCpp("ggml-large-v3-turbo.bin"), OnDiskFilename: "ggml-large-v3-turbo.bin", ApproxMB: 1620, NoSpeechThreshold: 0.3, Language: LanguageAuto},
}

func hfWhisperCpp(filename string) string {
	return "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/" + filename
}

// LookupModel returns the ModelInfo for id, or false if id is unknown.
func LookupModel(id ModelID) (ModelInfo, bool) {
	for _, m := range ModelRegistry {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// ModelsForLanguage returns the models recommended for a given language,
// smallest first.
func ModelsForLanguage(lang Language) []ModelID {
	switch lang {
	case LanguageEnglish:
		return []ModelID{ModelTinyEn, ModelBaseEn, ModelSmallEn, ModelMediumEn, ModelLargeV3Turbo}
	case LanguageSwedish:
		return []ModelID{ModelKBWhisperTiny, ModelKBWhisperBase, ModelKBWhisperSmall, ModelKBWhisperMedium, ModelKBWhisperLarge}
	case LanguageNorwegian:
		return []ModelID{ModelNBWhisperTiny, ModelNBWhisperBase, ModelNBWhisperSmall, ModelNBWhisperMedium, ModelNBWhisperLarge}
	default: // Auto
		return []ModelID{ModelTiny, ModelBase, ModelSmall, ModelMedium, ModelLargeV3Turbo}
	}
}

// RecommendedModel returns the default model for a given language.
func RecommendedModel(lang Language) ModelID {
	switch lang {
	case LanguageEnglish:
		return ModelBaseEn
	case LanguageSwedish:
		return ModelKBWhisperBase
	case LanguageNorwegian:
		return ModelNBWhisperBase
	default:
		return ModelBase
	}
}

// modelHTTPDoer abstracts the HTTP client so tests can inject a canned
// response without a network call.
type modelHTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// defaultModelHTTPClient forces HTTP/1.1 — HuggingFace's CDN occasionally
// sends HTTP/2 GOAWAY frames mid-transfer that crash Go's h2 read loop.
var defaultModelHTTPClient modelHTTPDoer = &http.Client{
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		TLSNextProto:    make(map[string]func(string, *tls.Conn) http.RoundTripper),
	},
}

// ModelStore resolves where model files live on disk and downloads them
// atomically.
type ModelStore struct {
	dir string
	doer modelHTTPDoer

	mu         sync.Mutex
	inProgress map[ModelID]bool
}

// NewModelStore returns a ModelStore rooted at {platform_data_dir}/Sagascript/Models.
func NewModelStore() *ModelStore {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return &ModelStore{
		dir:        filepath.Join(base, "Sagascript", "Models"),
		doer:       defaultModelHTTPClient,
		inProgress: make(map[ModelID]bool),
	}
}

// newModelStoreAt creates a ModelStore rooted at an arbitrary directory
// with an injectable HTTP doer (tests only).
func newModelStoreAt(dir string, doer modelHTTPDoer) *ModelStore {
	return &ModelStore{dir: dir, doer: doer, inProgress: make(map[ModelID]bool)}
}

// PathOf returns the expected on-disk path for a model, present or not.
func (s *ModelStore) PathOf(id ModelID) string {
	info, ok := LookupModel(id)
	if !ok {
		return filepath.Join(s.dir, string(id))
	}
	return filepath.Join(s.dir, info.OnDiskFilename)
}

// IsPresent reports whether the model's final file exists on disk. Never
// observes a partial file — download() only ever renames into place.
func (s *ModelStore) IsPresent(id ModelID) bool {
	_, err := os.Stat(s.PathOf(id))
	return err == nil
}

// DownloadProgressFunc is invoked on every chunk with cumulative bytes.
// total is 0 if the server did not send Content-Length.
type DownloadProgressFunc func(downloaded, total int64)

// Download fetches model to disk, invoking onProgress per chunk. If the
// model is already present it returns its path immediately without a
// network round-trip. On any failure the .tmp file is left behind for
// inspection and ModelDownloadFailed is returned; the final filename never
// exists partially.
func (s *ModelStore) Download(ctx context.Context, id ModelID, onProgress DownloadProgressFunc) (string, error) {
	info, ok := LookupModel(id)
	if !ok {
		return "", &DictationError{Kind: KindModelDownloadFailed, Message: fmt.Sprintf("unknown model %q", id)}
	}

	finalPath := s.PathOf(id)
	if _, err := os.Stat(finalPath); err == nil {
		return finalPath, nil
	}

	s.mu.Lock()
	if s.inProgress[id] {
		s.mu.Unlock()
		return "", &DictationError{Kind: KindModelDownloadFailed, Message: fmt.Sprintf("%q download already in progress", id)}
	}
	s.inProgress[id] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inProgress, id)
		s.mu.Unlock()
	}()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", &DictationError{Kind: KindModelDownloadFailed, Message: err.Error()}
	}

	// On any failure below, the .tmp file is deliberately left on disk so
	// the user can inspect how far the transfer got; only a completed
	// transfer is ever renamed to the final filename.
	tmpPath := finalPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", &DictationError{Kind: KindModelDownloadFailed, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.RemoteURL, nil)
	if err != nil {
		f.Close()
		return "", &DictationError{Kind: KindModelDownloadFailed, Message: err.Error()}
	}
	resp, err := s.doer.Do(req)
	if err != nil {
		f.Close()
		return "", &DictationError{Kind: KindModelDownloadFailed, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.Close()
		return "", &DictationError{Kind: KindModelDownloadFailed, Message: fmt.Sprintf("server returned %d", resp.StatusCode)}
	}

	total := resp.ContentLength
	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				return "", &DictationError{Kind: KindModelDownloadFailed, Message: werr.Error()}
			}
			downloaded += int64(n)
			if onProgress != nil {
				onProgress(downloaded, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			f.Close()
			return "", &DictationError{Kind: KindModelDownloadFailed, Message: readErr.Error()}
		}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", &DictationError{Kind: KindModelDownloadFailed, Message: err.Error()}
	}
	if err := f.Close(); err != nil {
		return "", &DictationError{Kind: KindModelDownloadFailed, Message: err.Error()}
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", &DictationError{Kind: KindModelDownloadFailed, Message: err.Error()}
	}
	return finalPath, nil
}
