package core

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
)

// fakeModelDoer returns a canned HTTP response without any network access.
type fakeModelDoer struct {
	status int
	body   []byte
	err    error
}

func (f *fakeModelDoer) Do(req *http.Request) (*http.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode:    f.status,
		Body:          io.NopCloser(bytes.NewReader(f.body)),
		ContentLength: int64(len(f.body)),
	}, nil
}

func TestLookupModel(t *testing.T) {
	info, ok := LookupModel(ModelBaseEn)
	if !ok {
		t.Fatal("LookupModel(ModelBaseEn) not found")
	}
	if info.Language != LanguageEnglish {
		t.Fatalf("LookupModel(ModelBaseEn).Language = %v, want English", info.Language)
	}

	if _, ok := LookupModel("not-a-real-model"); ok {
		t.Fatal("LookupModel(\"not-a-real-model\") = true, want false")
	}
}

func TestModelsForLanguage(t *testing.T) {
	cases := []struct {
		lang Language
		want ModelID
	}{
		{LanguageEnglish, ModelTinyEn},
		{LanguageSwedish, ModelKBWhisperTiny},
		{LanguageNorwegian, ModelNBWhisperTiny},
		{LanguageAuto, ModelTiny},
	}
	for _, c := range cases {
		models := ModelsForLanguage(c.lang)
		if len(models) == 0 || models[0] != c.want {
			t.Errorf("ModelsForLanguage(%v)[0] = %v, want %v", c.lang, models, c.want)
		}
	}
}

func TestRecommendedModelIsAlwaysInModelsForLanguage(t *testing.T) {
	for _, lang := range []Language{LanguageEnglish, LanguageSwedish, LanguageNorwegian, LanguageAuto} {
		rec := RecommendedModel(lang)
		found := false
		for _, m := range ModelsForLanguage(lang) {
			if m == rec {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("RecommendedModel(%v) = %v, not a member of ModelsForLanguage(%v)", lang, rec, lang)
		}
	}
}

func TestModelStoreIsPresent(t *testing.T) {
	dir := t.TempDir()
	store := newModelStoreAt(dir, nil)

	if store.IsPresent(ModelBaseEn) {
		t.Fatal("IsPresent() = true before anything was written")
	}
	if err := writeEmptyFile(store.PathOf(ModelBaseEn)); err != nil {
		t.Fatalf("writeEmptyFile: %v", err)
	}
	if !store.IsPresent(ModelBaseEn) {
		t.Fatal("IsPresent() = false after writing the model file")
	}
}

func TestModelStoreDownloadAlreadyPresentSkipsNetwork(t *testing.T) {
	dir := t.TempDir()
	store := newModelStoreAt(dir, &fakeModelDoer{err: context.Canceled})
	if err := writeEmptyFile(store.PathOf(ModelTinyEn)); err != nil {
		t.Fatalf("writeEmptyFile: %v", err)
	}

	path, err := store.Download(context.Background(), ModelTinyEn, nil)
	if err != nil {
		t.Fatalf("Download() unexpected error for an already-present model: %v", err)
	}
	if path != store.PathOf(ModelTinyEn) {
		t.Fatalf("Download() path = %q, want %q", path, store.PathOf(ModelTinyEn))
	}
}

func TestModelStoreDownloadWritesFileAtomically(t *testing.T) {
	dir := t.TempDir()
	doer := &fakeModelDoer{status: http.StatusOK, body: []byte("fake-model-bytes")}
	store := newModelStoreAt(dir, doer)

	var lastDownloaded int64
	path, err := store.Download(context.Background(), ModelTinyEn, func(downloaded, total int64) {
		lastDownloaded = downloaded
	})
	if err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}
	if !store.IsPresent(ModelTinyEn) {
		t.Fatal("IsPresent() = false after a successful Download()")
	}
	if lastDownloaded != int64(len(doer.body)) {
		t.Fatalf("onProgress final downloaded = %d, want %d", lastDownloaded, len(doer.body))
	}
	_ = path
}

func TestModelStoreDownloadServerErrorLeavesNoFinalFile(t *testing.T) {
	dir := t.TempDir()
	doer := &fakeModelDoer{status: http.StatusNotFound}
	store := newModelStoreAt(dir, doer)

	_, err := store.Download(context.Background(), ModelTinyEn, nil)
	if err == nil {
		t.Fatal("Download() error = nil, want a failure for a 404 response")
	}
	if store.IsPresent(ModelTinyEn) {
		t.Fatal("IsPresent() = true after a failed Download()")
	}
}

func TestModelStoreDownloadUnknownModel(t *testing.T) {
	dir := t.TempDir()
	store := newModelStoreAt(dir, &fakeModelDoer{})
	_, err := store.Download(context.Background(), ModelID("nonexistent"), nil)
	if err == nil {
		t.Fatal("Download() error = nil, want a failure for an unknown model id")
	}
}
