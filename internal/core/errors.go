package core

import "errors"

// ErrorKind tags a DictationError for UI display and log filtering. The
// concrete error value is either one of the sentinels below (no payload)
// or a *DictationError (carries a human-readable detail).
type ErrorKind string

const (
	KindMicPermissionDenied    ErrorKind = "mic_permission_denied"
	KindAccessibilityDenied    ErrorKind = "accessibility_denied"
	KindNoInputDevice          ErrorKind = "no_input_device"
	KindUnsupportedSampleFormat ErrorKind = "unsupported_sample_format"
	KindStreamBuildFailed      ErrorKind = "stream_build_failed"
	KindNoAudioCaptured        ErrorKind = "no_audio_captured"
	KindModelNotOnDisk         ErrorKind = "model_not_on_disk"
	KindModelNotLoaded         ErrorKind = "model_not_loaded"
	KindModelLoadFailed        ErrorKind = "model_load_failed"
	KindModelDownloadFailed    ErrorKind = "model_download_failed"
	KindInferenceFailed        ErrorKind = "inference_failed"
	KindTranscriptionTimedOut  ErrorKind = "transcription_timed_out"
	KindSettingsError          ErrorKind = "settings_error"
	KindHotkeyError            ErrorKind = "hotkey_error"
	KindPasteError             ErrorKind = "paste_error"
	KindFileDecodeError        ErrorKind = "file_decode_error"
	KindUnsupportedFormat      ErrorKind = "unsupported_format"
)

// Sentinel errors for kind-only failures — no message payload beyond the
// kind itself.
var (
	ErrMicPermissionDenied     = errors.New("microphone permission denied")
	ErrAccessibilityDenied     = errors.New("accessibility permission denied")
	ErrNoInputDevice           = errors.New("no input device available")
	ErrUnsupportedSampleFormat = errors.New("input device does not support the required sample format")
	ErrNoAudioCaptured         = errors.New("no audio captured")
	ErrModelNotOnDisk          = errors.New("model is not on disk")
	ErrModelNotLoaded          = errors.New("no model loaded")
	ErrTranscriptionTimedOut   = errors.New("transcription timed out")

	// ErrHotkeyConflict and ErrHotkeyInvalid are returned by HotkeyBridge,
	// kept as named sentinels rather than folded into DictationError since
	// callers match them directly.
	ErrHotkeyConflict = errors.New("hotkey is already registered by another application")
	ErrHotkeyInvalid  = errors.New("hotkey string is not a valid combination")

	// ErrModelNotFound is returned when a ModelID has no ModelRegistry entry.
	ErrModelNotFound = errors.New("unknown model id")
)

// DictationError carries a Kind plus a free-form Message for errors whose
// detail can't be captured by a plain sentinel (a stream-build failure
// naming the backend's complaint, an inference error naming whisper.cpp's
// return code, a download failure naming the HTTP status).
type DictationError struct {
	Kind    ErrorKind
	Message string
}

func (e *DictationError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Is lets errors.Is(err, core.KindXxx) style matching work against a bare
// ErrorKind is unsupported; callers compare e.Kind directly, or use
// AsDictationError below. This method exists only so two *DictationError
// values with the same Kind compare equal under errors.Is.
func (e *DictationError) Is(target error) bool {
	other, ok := target.(*DictationError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// AsDictationError extracts a *DictationError from err, if any.
func AsDictationError(err error) (*DictationError, bool) {
	var de *DictationError
	ok := errors.As(err, &de)
	return de, ok
}

// StreamBuildFailed wraps a portaudio/backend error under KindStreamBuildFailed.
func StreamBuildFailed(cause error) error {
	return &DictationError{Kind: KindStreamBuildFailed, Message: cause.Error()}
}

// ModelLoadFailed wraps a whisper.cpp load error under KindModelLoadFailed.
func ModelLoadFailed(cause error) error {
	return &DictationError{Kind: KindModelLoadFailed, Message: cause.Error()}
}

// InferenceFailed wraps a whisper.cpp inference error under KindInferenceFailed.
func InferenceFailed(cause error) error {
	return &DictationError{Kind: KindInferenceFailed, Message: cause.Error()}
}

// SettingsError wraps a settings persistence error under KindSettingsError.
func SettingsError(cause error) error {
	return &DictationError{Kind: KindSettingsError, Message: cause.Error()}
}

// HotkeyError wraps a hotkey backend error under KindHotkeyError.
func HotkeyError(cause error) error {
	return &DictationError{Kind: KindHotkeyError, Message: cause.Error()}
}

// PasteError wraps a paste-sink error under KindPasteError.
func PasteError(cause error) error {
	return &DictationError{Kind: KindPasteError, Message: cause.Error()}
}

// FileDecodeError wraps an offline-decode error under KindFileDecodeError.
func FileDecodeError(cause error) error {
	return &DictationError{Kind: KindFileDecodeError, Message: cause.Error()}
}

// UnsupportedFormat reports a file extension the decoder does not handle.
func UnsupportedFormat(ext string) error {
	return &DictationError{Kind: KindUnsupportedFormat, Message: "unsupported file extension " + ext}
}
