//go:build !darwin

package core

import "fmt"

// otherPaster is the non-macOS platformPaster. No accessibility gate
// exists outside macOS, so IsAccessibilityTrusted always reports true;
// synthetic keystrokes are not implemented here, so PasteHere always
// fails and PasteSink's clipboard fallback becomes the delivery path on
// these OSes.
type otherPaster struct{}

func newPlatformPaster() platformPaster { return otherPaster{} }

func (otherPaster) IsAccessibilityTrusted(prompt bool) bool { return true }

func (otherPaster) PasteHere(text string) error {
	return fmt.Errorf("synthetic paste not implemented on this platform")
}
