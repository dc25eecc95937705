//go:build darwin

package core

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework Foundation
#include <stdlib.h>
#include <ApplicationServices/ApplicationServices.h>

// is_accessibility_trusted checks (and optionally prompts for) the
// Accessibility permission CGEventPost requires.
static bool is_accessibility_trusted(bool prompt) {
    const void *keys[] = { kAXTrustedCheckOptionPrompt };
    const void *values[] = { prompt ? kCFBooleanTrue : kCFBooleanFalse };
    CFDictionaryRef opts = CFDictionaryCreate(kCFAllocatorDefault, keys, values, 1,
        &kCFTypeDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
    bool trusted = AXIsProcessTrustedWithOptions(opts);
    CFRelease(opts);
    return trusted;
}

// post_keystrokes synthesizes a single unicode key-down/key-up event pair
// carrying the whole string as UTF-16, posting each event once onto the
// HID event tap. Returns false if event creation failed.
static bool post_keystrokes(const char *utf8) {
    CFStringRef str = CFStringCreateWithCString(kCFAllocatorDefault, utf8, kCFStringEncodingUTF8);
    if (str == NULL) {
        return false;
    }
    CFIndex length = CFStringGetLength(str);
    UniChar *buf = (UniChar *)malloc(sizeof(UniChar) * length);
    CFStringGetCharacters(str, CFRangeMake(0, length), buf);

    CGEventRef down = CGEventCreateKeyboardEvent(NULL, 0, true);
    CGEventRef up = CGEventCreateKeyboardEvent(NULL, 0, false);
    if (down == NULL || up == NULL) {
        free(buf);
        CFRelease(str);
        if (down) CFRelease(down);
        if (up) CFRelease(up);
        return false;
    }

    CGEventSetFlags(down, 0);
    CGEventKeyboardSetUnicodeString(down, length, buf);
    CGEventPost(kCGHIDEventTap, down);
    CGEventKeyboardSetUnicodeString(up, length, buf);
    CGEventPost(kCGHIDEventTap, up);

    CFRelease(down);
    CFRelease(up);
    free(buf);
    CFRelease(str);
    return true;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// darwinPaster implements platformPaster via CoreGraphics synthetic
// keystrokes.
type darwinPaster struct{}

func newPlatformPaster() platformPaster { return darwinPaster{} }

func (darwinPaster) IsAccessibilityTrusted(prompt bool) bool {
	return bool(C.is_accessibility_trusted(C.bool(prompt)))
}

func (darwinPaster) PasteHere(text string) error {
	cstr := C.CString(text)
	defer C.free(unsafe.Pointer(cstr))

	if !bool(C.post_keystrokes(cstr)) {
		return fmt.Errorf("CGEventPost failed to create events")
	}
	return nil
}
