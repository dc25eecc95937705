//go:build darwin

package main

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework Foundation
#include <stdlib.h>
#include <ApplicationServices/ApplicationServices.h>

// get_active_context_text reads up to maxLen characters of text
// immediately preceding the cursor in the frontmost application's focused
// text field via the Accessibility API. Returns NULL if no permission or
// no text field is focused; caller must free() a non-NULL result.
static char *get_active_context_text(int maxLen) {
    AXUIElementRef systemWide = AXUIElementCreateSystemWide();
    AXUIElementRef focusedElement = NULL;
    AXError err = AXUIElementCopyAttributeValue(systemWide, kAXFocusedUIElementAttribute, (CFTypeRef *)&focusedElement);
    CFRelease(systemWide);
    if (err != kAXErrorSuccess || focusedElement == NULL) {
        return NULL;
    }

    CFTypeRef valueRef = NULL;
    err = AXUIElementCopyAttributeValue(focusedElement, kAXValueAttribute, &valueRef);
    CFRelease(focusedElement);
    if (err != kAXErrorSuccess || valueRef == NULL || CFGetTypeID(valueRef) != CFStringGetTypeID()) {
        if (valueRef) CFRelease(valueRef);
        return NULL;
    }

    CFStringRef full = (CFStringRef)valueRef;
    CFIndex len = CFStringGetLength(full);
    CFIndex start = len > maxLen ? len - maxLen : 0;
    CFRange tail = CFRangeMake(start, len - start);

    CFIndex bufSize = CFStringGetMaximumSizeForEncoding(tail.length, kCFStringEncodingUTF8) + 1;
    char *buf = (char *)malloc(bufSize);
    if (!CFStringGetCString(CFStringCreateWithSubstring(kCFAllocatorDefault, full, tail), buf, bufSize, kCFStringEncodingUTF8)) {
        free(buf);
        CFRelease(valueRef);
        return NULL;
    }
    CFRelease(valueRef);
    return buf;
}
*/
import "C"
import "unsafe"

// darwinContextCapturer implements core.ContextCapturer via the macOS
// Accessibility API's focused-element value attribute.
type darwinContextCapturer struct{}

func (darwinContextCapturer) CaptureContextText() string {
	cstr := C.get_active_context_text(200)
	if cstr == nil {
		return ""
	}
	defer C.free(unsafe.Pointer(cstr))
	return C.GoString(cstr)
}

func newContextCapturer() *darwinContextCapturer { return &darwinContextCapturer{} }
