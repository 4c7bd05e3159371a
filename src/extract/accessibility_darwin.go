//go:build darwin && cgo

package extract

/*
#cgo darwin LDFLAGS: -framework ApplicationServices -framework CoreFoundation
#include <stdlib.h>
#include <ApplicationServices/ApplicationServices.h>

#define axOK 0
#define axNoFocusedElement 1
#define axNoSelectedText 2
#define axNotUTF8 3

// copy_selected_text returns a malloc'd UTF-8 copy of the focused element's
// AXSelectedText, or NULL with *status describing what was missing.
static char *copy_selected_text(int *status) {
	*status = axOK;

	AXUIElementRef systemWide = AXUIElementCreateSystemWide();
	if (systemWide == NULL) {
		*status = axNoFocusedElement;
		return NULL;
	}

	CFTypeRef focused = NULL;
	AXError err = AXUIElementCopyAttributeValue(systemWide, kAXFocusedUIElementAttribute, &focused);
	CFRelease(systemWide);
	if (err != kAXErrorSuccess || focused == NULL) {
		*status = axNoFocusedElement;
		return NULL;
	}
	if (CFGetTypeID(focused) != AXUIElementGetTypeID()) {
		CFRelease(focused);
		*status = axNoFocusedElement;
		return NULL;
	}

	CFTypeRef selected = NULL;
	err = AXUIElementCopyAttributeValue((AXUIElementRef)focused, kAXSelectedTextAttribute, &selected);
	CFRelease(focused);
	if (err != kAXErrorSuccess || selected == NULL) {
		*status = axNoSelectedText;
		return NULL;
	}
	if (CFGetTypeID(selected) != CFStringGetTypeID()) {
		CFRelease(selected);
		*status = axNoSelectedText;
		return NULL;
	}

	CFStringRef text = (CFStringRef)selected;
	CFIndex size = CFStringGetMaximumSizeForEncoding(CFStringGetLength(text), kCFStringEncodingUTF8) + 1;
	char *buf = malloc(size);
	if (buf == NULL || !CFStringGetCString(text, buf, size, kCFStringEncodingUTF8)) {
		free(buf);
		CFRelease(selected);
		*status = axNotUTF8;
		return NULL;
	}
	CFRelease(selected);
	return buf;
}
*/
import "C"

import "unsafe"

// readSelectedText asks the accessibility API for the selected text of the
// focused UI element. Requires the Accessibility permission; without it the
// focused element lookup fails and NotFound is returned.
func readSelectedText() (string, error) {
	var status C.int
	cstr := C.copy_selected_text(&status)
	if cstr == nil {
		switch status {
		case C.axNoFocusedElement:
			return "", notFound(MethodAccessibility, "no focused element")
		case C.axNotUTF8:
			return "", &Error{Kind: KindDecode, Method: MethodAccessibility, Msg: "selected text is not convertible to UTF-8"}
		default:
			return "", notFound(MethodAccessibility, "no selected text")
		}
	}
	defer C.free(unsafe.Pointer(cstr))
	return C.GoString(cstr), nil
}
