//go:build !darwin || !cgo

package extract

import "runtime"

// readSelectedText has no accessibility backend off macOS or without cgo.
func readSelectedText() (string, error) {
	return "", notFound(MethodAccessibility, "accessibility API not available on "+runtime.GOOS)
}
