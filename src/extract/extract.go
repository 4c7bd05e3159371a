// Package extract implements the individual ways of reading the user's current
// selection on macOS: the accessibility tree, a simulated copy through the
// clipboard, and Finder's file selection.
//
// Every method returns either a string (possibly empty, meaning nothing is
// selected) or an *Error of one of the closed kinds.
package extract

import (
	"context"
	_ "embed"
	"strings"

	"get-selected-text/src/osascript"
)

const (
	MethodAccessibility = "accessibility"
	MethodClipboard     = "clipboard-script"
	MethodFilePaths     = "file-paths"
)

var (
	//go:embed scripts/copy_text.applescript
	copyTextScript string
	//go:embed scripts/finder_selection.applescript
	finderSelectionScript string
	//go:embed scripts/desktop_selection.applescript
	desktopSelectionScript string
)

// Methods is the set of extraction procedures the selector orchestrates.
type Methods interface {
	// Accessibility reads the focused element's selected-text attribute.
	Accessibility(ctx context.Context) (string, error)
	// ClipboardText simulates a copy and returns what landed on the clipboard.
	ClipboardText(ctx context.Context) (string, error)
	// FilePaths returns Finder's selection as newline-joined quoted paths.
	// desktop selects the variant used when no application is in front.
	FilePaths(ctx context.Context, desktop bool) (string, error)
}

// System is the production Methods implementation.
type System struct {
	runner osascript.Runner
	readAX func() (string, error)
}

func NewSystem(runner osascript.Runner) *System {
	return &System{runner: runner, readAX: readSelectedText}
}

func (s *System) Accessibility(ctx context.Context) (string, error) {
	return s.readAX()
}

// ClipboardText mutes the alert sound, presses Cmd+C and restores the previous
// clipboard contents. The script is never cancelled once started, otherwise the
// user's clipboard and alert volume could be left modified.
func (s *System) ClipboardText(ctx context.Context) (string, error) {
	out, err := s.runner.Run(context.WithoutCancel(ctx), copyTextScript)
	if err != nil {
		return "", fromScript(MethodClipboard, err)
	}
	return out, nil
}

func (s *System) FilePaths(ctx context.Context, desktop bool) (string, error) {
	script := finderSelectionScript
	if desktop {
		script = desktopSelectionScript
	}
	out, err := s.runner.Run(ctx, script)
	if err != nil {
		return "", fromScript(MethodFilePaths, err)
	}
	return out, nil
}

// ParsePaths splits FilePaths output into plain paths. Each line is a
// double-quoted path with inner quotes escaped as \". Blank lines are dropped.
func ParsePaths(raw string) []string {
	var paths []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) >= 2 && strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `"`) {
			line = line[1 : len(line)-1]
			line = strings.ReplaceAll(line, `\"`, `"`)
		}
		paths = append(paths, line)
	}
	return paths
}
