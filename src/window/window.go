package window

import (
	"context"
	"log"
	"strings"

	"get-selected-text/src/osascript"
)

// EmptyWindow is reported as both app name and title when no application has focus,
// e.g. when the user is looking at the desktop.
const EmptyWindow = "Empty Window"

// Context identifies the foreground application at the moment of a query.
type Context struct {
	AppName     string
	WindowTitle string
}

// IsEmpty reports whether c is the no-active-application sentinel.
func (c Context) IsEmpty() bool { return c.AppName == EmptyWindow }

// Empty returns the sentinel context.
func Empty() Context { return Context{AppName: EmptyWindow, WindowTitle: EmptyWindow} }

// Inspector reports the current foreground context. Implementations never fail;
// they fall back to Empty().
type Inspector interface {
	WindowMeta(ctx context.Context) Context
}

// frontmostScript prints the frontmost process name and, on the next line, its front window title.
const frontmostScript = `
tell application "System Events"
	set frontApp to first application process whose frontmost is true
	set appName to name of frontApp
	set windowTitle to ""
	try
		tell frontApp
			set windowTitle to name of front window
		end tell
	end try
	return appName & linefeed & windowTitle
end tell
`

// ScriptInspector asks System Events for the frontmost application.
type ScriptInspector struct {
	runner osascript.Runner
}

func NewScriptInspector(runner osascript.Runner) *ScriptInspector {
	return &ScriptInspector{runner: runner}
}

func (s *ScriptInspector) WindowMeta(ctx context.Context) Context {
	out, err := s.runner.Run(ctx, frontmostScript)
	if err != nil {
		// user might be on the desktop with nothing focused
		log.Printf("window: frontmost lookup failed: %v", err)
		return Empty()
	}
	return parseMeta(out)
}

func parseMeta(out string) Context {
	name, title, _ := strings.Cut(out, "\n")
	name = strings.TrimSpace(name)
	title = strings.TrimSpace(title)
	if name == "" {
		return Empty()
	}
	return Context{AppName: name, WindowTitle: title}
}
