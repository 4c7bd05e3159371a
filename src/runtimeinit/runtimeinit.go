package runtimeinit

import (
	"fmt"
	"log"

	"get-selected-text/src/clipboard"
	"get-selected-text/src/config"
	"get-selected-text/src/extract"
	"get-selected-text/src/methodcache"
	"get-selected-text/src/notification"
	"get-selected-text/src/osascript"
	"get-selected-text/src/selector"
	"get-selected-text/src/window"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// RequireClipboard fails bootstrap when the system clipboard cannot be opened.
	RequireClipboard bool
}

// Runtime is everything a grab needs, built once per process.
type Runtime struct {
	Config   *config.Config
	Selector *selector.Selector
	// Notifier is nil when notifications are disabled; its methods accept a nil receiver.
	Notifier *notification.Notifier
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	if err := clipboard.Init(); err != nil {
		if opts.RequireClipboard {
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
		log.Printf("clipboard unavailable: %v", err)
	}

	runner := osascript.NewRunner(cfg.OsascriptPath)
	rt := &Runtime{Config: cfg, Selector: NewSelector(cfg, runner)}
	if cfg.EnableNotifications {
		rt.Notifier = notification.New(runner)
	}
	return rt, nil
}

// NewSelector builds the selector described by cfg on top of runner.
func NewSelector(cfg *config.Config, runner *osascript.ExecRunner) *selector.Selector {
	log.Printf("selector: interpreter=%s file manager=%s cache=%d", runner.Interpreter, cfg.FileManagerApp, cfg.MethodCacheSize)
	return selector.New(selector.Options{
		Inspector:   window.NewScriptInspector(runner),
		Methods:     extract.NewSystem(runner),
		Cache:       methodcache.New(cfg.MethodCacheSize),
		FileManager: cfg.FileManagerApp,
	})
}
