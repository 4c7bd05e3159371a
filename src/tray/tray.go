package tray

import (
	"fmt"
	"log"
	"sync"

	"github.com/getlantern/systray"
)

const (
	defaultTitle   = "Sel"
	defaultTooltip = "Get Selected Text"
)

// Config wires menu items to the resident. Nil callbacks leave the item inert.
type Config struct {
	Title    string
	Tooltip  string
	Hotkey   string
	OnGrab   func()
	OnForget func()
	OnExit   func()
}

// Tray is the menu bar item of the resident process.
type Tray struct {
	cfg Config

	mu          sync.Mutex
	ready       bool
	quitPending bool
	grab        *systray.MenuItem
}

func New(cfg Config) *Tray {
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	if cfg.Tooltip == "" {
		cfg.Tooltip = IdleTooltip(cfg.Hotkey)
	}
	return &Tray{cfg: cfg}
}

// IdleTooltip is the tooltip shown while no grab is running.
func IdleTooltip(hotkey string) string {
	if hotkey == "" {
		return defaultTooltip
	}
	return fmt.Sprintf("%s - press %s to copy the selection", defaultTooltip, hotkey)
}

// Run blocks until Quit. On macOS it must be called from the main thread.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops Run. Called before the menu is ready, it takes effect once it is.
func (t *Tray) Quit() {
	t.mu.Lock()
	if !t.ready {
		t.quitPending = true
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	systray.Quit()
}

// SetBusy reflects a running grab in the tooltip and disables the grab item.
func (t *Tray) SetBusy(busy bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return
	}
	if busy {
		systray.SetTooltip(defaultTooltip + ": reading selection...")
		t.grab.Disable()
		return
	}
	systray.SetTooltip(t.cfg.Tooltip)
	t.grab.Enable()
}

func (t *Tray) onReady() {
	systray.SetTitle(t.cfg.Title)
	systray.SetTooltip(t.cfg.Tooltip)

	mGrab := systray.AddMenuItem("Grab selection", "Copy the current selection to the clipboard")
	mForget := systray.AddMenuItem("Forget learned methods", "Clear the per-application method cache")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Stop the resident")

	t.mu.Lock()
	t.grab = mGrab
	t.ready = true
	quit := t.quitPending
	t.mu.Unlock()
	if quit {
		systray.Quit()
		return
	}

	go func() {
		for {
			select {
			case <-mGrab.ClickedCh:
				call(t.cfg.OnGrab)
			case <-mForget.ClickedCh:
				call(t.cfg.OnForget)
			case <-mQuit.ClickedCh:
				log.Printf("tray: quit requested")
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.mu.Lock()
	t.ready = false
	t.mu.Unlock()
	call(t.cfg.OnExit)
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
