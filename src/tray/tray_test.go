package tray

import "testing"

func TestNewDefaults(t *testing.T) {
	tr := New(Config{Hotkey: "Cmd+Shift+C"})
	if tr.cfg.Title != defaultTitle {
		t.Errorf("Title = %q", tr.cfg.Title)
	}
	if tr.cfg.Tooltip != "Get Selected Text - press Cmd+Shift+C to copy the selection" {
		t.Errorf("Tooltip = %q", tr.cfg.Tooltip)
	}
	if got := New(Config{Tooltip: "custom"}).cfg.Tooltip; got != "custom" {
		t.Errorf("explicit tooltip overridden: %q", got)
	}
}

func TestIdleTooltipWithoutHotkey(t *testing.T) {
	if got := IdleTooltip(""); got != defaultTooltip {
		t.Errorf("IdleTooltip(\"\") = %q", got)
	}
}

func TestSetBusyBeforeReady(t *testing.T) {
	// must not touch systray before the menu exists
	New(Config{}).SetBusy(true)
}

func TestQuitBeforeReadyIsDeferred(t *testing.T) {
	tr := New(Config{})
	tr.Quit()
	if !tr.quitPending {
		t.Fatal("Quit before the menu exists should be remembered")
	}
}
