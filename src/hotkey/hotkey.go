package hotkey

import (
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// Listen registers a global hotkey such as "Cmd+Shift+C" and invokes callback
// every time the whole combination is held down. It returns once the listener
// goroutine is running.
func Listen(hotkeyConfig string, callback func()) error {
	keys := parseHotkey(hotkeyConfig)
	log.Printf("Parsed hotkey configuration: %v", keys)

	var states []keyState
	for _, keyName := range keys {
		rawcodes := keyNameToRawcodes(keyName)
		if len(rawcodes) == 0 {
			return fmt.Errorf("hotkey %q: unknown key %q", hotkeyConfig, keyName)
		}
		states = append(states, keyState{name: keyName, rawcodes: rawcodes})
	}
	if len(states) == 0 {
		return fmt.Errorf("hotkey %q: no keys", hotkeyConfig)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("ERROR: gohook.Start() returned nil channel")
			return
		}
		log.Printf("Hotkey listener configured for: %s", hotkeyConfig)

		m := &matcher{states: states}
		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown, gohook.KeyHold:
				if m.down(ev.Rawcode) {
					log.Printf("Hotkey activated: %s", hotkeyConfig)
					if callback != nil {
						callback()
					}
				}
			case gohook.KeyUp:
				m.up(ev.Rawcode)
			}
		}
		log.Printf("Event channel closed")
	}()
	return nil
}

// Stop ends the global event hook started by Listen.
func Stop() {
	gohook.End()
}

// matcher tracks which keys of a combination are currently held.
type matcher struct {
	mu     sync.Mutex
	states []keyState
}

// down marks rawcode as pressed and reports whether the full combination is now held.
// A completed combination resets all states so holding keys fires once.
func (m *matcher) down(rawcode uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.states {
		for _, rc := range m.states[i].rawcodes {
			if rc == rawcode {
				m.states[i].pressed = true
			}
		}
	}
	for i := range m.states {
		if !m.states[i].pressed {
			return false
		}
	}
	for i := range m.states {
		m.states[i].pressed = false
	}
	return true
}

func (m *matcher) up(rawcode uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.states {
		for _, rc := range m.states[i].rawcodes {
			if rc == rawcode {
				m.states[i].pressed = false
			}
		}
	}
}

// parseHotkey converts a hotkey string like "Cmd+Shift+c" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "ctrl", "control":
			keys = append(keys, "ctrl")
		case "alt", "opt", "option":
			keys = append(keys, "alt")
		case "win", "cmd", "command", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

// macOS virtual key codes (Carbon kVK_*). Modifiers list left and right variants.
var rawcodes = map[string][]uint16{
	"cmd":   {55, 54},
	"shift": {56, 60},
	"alt":   {58, 61},
	"ctrl":  {59, 62},

	"a": {0}, "s": {1}, "d": {2}, "f": {3}, "h": {4}, "g": {5}, "z": {6}, "x": {7},
	"c": {8}, "v": {9}, "b": {11}, "q": {12}, "w": {13}, "e": {14}, "r": {15},
	"y": {16}, "t": {17}, "o": {31}, "u": {32}, "i": {34}, "p": {35}, "l": {37},
	"j": {38}, "k": {40}, "n": {45}, "m": {46},

	"1": {18}, "2": {19}, "3": {20}, "4": {21}, "6": {22}, "5": {23}, "9": {25},
	"7": {26}, "8": {28}, "0": {29},

	"f1": {122}, "f2": {120}, "f3": {99}, "f4": {118}, "f5": {96}, "f6": {97},
	"f7": {98}, "f8": {100}, "f9": {101}, "f10": {109}, "f11": {103}, "f12": {111},
	"f13": {105}, "f14": {107}, "f15": {113}, "f16": {106}, "f17": {64}, "f18": {79},
	"f19": {80}, "f20": {90},

	"space":     {49},
	"enter":     {36},
	"return":    {36},
	"esc":       {53},
	"escape":    {53},
	"tab":       {48},
	"backspace": {51},
	"delete":    {117},
	"del":       {117},
	"home":      {115},
	"end":       {119},
	"pageup":    {116},
	"pgup":      {116},
	"pagedown":  {121},
	"pgdn":      {121},
	"left":      {123},
	"right":     {124},
	"down":      {125},
	"up":        {126},
}

// keyNameToRawcodes maps a key name to its macOS virtual key codes.
func keyNameToRawcodes(keyName string) []uint16 {
	codes, ok := rawcodes[strings.ToLower(strings.TrimSpace(keyName))]
	if !ok {
		log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
		return nil
	}
	return codes
}
