package hotkey

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Binding pairs a combination such as "ctrl+shift+t" with its callback.
type Binding struct {
	Combo    string
	Callback func()
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// combo tracks the pressed state of one binding.
type combo struct {
	config   string
	keys     []keyState
	callback func()
}

func newCombo(b Binding) (*combo, error) {
	c := &combo{config: b.Combo, callback: b.Callback}
	for _, keyName := range parseHotkey(b.Combo) {
		rawcodes := keyNameToRawcodes(keyName)
		if len(rawcodes) == 0 {
			return nil, fmt.Errorf("cannot map key %q in hotkey %q", keyName, b.Combo)
		}
		c.keys = append(c.keys, keyState{name: keyName, rawcodes: rawcodes})
	}
	if len(c.keys) == 0 {
		return nil, fmt.Errorf("no valid keys in hotkey %q", b.Combo)
	}
	return c, nil
}

// keyDown marks rawcode pressed and reports whether the whole combination is
// now held. States reset after a match so a held combination fires once.
func (c *combo) keyDown(rawcode uint16) bool {
	for i := range c.keys {
		if matches(c.keys[i].rawcodes, rawcode) {
			c.keys[i].pressed = true
		}
	}
	for i := range c.keys {
		if !c.keys[i].pressed {
			return false
		}
	}
	for i := range c.keys {
		c.keys[i].pressed = false
	}
	return true
}

func (c *combo) keyUp(rawcode uint16) {
	for i := range c.keys {
		if matches(c.keys[i].rawcodes, rawcode) {
			c.keys[i].pressed = false
		}
	}
}

func matches(rawcodes []uint16, rawcode uint16) bool {
	for _, r := range rawcodes {
		if r == rawcode {
			return true
		}
	}
	return false
}

// dispatcher routes key events to every binding. Callbacks run outside the lock.
type dispatcher struct {
	mu     sync.Mutex
	combos []*combo
}

func (d *dispatcher) handle(kind uint8, rawcode uint16) {
	var fire []*combo
	d.mu.Lock()
	for _, c := range d.combos {
		switch kind {
		case gohook.KeyDown:
			if c.keyDown(rawcode) {
				fire = append(fire, c)
			}
		case gohook.KeyUp:
			c.keyUp(rawcode)
		}
	}
	d.mu.Unlock()

	for _, c := range fire {
		log.Printf("Hotkey: %s detected", c.config)
		if c.callback != nil {
			c.callback()
		}
	}
}

// Listen registers every binding on one global hook. It returns a stop
// function, or an error when a combination cannot be mapped.
func Listen(bindings ...Binding) (func(), error) {
	d := &dispatcher{}
	for _, b := range bindings {
		if strings.TrimSpace(b.Combo) == "" {
			continue
		}
		c, err := newCombo(b)
		if err != nil {
			return nil, err
		}
		d.combos = append(d.combos, c)
		log.Printf("Hotkey: listening for %s", b.Combo)
	}
	if len(d.combos) == 0 {
		return nil, fmt.Errorf("no hotkeys configured")
	}

	evChan := gohook.Start()
	if evChan == nil {
		return nil, fmt.Errorf("gohook.Start() returned nil channel")
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Hotkey: PANIC in hook goroutine: %v", r)
			}
		}()
		for ev := range evChan {
			if ev.Kind == gohook.KeyDown || ev.Kind == gohook.KeyUp {
				d.handle(ev.Kind, ev.Rawcode)
			}
		}
		log.Printf("Hotkey: event channel closed")
	}()
	return gohook.End, nil
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			keys = append(keys, "ctrl")
		case "option":
			keys = append(keys, "alt")
		case "win", "cmd", "super", "meta":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

var namedRawcodes = map[string][]uint16{
	// modifiers, left and right variants
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// keyNameToRawcodes maps a key name to its Windows virtual key codes.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if keyName == "win" || keyName == "super" {
		keyName = "cmd"
	}
	if codes, ok := namedRawcodes[keyName]; ok {
		return codes
	}

	if len(keyName) == 1 {
		ch := keyName[0]
		switch {
		case ch >= 'a' && ch <= 'z':
			return []uint16{uint16(ch-'a') + 65} // VK 0x41-0x5A
		case ch >= '0' && ch <= '9':
			return []uint16{uint16(ch-'0') + 48} // VK 0x30-0x39
		}
	}

	if strings.HasPrefix(keyName, "f") {
		if n, err := strconv.Atoi(keyName[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)} // VK_F1 = 112
		}
	}

	log.Printf("Hotkey: WARNING unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}
