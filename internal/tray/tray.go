// Package tray puts a status menu in the system tray.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/pinchglobe/internal/gesture"
)

// Tray shows whether interpretation is enabled and the last interaction.
type Tray struct {
	onToggle func(enabled bool)
	onOpen   func()
	onQuit   func()
	enabled  bool
	last     string
	mu       sync.RWMutex

	menuToggle    *systray.MenuItem
	menuLastEvent *systray.MenuItem
}

// New creates a Tray in the enabled state.
func New() *Tray {
	return &Tray{
		enabled: true,
		last:    "none",
	}
}

// OnToggle sets the callback for the enable/disable item.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback for the "Open Globe" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run blocks until the tray quits. It must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray from any goroutine.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("PinchGlobe")
	systray.SetTooltip("Pinch to spin the globe")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle pinch interaction")
	systray.AddSeparator()
	t.menuLastEvent = systray.AddMenuItem("Last: "+t.last, "Last interaction")
	t.menuLastEvent.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Globe...", "Open the globe in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit PinchGlobe")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.toggle()
			case <-menuOpen.ClickedCh:
				if fn := t.openCallback(); fn != nil {
					go fn()
				}
			case <-menuQuit.ClickedCh:
				if fn := t.quitCallback(); fn != nil {
					fn()
				}
				systray.Quit()
				return
			}
		}
	}()
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func (t *Tray) toggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) openCallback() func() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onOpen
}

func (t *Tray) quitCallback() func() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onQuit
}

// Handle implements sink.Sink. Moves are frequent and not shown.
func (t *Tray) Handle(e gesture.Event) {
	if e.Kind == gesture.EventMove {
		return
	}
	t.SetLast(Describe(e))
}

// Describe is the menu text for an event.
func Describe(e gesture.Event) string {
	if e.Kind == gesture.EventBothPinchEdge {
		return fmt.Sprintf("two-hand pinch (spread %.2f)", e.Spread)
	}
	return fmt.Sprintf("%s (%s)", e.Kind, e.Role)
}

// SetLast updates the last-interaction item.
func (t *Tray) SetLast(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = text
	if t.menuLastEvent != nil {
		t.menuLastEvent.SetTitle("Last: " + text)
	}
}

// Last returns the last-interaction text.
func (t *Tray) Last() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
