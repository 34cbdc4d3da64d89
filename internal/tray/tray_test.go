package tray

import (
	"testing"

	"github.com/ayusman/pinchglobe/internal/gesture"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		event gesture.Event
		want  string
	}{
		{gesture.Event{Kind: gesture.EventPress, Role: gesture.RoleLeft}, "press (left)"},
		{gesture.Event{Kind: gesture.EventRelease, Role: gesture.RoleRight}, "release (right)"},
		{gesture.Event{Kind: gesture.EventBothPinchEdge, Role: gesture.RoleBoth, Spread: 0.4}, "two-hand pinch (spread 0.40)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Describe(tt.event); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTray_HandleSkipsMoves(t *testing.T) {
	tr := New()
	if tr.Last() != "none" {
		t.Fatalf("initial last = %q, want none", tr.Last())
	}

	tr.Handle(gesture.Event{Kind: gesture.EventPress, Role: gesture.RoleRight})
	tr.Handle(gesture.Event{Kind: gesture.EventMove, Role: gesture.RoleRight})

	if tr.Last() != "press (right)" {
		t.Errorf("last = %q, want press (right)", tr.Last())
	}
}

func TestTray_ToggleWithoutMenu(t *testing.T) {
	tr := New()
	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.toggle()
	tr.toggle()

	if len(got) != 2 || got[0] != false || got[1] != true {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("two toggles should leave the tray enabled")
	}
}
