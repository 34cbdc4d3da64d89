package sink

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/pinchglobe/internal/gesture"
	"github.com/ayusman/pinchglobe/internal/scene"
)

func pressAt(role gesture.Role, x, y float64) gesture.Event {
	return gesture.Event{Kind: gesture.EventPress, Role: role, X: x, Y: y}
}

func moveTo(role gesture.Role, x, y float64) gesture.Event {
	return gesture.Event{Kind: gesture.EventMove, Role: role, X: x, Y: y}
}

func releaseAt(role gesture.Role, x, y float64) gesture.Event {
	return gesture.Event{Kind: gesture.EventRelease, Role: role, X: x, Y: y}
}

func TestBus_SynchronousSinksInOrder(t *testing.T) {
	bus := NewBus(nil)

	var got []gesture.EventKind
	bus.Attach(SinkFunc(func(e gesture.Event) {
		got = append(got, e.Kind)
	}))

	bus.Publish(
		pressAt(gesture.RoleLeft, 0.1, 0.1),
		moveTo(gesture.RoleLeft, 0.2, 0.2),
		releaseAt(gesture.RoleLeft, 0.2, 0.2),
	)

	want := []gesture.EventKind{gesture.EventPress, gesture.EventMove, gesture.EventRelease}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	if bus.Published() != 3 {
		t.Errorf("published = %d, want 3", bus.Published())
	}
}

func TestBus_SubscriberDropsWhenFull(t *testing.T) {
	bus := NewBus(nil)
	sub := bus.Subscribe(2)
	defer sub.Close()

	for i := 0; i < 5; i++ {
		bus.Publish(moveTo(gesture.RoleRight, 0.5, 0.5))
	}

	if bus.Dropped() != 3 {
		t.Errorf("dropped = %d, want 3", bus.Dropped())
	}
	if len(sub.C()) != 2 {
		t.Errorf("buffered = %d, want 2", len(sub.C()))
	}
}

func TestBus_SubscriptionClose(t *testing.T) {
	bus := NewBus(nil)
	sub := bus.Subscribe(1)

	if bus.Subscribers() != 1 {
		t.Fatalf("subscribers = %d, want 1", bus.Subscribers())
	}

	sub.Close()
	sub.Close() // second close is a no-op

	if bus.Subscribers() != 0 {
		t.Errorf("subscribers = %d, want 0", bus.Subscribers())
	}
	if _, ok := <-sub.C(); ok {
		t.Error("channel should be closed")
	}

	// Publishing after close must not panic.
	bus.Publish(moveTo(gesture.RoleRight, 0.5, 0.5))
}

func TestBus_Forward(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan gesture.Event, 4)
	bus.Forward(ctx, 4, SinkFunc(func(e gesture.Event) {
		received <- e
	}))

	bus.Publish(pressAt(gesture.RoleRight, 0.3, 0.4))

	select {
	case e := <-received:
		if e.Kind != gesture.EventPress || e.X != 0.3 {
			t.Errorf("unexpected event %v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("forwarded sink never received the event")
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for bus.Subscribers() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if bus.Subscribers() != 0 {
		t.Error("forward subscription should close when the context ends")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"cbor", FormatCBOR, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("format = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncode_EventMessage(t *testing.T) {
	e := gesture.Event{Kind: gesture.EventMove, Role: gesture.RoleLeft, X: 0.25, Y: 0.5, TimestampMs: 42}

	for _, format := range []Format{FormatJSON, FormatCBOR} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Encode(format, EventMessage(e))
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			m, err := Decode(format, data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if m.Type != MessageEvent || m.Event == nil || m.Scene != nil {
				t.Fatalf("unexpected envelope %+v", m)
			}
			if *m.Event != e {
				t.Errorf("event = %+v, want %+v", *m.Event, e)
			}
		})
	}
}

func TestEncode_JSONFieldNames(t *testing.T) {
	data, err := Encode(FormatJSON, SceneMessage(scene.Snapshot{Yaw: 1, Revision: 7}))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"type":"scene"`, `"yaw":1`, `"revision":7`} {
		if !strings.Contains(s, want) {
			t.Errorf("encoded scene %s missing %s", s, want)
		}
	}
	if strings.Contains(s, `"event"`) {
		t.Errorf("scene message should omit the event field: %s", s)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode(FormatJSON, []byte("{")); err == nil {
		t.Error("expected error for truncated json")
	}
	if _, err := Decode(FormatCBOR, []byte{0xff, 0x00}); err == nil {
		t.Error("expected error for invalid cbor")
	}
}

type fakeDriver struct {
	moves [][2]int
	downs int
	ups   int
}

func (d *fakeDriver) ScreenSize() (int, int) { return 1921, 1081 }
func (d *fakeDriver) Move(x, y int)          { d.moves = append(d.moves, [2]int{x, y}) }
func (d *fakeDriver) Down() error            { d.downs++; return nil }
func (d *fakeDriver) Up() error              { d.ups++; return nil }

func TestPointerSink_DragFollowsRole(t *testing.T) {
	drv := &fakeDriver{}
	p := NewPointerSink(gesture.RoleRight, drv, nil)

	p.Handle(pressAt(gesture.RoleRight, 0.5, 0.5))
	p.Handle(moveTo(gesture.RoleRight, 1.0, 0.25))
	p.Handle(releaseAt(gesture.RoleRight, 1.0, 0.25))

	if drv.downs != 1 || drv.ups != 1 {
		t.Errorf("downs=%d ups=%d, want 1 and 1", drv.downs, drv.ups)
	}
	want := [][2]int{{960, 540}, {1920, 270}}
	if len(drv.moves) != len(want) {
		t.Fatalf("moves = %v, want %v", drv.moves, want)
	}
	for i := range want {
		if drv.moves[i] != want[i] {
			t.Errorf("move %d = %v, want %v", i, drv.moves[i], want[i])
		}
	}
	if p.Down() {
		t.Error("button should be up after release")
	}
}

func TestPointerSink_IgnoresOtherRole(t *testing.T) {
	drv := &fakeDriver{}
	p := NewPointerSink(gesture.RoleRight, drv, nil)

	p.Handle(pressAt(gesture.RoleLeft, 0.5, 0.5))
	p.Handle(moveTo(gesture.RoleLeft, 0.6, 0.5))
	p.Handle(releaseAt(gesture.RoleLeft, 0.6, 0.5))

	if drv.downs != 0 || drv.ups != 0 || len(drv.moves) != 0 {
		t.Errorf("left-hand events should not touch the pointer: %+v", drv)
	}
}

func TestPointerSink_ReleaseAfterRoleSwap(t *testing.T) {
	drv := &fakeDriver{}
	p := NewPointerSink(gesture.RoleRight, drv, nil)

	p.Handle(pressAt(gesture.RoleRight, 0.5, 0.5))
	// A swap releases the old role before pressing the new one.
	p.Handle(releaseAt(gesture.RoleRight, 0.5, 0.5))
	p.Handle(pressAt(gesture.RoleLeft, 0.5, 0.5))

	if drv.ups != 1 || p.Down() {
		t.Errorf("button should be released once, ups=%d down=%v", drv.ups, p.Down())
	}
}

func TestPointerSink_ClampsCoordinates(t *testing.T) {
	drv := &fakeDriver{}
	p := NewPointerSink(gesture.RoleRight, drv, nil)

	p.Handle(pressAt(gesture.RoleRight, -0.2, 1.4))
	if drv.moves[0] != [2]int{0, 1080} {
		t.Errorf("move = %v, want [0 1080]", drv.moves[0])
	}
}
