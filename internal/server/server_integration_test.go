package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/pinchglobe/internal/capture"
	"github.com/ayusman/pinchglobe/internal/gesture"
	"github.com/ayusman/pinchglobe/internal/scene"
	"github.com/ayusman/pinchglobe/internal/sink"
	"github.com/ayusman/pinchglobe/internal/store"
)

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func waitForClients(t *testing.T, h *EventsHandler, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEvents_JSON(t *testing.T) {
	bus := sink.NewBus(nil)
	globe := scene.NewGlobe(scene.DefaultConfig())
	srv := New(Config{Bus: bus, Scene: globe})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/api/events"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// The first message is the current scene.
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if messageType != websocket.TextMessage {
		t.Errorf("message type = %d, want text", messageType)
	}
	first, err := sink.Decode(sink.FormatJSON, data)
	if err != nil || first.Type != sink.MessageScene {
		t.Fatalf("first message = %+v (%v), want scene", first, err)
	}

	waitForClients(t, srv.events, 1)
	bus.Publish(gesture.Event{Kind: gesture.EventPress, Role: gesture.RoleLeft, X: 0.2, Y: 0.3, TimestampMs: 10})

	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	m, err := sink.Decode(sink.FormatJSON, data)
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if m.Type != sink.MessageEvent || m.Event.Kind != gesture.EventPress || m.Event.Role != gesture.RoleLeft {
		t.Errorf("unexpected event message %+v", m)
	}

	// Snapshot on request.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"snapshot_request"}`)); err != nil {
		t.Fatalf("write request: %v", err)
	}
	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read requested snapshot: %v", err)
	}
	if m, _ := sink.Decode(sink.FormatJSON, data); m.Type != sink.MessageScene {
		t.Errorf("expected scene in reply to snapshot_request, got %+v", m)
	}

	conn.Close()
	waitForClients(t, srv.events, 0)
	if bus.Subscribers() != 0 {
		t.Errorf("subscription should be released on disconnect, got %d", bus.Subscribers())
	}
}

func TestEvents_CBOR(t *testing.T) {
	bus := sink.NewBus(nil)
	srv := New(Config{Bus: bus})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/api/events?format=cbor"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	waitForClients(t, srv.events, 1)
	want := gesture.Event{Kind: gesture.EventBothPinchEdge, Role: gesture.RoleBoth, Spread: 0.4, TimestampMs: 99}
	bus.Publish(want)

	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if messageType != websocket.BinaryMessage {
		t.Errorf("message type = %d, want binary", messageType)
	}
	m, err := sink.Decode(sink.FormatCBOR, data)
	if err != nil {
		t.Fatalf("decode cbor: %v", err)
	}
	if m.Event == nil || *m.Event != want {
		t.Errorf("event = %+v, want %+v", m.Event, want)
	}
}

func TestEvents_BadFormat(t *testing.T) {
	srv := New(Config{Bus: sink.NewBus(nil)})

	req := httptest.NewRequest(http.MethodGet, "/api/events?format=xml", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAPI_SettingsWorkflow(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer st.Close()

	var reloads atomic.Int32
	srv := New(Config{Store: st, SettingsChanged: func() { reloads.Add(1) }})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings/rotation_scale", bytes.NewBufferString(`{"value":"0.0012"}`))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}

	resp, err = client.Get(ts.URL + "/api/settings")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var listed struct {
		Settings []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"settings"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Settings) != 1 || listed.Settings[0].Value != "0.0012" {
		t.Errorf("unexpected settings %+v", listed.Settings)
	}

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/settings/rotation_scale", nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", resp.StatusCode)
	}

	if n := reloads.Load(); n != 2 {
		t.Errorf("settings changed %d times, want 2", n)
	}
}

func TestStream_MJPEG(t *testing.T) {
	preview := capture.NewPreview()
	srv := New(Config{Preview: preview})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)

	go func() {
		for !preview.Watching() {
			time.Sleep(5 * time.Millisecond)
		}
		preview.Publish([]byte{0xff, 0xd8, 0xff, 0xd9})
	}()

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	boundary, err := r.ReadString('\n')
	if err != nil || boundary != "--frame\r\n" {
		t.Fatalf("boundary = %q (%v)", boundary, err)
	}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read headers: %v", err)
		}
		if line == "\r\n" {
			break
		}
	}
	body := make([]byte, 4)
	if _, err := io.ReadFull(r, body); err != nil {
		t.Fatalf("read jpeg: %v", err)
	}
	if !bytes.Equal(body, []byte{0xff, 0xd8, 0xff, 0xd9}) {
		t.Errorf("jpeg = %x", body)
	}
}
