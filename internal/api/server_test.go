package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"autoinput/internal/config"
	"autoinput/internal/control"
	"autoinput/internal/engine"
	"autoinput/internal/input"
	"autoinput/internal/protocol"
)

type recordingInjector struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingInjector) add(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return nil
}

func (r *recordingInjector) Click(b input.Button, s input.ClickStyle) error {
	return r.add("click " + b.String())
}
func (r *recordingInjector) PressAndHold(t input.Target) error { return r.add("press " + t.String()) }
func (r *recordingInjector) Release(t input.Target) error      { return r.add("release " + t.String()) }
func (r *recordingInjector) MoveCursorAbsolute(x, y int) error { return r.add("move to") }
func (r *recordingInjector) MoveCursorRelative(dx, dy int) error {
	return r.add("move by")
}
func (r *recordingInjector) TapKey(k input.Key) error { return r.add("tap " + string(k)) }

func newTestServer(t *testing.T, token string) (*httptest.Server, *engine.Engine) {
	t.Helper()
	cfgMgr := config.NewManagerAt(filepath.Join(t.TempDir(), "config.json"))

	hold := config.DefaultSetup("hold")
	hold.ActionType = "hold-key"
	hold.HoldKey = "w"
	cfgMgr.SetSetup(hold)

	burst := config.DefaultSetup("burst")
	burst.ActionType = "hold-key"
	burst.KeyMode = "repeat"
	burst.Milliseconds = 5
	burst.RepeatMode = "count"
	burst.RepeatCount = 2
	cfgMgr.SetSetup(burst)

	eng := engine.New(&recordingInjector{})
	srv := NewServer(control.New(eng, cfgMgr), token)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.wsMgr.stop()
		eng.Shutdown()
	})
	return ts, eng
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestHealthSkipsAuth(t *testing.T) {
	ts, _ := newTestServer(t, "secret")

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestStartStopToggle(t *testing.T) {
	ts, eng := newTestServer(t, "")

	resp := post(t, ts.URL+"/api/start?setup=hold", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from start, got %d", resp.StatusCode)
	}
	if !eng.IsRunning() {
		t.Fatal("Expected engine to be running")
	}

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	var st protocol.StatusPayload
	json.NewDecoder(resp.Body).Decode(&st)
	resp.Body.Close()
	if !st.Running || st.Setup != "hold" || st.Mode != "key-hold" {
		t.Errorf("Unexpected status: %+v", st)
	}

	resp = post(t, ts.URL+"/api/toggle?setup=hold", "")
	var toggled map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&toggled)
	resp.Body.Close()
	if toggled["running"] != false {
		t.Errorf("Expected toggle to stop the setup, got %v", toggled)
	}

	resp = post(t, ts.URL+"/api/stop", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from idle stop, got %d", resp.StatusCode)
	}
}

func TestStartWithSetupBody(t *testing.T) {
	ts, eng := newTestServer(t, "")

	resp := post(t, ts.URL+"/api/start", `{"name":"adhoc","mouse_mode":"hold","mouse_button":"right"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if st := eng.Status(); st.SetupID != "adhoc" || st.Mode != "mouse-hold" {
		t.Errorf("Unexpected status: %+v", st)
	}

	resp = post(t, ts.URL+"/api/drag", `{"dx":1,"dy":0}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from drag, got %d", resp.StatusCode)
	}
}

func TestErrorMapping(t *testing.T) {
	ts, _ := newTestServer(t, "")

	tests := []struct {
		path string
		body string
		want int
	}{
		{"/api/start?setup=missing", "", http.StatusNotFound},
		{"/api/start", `{"name":"bad","milliseconds":0}`, http.StatusBadRequest},
		{"/api/start", `not json`, http.StatusBadRequest},
		{"/api/toggle", "", http.StatusBadRequest},
		{"/api/drag", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp := post(t, ts.URL+tt.path, tt.body)
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("POST %s %s: expected %d, got %d", tt.path, tt.body, tt.want, resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + "/api/start")
	if err != nil {
		t.Fatalf("GET /api/start: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}

func TestSetups(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/api/setups")
	if err != nil {
		t.Fatalf("GET /api/setups: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Active string         `json:"active"`
		Setups []config.Setup `json:"setups"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Active != "Default" || len(body.Setups) != 3 {
		t.Errorf("Unexpected setups response: active=%s count=%d", body.Active, len(body.Setups))
	}
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn, want protocol.MessageType) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg
		}
	}
}

func TestWebSocketActionStopped(t *testing.T) {
	ts, _ := newTestServer(t, "")
	conn := dialWS(t, ts)

	// A status round trip proves the client is registered with the hub.
	conn.WriteJSON(protocol.Message{Type: protocol.TypeStatus})
	readMessage(t, conn, protocol.TypeStatus)

	msg, _ := protocol.NewMessage(protocol.TypeStart, protocol.SetupPayload{Setup: "burst"})
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	stopped := readMessage(t, conn, protocol.TypeActionStopped)
	var p protocol.ActionStoppedPayload
	if err := stopped.Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Setup != "burst" || p.Reason != "completed" || p.Ticks != 2 {
		t.Errorf("Unexpected payload: %+v", p)
	}
}

func TestWebSocketErrors(t *testing.T) {
	ts, _ := newTestServer(t, "")
	conn := dialWS(t, ts)

	msg, _ := protocol.NewMessage(protocol.TypeToggle, protocol.SetupPayload{Setup: "missing"})
	conn.WriteJSON(msg)

	reply := readMessage(t, conn, protocol.TypeError)
	var p protocol.ErrorPayload
	if err := reply.Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Request != protocol.TypeToggle || !strings.Contains(p.Message, "setup not found") {
		t.Errorf("Unexpected error payload: %+v", p)
	}
}
