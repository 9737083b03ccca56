package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/tendril/growth"
	"github.com/pthm-cable/tendril/vecmath"
)

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket server: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Error reading message: %v", err)
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("Error decoding frame %s: %v", data, err)
	}
	return f
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubHelloAndBroadcast(t *testing.T) {
	h := NewHub(Options{})
	h.SetTick(7)
	conn := dial(t, h)

	hello := readFrame(t, conn)
	if hello.Type != FrameHello || hello.Tick != 7 {
		t.Errorf("expected hello at tick 7, got %s at %d", hello.Type, hello.Tick)
	}
	waitClients(t, h, 1)

	f := growth.NewForest(growth.DefaultParams())
	root := f.PlantSeed(vecmath.Zero, vecmath.QuatFromDirection(vecmath.Up))
	h.SetTick(8)
	h.SyncPlant(root, f.PlantViews(root))

	frame := readFrame(t, conn)
	if frame.Type != FramePlant || frame.Tick != 8 || len(frame.Particles) != 1 {
		t.Errorf("unexpected frame: %+v", frame)
	}
}

func TestHubCommands(t *testing.T) {
	h := NewHub(Options{})
	conn := dial(t, h)
	readFrame(t, conn) // hello

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"plant","point":[0,1,0]}`)); err != nil {
		t.Fatal(err)
	}
	select {
	case cmd := <-h.Commands():
		if cmd.Type != CommandPlant || *cmd.Point != [3]float64{0, 1, 0} {
			t.Errorf("unexpected command: %+v", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)); err != nil {
		t.Fatal(err)
	}
	frame := readFrame(t, conn)
	if frame.Type != FrameError || !strings.Contains(frame.Error, "bogus") {
		t.Errorf("expected error frame, got %+v", frame)
	}
}

func TestHubDropsForSlowClients(t *testing.T) {
	h := NewHub(Options{SendBuffer: 1})
	c := &client{send: make(chan []byte, 1)}
	h.register(c)

	h.Broadcast([]byte("a"))
	h.Broadcast([]byte("b"))
	h.Broadcast([]byte("c"))

	if h.Dropped() != 2 {
		t.Errorf("expected 2 dropped frames, got %d", h.Dropped())
	}
	if got := string(<-c.send); got != "a" {
		t.Errorf("expected oldest frame kept, got %q", got)
	}

	h.unregister(c)
	if _, ok := <-c.send; ok {
		t.Error("expected send queue closed after unregister")
	}
	// A second unregister is a no-op.
	h.unregister(c)
}

func TestHubSkipsEncodingWithoutClients(t *testing.T) {
	h := NewHub(Options{})
	h.SyncPlant(0, nil)
	if h.Dropped() != 0 {
		t.Errorf("expected nothing dropped, got %d", h.Dropped())
	}
}

func TestHubClose(t *testing.T) {
	h := NewHub(Options{})
	conn := dial(t, h)
	readFrame(t, conn)
	waitClients(t, h, 1)

	h.Close()
	if h.ClientCount() != 0 {
		t.Errorf("expected no clients after close, got %d", h.ClientCount())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read error after hub close")
	}
}
