package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"pairchat/internal/app"
	"pairchat/internal/config"
	"pairchat/pkg/types"
)

// frame is an outbound server event as a client sees it
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// TestClient is a WebSocket chat client that collects every frame it receives
type TestClient struct {
	Nick string

	conn   *websocket.Conn
	frames chan frame
	done   chan struct{}

	writeMu sync.Mutex
}

// startServer runs a full relay on an ephemeral port and returns its base URL
func startServer(t *testing.T) (*app.Application, string) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Env = "test"
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = 0
	cfg.Database.Path = fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())

	application, err := app.NewApplication(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = application.Stop(ctx)
	})

	return application, "http://" + application.GetAddr()
}

// connect dials the relay and starts collecting frames
func connect(t *testing.T, serverURL, nick string) *TestClient {
	t.Helper()

	u, err := url.Parse(serverURL)
	require.NoError(t, err)
	u.Scheme = "ws"
	u.Path = "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	require.NoError(t, err)

	tc := &TestClient{
		Nick:   nick,
		conn:   conn,
		frames: make(chan frame, 256),
		done:   make(chan struct{}),
	}
	go tc.readLoop()
	t.Cleanup(tc.Close)
	return tc
}

func (tc *TestClient) readLoop() {
	defer close(tc.done)
	for {
		var f frame
		if err := tc.conn.ReadJSON(&f); err != nil {
			return
		}
		select {
		case tc.frames <- f:
		default:
			// Tests never receive more than the buffer holds
		}
	}
}

// Send writes one event frame
func (tc *TestClient) Send(t *testing.T, event string, data any) {
	t.Helper()
	tc.writeMu.Lock()
	defer tc.writeMu.Unlock()
	require.NoError(t, tc.conn.SetWriteDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, tc.conn.WriteJSON(types.NewFrame(event, data)))
}

// SendRaw writes an arbitrary text frame
func (tc *TestClient) SendRaw(t *testing.T, raw string) {
	t.Helper()
	tc.writeMu.Lock()
	defer tc.writeMu.Unlock()
	require.NoError(t, tc.conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

// Join sends a join and waits for the acknowledgement
func (tc *TestClient) Join(t *testing.T, room, key string) {
	t.Helper()
	req := types.JoinRequest{Room: room, Nick: tc.Nick}
	if key != "" {
		req.Key = key
	}
	tc.Send(t, types.EventJoin, req)
	tc.Expect(t, types.EventJoined)
}

// Expect waits for the next frame and requires its event name
func (tc *TestClient) Expect(t *testing.T, event string) json.RawMessage {
	t.Helper()
	select {
	case f := <-tc.frames:
		require.Equal(t, event, f.Event, "unexpected frame with data %s", f.Data)
		return f.Data
	case <-tc.done:
		t.Fatalf("%s disconnected while waiting for %s", tc.Nick, event)
	case <-time.After(3 * time.Second):
		t.Fatalf("%s timed out waiting for %s", tc.Nick, event)
	}
	return nil
}

// ExpectString waits for an event whose payload is a JSON string
func (tc *TestClient) ExpectString(t *testing.T, event string) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(tc.Expect(t, event), &s))
	return s
}

// ExpectMessage waits for a relayed chat message
func (tc *TestClient) ExpectMessage(t *testing.T) types.MessagePayload {
	t.Helper()
	var msg types.MessagePayload
	require.NoError(t, json.Unmarshal(tc.Expect(t, types.EventMsg), &msg))
	return msg
}

// ExpectSilence requires that no frame arrives within d
func (tc *TestClient) ExpectSilence(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case f := <-tc.frames:
		t.Fatalf("%s received unexpected %s frame: %s", tc.Nick, f.Event, f.Data)
	case <-time.After(d):
	}
}

// Close closes the connection; safe to call more than once
func (tc *TestClient) Close() {
	_ = tc.conn.Close()
}
