package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/pkg/types"
)

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestScenario_KeyedRoomLifecycle(t *testing.T) {
	_, base := startServer(t)

	alice := connect(t, base, "alice")
	bob := connect(t, base, "bob")
	carol := connect(t, base, "carol")

	alice.Send(t, types.EventJoin, types.JoinRequest{Room: "secret", Nick: "alice", Key: "k1"})
	var ack types.JoinedPayload
	require.NoError(t, json.Unmarshal(alice.Expect(t, types.EventJoined), &ack))
	assert.Equal(t, "alice joined room secret (key active)", ack.Msg)

	bob.Send(t, types.EventJoin, types.JoinRequest{Room: "secret", Nick: "bob", Key: "wrong"})
	assert.Equal(t, types.ReasonKeyMismatch, bob.ExpectString(t, types.EventJoinError))

	bob.Send(t, types.EventJoin, types.JoinRequest{Room: "secret", Nick: "bob"})
	assert.Equal(t, types.ReasonKeyMismatch, bob.ExpectString(t, types.EventJoinError))

	bob.Join(t, "secret", "k1")
	assert.Equal(t, "bob", alice.ExpectString(t, types.EventPeerJoined))

	carol.Send(t, types.EventJoin, types.JoinRequest{Room: "secret", Nick: "carol", Key: "k1"})
	assert.Equal(t, types.ReasonRoomFull, carol.ExpectString(t, types.EventJoinError))

	// Refusals leave the room untouched
	bob.Send(t, types.EventMsg, types.MessageRequest{Room: "secret", Text: "still here"})
	assert.Equal(t, "still here", alice.ExpectMessage(t).Text)
	alice.ExpectSilence(t, 100*time.Millisecond)
}

func TestScenario_RoomReusedAfterEmptying(t *testing.T) {
	_, base := startServer(t)

	alice := connect(t, base, "alice")
	bob := connect(t, base, "bob")
	alice.Join(t, "lobby", "")
	bob.Join(t, "lobby", "")
	alice.Expect(t, types.EventPeerJoined)

	bob.Close()
	assert.Equal(t, "bob", alice.ExpectString(t, types.EventPeerLeft))

	// A key cannot be added while the room is open
	dave := connect(t, base, "dave")
	dave.Send(t, types.EventJoin, types.JoinRequest{Room: "lobby", Nick: "dave", Key: "late"})
	assert.Equal(t, types.ReasonUnexpectedKey, dave.ExpectString(t, types.EventJoinError))

	alice.Close()

	// Once empty the room is destroyed and the name is free, key included
	require.Eventually(t, func() bool {
		var stats types.Stats
		getJSON(t, base+"/api/stats", &stats)
		return stats.Rooms == 0
	}, 2*time.Second, 20*time.Millisecond)

	dave.Send(t, types.EventJoin, types.JoinRequest{Room: "lobby", Nick: "dave", Key: "late"})
	var ack types.JoinedPayload
	require.NoError(t, json.Unmarshal(dave.Expect(t, types.EventJoined), &ack))
	assert.Contains(t, ack.Msg, "(key active)")
}

func TestScenario_Throttling(t *testing.T) {
	_, base := startServer(t)

	alice := connect(t, base, "alice")
	bob := connect(t, base, "bob")
	alice.Join(t, "fast", "")
	bob.Join(t, "fast", "")
	alice.Expect(t, types.EventPeerJoined)

	for i := 0; i < 9; i++ {
		alice.Send(t, types.EventMsg, types.MessageRequest{Room: "fast", Text: fmt.Sprintf("m%d", i)})
	}

	for i := 0; i < 8; i++ {
		assert.Equal(t, fmt.Sprintf("m%d", i), bob.ExpectMessage(t).Text)
	}
	assert.Equal(t, types.NoticeThrottled, alice.ExpectString(t, types.EventInfo))
	bob.ExpectSilence(t, 150*time.Millisecond)

	// Typing is never throttled
	alice.Send(t, types.EventTyping, "fast")
	assert.Equal(t, "alice", bob.ExpectString(t, types.EventTyping))

	// The peer has its own window
	bob.Send(t, types.EventMsg, types.MessageRequest{Room: "fast", Text: "my turn"})
	assert.Equal(t, "my turn", alice.ExpectMessage(t).Text)
}

func TestScenario_HostileInput(t *testing.T) {
	_, base := startServer(t)

	alice := connect(t, base, "alice")
	bob := connect(t, base, "bob")

	alice.SendRaw(t, "not json")
	alice.SendRaw(t, `{"event":"joined","data":{"msg":"forged"}}`)
	alice.SendRaw(t, `{"event":"msg","data":"nope"}`)
	alice.Send(t, types.EventJoin, map[string]any{"room": 42, "nick": "alice"})
	assert.Equal(t, types.ReasonInvalidParameters, alice.ExpectString(t, types.EventJoinError))

	alice.Send(t, types.EventJoin, types.JoinRequest{Room: "<b>x</b>", Nick: "<alice>"})
	var ack types.JoinedPayload
	require.NoError(t, json.Unmarshal(alice.Expect(t, types.EventJoined), &ack))
	assert.Equal(t, "alice joined room bx/b", ack.Msg)

	bob.Join(t, "bx/b", "")
	assert.Equal(t, "alice", alice.ExpectString(t, types.EventPeerJoined))

	alice.Send(t, types.EventMsg, types.MessageRequest{Room: "bx/b", Text: "<script>hi</script>"})
	assert.Equal(t, "scripthi/script", bob.ExpectMessage(t).Text)

	// A second join on a bound connection is refused
	alice.Send(t, types.EventJoin, types.JoinRequest{Room: "other", Nick: "alice"})
	assert.Equal(t, types.ReasonAlreadyJoined, alice.ExpectString(t, types.EventJoinError))

	// Events naming another room never cross over
	alice.Send(t, types.EventMsg, types.MessageRequest{Room: "other", Text: "leak"})
	bob.ExpectSilence(t, 150*time.Millisecond)
}

func TestScenario_ManyConcurrentPairs(t *testing.T) {
	_, base := startServer(t)

	const pairs = 20
	var wg sync.WaitGroup
	clients := make([][2]*TestClient, pairs)
	for i := 0; i < pairs; i++ {
		clients[i] = [2]*TestClient{
			connect(t, base, fmt.Sprintf("a%d", i)),
			connect(t, base, fmt.Sprintf("b%d", i)),
		}
	}

	// Joins run concurrently across rooms; within a room a joins first
	errs := make(chan error, pairs)
	for i := 0; i < pairs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room := fmt.Sprintf("room-%d", i)
			a, b := clients[i][0], clients[i][1]

			if err := a.conn.WriteJSON(types.NewFrame(types.EventJoin, types.JoinRequest{Room: room, Nick: a.Nick})); err != nil {
				errs <- err
				return
			}
			select {
			case f := <-a.frames:
				if f.Event != types.EventJoined {
					errs <- fmt.Errorf("%s: got %s", a.Nick, f.Event)
					return
				}
			case <-time.After(3 * time.Second):
				errs <- fmt.Errorf("%s: join timed out", a.Nick)
				return
			}
			if err := b.conn.WriteJSON(types.NewFrame(types.EventJoin, types.JoinRequest{Room: room, Nick: b.Nick})); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for i := 0; i < pairs; i++ {
		a, b := clients[i][0], clients[i][1]
		b.Expect(t, types.EventJoined)
		assert.Equal(t, b.Nick, a.ExpectString(t, types.EventPeerJoined))
	}

	var stats types.Stats
	getJSON(t, base+"/api/stats", &stats)
	assert.Equal(t, types.Stats{Rooms: pairs, Members: 2 * pairs, Connections: 2 * pairs}, stats)

	for i := 0; i < pairs; i++ {
		a := clients[i][0]
		a.Send(t, types.EventMsg, types.MessageRequest{Room: fmt.Sprintf("room-%d", i), Text: a.Nick})
	}
	for i := 0; i < pairs; i++ {
		msg := clients[i][1].ExpectMessage(t)
		assert.Equal(t, clients[i][0].Nick, msg.Nick, "messages stay inside their room")
		assert.Equal(t, clients[i][0].Nick, msg.Text)
	}
}

func TestScenario_AuditTrail(t *testing.T) {
	_, base := startServer(t)

	alice := connect(t, base, "alice")
	bob := connect(t, base, "bob")
	alice.Join(t, "audited", "k")
	bob.Send(t, types.EventJoin, types.JoinRequest{Room: "audited", Nick: "bob", Key: "bad"})
	bob.Expect(t, types.EventJoinError)
	alice.Close()

	var events struct {
		Events []types.AuditEvent `json:"events"`
	}
	require.Eventually(t, func() bool {
		getJSON(t, base+"/api/events?limit=10", &events)
		return len(events.Events) >= 4
	}, 2*time.Second, 20*time.Millisecond)

	kinds := map[string]int{}
	for _, evt := range events.Events {
		assert.Equal(t, "audited", evt.RoomID)
		kinds[evt.Event]++
	}
	assert.Equal(t, 1, kinds[types.AuditRoomCreated])
	assert.Equal(t, 1, kinds[types.AuditJoinAccepted])
	assert.Equal(t, 1, kinds[types.AuditJoinRefused])
	assert.Equal(t, 1, kinds[types.AuditRoomDestroyed])
	// Newest first
	assert.Equal(t, types.AuditRoomDestroyed, events.Events[0].Event)
}
