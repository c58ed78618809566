package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cricstream/live-backend/internal/httpapi"
	"github.com/cricstream/live-backend/internal/hub"
	"github.com/cricstream/live-backend/internal/identity"
	"github.com/cricstream/live-backend/internal/types"
)

type fakeResolver struct {
	identities map[string]identity.Identity
}

func (f *fakeResolver) Resolve(_ context.Context, credential string) (identity.Identity, error) {
	id, ok := f.identities[credential]
	if !ok {
		return identity.Identity{}, identity.ErrNoIdentity
	}
	return id, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	resolver := &fakeResolver{identities: map[string]identity.Identity{
		"admin-token":  {ID: "u1", DisplayName: "Asha", Role: identity.RoleAdmin},
		"viewer-token": {ID: "u2", DisplayName: "Vik", Role: identity.RoleViewer},
	}}

	h := hub.New(ctx, zap.NewNop())
	srv := httptest.NewServer(httpapi.SetupRoutes(h, resolver, zap.NewNop(), nil))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL+"/ws?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func recvFrame(t *testing.T, conn *websocket.Conn, within time.Duration) types.ServerEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var ev types.ServerEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

// waitForGroup polls /stats until the group reaches the wanted member count.
func waitForGroup(t *testing.T, srv *httptest.Server, group string, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(srv.URL + "/stats")
		require.NoError(t, err)

		var v hub.View
		err = json.NewDecoder(resp.Body).Decode(&v)
		resp.Body.Close()
		require.NoError(t, err)

		if v.Groups[group] == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("group %s never reached %d members", group, want)
}

func TestHandler_RejectsMissingCredential(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, srv.URL+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_RejectsUnknownCredential(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, srv.URL+"/ws?token=expired-or-inactive", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// No hub state was created for the rejected attempt.
	statsResp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer statsResp.Body.Close()

	var v hub.View
	require.NoError(t, json.NewDecoder(statsResp.Body).Decode(&v))
	assert.Zero(t, v.Connections)
}

func TestHandler_ScoreUpdate_EndToEnd(t *testing.T) {
	srv := newTestServer(t)

	admin := dial(t, srv, "admin-token")
	viewer := dial(t, srv, "viewer-token")

	send(t, admin, types.ClientMessage{Type: types.OpJoinMatch, MatchID: "42"})
	send(t, viewer, types.ClientMessage{Type: types.OpJoinMatch, MatchID: "42"})
	waitForGroup(t, srv, hub.MatchGroup("42"), 2)

	send(t, admin, types.ClientMessage{
		Type:    types.OpUpdateScore,
		MatchID: "42",
		Payload: json.RawMessage(`{"runs":4}`),
	})

	for name, conn := range map[string]*websocket.Conn{"viewer": viewer, "admin": admin} {
		ev := recvFrame(t, conn, 3*time.Second)
		require.Equal(t, types.EvtScoreUpdate, ev.Type, "recipient %s", name)
		assert.Equal(t, "42", ev.MatchID)
		assert.False(t, ev.Timestamp.IsZero())

		var payload map[string]int
		require.NoError(t, json.Unmarshal(ev.Payload, &payload))
		assert.Equal(t, 4, payload["runs"])
	}
}

func TestHandler_ViewerScoringOp_NothingHappens(t *testing.T) {
	srv := newTestServer(t)

	viewer := dial(t, srv, "viewer-token")
	send(t, viewer, types.ClientMessage{Type: types.OpJoinMatch, MatchID: "42"})
	waitForGroup(t, srv, hub.MatchGroup("42"), 1)

	send(t, viewer, types.ClientMessage{
		Type:    types.OpUpdateScore,
		MatchID: "42",
		Payload: json.RawMessage(`{"runs":6}`),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, _, err := viewer.Read(ctx)
	require.Error(t, err, "expected no frame for an unauthorized scoring op")
}

func TestHandler_UnknownType_ErrorFrame(t *testing.T) {
	srv := newTestServer(t)

	viewer := dial(t, srv, "viewer-token")
	send(t, viewer, types.ClientMessage{Type: "no:such:op"})

	ev := recvFrame(t, viewer, 3*time.Second)
	require.Equal(t, types.EvtError, ev.Type)
	assert.Equal(t, "unknown type", ev.Error)
}

func TestHandler_BadJSON_ErrorFrame(t *testing.T) {
	srv := newTestServer(t)

	viewer := dial(t, srv, "viewer-token")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, viewer.Write(ctx, websocket.MessageText, []byte("{not json")))

	ev := recvFrame(t, viewer, 3*time.Second)
	require.Equal(t, types.EvtError, ev.Type)
	assert.Equal(t, "bad json", ev.Error)
}

func TestHandler_Disconnect_CleansUpMembership(t *testing.T) {
	srv := newTestServer(t)

	viewer := dial(t, srv, "viewer-token")
	send(t, viewer, types.ClientMessage{Type: types.OpJoinMatch, MatchID: "7"})
	waitForGroup(t, srv, hub.MatchGroup("7"), 1)

	viewer.Close(websocket.StatusNormalClosure, "")
	waitForGroup(t, srv, hub.MatchGroup("7"), 0)
}
