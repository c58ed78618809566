package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cricstream/live-backend/internal/hub"
	"github.com/cricstream/live-backend/internal/identity"
	"github.com/cricstream/live-backend/internal/types"
)

const (
	outboxSize   = 32
	writeTimeout = 3 * time.Second
	pingInterval = 30 * time.Second
)

// Handler authenticates the handshake and runs the connection's read and
// write pumps. A connection that fails authentication is rejected before the
// upgrade; no hub state is ever created for it.
func Handler(h *hub.Hub, resolver identity.Resolver, log *zap.Logger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credential := bearerCredential(r)
		if credential == "" {
			http.Error(w, "missing credentials", http.StatusUnauthorized)
			return
		}

		ident, err := resolver.Resolve(r.Context(), credential)
		if err != nil {
			if errors.Is(err, identity.ErrNoIdentity) {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			log.Error("identity lookup failed", zap.Error(err))
			http.Error(w, "identity lookup failed", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &hub.Conn{
			ID:       uuid.NewString(),
			Identity: ident,
			Outbox:   make(chan types.ServerEvent, outboxSize),
		}
		h.Inbox() <- hub.Register{Conn: c}
		defer func() { h.Inbox() <- hub.Unregister{ConnID: c.ID} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go writePump(writeCtx, conn, c.Outbox)

		readPump(r.Context(), conn, h, c, log)
	}
}

// bearerCredential takes the explicit token query parameter first, then an
// Authorization: Bearer header.
func bearerCredential(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found {
		return ""
	}
	return token
}

// writePump drains the outbox onto the socket and keeps the connection alive
// with pings. It exits when the hub closes the outbox, a write fails, or the
// request context ends.
func writePump(ctx context.Context, conn *websocket.Conn, outbox <-chan types.ServerEvent) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-outbox:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "server closing")
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// readPump parses client frames and forwards them to the hub. Malformed or
// unknown frames get a single error frame back; the connection stays open.
func readPump(ctx context.Context, conn *websocket.Conn, h *hub.Hub, c *hub.Conn, log *zap.Logger) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				log.Debug("read ended", zap.String("conn", c.ID), zap.Error(err))
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			writeError(ctx, conn, "bad json")
			continue
		}

		switch cm.Type {
		case types.OpJoinMatch:
			h.Inbox() <- hub.JoinMatch{ConnID: c.ID, MatchID: cm.MatchID}

		case types.OpLeaveMatch:
			h.Inbox() <- hub.LeaveMatch{ConnID: c.ID, MatchID: cm.MatchID}

		case types.OpAdminBroadcast:
			h.Inbox() <- hub.AdminEvent{SenderID: c.ID, Payload: cm.Payload}

		case types.OpUpdateScore, types.OpAddWicket, types.OpAddBoundary,
			types.OpCompleteOver, types.OpChangeStatus, types.OpAddCommentary:
			h.Inbox() <- hub.MatchEvent{SenderID: c.ID, MatchID: cm.MatchID, Op: cm.Type, Payload: cm.Payload}

		default:
			writeError(ctx, conn, "unknown type")
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerEvent{Type: types.EvtError, Error: msg})
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(writeCtx, websocket.MessageText, payload)
}
