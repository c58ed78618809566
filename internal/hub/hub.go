package hub

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/cricstream/live-backend/internal/identity"
	"github.com/cricstream/live-backend/internal/types"
)

// Group keys. Match groups are keyed "match:<id>".
const (
	GroupAdmins  = "admins"
	GroupEditors = "editors"
)

func MatchGroup(matchID string) string { return "match:" + matchID }

type Msg interface{ isHubMsg() }

// Conn is the hub's view of one live connection: the ws layer keeps the
// socket, the hub only ever touches the outbox.
type Conn struct {
	ID       string
	Identity identity.Identity
	Outbox   chan types.ServerEvent
}

type Register struct {
	Conn *Conn
}

type Unregister struct {
	ConnID string
}

type JoinMatch struct {
	ConnID  string
	MatchID string
}

type LeaveMatch struct {
	ConnID  string
	MatchID string
}

// MatchEvent is a scoring broadcast request from a connection. Authorization
// happens inside the hub, not at registration time.
type MatchEvent struct {
	SenderID string
	MatchID  string
	Op       string
	Payload  json.RawMessage
}

// AdminEvent is an admin:broadcast request, fanned out to the other admins.
type AdminEvent struct {
	SenderID string
	Payload  json.RawMessage
}

type GetView struct {
	Reply chan View
}

type Shutdown struct{}

func (Register) isHubMsg()   {}
func (Unregister) isHubMsg() {}
func (JoinMatch) isHubMsg()  {}
func (LeaveMatch) isHubMsg() {}
func (MatchEvent) isHubMsg() {}
func (AdminEvent) isHubMsg() {}
func (GetView) isHubMsg()    {}
func (Shutdown) isHubMsg()   {}

// View reflects hub state without data races; used by /stats and tests.
type View struct {
	Connections int            `json:"connections"`
	Groups      map[string]int `json:"groups"`
}

// Hub is the single owner of the connection registry and the group
// membership table. Every mutation and every fan-out runs on the hub
// goroutine, so a broadcast always iterates a consistent snapshot and a
// disconnect cannot corrupt an in-flight delivery.
type Hub struct {
	inbox  chan Msg
	conns  map[string]*Conn
	groups map[string]map[string]struct{}
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan Msg, 64),
		conns:  make(map[string]*Conn),
		groups: make(map[string]map[string]struct{}),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Register:
				h.register(msg.Conn)

			case Unregister:
				h.unregister(msg.ConnID)

			case JoinMatch:
				h.joinMatch(msg.ConnID, msg.MatchID)

			case LeaveMatch:
				h.leaveMatch(msg.ConnID, msg.MatchID)

			case MatchEvent:
				h.matchEvent(msg)

			case AdminEvent:
				h.adminEvent(msg)

			case GetView:
				msg.Reply <- h.view()

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) register(c *Conn) {
	h.conns[c.ID] = c

	// Role groups are fixed for the life of the connection.
	if c.Identity.Role == identity.RoleAdmin {
		h.addToGroup(GroupAdmins, c.ID)
	}
	if c.Identity.Role == identity.RoleAdmin || c.Identity.Role == identity.RoleEditor {
		h.addToGroup(GroupEditors, c.ID)
	}

	h.log.Info("connection registered",
		zap.String("conn", c.ID),
		zap.String("account", c.Identity.ID),
		zap.String("role", string(c.Identity.Role)))

	if c.Identity.Role == identity.RoleAdmin {
		h.emitPresence(types.EvtUserOnline, c)
	}
}

func (h *Hub) unregister(id string) {
	c := h.conns[id]
	if c == nil {
		return
	}
	delete(h.conns, id)

	for key, members := range h.groups {
		delete(members, id)
		if len(members) == 0 {
			delete(h.groups, key)
		}
	}

	h.log.Info("connection unregistered", zap.String("conn", id))

	if c.Identity.Role == identity.RoleAdmin {
		h.emitPresence(types.EvtUserOffline, c)
	}

	close(c.Outbox)
}

// joinMatch is idempotent; joining a group the connection is already in is a
// no-op, and any authenticated connection may join any match room.
func (h *Hub) joinMatch(connID, matchID string) {
	if h.conns[connID] == nil {
		return
	}
	h.addToGroup(MatchGroup(matchID), connID)
}

func (h *Hub) leaveMatch(connID, matchID string) {
	key := MatchGroup(matchID)
	members := h.groups[key]
	if members == nil {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.groups, key)
	}
}

func (h *Hub) addToGroup(key, connID string) {
	members := h.groups[key]
	if members == nil {
		members = make(map[string]struct{})
		h.groups[key] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) view() View {
	v := View{
		Connections: len(h.conns),
		Groups:      make(map[string]int, len(h.groups)),
	}
	for key, members := range h.groups {
		v.Groups[key] = len(members)
	}
	return v
}

func (h *Hub) shutdown() {
	for id, c := range h.conns {
		close(c.Outbox)
		delete(h.conns, id)
	}
	clear(h.groups)
	h.cancel()
}
