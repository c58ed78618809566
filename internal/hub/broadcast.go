package hub

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/cricstream/live-backend/internal/identity"
	"github.com/cricstream/live-backend/internal/types"
)

// scoringEvents maps admin-only client operations to the event fanned out to
// the match group.
var scoringEvents = map[string]string{
	types.OpUpdateScore:   types.EvtScoreUpdate,
	types.OpAddWicket:     types.EvtWicket,
	types.OpAddBoundary:   types.EvtBoundary,
	types.OpCompleteOver:  types.EvtOver,
	types.OpChangeStatus:  types.EvtStatusChange,
	types.OpAddCommentary: types.EvtCommentary,
}

// matchEvent delivers a scoring event to every member of the match group,
// the sender included if it joined the room. A non-admin request is dropped
// without any reply: the caller sees nothing happen.
func (h *Hub) matchEvent(m MatchEvent) {
	sender := h.conns[m.SenderID]
	if sender == nil || sender.Identity.Role != identity.RoleAdmin {
		h.log.Debug("dropping unauthorized match event",
			zap.String("conn", m.SenderID), zap.String("op", m.Op))
		return
	}
	kind, ok := scoringEvents[m.Op]
	if !ok {
		h.log.Debug("unknown match op", zap.String("op", m.Op))
		return
	}
	h.deliver(MatchGroup(m.MatchID), types.ServerEvent{
		Type:      kind,
		MatchID:   m.MatchID,
		Payload:   m.Payload,
		Timestamp: time.Now().UTC(),
	}, "")
}

// adminEvent delivers an admin:notification to every admin except the sender.
func (h *Hub) adminEvent(m AdminEvent) {
	sender := h.conns[m.SenderID]
	if sender == nil || sender.Identity.Role != identity.RoleAdmin {
		h.log.Debug("dropping unauthorized admin event", zap.String("conn", m.SenderID))
		return
	}
	h.deliver(GroupAdmins, types.ServerEvent{
		Type:      types.EvtNotification,
		Payload:   m.Payload,
		Timestamp: time.Now().UTC(),
	}, m.SenderID)
}

// emitPresence announces an admin coming online or going offline to the
// other admins. Runs after role groups are (un)assigned, so the subject is
// never in the audience.
func (h *Hub) emitPresence(kind string, c *Conn) {
	payload, err := json.Marshal(types.PresencePayload{
		ID:          c.Identity.ID,
		DisplayName: c.Identity.DisplayName,
	})
	if err != nil {
		return
	}
	h.deliver(GroupAdmins, types.ServerEvent{
		Type:      kind,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}, c.ID)
}

// deliver fans an event out to the group. An empty or missing group is a
// successful delivery to nobody. A member whose outbox is full is dropped
// after the sweep, like any other disconnect.
func (h *Hub) deliver(group string, ev types.ServerEvent, exclude string) {
	members := h.groups[group]
	if len(members) == 0 {
		return
	}

	var slow []string
	for id := range members {
		if id == exclude {
			continue
		}
		c := h.conns[id]
		if c == nil {
			continue
		}
		select {
		case c.Outbox <- ev:
		default:
			slow = append(slow, id)
		}
	}

	for _, id := range slow {
		h.log.Warn("dropping slow connection", zap.String("conn", id))
		h.unregister(id)
	}
}
