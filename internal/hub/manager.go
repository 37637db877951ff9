package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"Planora/internal/access"
	"Planora/internal/event"
	"Planora/internal/model"
	"Planora/internal/repo"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

type inboundMessage struct {
	event  event.WsEvent
	client *Client
}

type roomBucket struct {
	sync.RWMutex
	rooms map[string]map[string]*Client
}

// NotificationMarker is the slice of the notification service the hub
// invokes for mark_notification_read submissions. Set after construction
// to break the service -> hub -> service cycle.
type NotificationMarker interface {
	MarkRead(ctx context.Context, notificationID, recipientID string, isRead bool, excludeSessionID string) (*model.Notification, error)
}

// Hub owns every live websocket session and the project rooms they join.
// Rooms are sharded by project id; membership and delivery are independent
// per room, so no global lock is held during fan-out.
type Hub struct {
	shards     [shardCount]*roomBucket
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage

	// sessions by actor: an actor may hold several concurrent sessions
	sessions   map[string]map[string]*Client
	sessionsMu sync.RWMutex

	validator   *access.Validator
	actorRepo   repo.ActorRepository
	messageRepo repo.MessageRepository

	notifierMu sync.RWMutex
	notifier   NotificationMarker

	presence *PresenceTracker
	typing   *TypingTracker

	upgrader websocket.Upgrader

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(validator *access.Validator, actorRepo repo.ActorRepository, messageRepo repo.MessageRepository, allowedOrigins []string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		register:    make(chan *Client, 1024),
		unregister:  make(chan *Client, 1024),
		inbound:     make(chan inboundMessage, 4096), // buffer for burst handling
		sessions:    make(map[string]map[string]*Client),
		validator:   validator,
		actorRepo:   actorRepo,
		messageRepo: messageRepo,
		ctx:         ctx,
		cancel:      cancel,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &roomBucket{
			rooms: make(map[string]map[string]*Client),
		}
	}

	h.presence = NewPresenceTracker(h)
	h.typing = NewTypingTracker(h.fanOutTyping)

	// run manager loop
	go h.run()

	// start worker loop
	for i := 0; i < workerPoolSize; i++ {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in, ok := <-h.inbound:
					if !ok {
						return
					}

					h.handleEvent(in.event, in.client)
				}
			}
		}()
	}

	return h
}

// SetNotificationMarker wires the notification service in after both
// sides exist.
func (h *Hub) SetNotificationMarker(n NotificationMarker) {
	h.notifierMu.Lock()
	h.notifier = n
	h.notifierMu.Unlock()
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

// -----------------------------------------------------------------
// Inbound event routing
// -----------------------------------------------------------------

func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	switch ev.Event {
	case event.EventJoinProject:
		h.handleJoin(ev, c)
	case event.EventLeaveProject:
		h.handleLeave(ev, c)
	case event.EventTyping:
		h.handleTyping(ev, c, true)
	case event.EventStopTyping:
		h.handleTyping(ev, c, false)
	case event.EventSendMessage:
		h.handleSendMessage(ev, c)
	case event.EventMarkNotificationRead:
		h.handleMarkNotificationRead(ev, c)
	case event.EventProjectUpdate:
		h.handleBroadcastSubmission(ev, c, event.EventProjectUpdated)
	case event.EventTaskUpdate:
		h.handleBroadcastSubmission(ev, c, event.EventTaskUpdated)
	case event.EventFileUploaded:
		h.handleBroadcastSubmission(ev, c, event.EventNewFile)
	default:
		log.Printf("unknown event type: %s", ev.Event)
	}
}

func (h *Hub) handleJoin(ev event.WsEvent, c *Client) {
	var payload event.RoomPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.ProjectID == "" {
		h.sendError(c, event.ErrCodeBadPayload, "join_project requires a projectId")
		return
	}

	// Authorization gate: the room itself trusts membership, so nothing
	// may enter without a fresh read check.
	if !h.validator.ValidatePermission(h.ctx, c.Identity(), payload.ProjectID, access.ActionRead) {
		h.sendError(c, event.ErrCodeForbidden, "no access to project "+payload.ProjectID)
		return
	}

	h.joinRoom(c, payload.ProjectID)
}

func (h *Hub) handleLeave(ev event.WsEvent, c *Client) {
	var payload event.RoomPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.ProjectID == "" {
		h.sendError(c, event.ErrCodeBadPayload, "leave_project requires a projectId")
		return
	}

	h.leaveRoom(c, payload.ProjectID)
}

func (h *Hub) handleTyping(ev event.WsEvent, c *Client, isTyping bool) {
	var payload event.TypingPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.ProjectID == "" {
		h.sendError(c, event.ErrCodeBadPayload, "typing events require a projectId")
		return
	}

	if !c.InRoom(payload.ProjectID) {
		h.sendError(c, event.ErrCodeForbidden, "not joined to project "+payload.ProjectID)
		return
	}

	if isTyping {
		h.typing.StartTyping(c.actorID, payload.ProjectID)
	} else {
		h.typing.StopTyping(c.actorID, payload.ProjectID)
	}
}

func (h *Hub) handleSendMessage(ev event.WsEvent, c *Client) {
	var payload event.MessagePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.ProjectID == "" {
		h.sendError(c, event.ErrCodeBadPayload, "send_message requires a projectId")
		return
	}

	if !c.InRoom(payload.ProjectID) {
		h.sendError(c, event.ErrCodeForbidden, "not joined to project "+payload.ProjectID)
		return
	}

	projectOID, err := primitive.ObjectIDFromHex(payload.ProjectID)
	if err != nil {
		h.sendError(c, event.ErrCodeBadPayload, "malformed projectId")
		return
	}

	now := time.Now()
	msg := &model.Message{
		MessageID: uuid.New().String(),
		ProjectID: projectOID,
		SenderID:  c.actorID,
		Body:      payload.Body,
		FileURL:   payload.FileURL,
		ReplyTo:   payload.ReplyTo,
		Mentions:  payload.Mentions,
		CreatedAt: now,
	}

	// Durability first; fan-out stays best-effort.
	if _, err := h.messageRepo.InsertMessage(h.ctx, msg); err != nil {
		log.Printf("failed to persist message from %s: %v", c.actorID, err)
		h.sendError(c, event.ErrCodeInternal, "message not delivered")
		return
	}

	payload.SenderID = c.actorID
	payload.Timestamp = now.Unix()
	out, _ := json.Marshal(payload)
	h.publishToRoom(event.WsEvent{Event: event.EventNewMessage, Payload: out}, payload.ProjectID, c.ID)
}

func (h *Hub) handleMarkNotificationRead(ev event.WsEvent, c *Client) {
	var payload event.NotificationReadPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.NotificationID == "" {
		h.sendError(c, event.ErrCodeBadPayload, "mark_notification_read requires a notificationId")
		return
	}

	h.notifierMu.RLock()
	notifier := h.notifier
	h.notifierMu.RUnlock()
	if notifier == nil {
		h.sendError(c, event.ErrCodeInternal, "notifications unavailable")
		return
	}

	if _, err := notifier.MarkRead(h.ctx, payload.NotificationID, c.actorID, payload.IsRead, c.ID); err != nil {
		h.sendError(c, event.ErrCodeInternal, "failed to update notification")
	}
}

// handleBroadcastSubmission relays project_update / task_update /
// file_uploaded to the rest of the room after a write check: submitting a
// change event is a mutation claim, so read access is not enough.
func (h *Hub) handleBroadcastSubmission(ev event.WsEvent, c *Client, outEvent string) {
	var payload event.UpdatePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.ProjectID == "" {
		h.sendError(c, event.ErrCodeBadPayload, ev.Event+" requires a projectId")
		return
	}

	if !h.validator.ValidatePermission(h.ctx, c.Identity(), payload.ProjectID, access.ActionWrite) {
		h.sendError(c, event.ErrCodeForbidden, "no write access to project "+payload.ProjectID)
		return
	}

	payload.ActorID = c.actorID
	payload.Timestamp = time.Now().Unix()
	out, _ := json.Marshal(payload)
	h.publishToRoom(event.WsEvent{Event: outEvent, Payload: out}, payload.ProjectID, c.ID)
}

func (h *Hub) sendError(c *Client, code, message string) {
	payload, _ := json.Marshal(event.ErrorPayload{Code: code, Message: message})
	c.SafeSend(event.WsEvent{Event: event.EventError, Payload: payload}, sendTimeout)
}

// -----------------------------------------------------------------
// Room membership
// -----------------------------------------------------------------

func getShard(projectID string) uint32 {
	if projectID == "" {
		return 0
	}

	h := sha1.Sum([]byte(projectID))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

func (h *Hub) joinRoom(c *Client, projectID string) {
	sh := getShard(projectID)
	b := h.shards[sh]
	b.Lock()
	defer b.Unlock()

	room, ok := b.rooms[projectID]
	if !ok {
		room = make(map[string]*Client)
		b.rooms[projectID] = room
	}

	room[c.ID] = c
	c.trackRoom(projectID)
	log.Printf("client %s joined project %s (shard %d)", c.ID, projectID, sh)
}

func (h *Hub) leaveRoom(c *Client, projectID string) {
	sh := getShard(projectID)
	b := h.shards[sh]
	b.Lock()
	defer b.Unlock()

	if room, ok := b.rooms[projectID]; ok {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(b.rooms, projectID)
		}
	}

	c.untrackRoom(projectID)
	h.typing.StopTyping(c.actorID, projectID)
}

// EvictFromRoom forcibly detaches every session of an actor from a
// project's room. Called when the actor loses membership (manager removed
// from a project) so a stale subscription cannot outlive its grant.
func (h *Hub) EvictFromRoom(projectID, actorID string) {
	sh := getShard(projectID)
	b := h.shards[sh]

	b.Lock()
	var evicted []*Client
	if room, ok := b.rooms[projectID]; ok {
		for id, member := range room {
			if member.actorID == actorID {
				delete(room, id)
				evicted = append(evicted, member)
			}
		}
		if len(room) == 0 {
			delete(b.rooms, projectID)
		}
	}
	b.Unlock()

	for _, member := range evicted {
		member.untrackRoom(projectID)
	}
	if len(evicted) > 0 {
		h.typing.StopTyping(actorID, projectID)
		log.Printf("evicted actor %s from project %s (%d sessions)", actorID, projectID, len(evicted))
	}
}

// -----------------------------------------------------------------
// Delivery
// -----------------------------------------------------------------

// publishToRoom delivers an event to every session in the room except
// excludeSessionID. Delivery is at-most-once: a full egress buffer means
// the event is dropped for that session (or the session is kicked).
func (h *Hub) publishToRoom(ev event.WsEvent, projectID string, excludeSessionID string) {
	sh := getShard(projectID)
	b := h.shards[sh]

	// collect clients while holding RLock
	b.RLock()
	room, ok := b.rooms[projectID]
	if !ok || len(room) == 0 {
		b.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room))
	for id, c := range room {
		if id == excludeSessionID {
			continue
		}
		clients = append(clients, c)
	}
	b.RUnlock()

	// deliver to clients without holding lock
	for _, c := range clients {
		select {
		case c.egress <- ev:
			// enqueued
		case <-time.After(sendTimeout):
			// egress full -> apply policy
			log.Printf("egress full for client %s in project %s", c.ID, projectID)
			if kickOnFull {
				h.unregister <- c
			}
		}
	}
}

// fanOutTyping delivers a typing transition to the project room, skipping
// the typing actor's own sessions.
func (h *Hub) fanOutTyping(p event.TypingPayload) {
	payload, _ := json.Marshal(p)
	ev := event.WsEvent{Event: event.EventUserTyping, Payload: payload}

	sh := getShard(p.ProjectID)
	b := h.shards[sh]

	b.RLock()
	room := b.rooms[p.ProjectID]
	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		if c.actorID == p.ActorID {
			continue
		}
		clients = append(clients, c)
	}
	b.RUnlock()

	for _, c := range clients {
		c.SafeSend(ev, sendTimeout)
	}
}

// SendToActor delivers an event to every live session of an actor.
// Returns true if at least one session accepted it.
func (h *Hub) SendToActor(actorID string, ev event.WsEvent) bool {
	return h.sendToActorExcept(actorID, "", ev)
}

// SendToActorExcept delivers to all of an actor's sessions but one; used
// to mirror state changes to the sessions that did not originate them.
func (h *Hub) SendToActorExcept(actorID, excludeSessionID string, ev event.WsEvent) bool {
	return h.sendToActorExcept(actorID, excludeSessionID, ev)
}

func (h *Hub) sendToActorExcept(actorID, excludeSessionID string, ev event.WsEvent) bool {
	h.sessionsMu.RLock()
	clients := make([]*Client, 0, len(h.sessions[actorID]))
	for id, c := range h.sessions[actorID] {
		if id == excludeSessionID {
			continue
		}
		clients = append(clients, c)
	}
	h.sessionsMu.RUnlock()

	delivered := false
	for _, c := range clients {
		if c.SafeSend(ev, sendTimeout) {
			delivered = true
		}
	}
	return delivered
}

// broadcastAll delivers an event to every live session.
func (h *Hub) broadcastAll(ev event.WsEvent) {
	h.sessionsMu.RLock()
	clients := make([]*Client, 0, len(h.sessions))
	for _, byActor := range h.sessions {
		for _, c := range byActor {
			clients = append(clients, c)
		}
	}
	h.sessionsMu.RUnlock()

	for _, c := range clients {
		c.SafeSend(ev, sendTimeout)
	}
}

// IsActorConnected reports whether the actor has at least one live
// session.
func (h *Hub) IsActorConnected(actorID string) bool {
	h.sessionsMu.RLock()
	defer h.sessionsMu.RUnlock()
	return len(h.sessions[actorID]) > 0
}

// -----------------------------------------------------------------
// Session lifecycle
// -----------------------------------------------------------------

func (h *Hub) addClient(c *Client) {
	h.sessionsMu.Lock()
	byActor, ok := h.sessions[c.actorID]
	if !ok {
		byActor = make(map[string]*Client)
		h.sessions[c.actorID] = byActor
	}
	byActor[c.ID] = c
	h.sessionsMu.Unlock()

	h.presence.OnConnect(c.actorID)
}

func (h *Hub) removeClient(c *Client) {
	// detach from every room the session joined
	for _, projectID := range c.joinedRooms() {
		h.leaveRoom(c, projectID)
	}

	h.sessionsMu.Lock()
	lastSession := false
	if byActor, ok := h.sessions[c.actorID]; ok {
		if _, exists := byActor[c.ID]; exists {
			delete(byActor, c.ID)
		}
		if len(byActor) == 0 {
			delete(h.sessions, c.actorID)
			lastSession = true
		}
	}
	h.sessionsMu.Unlock()

	c.Close()
	log.Printf("client %s removed for actor %s", c.ID, c.actorID)

	if lastSession {
		h.typing.StopAllForActor(c.actorID)
		h.presence.OnDisconnect(c.actorID)
	}
}

func (h *Hub) Stop() {
	h.cancel()
	h.typing.Stop()

	h.sessionsMu.RLock()
	for _, byActor := range h.sessions {
		for _, client := range byActor {
			client.Close()
		}
	}
	h.sessionsMu.RUnlock()

	close(h.inbound)
	h.wg.Wait()
}

// -----------------------------------------------------------------
// Handshake
// -----------------------------------------------------------------

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if origin == a {
				return true
			}
		}
		return false
	}
}

// ServeWS authenticates the handshake and upgrades the connection. The
// surrounding session already established identity, so the handshake only
// carries {token, actorId, role}; an unknown or inactive actor is rejected
// before the upgrade.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	actorID := r.URL.Query().Get("actorId")
	if actorID == "" {
		actorID = r.URL.Query().Get("token")
	}
	roleStr := r.URL.Query().Get("role")

	if actorID == "" || roleStr == "" {
		http.Error(w, "actorId and role are required", http.StatusUnauthorized)
		return
	}

	role, err := model.ParseRole(roleStr)
	if err != nil {
		http.Error(w, "unknown role", http.StatusUnauthorized)
		return
	}

	actor, err := h.actorRepo.GetActor(r.Context(), actorID)
	if err != nil {
		http.Error(w, "actor lookup failed", http.StatusInternalServerError)
		return
	}
	if actor == nil || !actor.IsActive {
		http.Error(w, "unknown or inactive actor", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	RegisterClient(model.Identity{ActorID: actorID, Role: role}, conn, h)
}
