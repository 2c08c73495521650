package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"team-chat-service/internal/auth"
	"team-chat-service/internal/observability"
	"team-chat-service/internal/repositories"
)

// Gateway terminates realtime connections: presence, channel fan-out and
// call signaling all run over a single socket per client.
type Gateway struct {
	hub      *Hub
	registry *Registry
	relay    *CallRelay
	users    repositories.UserRepository
	channels repositories.ChannelRepository
	messages repositories.MessageRepository
	tokens   *auth.TokenManager
}

func NewGateway(hub *Hub, registry *Registry, relay *CallRelay, users repositories.UserRepository, channels repositories.ChannelRepository, messages repositories.MessageRepository, tokens *auth.TokenManager) *Gateway {
	return &Gateway{
		hub:      hub,
		registry: registry,
		relay:    relay,
		users:    users,
		channels: channels,
		messages: messages,
		tokens:   tokens,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, authenticates it and runs the read loop
// until the peer goes away.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("team-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	userID, username, err := g.tokens.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		Username:    username,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}

	client := newClient(info.ConnID, conn)
	client.identify(userID, username)
	g.hub.Register(client)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.gateway", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload(info, "ws_connect", 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	pumpCtx, cancel := context.WithCancel(context.Background())
	go client.writePump(pumpCtx)

	go func() {
		var closeReason string
		defer func() {
			cancel()
			g.disconnect(client)
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			_ = observability.PublishEvent(ctx, "ws_events.gateway", observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   wsEventPayload(info, "ws_disconnect", time.Since(info.ConnectedAt).Milliseconds(), closeReason),
			}, observability.BuildHeaders(requestID, traceID))
			client.Close()
		}()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
				}
				return
			}
			var env Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				g.sendError(client, "malformed frame")
				continue
			}
			g.dispatch(client, env)
		}
	}()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

func (g *Gateway) dispatch(client *Client, env Envelope) {
	observability.IncWSEvent(env.Event)
	switch env.Event {
	case EventUserJoin:
		g.handleUserJoin(client)
	case EventChannelJoin:
		g.handleChannelJoin(client, env.Data)
	case EventChannelLeave:
		g.handleChannelLeave(client, env.Data)
	case EventMessageSend:
		g.handleMessageSend(client, env.Data)
	case EventTypingStart:
		g.handleTyping(client, env.Data, EventTypingStart)
	case EventTypingStop:
		g.handleTyping(client, env.Data, EventTypingStop)
	case EventCallOffer:
		g.handleCallOffer(client, env.Data)
	case EventCallAnswer:
		g.handleCallAnswer(client, env.Data)
	case EventCallCandidate:
		g.handleCallCandidate(client, env.Data)
	case EventCallDecline:
		g.handleCallDecline(client, env.Data)
	case EventCallEnd:
		g.handleCallEnd(client, env.Data)
	case EventFriendRequestSent, EventFriendRequestAccepted, EventFriendRequestRejected, EventDMSend, EventDMRead:
		g.handleUserPing(client, env.Event, env.Data)
	default:
		g.sendError(client, "unknown event: "+env.Event)
	}
}

// handleUserJoin registers the connection as a live presence for the
// authenticated user. The registry keys by connection, so a second tab is
// a second entry; the identity always comes from the verified token.
func (g *Gateway) handleUserJoin(client *Client) {
	g.registry.Join(client.ID(), client.UserID())
	g.hub.BindUser(client.UserID(), client)
	if err := g.users.SetOnline(context.Background(), client.UserID()); err != nil {
		log.Printf("ws: mark online user %d: %v", client.UserID(), err)
	}
	g.broadcastOnline()
}

func (g *Gateway) handleChannelJoin(client *Client, data json.RawMessage) {
	var p ChannelPayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.sendError(client, "malformed channel payload")
		return
	}
	member, err := g.channels.IsMember(context.Background(), p.ChannelID, client.UserID())
	if err != nil || !member {
		g.sendError(client, "not a channel member")
		return
	}
	g.hub.JoinRoom(p.ChannelID, client)
}

func (g *Gateway) handleChannelLeave(client *Client, data json.RawMessage) {
	var p ChannelPayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.sendError(client, "malformed channel payload")
		return
	}
	g.hub.LeaveRoom(p.ChannelID, client)
}

// handleMessageSend persists the message first and fans out only after the
// insert succeeds, so every broadcast frame is already durable.
func (g *Gateway) handleMessageSend(client *Client, data json.RawMessage) {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.sendError(client, "malformed message payload")
		return
	}
	if p.Content == "" {
		g.sendError(client, "empty message")
		return
	}
	msg, err := g.messages.CreateMessage(context.Background(), p.ChannelID, client.UserID(), p.Content)
	if err != nil {
		log.Printf("ws: persist message channel %d: %v", p.ChannelID, err)
		g.sendError(client, "message could not be saved")
		return
	}
	if err := g.hub.BroadcastToRoom(p.ChannelID, EventMessageNew, msg); err != nil {
		log.Printf("ws: broadcast channel %d: %v", p.ChannelID, err)
	}
}

func (g *Gateway) handleTyping(client *Client, data json.RawMessage, event string) {
	var p TypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.sendError(client, "malformed typing payload")
		return
	}
	_ = g.hub.RelayToRoom(p.ChannelID, client, event, TypingEvent{Username: client.Username()})
}

func (g *Gateway) handleCallOffer(client *Client, data json.RawMessage) {
	var p CallOfferPayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.sendError(client, "malformed call payload")
		return
	}
	p.From = client.UserID()
	if err := g.relay.Offer(p); err != nil {
		log.Printf("ws: relay offer to %d: %v", p.To, err)
	}
}

func (g *Gateway) handleCallAnswer(client *Client, data json.RawMessage) {
	var p CallAnswerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.sendError(client, "malformed call payload")
		return
	}
	p.From = client.UserID()
	if err := g.relay.Answer(p); err != nil {
		log.Printf("ws: relay answer to %d: %v", p.To, err)
	}
}

func (g *Gateway) handleCallCandidate(client *Client, data json.RawMessage) {
	var p CallCandidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.sendError(client, "malformed call payload")
		return
	}
	if err := g.relay.Candidate(p); err != nil {
		log.Printf("ws: relay candidate to %d: %v", p.To, err)
	}
}

func (g *Gateway) handleCallDecline(client *Client, data json.RawMessage) {
	var p CallDeclinePayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.sendError(client, "malformed call payload")
		return
	}
	p.From = client.UserID()
	if err := g.relay.Decline(p); err != nil {
		log.Printf("ws: relay decline to %d: %v", p.To, err)
	}
}

func (g *Gateway) handleCallEnd(client *Client, data json.RawMessage) {
	var p CallEndPayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.sendError(client, "malformed call payload")
		return
	}
	if err := g.relay.End(p); err != nil {
		log.Printf("ws: relay end to %d: %v", p.To, err)
	}
}

// handleUserPing forwards friend and direct-message notifications to the
// target user's live connections. The sender identity is always taken from
// the socket, never from the payload.
func (g *Gateway) handleUserPing(client *Client, event string, data json.RawMessage) {
	var p UserTargetedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.sendError(client, "malformed payload")
		return
	}
	p.From = client.UserID()
	if err := g.hub.SendToUser(p.To, event, p); err != nil {
		log.Printf("ws: route %s to %d: %v", event, p.To, err)
	}
}

func (g *Gateway) disconnect(client *Client) {
	userID, found := g.registry.Disconnect(client.ID())
	g.hub.RemoveFromAllRooms(client)
	g.hub.Unregister(client)
	if !found {
		return
	}
	g.hub.UnbindUser(userID, client)
	if !g.stillOnline(userID) {
		if err := g.users.SetOffline(context.Background(), userID, time.Now()); err != nil {
			log.Printf("ws: mark offline user %d: %v", userID, err)
		}
	}
	g.broadcastOnline()
}

func (g *Gateway) stillOnline(userID int) bool {
	for _, id := range g.registry.ListOnline() {
		if id == userID {
			return true
		}
	}
	return false
}

// broadcastOnline pushes the online userId list to everyone. The list
// carries one entry per live connection, so a user with two tabs appears
// twice; clients dedupe for display.
func (g *Gateway) broadcastOnline() {
	if err := g.hub.BroadcastAll(EventUsersOnline, g.registry.ListOnline()); err != nil {
		log.Printf("ws: broadcast roster: %v", err)
	}
}

func (g *Gateway) sendError(client *Client, message string) {
	frame, err := marshalEnvelope(EventMessageError, ErrorPayload{Message: message})
	if err != nil {
		return
	}
	_ = client.TrySend(frame)
}

func wsEventPayload(info ConnInfo, event string, durationMs int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMs,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
