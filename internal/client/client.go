// Package client is the Go SDK for the realtime gateway: one socket
// carrying presence, channel traffic and call signaling, plus the local
// call state machine wired to it.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"team-chat-service/internal/call"
	"team-chat-service/internal/models"
	"team-chat-service/internal/ws"
)

// Handlers receives server pushes. Nil fields are skipped. The online list
// carries one userId per live connection; dedupe before display.
type Handlers struct {
	OnMessage func(models.Message)
	OnOnline  func([]int)
	OnTyping  func(event, username string)
	OnError   func(message string)
}

// Client is one authenticated gateway connection.
type Client struct {
	self     call.UserInfo
	machine  *call.Machine
	handlers Handlers

	writeMu    sync.Mutex
	writeFrame func([]byte) error
	closeConn  func() error
}

// Dial connects and authenticates against the gateway.
func Dial(ctx context.Context, url, token string, self call.UserInfo, devices call.MediaDevices, peers call.PeerFactory, handlers Handlers) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	c := newClient(self, devices, peers, handlers)
	c.writeFrame = func(frame []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteMessage(websocket.TextMessage, frame)
	}
	c.closeConn = conn.Close
	go c.readLoop(conn)
	return c, nil
}

func newClient(self call.UserInfo, devices call.MediaDevices, peers call.PeerFactory, handlers Handlers) *Client {
	c := &Client{self: self, handlers: handlers}
	c.machine = call.NewMachine(devices, peers, c)
	return c
}

// Machine exposes the call state machine for UI bindings.
func (c *Client) Machine() *call.Machine { return c.machine }

func (c *Client) Close() error {
	if c.closeConn == nil {
		return nil
	}
	return c.closeConn()
}

// Identify announces presence; until then the server routes nothing here.
func (c *Client) Identify() error {
	return c.send(ws.EventUserJoin, ws.UserJoinPayload{UserID: c.self.UserID})
}

func (c *Client) JoinChannel(channelID int) error {
	return c.send(ws.EventChannelJoin, ws.ChannelPayload{ChannelID: channelID})
}

func (c *Client) LeaveChannel(channelID int) error {
	return c.send(ws.EventChannelLeave, ws.ChannelPayload{ChannelID: channelID})
}

func (c *Client) SendMessage(channelID int, content string) error {
	return c.send(ws.EventMessageSend, ws.SendMessagePayload{ChannelID: channelID, Content: content})
}

// TypingNotifierFor builds a debouncer bound to one channel. A zero idle
// uses the default.
func (c *Client) TypingNotifierFor(channelID int, idle time.Duration) *TypingNotifier {
	payload := ws.TypingPayload{ChannelID: channelID, Username: c.self.Username}
	return NewTypingNotifier(idle,
		func() { _ = c.send(ws.EventTypingStart, payload) },
		func() { _ = c.send(ws.EventTypingStop, payload) },
	)
}

// StartCall places a call to the given user.
func (c *Client) StartCall(ctx context.Context, peer call.UserInfo) error {
	return c.machine.StartCall(ctx, peer, c.self)
}

// SendOffer implements call.Signaler.
func (c *Client) SendOffer(to int, offer call.SessionDescription, from call.UserInfo) error {
	rawOffer, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	rawFrom, err := json.Marshal(from)
	if err != nil {
		return err
	}
	return c.send(ws.EventCallOffer, ws.CallOfferPayload{
		To:           to,
		From:         from.UserID,
		Offer:        rawOffer,
		FromUserData: rawFrom,
	})
}

func (c *Client) SendAnswer(to int, answer call.SessionDescription) error {
	raw, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return c.send(ws.EventCallAnswer, ws.CallAnswerPayload{To: to, Answer: raw})
}

func (c *Client) SendCandidate(to int, cand call.ICECandidate) error {
	raw, err := json.Marshal(cand)
	if err != nil {
		return err
	}
	return c.send(ws.EventCallCandidate, ws.CallCandidatePayload{To: to, Candidate: raw})
}

func (c *Client) SendDecline(to int) error {
	return c.send(ws.EventCallDecline, ws.CallDeclinePayload{To: to})
}

func (c *Client) SendEnd(to int) error {
	return c.send(ws.EventCallEnd, ws.CallEndPayload{To: to})
}

func (c *Client) send(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(ws.Envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writeFrame(frame)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env ws.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("client: malformed frame: %v", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env ws.Envelope) {
	switch env.Event {
	case ws.EventMessageNew:
		var msg models.Message
		if err := json.Unmarshal(env.Data, &msg); err == nil && c.handlers.OnMessage != nil {
			c.handlers.OnMessage(msg)
		}
	case ws.EventUsersOnline:
		var online []int
		if err := json.Unmarshal(env.Data, &online); err == nil && c.handlers.OnOnline != nil {
			c.handlers.OnOnline(online)
		}
	case ws.EventTypingStart, ws.EventTypingStop:
		var typing ws.TypingEvent
		if err := json.Unmarshal(env.Data, &typing); err == nil && c.handlers.OnTyping != nil {
			c.handlers.OnTyping(env.Event, typing.Username)
		}
	case ws.EventMessageError:
		var p ws.ErrorPayload
		if err := json.Unmarshal(env.Data, &p); err == nil && c.handlers.OnError != nil {
			c.handlers.OnError(p.Message)
		}
	case ws.EventCallIncoming:
		c.handleIncoming(env.Data)
	case ws.EventCallAnswered:
		var p ws.CallAnsweredPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		var answer call.SessionDescription
		if err := json.Unmarshal(p.Answer, &answer); err != nil {
			return
		}
		if err := c.machine.HandleAnswered(answer); err != nil {
			log.Printf("client: answer: %v", err)
		}
	case ws.EventCallCandidate:
		var p ws.CallCandidateEvent
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		var cand call.ICECandidate
		if err := json.Unmarshal(p.Candidate, &cand); err != nil {
			return
		}
		if err := c.machine.HandleCandidate(cand); err != nil {
			log.Printf("client: candidate: %v", err)
		}
	case ws.EventCallDeclined:
		if err := c.machine.HandleDeclined(); err != nil {
			log.Printf("client: declined: %v", err)
		}
	case ws.EventCallEnded:
		if err := c.machine.HandleEnded(); err != nil {
			log.Printf("client: ended: %v", err)
		}
	}
}

// handleIncoming feeds an offer to the machine. A busy machine declines on
// its own behalf so the caller is not left ringing.
func (c *Client) handleIncoming(data json.RawMessage) {
	var p ws.CallIncomingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	var offer call.SessionDescription
	if err := json.Unmarshal(p.Offer, &offer); err != nil {
		return
	}
	from := call.UserInfo{UserID: p.From}
	if len(p.FromUserData) > 0 {
		_ = json.Unmarshal(p.FromUserData, &from)
		from.UserID = p.From
	}
	if err := c.machine.HandleIncomingCall(from, offer); err != nil {
		_ = c.SendDecline(p.From)
	}
}
