package ws

import "encoding/json"

// Envelope is the wire frame for every realtime event, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client→server event names.
const (
	EventUserJoin     = "user:join"
	EventChannelJoin  = "channel:join"
	EventChannelLeave = "channel:leave"
	EventMessageSend  = "message:send"
	EventTypingStart  = "typing:start"
	EventTypingStop   = "typing:stop"

	EventCallOffer     = "call:offer"
	EventCallAnswer    = "call:answer"
	EventCallCandidate = "call:ice-candidate"
	EventCallDecline   = "call:decline"
	EventCallEnd       = "call:end"

	EventFriendRequestSent     = "friend:requestSent"
	EventFriendRequestAccepted = "friend:requestAccepted"
	EventFriendRequestRejected = "friend:requestRejected"
	EventDMSend                = "dm:send"
	EventDMRead                = "dm:read"
)

// Server→client event names.
const (
	EventUsersOnline  = "users:online"
	EventMessageNew   = "message:new"
	EventMessageError = "message:error"

	EventCallIncoming = "call:incoming"
	EventCallAnswered = "call:answered"
	EventCallDeclined = "call:declined"
	EventCallEnded    = "call:ended"
)

type UserJoinPayload struct {
	UserID int `json:"userId"`
}

type ChannelPayload struct {
	ChannelID int `json:"channelId"`
}

type SendMessagePayload struct {
	ChannelID int    `json:"channel"`
	Content   string `json:"content"`
}

type TypingPayload struct {
	ChannelID int    `json:"channelId"`
	Username  string `json:"username"`
}

// TypingEvent is what the other room members receive.
type TypingEvent struct {
	Username string `json:"username"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Call signaling payloads. Offer, answer and candidate bodies are opaque to
// the server: the relay routes by recipient identity and never inspects them.
type CallOfferPayload struct {
	To           int             `json:"to"`
	From         int             `json:"from"`
	Offer        json.RawMessage `json:"offer"`
	FromUserData json.RawMessage `json:"fromUserData,omitempty"`
}

type CallIncomingPayload struct {
	From         int             `json:"from"`
	Offer        json.RawMessage `json:"offer"`
	FromUserData json.RawMessage `json:"fromUserData,omitempty"`
}

type CallAnswerPayload struct {
	To     int             `json:"to"`
	From   int             `json:"from"`
	Answer json.RawMessage `json:"answer"`
}

type CallAnsweredPayload struct {
	Answer json.RawMessage `json:"answer"`
}

type CallCandidatePayload struct {
	To        int             `json:"to"`
	Candidate json.RawMessage `json:"candidate"`
}

type CallCandidateEvent struct {
	Candidate json.RawMessage `json:"candidate"`
}

type CallDeclinePayload struct {
	To   int `json:"to"`
	From int `json:"from"`
}

type CallEndPayload struct {
	To int `json:"to"`
}

// UserTargetedPayload covers friend and direct-message pings, which are
// routed to the target user's live connections unchanged.
type UserTargetedPayload struct {
	To   int `json:"to"`
	From int `json:"from"`
}
