package call

// SessionDescription mirrors the browser-side RTCSessionDescription shape
// so payloads survive the relay unchanged.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// ICECandidate mirrors RTCIceCandidateInit.
type ICECandidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// UserInfo identifies a call peer to the UI layer.
type UserInfo struct {
	UserID   int    `json:"userId"`
	Username string `json:"username"`
}

// State is the local call lifecycle phase.
type State string

const (
	StateIdle    State = "idle"
	StateCalling State = "calling"
	StateRinging State = "ringing"
	StateActive  State = "active"
)

// Direction records who initiated the session.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// Session describes the call currently in flight.
type Session struct {
	Peer      UserInfo
	Direction Direction
}
