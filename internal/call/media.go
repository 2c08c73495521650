package call

import "context"

// Track is one media track, local or remote.
type Track interface {
	Kind() string
	Stop()
}

// Stream groups the tracks acquired from one getUserMedia call.
type Stream interface {
	Tracks() []Track
}

// MediaDevices acquires local capture devices. Failures should come back
// as *MediaError so the UI can show a remediation hint.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, audio, video bool) (Stream, error)
}

// PeerConnection is the slice of the WebRTC peer connection surface the
// call machine drives. Implementations wrap pion on the Go side or the
// browser RTCPeerConnection behind a bridge.
type PeerConnection interface {
	AddTrack(t Track) error
	CreateOffer(ctx context.Context) (SessionDescription, error)
	CreateAnswer(ctx context.Context) (SessionDescription, error)
	SetLocalDescription(desc SessionDescription) error
	SetRemoteDescription(desc SessionDescription) error
	AddICECandidate(cand ICECandidate) error
	OnICECandidate(fn func(ICECandidate))
	OnTrack(fn func(Track))
	OnConnectionClosed(fn func())
	Close() error
}

// PeerFactory builds a fresh peer connection per call.
type PeerFactory interface {
	NewPeerConnection() (PeerConnection, error)
}

// Signaler delivers signaling frames to the remote peer.
type Signaler interface {
	SendOffer(to int, offer SessionDescription, from UserInfo) error
	SendAnswer(to int, answer SessionDescription) error
	SendCandidate(to int, cand ICECandidate) error
	SendDecline(to int) error
	SendEnd(to int) error
}
