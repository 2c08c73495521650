package rtc

import (
	"context"
	"errors"
	"log"

	"github.com/pion/webrtc/v4"

	"team-chat-service/internal/call"
)

// DefaultConfig uses a public STUN server, matching the browser client.
func DefaultConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}

// Connection adapts a pion peer connection to the call machine surface.
type Connection struct {
	pc *webrtc.PeerConnection
}

func newConnection(cfg webrtc.Configuration) (*Connection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Printf("rtc: ice state %s", s)
	})
	return &Connection{pc: pc}, nil
}

func (c *Connection) AddTrack(t call.Track) error {
	local, ok := t.(*LocalTrack)
	if !ok {
		return errors.New("track is not a local sample track")
	}
	_, err := c.pc.AddTrack(local.Sample())
	return err
}

func (c *Connection) CreateOffer(_ context.Context) (call.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return call.SessionDescription{}, err
	}
	return fromPion(offer), nil
}

func (c *Connection) CreateAnswer(_ context.Context) (call.SessionDescription, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return call.SessionDescription{}, err
	}
	return fromPion(answer), nil
}

func (c *Connection) SetLocalDescription(desc call.SessionDescription) error {
	return c.pc.SetLocalDescription(toPion(desc))
}

func (c *Connection) SetRemoteDescription(desc call.SessionDescription) error {
	return c.pc.SetRemoteDescription(toPion(desc))
}

func (c *Connection) AddICECandidate(cand call.ICECandidate) error {
	return c.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     cand.Candidate,
		SDPMid:        cand.SDPMid,
		SDPMLineIndex: cand.SDPMLineIndex,
	})
}

func (c *Connection) OnICECandidate(fn func(call.ICECandidate)) {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		init := cand.ToJSON()
		fn(call.ICECandidate{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		})
	})
}

func (c *Connection) OnTrack(fn func(call.Track)) {
	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		fn(&remoteTrack{track: track})
	})
}

func (c *Connection) OnConnectionClosed(fn func()) {
	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateDisconnected,
			webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateClosed:
			fn()
		}
	})
}

func (c *Connection) Close() error {
	return c.pc.Close()
}

// remoteTrack wraps an inbound pion track. Remote tracks stop on their own
// when the peer connection closes, so Stop is a no-op.
type remoteTrack struct {
	track *webrtc.TrackRemote
}

func (t *remoteTrack) Kind() string { return t.track.Kind().String() }
func (t *remoteTrack) Stop()        {}

// Factory builds one peer connection per call from a shared configuration.
type Factory struct {
	cfg webrtc.Configuration
}

func NewFactory(cfg webrtc.Configuration) *Factory {
	return &Factory{cfg: cfg}
}

func (f *Factory) NewPeerConnection() (call.PeerConnection, error) {
	return newConnection(f.cfg)
}

func fromPion(d webrtc.SessionDescription) call.SessionDescription {
	return call.SessionDescription{Type: d.Type.String(), SDP: d.SDP}
}

func toPion(d call.SessionDescription) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.NewSDPType(d.Type), SDP: d.SDP}
}
