package call

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTrack struct {
	kind    string
	stopped bool
}

func (t *fakeTrack) Kind() string { return t.kind }
func (t *fakeTrack) Stop()        { t.stopped = true }

type fakeStream struct {
	tracks []Track
}

func (s *fakeStream) Tracks() []Track { return s.tracks }

type fakeDevices struct {
	err    error
	stream *fakeStream
}

func (d *fakeDevices) GetUserMedia(_ context.Context, _, _ bool) (Stream, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

type fakePeer struct {
	tracks     []Track
	remoteDesc *SessionDescription
	localDesc  *SessionDescription
	candidates []ICECandidate
	closed     bool

	remoteErr error
	onICE     func(ICECandidate)
	onTrack   func(Track)
	onClosed  func()
}

func (p *fakePeer) AddTrack(t Track) error { p.tracks = append(p.tracks, t); return nil }
func (p *fakePeer) CreateOffer(context.Context) (SessionDescription, error) {
	return SessionDescription{Type: "offer", SDP: "v=0"}, nil
}
func (p *fakePeer) CreateAnswer(context.Context) (SessionDescription, error) {
	return SessionDescription{Type: "answer", SDP: "v=0"}, nil
}
func (p *fakePeer) SetLocalDescription(d SessionDescription) error { p.localDesc = &d; return nil }
func (p *fakePeer) SetRemoteDescription(d SessionDescription) error {
	if p.remoteErr != nil {
		return p.remoteErr
	}
	p.remoteDesc = &d
	return nil
}
func (p *fakePeer) AddICECandidate(c ICECandidate) error { p.candidates = append(p.candidates, c); return nil }
func (p *fakePeer) OnICECandidate(fn func(ICECandidate)) { p.onICE = fn }
func (p *fakePeer) OnTrack(fn func(Track))               { p.onTrack = fn }
func (p *fakePeer) OnConnectionClosed(fn func())         { p.onClosed = fn }
func (p *fakePeer) Close() error                         { p.closed = true; return nil }

type fakeFactory struct {
	peer *fakePeer
	err  error
}

func (f *fakeFactory) NewPeerConnection() (PeerConnection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.peer, nil
}

type sequenceFactory struct {
	peers []*fakePeer
	next  int
}

func (f *sequenceFactory) NewPeerConnection() (PeerConnection, error) {
	p := f.peers[f.next]
	f.next++
	return p, nil
}

type fakeSignaler struct {
	offers     []int
	answers    []int
	candidates []int
	declines   []int
	ends       []int
}

func (s *fakeSignaler) SendOffer(to int, _ SessionDescription, _ UserInfo) error {
	s.offers = append(s.offers, to)
	return nil
}
func (s *fakeSignaler) SendAnswer(to int, _ SessionDescription) error {
	s.answers = append(s.answers, to)
	return nil
}
func (s *fakeSignaler) SendCandidate(to int, _ ICECandidate) error {
	s.candidates = append(s.candidates, to)
	return nil
}
func (s *fakeSignaler) SendDecline(to int) error { s.declines = append(s.declines, to); return nil }
func (s *fakeSignaler) SendEnd(to int) error     { s.ends = append(s.ends, to); return nil }

func newFixture() (*Machine, *fakeDevices, *fakePeer, *fakeSignaler) {
	devices := &fakeDevices{stream: &fakeStream{tracks: []Track{
		&fakeTrack{kind: "audio"},
		&fakeTrack{kind: "video"},
	}}}
	peer := &fakePeer{}
	sig := &fakeSignaler{}
	m := NewMachine(devices, &fakeFactory{peer: peer}, sig)
	return m, devices, peer, sig
}

var (
	alice = UserInfo{UserID: 1, Username: "alice"}
	bob   = UserInfo{UserID: 2, Username: "bob"}
)

func TestOutgoingCallHappyPath(t *testing.T) {
	m, _, peer, sig := newFixture()

	require.NoError(t, m.StartCall(context.Background(), bob, alice))
	require.Equal(t, StateCalling, m.State())
	require.Equal(t, []int{2}, sig.offers)
	require.Len(t, peer.tracks, 2)
	require.NotNil(t, peer.localDesc)

	require.NoError(t, m.HandleAnswered(SessionDescription{Type: "answer", SDP: "v=0"}))
	require.Equal(t, StateActive, m.State())
	require.NotNil(t, peer.remoteDesc)
	require.Len(t, m.LocalTracks(), 2)
}

func TestIncomingCallAcceptGoesActive(t *testing.T) {
	m, _, peer, sig := newFixture()

	require.NoError(t, m.HandleIncomingCall(alice, SessionDescription{Type: "offer", SDP: "v=0"}))
	require.Equal(t, StateRinging, m.State())

	require.NoError(t, m.Accept(context.Background()))
	require.Equal(t, StateActive, m.State())
	require.Equal(t, []int{1}, sig.answers)
	require.Equal(t, "offer", peer.remoteDesc.Type)
	require.Len(t, m.LocalTracks(), 2)

	// remote media arrives after the handshake
	peer.onTrack(&fakeTrack{kind: "audio"})
	require.Len(t, m.RemoteTracks(), 1)
}

func TestHangupStopsEveryTrack(t *testing.T) {
	m, devices, peer, sig := newFixture()

	require.NoError(t, m.StartCall(context.Background(), bob, alice))
	require.NoError(t, m.HandleAnswered(SessionDescription{Type: "answer", SDP: "v=0"}))
	peer.onTrack(&fakeTrack{kind: "video"})

	remote := m.RemoteTracks()
	require.NoError(t, m.Hangup())

	require.Equal(t, StateIdle, m.State())
	require.Equal(t, []int{2}, sig.ends)
	require.True(t, peer.closed)
	for _, tr := range devices.stream.tracks {
		require.True(t, tr.(*fakeTrack).stopped)
	}
	for _, tr := range remote {
		require.True(t, tr.(*fakeTrack).stopped)
	}
	require.Empty(t, m.LocalTracks())
	require.Empty(t, m.RemoteTracks())
	require.Nil(t, m.Current())
}

func TestDeclineReleasesPendingOffer(t *testing.T) {
	m, _, _, sig := newFixture()

	require.NoError(t, m.HandleIncomingCall(alice, SessionDescription{Type: "offer", SDP: "v=0"}))
	require.NoError(t, m.Decline())

	require.Equal(t, StateIdle, m.State())
	require.Equal(t, []int{1}, sig.declines)
	require.Nil(t, m.Current())
}

func TestPeerDeclinedResetsCaller(t *testing.T) {
	m, devices, peer, _ := newFixture()

	require.NoError(t, m.StartCall(context.Background(), bob, alice))
	require.NoError(t, m.HandleDeclined())

	require.Equal(t, StateIdle, m.State())
	require.True(t, peer.closed)
	for _, tr := range devices.stream.tracks {
		require.True(t, tr.(*fakeTrack).stopped)
	}
}

func TestInvalidTransitionsRejected(t *testing.T) {
	m, _, _, _ := newFixture()

	require.ErrorIs(t, m.Accept(context.Background()), ErrInvalidTransition)
	require.ErrorIs(t, m.Decline(), ErrInvalidTransition)
	require.ErrorIs(t, m.Hangup(), ErrInvalidTransition)
	require.ErrorIs(t, m.HandleAnswered(SessionDescription{}), ErrInvalidTransition)
	require.ErrorIs(t, m.HandleDeclined(), ErrInvalidTransition)
	require.ErrorIs(t, m.HandleCandidate(ICECandidate{}), ErrInvalidTransition)

	require.NoError(t, m.StartCall(context.Background(), bob, alice))
	require.ErrorIs(t, m.Accept(context.Background()), ErrInvalidTransition)
	require.ErrorIs(t, m.StartCall(context.Background(), bob, alice), ErrInvalidTransition)
}

func TestSecondIncomingCallReportsBusy(t *testing.T) {
	m, _, _, _ := newFixture()

	require.NoError(t, m.HandleIncomingCall(alice, SessionDescription{Type: "offer", SDP: "v=0"}))
	err := m.HandleIncomingCall(UserInfo{UserID: 3, Username: "carol"}, SessionDescription{Type: "offer", SDP: "v=0"})
	require.ErrorIs(t, err, ErrBusy)
	require.Equal(t, StateRinging, m.State())
	require.Equal(t, alice, m.Current().Peer)
}

func TestEarlyCandidatesQueueUntilRemoteDescription(t *testing.T) {
	m, _, peer, _ := newFixture()

	require.NoError(t, m.HandleIncomingCall(alice, SessionDescription{Type: "offer", SDP: "v=0"}))

	// candidates race ahead of accept; no peer connection exists yet
	require.NoError(t, m.HandleCandidate(ICECandidate{Candidate: "cand-1"}))
	require.NoError(t, m.HandleCandidate(ICECandidate{Candidate: "cand-2"}))
	require.Empty(t, peer.candidates)

	require.NoError(t, m.Accept(context.Background()))
	require.Len(t, peer.candidates, 2)
	require.Equal(t, "cand-1", peer.candidates[0].Candidate)

	require.NoError(t, m.HandleCandidate(ICECandidate{Candidate: "cand-3"}))
	require.Len(t, peer.candidates, 3)
}

func TestCallerQueuesCandidatesUntilAnswered(t *testing.T) {
	m, _, peer, _ := newFixture()

	require.NoError(t, m.StartCall(context.Background(), bob, alice))
	require.NoError(t, m.HandleCandidate(ICECandidate{Candidate: "early"}))
	require.Empty(t, peer.candidates)

	require.NoError(t, m.HandleAnswered(SessionDescription{Type: "answer", SDP: "v=0"}))
	require.Len(t, peer.candidates, 1)
}

func TestMediaFailureOnStartStaysIdle(t *testing.T) {
	devices := &fakeDevices{err: NewMediaError(MediaPermissionDenied, errors.New("NotAllowedError"))}
	sig := &fakeSignaler{}
	m := NewMachine(devices, &fakeFactory{peer: &fakePeer{}}, sig)

	err := m.StartCall(context.Background(), bob, alice)
	require.Error(t, err)
	me := AsMediaError(err)
	require.Equal(t, MediaPermissionDenied, me.Kind)
	require.Contains(t, me.Remediation(), "Allow camera and microphone")
	require.Equal(t, StateIdle, m.State())
	require.Empty(t, sig.offers)
}

func TestMediaFailureOnAcceptDeclinesForPeer(t *testing.T) {
	devices := &fakeDevices{err: NewMediaError(MediaDeviceBusy, errors.New("NotReadableError"))}
	sig := &fakeSignaler{}
	m := NewMachine(devices, &fakeFactory{peer: &fakePeer{}}, sig)

	require.NoError(t, m.HandleIncomingCall(alice, SessionDescription{Type: "offer", SDP: "v=0"}))
	err := m.Accept(context.Background())
	require.Error(t, err)
	require.Equal(t, MediaDeviceBusy, AsMediaError(err).Kind)
	require.Equal(t, StateIdle, m.State())
	require.Equal(t, []int{1}, sig.declines)
}

func TestAnswerFailureEndsCallForPeer(t *testing.T) {
	m, _, peer, sig := newFixture()
	peer.remoteErr = errors.New("bad sdp")

	require.NoError(t, m.StartCall(context.Background(), bob, alice))
	require.Error(t, m.HandleAnswered(SessionDescription{Type: "answer", SDP: "broken"}))

	require.Equal(t, StateIdle, m.State())
	require.Equal(t, []int{2}, sig.ends)
	require.True(t, peer.closed)
}

func TestLocalCandidatesForwardToPeer(t *testing.T) {
	m, _, peer, sig := newFixture()

	require.NoError(t, m.StartCall(context.Background(), bob, alice))
	peer.onICE(ICECandidate{Candidate: "local"})
	require.Equal(t, []int{2}, sig.candidates)
}

func TestTransportFailureEndsCall(t *testing.T) {
	m, devices, peer, _ := newFixture()

	require.NoError(t, m.StartCall(context.Background(), bob, alice))
	require.NoError(t, m.HandleAnswered(SessionDescription{Type: "answer", SDP: "v=0"}))
	require.Equal(t, StateActive, m.State())

	// ICE gave up; the peer connection reports closed
	peer.onClosed()

	require.Equal(t, StateIdle, m.State())
	require.True(t, peer.closed)
	for _, tr := range devices.stream.tracks {
		require.True(t, tr.(*fakeTrack).stopped)
	}
}

func TestStaleConnectionClosedEventIgnored(t *testing.T) {
	first := &fakePeer{}
	second := &fakePeer{}
	devices := &fakeDevices{stream: &fakeStream{tracks: []Track{&fakeTrack{kind: "audio"}}}}
	sig := &fakeSignaler{}
	m := NewMachine(devices, &sequenceFactory{peers: []*fakePeer{first, second}}, sig)

	require.NoError(t, m.StartCall(context.Background(), bob, alice))
	require.NoError(t, m.Hangup())
	require.NoError(t, m.StartCall(context.Background(), bob, alice))
	require.Equal(t, StateCalling, m.State())

	// the closed event from the torn-down connection arrives late
	first.onClosed()

	require.Equal(t, StateCalling, m.State())
	require.False(t, second.closed)
}

func TestRemoteHangupWhileRinging(t *testing.T) {
	m, _, _, sig := newFixture()

	require.NoError(t, m.HandleIncomingCall(alice, SessionDescription{Type: "offer", SDP: "v=0"}))
	require.NoError(t, m.HandleEnded())
	require.Equal(t, StateIdle, m.State())
	require.Empty(t, sig.ends)

	// ended while idle stays a no-op
	require.NoError(t, m.HandleEnded())
}
