package call

import (
	"context"
	"sync"
)

// Machine drives the local call lifecycle. All signaling and media work
// goes through the injected interfaces; the machine itself only owns state.
//
// Valid transitions:
//
//	idle    -> calling  StartCall
//	idle    -> ringing  HandleIncomingCall
//	calling -> active   HandleAnswered
//	calling -> idle     HandleDeclined, Hangup, HandleEnded
//	ringing -> active   Accept
//	ringing -> idle     Decline, HandleEnded
//	active  -> idle     Hangup, HandleEnded
//
// Anything else fails with ErrInvalidTransition.
type Machine struct {
	mu       sync.Mutex
	state    State
	devices  MediaDevices
	peers    PeerFactory
	signaler Signaler

	session      *Session
	pc           PeerConnection
	local        Stream
	remote       []Track
	remoteSet    bool
	pendingOffer *SessionDescription
	pendingICE   []ICECandidate
}

func NewMachine(devices MediaDevices, peers PeerFactory, signaler Signaler) *Machine {
	return &Machine{
		state:    StateIdle,
		devices:  devices,
		peers:    peers,
		signaler: signaler,
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the in-flight session, nil when idle.
func (m *Machine) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// LocalTracks returns the tracks currently being captured.
func (m *Machine) LocalTracks() []Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.local == nil {
		return nil
	}
	return m.local.Tracks()
}

// RemoteTracks returns tracks received from the peer so far.
func (m *Machine) RemoteTracks() []Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Track, len(m.remote))
	copy(out, m.remote)
	return out
}

// StartCall places an outgoing call. Media acquisition failures leave the
// machine idle and come back as *MediaError.
func (m *Machine) StartCall(ctx context.Context, peer UserInfo, self UserInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return invalidTransition("start", m.state)
	}

	stream, err := m.devices.GetUserMedia(ctx, true, true)
	if err != nil {
		return AsMediaError(err)
	}
	if err := m.setupPeerLocked(peer.UserID, stream); err != nil {
		m.teardownLocked()
		return err
	}

	offer, err := m.pc.CreateOffer(ctx)
	if err != nil {
		m.teardownLocked()
		return err
	}
	if err := m.pc.SetLocalDescription(offer); err != nil {
		m.teardownLocked()
		return err
	}
	if err := m.signaler.SendOffer(peer.UserID, offer, self); err != nil {
		m.teardownLocked()
		return err
	}

	m.session = &Session{Peer: peer, Direction: DirectionOutgoing}
	m.state = StateCalling
	return nil
}

// HandleIncomingCall registers an offer from the relay. A machine already
// in a call reports ErrBusy so the transport can decline on its behalf.
func (m *Machine) HandleIncomingCall(from UserInfo, offer SessionDescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return ErrBusy
	}
	m.session = &Session{Peer: from, Direction: DirectionIncoming}
	m.pendingOffer = &offer
	m.state = StateRinging
	return nil
}

// Accept answers the ringing call. Any failure releases everything, tells
// the caller the call was declined and surfaces the error locally.
func (m *Machine) Accept(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateRinging {
		return invalidTransition("accept", m.state)
	}
	peerID := m.session.Peer.UserID

	stream, err := m.devices.GetUserMedia(ctx, true, true)
	if err != nil {
		m.teardownLocked()
		_ = m.signaler.SendDecline(peerID)
		return AsMediaError(err)
	}
	if err := m.acceptLocked(ctx, peerID, stream); err != nil {
		m.teardownLocked()
		_ = m.signaler.SendDecline(peerID)
		return err
	}
	m.state = StateActive
	return nil
}

func (m *Machine) acceptLocked(ctx context.Context, peerID int, stream Stream) error {
	if err := m.setupPeerLocked(peerID, stream); err != nil {
		return err
	}
	if err := m.pc.SetRemoteDescription(*m.pendingOffer); err != nil {
		return err
	}
	m.pendingOffer = nil
	m.remoteSet = true
	if err := m.flushCandidatesLocked(); err != nil {
		return err
	}
	answer, err := m.pc.CreateAnswer(ctx)
	if err != nil {
		return err
	}
	if err := m.pc.SetLocalDescription(answer); err != nil {
		return err
	}
	return m.signaler.SendAnswer(peerID, answer)
}

// Decline rejects the ringing call and releases the stored offer.
func (m *Machine) Decline() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateRinging {
		return invalidTransition("decline", m.state)
	}
	peerID := m.session.Peer.UserID
	m.teardownLocked()
	return m.signaler.SendDecline(peerID)
}

// HandleAnswered completes the outgoing handshake. A failure here tears
// down and ends the call for the peer too, so neither side hangs.
func (m *Machine) HandleAnswered(answer SessionDescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateCalling {
		return invalidTransition("answered", m.state)
	}
	peerID := m.session.Peer.UserID
	if err := m.pc.SetRemoteDescription(answer); err != nil {
		m.teardownLocked()
		_ = m.signaler.SendEnd(peerID)
		return err
	}
	m.remoteSet = true
	if err := m.flushCandidatesLocked(); err != nil {
		m.teardownLocked()
		_ = m.signaler.SendEnd(peerID)
		return err
	}
	m.state = StateActive
	return nil
}

// HandleCandidate applies a remote candidate, queueing it when it arrives
// before the peer connection exists.
func (m *Machine) HandleCandidate(cand ICECandidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateIdle {
		return invalidTransition("candidate", m.state)
	}
	if m.pc == nil || !m.remoteSet {
		m.pendingICE = append(m.pendingICE, cand)
		return nil
	}
	return m.pc.AddICECandidate(cand)
}

// HandleDeclined resets after the peer rejected the outgoing call.
func (m *Machine) HandleDeclined() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateCalling {
		return invalidTransition("declined", m.state)
	}
	m.teardownLocked()
	return nil
}

// HandleEnded resets after the peer hung up. Harmless while idle.
func (m *Machine) HandleEnded() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateIdle {
		return nil
	}
	m.teardownLocked()
	return nil
}

// Hangup ends the call locally and notifies the peer.
func (m *Machine) Hangup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateCalling && m.state != StateActive {
		return invalidTransition("hangup", m.state)
	}
	peerID := m.session.Peer.UserID
	m.teardownLocked()
	return m.signaler.SendEnd(peerID)
}

func (m *Machine) setupPeerLocked(peerID int, stream Stream) error {
	pc, err := m.peers.NewPeerConnection()
	if err != nil {
		return err
	}
	m.pc = pc
	m.local = stream
	for _, t := range stream.Tracks() {
		if err := pc.AddTrack(t); err != nil {
			return err
		}
	}
	pc.OnICECandidate(func(cand ICECandidate) {
		_ = m.signaler.SendCandidate(peerID, cand)
	})
	pc.OnTrack(func(t Track) {
		m.mu.Lock()
		m.remote = append(m.remote, t)
		m.mu.Unlock()
	})
	// transport failure mid-call is an implicit hangup by the peer.
	// pion delivers state changes asynchronously, so a late event from a
	// connection that teardown already closed must not touch the session
	// that replaced it.
	pc.OnConnectionClosed(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.pc != pc || m.state == StateIdle {
			return
		}
		m.teardownLocked()
	})
	return nil
}

func (m *Machine) flushCandidatesLocked() error {
	for _, cand := range m.pendingICE {
		if err := m.pc.AddICECandidate(cand); err != nil {
			return err
		}
	}
	m.pendingICE = nil
	return nil
}

// teardownLocked releases every resource: capture tracks stop, the peer
// connection closes, queued offers and candidates drop.
func (m *Machine) teardownLocked() {
	if m.local != nil {
		for _, t := range m.local.Tracks() {
			t.Stop()
		}
	}
	for _, t := range m.remote {
		t.Stop()
	}
	if m.pc != nil {
		_ = m.pc.Close()
	}
	m.pc = nil
	m.local = nil
	m.remote = nil
	m.remoteSet = false
	m.session = nil
	m.pendingOffer = nil
	m.pendingICE = nil
	m.state = StateIdle
}
