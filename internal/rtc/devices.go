package rtc

import (
	"context"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"team-chat-service/internal/call"
)

// LocalTrack wraps a pion sample track so the call machine can treat local
// and remote media uniformly.
type LocalTrack struct {
	kind   string
	sample *webrtc.TrackLocalStaticSample
	stop   func()
}

func (t *LocalTrack) Kind() string { return t.kind }

func (t *LocalTrack) Stop() {
	if t.stop != nil {
		t.stop()
	}
}

// Sample exposes the underlying pion track for writers feeding media in.
func (t *LocalTrack) Sample() *webrtc.TrackLocalStaticSample { return t.sample }

type localStream struct {
	tracks []call.Track
}

func (s *localStream) Tracks() []call.Track { return s.tracks }

// Devices builds local capture tracks. The Go side has no real camera
// hookup; callers attach their own sample writers via LocalTrack.Sample.
type Devices struct{}

func NewDevices() *Devices { return &Devices{} }

func (d *Devices) GetUserMedia(_ context.Context, audio, video bool) (call.Stream, error) {
	streamID := uuid.NewString()
	var tracks []call.Track
	if audio {
		t, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", streamID)
		if err != nil {
			return nil, call.NewMediaError(call.MediaDeviceAbsent, err)
		}
		tracks = append(tracks, &LocalTrack{kind: "audio", sample: t})
	}
	if video {
		t, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", streamID)
		if err != nil {
			return nil, call.NewMediaError(call.MediaDeviceAbsent, err)
		}
		tracks = append(tracks, &LocalTrack{kind: "video", sample: t})
	}
	return &localStream{tracks: tracks}, nil
}
