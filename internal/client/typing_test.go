package client

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRapidKeystrokesCollapseToOneSession(t *testing.T) {
	var starts, stops atomic.Int32
	n := NewTypingNotifier(30*time.Millisecond,
		func() { starts.Add(1) },
		func() { stops.Add(1) },
	)

	for i := 0; i < 10; i++ {
		n.Keystroke()
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, int32(1), starts.Load())
	require.Equal(t, int32(0), stops.Load())

	require.Eventually(t, func() bool { return stops.Load() == 1 },
		500*time.Millisecond, 10*time.Millisecond)
	require.Equal(t, int32(1), starts.Load())
}

func TestKeystrokeAfterIdleStartsNewSession(t *testing.T) {
	var starts, stops atomic.Int32
	n := NewTypingNotifier(20*time.Millisecond,
		func() { starts.Add(1) },
		func() { stops.Add(1) },
	)

	n.Keystroke()
	require.Eventually(t, func() bool { return stops.Load() == 1 },
		500*time.Millisecond, 5*time.Millisecond)

	n.Keystroke()
	require.Equal(t, int32(2), starts.Load())
}

func TestStopFiresImmediatelyAndOnce(t *testing.T) {
	var starts, stops atomic.Int32
	n := NewTypingNotifier(time.Minute,
		func() { starts.Add(1) },
		func() { stops.Add(1) },
	)

	n.Keystroke()
	n.Stop()
	require.Equal(t, int32(1), starts.Load())
	require.Equal(t, int32(1), stops.Load())

	// idle timer was cancelled; no late second stop
	n.Stop()
	require.Equal(t, int32(1), stops.Load())
}

func TestStopWithoutKeystrokeIsNoop(t *testing.T) {
	var stops atomic.Int32
	n := NewTypingNotifier(time.Minute, func() {}, func() { stops.Add(1) })

	n.Stop()
	require.Equal(t, int32(0), stops.Load())
}
