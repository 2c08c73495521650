package client

import (
	"sync"
	"time"
)

const defaultTypingIdle = 2 * time.Second

// TypingNotifier collapses a burst of keystrokes into one start/stop pair.
// The first keystroke fires start; every keystroke resets a single idle
// timer; stop fires once the timer expires or Stop is called.
type TypingNotifier struct {
	mu     sync.Mutex
	idle   time.Duration
	timer  *time.Timer
	active bool
	start  func()
	stop   func()
}

func NewTypingNotifier(idle time.Duration, start, stop func()) *TypingNotifier {
	if idle <= 0 {
		idle = defaultTypingIdle
	}
	return &TypingNotifier{idle: idle, start: start, stop: stop}
}

// Keystroke records typing activity.
func (n *TypingNotifier) Keystroke() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.active {
		n.active = true
		n.start()
	}
	if n.timer == nil {
		n.timer = time.AfterFunc(n.idle, n.expire)
		return
	}
	n.timer.Reset(n.idle)
}

func (n *TypingNotifier) expire() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.active {
		return
	}
	n.active = false
	n.stop()
}

// Stop ends the typing session immediately, for message send or blur.
func (n *TypingNotifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
	}
	if !n.active {
		return
	}
	n.active = false
	n.stop()
}
