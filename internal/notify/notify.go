package notify

import (
	"sync"
	"time"
)

const defaultTTL = 3 * time.Second

// Notifier is the fire-and-auto-dismiss notice surface. Show replaces
// whatever is currently displayed; the notice clears itself after the
// TTL. An optional listener sees every message as it is shown.
type Notifier struct {
	mu       sync.Mutex
	ttl      time.Duration
	current  string
	timer    *time.Timer
	listener func(string)
}

func New() *Notifier {
	return &Notifier{ttl: defaultTTL}
}

// NewWithTTL exists for callers (and tests) that want faster dismissal.
func NewWithTTL(ttl time.Duration) *Notifier {
	return &Notifier{ttl: ttl}
}

// OnShow registers a callback invoked for every shown message.
func (n *Notifier) OnShow(fn func(string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listener = fn
}

func (n *Notifier) Show(message string) {
	n.mu.Lock()
	n.current = message
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.ttl, func() {
		n.mu.Lock()
		if n.current == message {
			n.current = ""
		}
		n.mu.Unlock()
	})
	listener := n.listener
	n.mu.Unlock()

	if listener != nil {
		listener(message)
	}
}

// Current returns the visible notice, if one has not yet dismissed.
func (n *Notifier) Current() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current, n.current != ""
}
