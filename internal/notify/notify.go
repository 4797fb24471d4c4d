package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jgoulah/billbuddy/internal/clock"
)

// Kind selects the banner colour
type Kind string

const (
	Info    Kind = "info"
	Success Kind = "success"
	Error   Kind = "error"
)

// Phase is where a banner is in its lifecycle
type Phase int

const (
	Entering Phase = iota
	Visible
	Fading
)

const (
	enterDelay = 10 * time.Millisecond
	fadeTime   = 500 * time.Millisecond
)

// Banner is one transient notification
type Banner struct {
	ID      string
	Kind    Kind
	Message string
	Phase   Phase
	Created time.Time
}

// Sink draws banners. Show is called once per banner, Dismiss when it is removed.
type Sink interface {
	Show(b Banner)
	Dismiss(id string)
}

// Notifier is what components depend on
type Notifier interface {
	Notify(kind Kind, message string) string
}

// Stack holds the currently displayed banners, newest first. Each banner runs its
// own timers so concurrent banners never cancel each other.
type Stack struct {
	mu      sync.Mutex
	clock   clock.Clock
	hold    time.Duration
	sink    Sink
	banners []*Banner
}

// NewStack creates a banner stack. hold is how long a banner stays fully visible.
func NewStack(c clock.Clock, hold time.Duration, sink Sink) *Stack {
	if c == nil {
		c = clock.Real{}
	}
	return &Stack{clock: c, hold: hold, sink: sink}
}

// Notify pushes a banner and returns its identifier
func (s *Stack) Notify(kind Kind, message string) string {
	b := &Banner{
		ID:      "popup-" + uuid.NewString(),
		Kind:    kind,
		Message: message,
		Phase:   Entering,
		Created: s.clock.Now(),
	}

	s.mu.Lock()
	s.banners = append([]*Banner{b}, s.banners...)
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.Show(*b)
	}

	s.clock.AfterFunc(enterDelay, func() { s.setPhase(b.ID, Visible) })
	s.clock.AfterFunc(s.hold, func() {
		s.setPhase(b.ID, Fading)
		s.clock.AfterFunc(fadeTime, func() { s.remove(b.ID) })
	})
	return b.ID
}

// Active returns a snapshot of the banners on screen, newest first
func (s *Stack) Active() []Banner {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Banner, 0, len(s.banners))
	for _, b := range s.banners {
		out = append(out, *b)
	}
	return out
}

func (s *Stack) setPhase(id string, p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.banners {
		if b.ID == id {
			b.Phase = p
			return
		}
	}
}

func (s *Stack) remove(id string) {
	s.mu.Lock()
	for i, b := range s.banners {
		if b.ID == id {
			s.banners = append(s.banners[:i], s.banners[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.Dismiss(id)
	}
}
