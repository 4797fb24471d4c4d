package testutil

import (
	"sync"

	"github.com/jgoulah/billbuddy/internal/notify"
)

// Notice is one recorded notification
type Notice struct {
	Kind    notify.Kind
	Message string
}

// Notifier records notifications instead of showing them
type Notifier struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements notify.Notifier
func (n *Notifier) Notify(kind notify.Kind, message string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, Notice{Kind: kind, Message: message})
	return ""
}

// Notices returns everything recorded so far
func (n *Notifier) Notices() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.notices...)
}

// Messages returns only the message texts
func (n *Notifier) Messages() []string {
	var out []string
	for _, no := range n.Notices() {
		out = append(out, no.Message)
	}
	return out
}

// Reset clears the record
func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = nil
}

// Confirmer answers confirmation prompts with a fixed reply and records the prompts
type Confirmer struct {
	Reply   bool
	Prompts []string
}

// Confirm records prompt and returns Reply
func (c *Confirmer) Confirm(prompt string) bool {
	c.Prompts = append(c.Prompts, prompt)
	return c.Reply
}
