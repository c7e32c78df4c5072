package core

import (
	"strings"
	"sync"

	"github.com/vovakirdan/authgate/internal/pipeline"
)

// Registry tracks live login attempts, keyed both by channel and by claimed
// name. At most one attempt per channel; while unresolved, at most one per
// name.
type Registry struct {
	mu            sync.RWMutex
	byChannel     map[pipeline.Channel]*Connection
	byName        map[string]*Connection
	caseSensitive bool
}

func NewRegistry(caseSensitive bool) *Registry {
	return &Registry{
		byChannel:     make(map[pipeline.Channel]*Connection),
		byName:        make(map[string]*Connection),
		caseSensitive: caseSensitive,
	}
}

func (r *Registry) key(name string) string {
	if r.caseSensitive {
		return name
	}
	return strings.ToLower(name)
}

// Get returns the attempt bound to the channel.
func (r *Registry) Get(ch pipeline.Channel) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byChannel[ch]
	return c, ok
}

// GetByName returns the attempt for the claimed name.
func (r *Registry) GetByName(name string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[r.key(name)]
	return c, ok
}

// Add registers a new attempt under both keys.
func (r *Registry) Add(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byChannel[c.Channel()] = c
	r.byName[r.key(c.Name())] = c
}

// Rebind moves an existing attempt onto a new channel, resetting its
// channel-scoped state.
func (r *Registry) Rebind(c *Connection, ch pipeline.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byChannel, c.Channel())
	c.rebind(ch)
	r.byChannel[ch] = c
}

// Remove flushes an attempt from both indexes. Safe to call twice.
func (r *Registry) Remove(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byChannel[c.Channel()]; ok && cur == c {
		delete(r.byChannel, c.Channel())
	}
	if cur, ok := r.byName[r.key(c.Name())]; ok && cur == c {
		delete(r.byName, r.key(c.Name()))
	}
}

// Len reports the number of live attempts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byChannel)
}

// All returns a snapshot of the live attempts.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.byChannel))
	for _, c := range r.byChannel {
		out = append(out, c)
	}
	return out
}
