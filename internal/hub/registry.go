package hub

import (
	"sync"
	"time"
)

// Well-known hub names. Hubs are logical broadcast endpoints with
// disjoint topic spaces.
const (
	HubMarketData = "market-data"
	HubSignals    = "signals"
	HubPortfolio  = "portfolio"
)

// HubStats is a point-in-time view of one hub.
type HubStats struct {
	Hub               string         `json:"hub"`
	TotalConnections  int            `json:"total_connections"`
	TotalGroups       int            `json:"total_groups"`
	GroupMemberCounts map[string]int `json:"group_member_counts"`
	LastActivity      time.Time      `json:"last_activity"`
}

// connEntry tracks one connection's group memberships. The entry owns
// its lock so concurrent subscribe/unsubscribe from different topic
// managers cannot lose updates.
type connEntry struct {
	mu     sync.Mutex
	groups map[string]struct{}
	seen   time.Time
}

type hubState struct {
	mu    sync.RWMutex
	conns map[string]*connEntry
	seen  time.Time
}

// Registry tracks, per hub, which connections exist and which groups
// each belongs to. It is the source of truth for broadcast targeting;
// the transport's own group namespace is not consulted.
type Registry struct {
	mu   sync.RWMutex
	hubs map[string]*hubState
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{hubs: make(map[string]*hubState)}
}

func (r *Registry) hub(name string, create bool) *hubState {
	r.mu.RLock()
	h := r.hubs[name]
	r.mu.RUnlock()
	if h != nil || !create {
		return h
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h = r.hubs[name]; h == nil {
		h = &hubState{conns: make(map[string]*connEntry), seen: time.Now()}
		r.hubs[name] = h
	}
	return h
}

// RegisterConnection adds a connection to a hub. Re-registering an
// existing id is a no-op beyond refreshing activity.
func (r *Registry) RegisterConnection(hub, connID string) {
	h := r.hub(hub, true)
	now := time.Now()
	h.mu.Lock()
	if _, ok := h.conns[connID]; !ok {
		h.conns[connID] = &connEntry{groups: make(map[string]struct{}), seen: now}
	} else {
		h.conns[connID].touch(now)
	}
	h.seen = now
	h.mu.Unlock()
}

// UnregisterConnection removes a connection and all its memberships.
func (r *Registry) UnregisterConnection(hub, connID string) {
	h := r.hub(hub, false)
	if h == nil {
		return
	}
	h.mu.Lock()
	delete(h.conns, connID)
	h.seen = time.Now()
	h.mu.Unlock()
}

// AddToGroup subscribes a connection to a group. Unknown connections are
// registered implicitly.
func (r *Registry) AddToGroup(hub, connID, group string) {
	h := r.hub(hub, true)
	now := time.Now()
	h.mu.Lock()
	c, ok := h.conns[connID]
	if !ok {
		c = &connEntry{groups: make(map[string]struct{}), seen: now}
		h.conns[connID] = c
	}
	h.seen = now
	h.mu.Unlock()

	c.mu.Lock()
	c.groups[group] = struct{}{}
	c.seen = now
	c.mu.Unlock()
}

// RemoveFromGroup unsubscribes a connection from a group.
func (r *Registry) RemoveFromGroup(hub, connID, group string) {
	h := r.hub(hub, false)
	if h == nil {
		return
	}
	h.mu.RLock()
	c := h.conns[connID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	delete(c.groups, group)
	c.seen = now
	c.mu.Unlock()
	h.mu.Lock()
	h.seen = now
	h.mu.Unlock()
}

// ConnectionGroups returns the groups a connection belongs to.
func (r *Registry) ConnectionGroups(hub, connID string) []string {
	h := r.hub(hub, false)
	if h == nil {
		return nil
	}
	h.mu.RLock()
	c := h.conns[connID]
	h.mu.RUnlock()
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.groups))
	for g := range c.groups {
		out = append(out, g)
	}
	return out
}

// HubConnections returns the ids of all connections in a hub.
func (r *Registry) HubConnections(hub string) []string {
	h := r.hub(hub, false)
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.conns))
	for id := range h.conns {
		out = append(out, id)
	}
	return out
}

// IsConnectionRegistered reports whether a connection exists in a hub.
func (r *Registry) IsConnectionRegistered(hub, connID string) bool {
	h := r.hub(hub, false)
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[connID]
	return ok
}

// GroupMembers returns the connection ids subscribed to a group.
func (r *Registry) GroupMembers(hub, group string) []string {
	h := r.hub(hub, false)
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []string
	for id, c := range h.conns {
		c.mu.Lock()
		_, member := c.groups[group]
		c.mu.Unlock()
		if member {
			out = append(out, id)
		}
	}
	return out
}

// HubGroupName namespaces a group key by hub so hubs sharing a single
// transport-level group namespace cannot collide.
func HubGroupName(hub, group string) string {
	return hub + ":" + group
}

// HubStats summarizes one hub's connections and group memberships.
func (r *Registry) HubStats(hub string) HubStats {
	stats := HubStats{Hub: hub, GroupMemberCounts: make(map[string]int)}
	h := r.hub(hub, false)
	if h == nil {
		return stats
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	stats.TotalConnections = len(h.conns)
	stats.LastActivity = h.seen
	for _, c := range h.conns {
		c.mu.Lock()
		for g := range c.groups {
			stats.GroupMemberCounts[g]++
		}
		c.mu.Unlock()
	}
	stats.TotalGroups = len(stats.GroupMemberCounts)
	return stats
}

// CleanupStaleConnections removes connections in hubs whose last
// activity is older than maxAge and that hold zero group memberships,
// a heuristic for abandoned connections the transport never reported
// closed. Returns the number removed.
func (r *Registry) CleanupStaleConnections(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	r.mu.RLock()
	hubs := make([]*hubState, 0, len(r.hubs))
	for _, h := range r.hubs {
		hubs = append(hubs, h)
	}
	r.mu.RUnlock()

	for _, h := range hubs {
		h.mu.Lock()
		if h.seen.After(cutoff) {
			h.mu.Unlock()
			continue
		}
		for id, c := range h.conns {
			c.mu.Lock()
			stale := len(c.groups) == 0 && c.seen.Before(cutoff)
			c.mu.Unlock()
			if stale {
				delete(h.conns, id)
				removed++
			}
		}
		h.mu.Unlock()
	}
	return removed
}

func (c *connEntry) touch(now time.Time) {
	c.mu.Lock()
	c.seen = now
	c.mu.Unlock()
}
