// Package peers holds the set of remote device addresses that outbound
// clipboard broadcasts fan out to.
package peers

import (
	"net"
	"slices"
	"strings"
	"sync"
)

// Registry is the selected-peer set. It is written by control callers and
// read by the send path; every access goes through mu.
type Registry struct {
	mu  sync.Mutex
	set map[string]struct{}
}

// NewRegistry returns a registry seeded with addrs.
func NewRegistry(addrs ...string) *Registry {
	r := &Registry{set: make(map[string]struct{})}
	r.Set(addrs)
	return r
}

// Set replaces the whole set. Blank entries are dropped, Bluetooth addresses
// are canonicalised to upper-case colon form and duplicates collapse.
// Broadcasts already in flight keep the snapshot they took.
func (r *Registry) Set(addrs []string) {
	next := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		next[canonical(a)] = struct{}{}
	}
	r.mu.Lock()
	r.set = next
	r.mu.Unlock()
}

// Snapshot returns a sorted copy of the current set. The caller owns the
// returned slice.
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	out := make([]string, 0, len(r.set))
	for a := range r.set {
		out = append(out, a)
	}
	r.mu.Unlock()
	slices.Sort(out)
	return out
}

// Len returns the number of selected peers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.set)
}

// Clear empties the set.
func (r *Registry) Clear() { r.Set(nil) }

// canonical returns a in the AA:BB:CC:DD:EE:FF form when it is a 48-bit
// hardware address, and unchanged otherwise.
func canonical(a string) string {
	hw, err := net.ParseMAC(a)
	if err != nil || len(hw) != 6 {
		return a
	}
	return strings.ToUpper(hw.String())
}
