package tool

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps agent identities to the capabilities they may invoke.
// Unknown agents have an empty allow-list.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]map[string]Tool{}}
}

// Register adds tools to agentID's allow-list. Registering two different
// tools under the same name for one agent is an error.
func (r *Registry) Register(agentID string, tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.tools[agentID]
	if !ok {
		set = map[string]Tool{}
		r.tools[agentID] = set
	}

	for _, t := range tools {
		if t == nil {
			continue
		}
		if existing, dup := set[t.Name()]; dup && existing != t {
			return fmt.Errorf("tool %q already registered for agent %q", t.Name(), agentID)
		}
		set[t.Name()] = t
	}

	return nil
}

// ListFor returns the capabilities allowed for agentID sorted by name.
// Unknown agents yield an empty list.
func (r *Registry) ListFor(agentID string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.tools[agentID]
	out := make([]Tool, 0, len(set))
	for _, t := range set {
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })

	return out
}

// Lookup returns the named capability if it is allow-listed for agentID.
func (r *Registry) Lookup(agentID, name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[agentID][name]

	return t, ok
}

// Toolset returns an immutable snapshot of agentID's capabilities. Later
// registrations do not affect the snapshot.
func (r *Registry) Toolset(agentID string, optFns ...func(o *ToolsetOptions)) *Toolset {
	return NewToolset(agentID, r.ListFor(agentID), optFns...)
}
