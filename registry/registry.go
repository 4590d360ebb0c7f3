// Package registry maps logical agent ids from the static roster to cached
// backend client handles. Handles are created lazily on first use and reused
// for the process lifetime; the cache is the gateway's only process-wide
// shared mutable state.
package registry

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/agentgate/config"
	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/engine"
	"github.com/hupe1980/agentgate/logging"
)

// Factory constructs the backend client for one roster entry. Construction
// may fail (e.g. credential failure); the registry wraps that failure and
// does not cache it.
type Factory func(ctx context.Context, agent config.Agent) (engine.Client, error)

// Handle pairs a roster entry with its cached backend client.
type Handle struct {
	Agent  config.Agent
	Client engine.Client
}

// Options holds overrides passed to New().
type Options struct {
	Logger logging.Logger
}

// Registry resolves agent ids to handles. Safe for concurrent use; at most
// one handle is ever constructed per agent id.
type Registry struct {
	cfg     *config.Config
	factory Factory
	logger  logging.Logger

	mu      sync.Mutex
	handles map[string]*Handle
	closed  bool
}

// New constructs a Registry over the configured roster.
func New(cfg *config.Config, factory Factory, optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		cfg:     cfg,
		factory: factory,
		logger:  opts.Logger,
		handles: make(map[string]*Handle),
	}
}

// Get returns the cached handle for agentID, constructing it on first use.
// The lock is held across construction so two racing first-accesses cannot
// both build a client; losers simply wait and receive the cached handle.
func (r *Registry) Get(ctx context.Context, agentID string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("registry: closed")
	}
	if h, ok := r.handles[agentID]; ok {
		return h, nil
	}

	agent := r.cfg.Agent(agentID)
	if agent == nil {
		return nil, core.AgentNotFoundError(agentID)
	}
	if !agent.Enabled {
		return nil, core.EngineError(fmt.Sprintf("agent %s is disabled", agentID), nil)
	}

	client, err := r.factory(ctx, *agent)
	if err != nil {
		return nil, core.EngineError(fmt.Sprintf("agent initialization failed: %s", err), err)
	}

	h := &Handle{Agent: *agent, Client: client}
	r.handles[agentID] = h
	r.logger.Info("initialized agent", "agent_id", agentID, "name", agent.Name)
	return h, nil
}

// List returns the full configured roster regardless of cache state. This is
// a pure read of static configuration, not of live handles.
func (r *Registry) List() []core.AgentInfo {
	infos := make([]core.AgentInfo, 0, len(r.cfg.Agents))
	for i := range r.cfg.Agents {
		infos = append(infos, r.cfg.Agents[i].Info())
	}
	return infos
}

// Close tears down every cached handle. Subsequent Get calls fail.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	var firstErr error
	for id, h := range r.handles {
		if closer, ok := h.Client.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close handle %s: %w", id, err)
			}
		}
	}
	r.handles = make(map[string]*Handle)
	return firstErr
}
