package session

import (
	"sync"
	"time"

	"github.com/dshills/caretglide/internal/config"
	"github.com/dshills/caretglide/internal/host"
	"github.com/dshills/caretglide/internal/logging"
)

// Plugin is the engine's entry point. It owns at most one active
// session; attaching to a new surface tears the previous session down
// synchronously first.
type Plugin struct {
	mu sync.Mutex

	sched  host.Scheduler
	store  *config.Store
	clock  func() time.Time
	logger *logging.Logger

	active *Session
}

// NewPlugin creates a plugin. clock may be nil (wall clock); logger
// may be nil (silent).
func NewPlugin(sched host.Scheduler, store *config.Store, clock func() time.Time, logger *logging.Logger) *Plugin {
	if logger == nil {
		logger = logging.NullLogger
	}
	return &Plugin{
		sched:  sched,
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// Attach binds the engine to a surface and returns the session.
// Re-attaching to the already-bound surface while healthy is a no-op
// returning the existing session. Any other active session is torn
// down first.
func (p *Plugin) Attach(surface host.Surface) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil {
		if p.active.Surface() == surface && p.active.healthy() {
			return p.active
		}
		p.active.detach()
		p.active = nil
	}

	s := newSession(surface, p.sched, p.store, p.clock, p.logger)
	s.attach()
	p.active = s
	return s
}

// Detach tears down the active session, if any.
func (p *Plugin) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		p.active.detach()
		p.active = nil
	}
}

// Active returns the current session, or nil.
func (p *Plugin) Active() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Store returns the settings store shared by all sessions.
func (p *Plugin) Store() *config.Store {
	return p.store
}

// LoadSettings reads the engine's settings from the host's storage
// facility and installs them. A missing or partial blob yields
// defaults for the absent keys.
func (p *Plugin) LoadSettings(ss host.SettingsStore) error {
	blob, err := ss.Load()
	if err != nil {
		return err
	}
	cfg, err := config.FromBlob(blob)
	if err != nil {
		return err
	}
	return p.store.Update(cfg, "blob")
}

// SaveSettings writes the current settings into the host's storage
// facility, preserving blob keys owned by the host.
func (p *Plugin) SaveSettings(ss host.SettingsStore) error {
	blob, err := ss.Load()
	if err != nil {
		return err
	}
	out, err := config.ToBlob(blob, p.store.Current())
	if err != nil {
		return err
	}
	return ss.Save(out)
}
