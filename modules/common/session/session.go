package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"photo-fusion-server/modules/common/apperr"
	"photo-fusion-server/modules/common/hub"
	"photo-fusion-server/modules/common/model"
	"photo-fusion-server/modules/common/stats"
	"photo-fusion-server/modules/common/workflow"
)

const statsTimeout = 2 * time.Second

// Factory builds a fresh page for one session.
type Factory func(opts ...workflow.Option) workflow.Page

// Broadcaster is the part of hub.Hub the manager needs.
type Broadcaster interface {
	Broadcast(sessionID string, ev hub.Event)
	CloseSession(sessionID string)
}

// Session - 한 사용자의 모드별 페이지 묶음
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	pages map[string]workflow.Page
}

// Page returns the page for mode.
func (s *Session) Page(mode string) (workflow.Page, bool) {
	p, ok := s.pages[mode]
	return p, ok
}

// Snapshots returns the current snapshot of every page keyed by mode.
func (s *Session) Snapshots() map[string]any {
	out := make(map[string]any, len(s.pages))
	for name, p := range s.pages {
		out[name] = p.Current()
	}
	return out
}

type registration struct {
	factory Factory
	info    model.ModeInfo
}

// Manager owns every live session. Sessions expire after ttl without access.
type Manager struct {
	cache   *cache.Cache
	bc      Broadcaster
	counter stats.Counter

	mu             sync.RWMutex
	modes          map[string]registration
	order          []string
	statusInterval time.Duration
}

type Option func(*Manager)

// WithStatusInterval sets the loader message interval of new pages.
func WithStatusInterval(d time.Duration) Option {
	return func(m *Manager) { m.statusInterval = d }
}

// NewManager - TTL 기반 세션 매니저 생성
func NewManager(ttl time.Duration, bc Broadcaster, counter stats.Counter, opts ...Option) *Manager {
	cleanup := time.Minute
	if ttl < 2*cleanup {
		cleanup = ttl / 2
	}

	m := &Manager{
		cache:   cache.New(ttl, cleanup),
		bc:      bc,
		counter: counter,
		modes:   make(map[string]registration),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.cache.OnEvicted(func(id string, _ interface{}) {
		log.Info().Str("session", id).Msg("🗑️ [Session] expired")
		if m.bc != nil {
			m.bc.CloseSession(id)
		}
	})
	return m
}

// Register adds a mode. Pages are created in registration order.
func (m *Manager) Register(name string, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.modes[name]; !exists {
		m.order = append(m.order, name)
	}
	m.modes[name] = registration{factory: f, info: f().Info()}
}

// Modes returns the catalog of registered modes.
func (m *Manager) Modes() []model.ModeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.ModeInfo, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.modes[name].info)
	}
	return out
}

// Create starts a session with one page per registered mode.
func (m *Manager) Create() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		pages:     make(map[string]workflow.Page),
	}
	obs := &observer{sessionID: s.ID, bc: m.bc, counter: m.counter, last: make(map[string]workflow.State)}

	opts := []workflow.Option{workflow.WithObserver(obs)}
	if m.statusInterval > 0 {
		opts = append(opts, workflow.WithStatusInterval(m.statusInterval))
	}

	m.mu.RLock()
	for _, name := range m.order {
		s.pages[name] = m.modes[name].factory(opts...)
	}
	m.mu.RUnlock()

	m.cache.SetDefault(s.ID, s)
	log.Info().Str("session", s.ID).Int("sessions", m.cache.ItemCount()).Msg("✅ [Session] created")
	return s
}

// Get returns a live session and extends its lifetime.
func (m *Manager) Get(id string) (*Session, error) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, apperr.NotFound("Session not found or expired.")
	}
	s := v.(*Session)
	m.cache.SetDefault(id, s)
	return s, nil
}

// Page returns the page of mode in session id.
func (m *Manager) Page(id, mode string) (workflow.Page, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	p, ok := s.Page(mode)
	if !ok {
		return nil, apperr.NotFound("Unknown mode: " + mode)
	}
	return p, nil
}

// Delete drops a session immediately.
func (m *Manager) Delete(id string) {
	m.cache.Delete(id)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.cache.ItemCount()
}

// observer forwards page events to the hub and records finished generations.
type observer struct {
	sessionID string
	bc        Broadcaster
	counter   stats.Counter

	mu   sync.Mutex
	last map[string]workflow.State
}

func (o *observer) StateChanged(mode string, state workflow.State, snapshot any) {
	o.mu.Lock()
	prev := o.last[mode]
	o.last[mode] = state
	o.mu.Unlock()

	if o.bc != nil {
		o.bc.Broadcast(o.sessionID, hub.Event{
			Type:     hub.EventSnapshot,
			Mode:     mode,
			State:    string(state),
			Snapshot: snapshot,
		})
	}

	if prev != workflow.StateProcessing || o.counter == nil {
		return
	}
	var outcome stats.Outcome
	switch state {
	case workflow.StateSuccess:
		outcome = stats.OutcomeSuccess
	case workflow.StateError:
		outcome = stats.OutcomeError
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()
	if err := o.counter.Record(ctx, mode, outcome); err != nil {
		log.Warn().Err(err).Str("mode", mode).Msg("[Session] failed to record stats")
	}
}

func (o *observer) Status(mode, message string) {
	if o.bc == nil {
		return
	}
	o.bc.Broadcast(o.sessionID, hub.Event{Type: hub.EventStatus, Mode: mode, Message: message})
}
