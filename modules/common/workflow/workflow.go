package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"photo-fusion-server/modules/common/apperr"
	"photo-fusion-server/modules/common/model"
	"photo-fusion-server/modules/common/utils"
)

// State - 워크플로우 상태
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// DefaultStatusInterval is how often the rotating status message advances.
const DefaultStatusInterval = 2500 * time.Millisecond

// Request - 한 번의 생성 요청 (제출 후 변경되지 않음)
type Request[P any] struct {
	Image  model.UploadedImage
	Params P

	// Progress announces the subject (e.g. a resolved celebrity) while the
	// request is still running. Never nil.
	Progress func(subject string)
}

// Mode describes one experience: its parameters, validation and adapter call.
type Mode[P any] struct {
	Name        string
	Title       string
	Description string

	// DownloadSuffix ends the download filename: "<subject>-<suffix>.png".
	DownloadSuffix string

	// RetainImageOnReset keeps the uploaded image across Reset.
	RetainImageOnReset bool

	Defaults func() P
	Validate func(img *model.UploadedImage, params P) error
	Run      func(ctx context.Context, req Request[P]) (*model.Result, error)

	// StatusMessages returns the rotating loader text for a subject.
	// Optional.
	StatusMessages func(subject string, params P) []string
}

// Info returns the catalog entry for the mode.
func (m Mode[P]) Info() model.ModeInfo {
	return model.ModeInfo{Name: m.Name, Title: m.Title, Description: m.Description}
}

// Observer receives every snapshot and every status message of a Machine.
type Observer interface {
	StateChanged(mode string, state State, snapshot any)
	Status(mode, message string)
}

type options struct {
	observer       Observer
	statusInterval time.Duration
}

type Option func(*options)

// WithObserver - 상태 변경 알림 대상 지정
func WithObserver(o Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// WithStatusInterval overrides DefaultStatusInterval.
func WithStatusInterval(d time.Duration) Option {
	return func(opts *options) {
		if d > 0 {
			opts.statusInterval = d
		}
	}
}

// Machine is the upload → configure → generate → result state machine shared
// by every mode. All methods are safe for concurrent use; the adapter call
// runs outside the lock while the machine sits in StateProcessing.
type Machine[P any] struct {
	mode Mode[P]
	opts options

	mu       sync.Mutex
	state    State
	image    *model.UploadedImage
	params   P
	result   *model.Result
	err      *apperr.Error
	reserved bool

	subject   string
	status    string
	statusIdx int

	// notifications are ticketed under mu and delivered in ticket order
	ticket     uint64
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	delivered  uint64
}

// NewMachine - Idle 상태, 기본 파라미터로 시작하는 머신 생성
func NewMachine[P any](mode Mode[P], opts ...Option) *Machine[P] {
	o := options{statusInterval: DefaultStatusInterval}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Machine[P]{mode: mode, opts: o, state: StateIdle}
	m.notifyCond = sync.NewCond(&m.notifyMu)
	m.params = m.defaults()
	return m
}

func (m *Machine[P]) defaults() P {
	var zero P
	if m.mode.Defaults == nil {
		return zero
	}
	return m.mode.Defaults()
}

// Mode returns the machine's mode description.
func (m *Machine[P]) Mode() Mode[P] {
	return m.mode
}

// State returns the current state.
func (m *Machine[P]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Params returns a copy of the current parameters.
func (m *Machine[P]) Params() P {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

// Snapshot returns the wire form of the current state.
func (m *Machine[P]) Snapshot() Snapshot[P] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Upload replaces the image wholesale and clears any previous outcome.
func (m *Machine[P]) Upload(img model.UploadedImage) (Snapshot[P], error) {
	return m.mutate("upload", func() {
		m.image = &img
		m.result = nil
		m.err = nil
		m.state = StateIdle
	})
}

// SetParams replaces the parameters. The state is left as is.
func (m *Machine[P]) SetParams(params P) (Snapshot[P], error) {
	return m.mutate("set params", func() {
		m.params = params
	})
}

// UpdateParams applies fn to the current parameters.
func (m *Machine[P]) UpdateParams(fn func(*P)) (Snapshot[P], error) {
	return m.mutate("update params", func() {
		fn(&m.params)
	})
}

// Reset returns to Idle with default parameters. The image is dropped unless
// the mode retains it.
func (m *Machine[P]) Reset() (Snapshot[P], error) {
	return m.mutate("reset", func() {
		m.state = StateIdle
		m.result = nil
		m.err = nil
		m.params = m.defaults()
		m.subject = ""
		if !m.mode.RetainImageOnReset {
			m.image = nil
		}
	})
}

// Retry returns to Idle keeping the image and the last entered parameters.
func (m *Machine[P]) Retry() (Snapshot[P], error) {
	return m.mutate("retry", func() {
		m.state = StateIdle
		m.result = nil
		m.err = nil
	})
}

// Reserve holds the machine for an auxiliary remote call (e.g. fetching a
// random name). Generate and the other mutations are refused until release
// is called. release applies update (may be nil) to the parameters in the
// same critical section that frees the machine; only the first call counts.
func (m *Machine[P]) Reserve() (release func(update func(*P)) Snapshot[P], err error) {
	if _, err := m.mutate("reserve", func() { m.reserved = true }); err != nil {
		return nil, err
	}

	var once sync.Once
	return func(update func(*P)) Snapshot[P] {
		once.Do(func() {
			m.mu.Lock()
			m.reserved = false
			if update != nil {
				update(&m.params)
			}
			m.unlockAndNotify()
		})
		return m.Snapshot()
	}, nil
}

// Generate validates, moves to Processing, invokes the adapter exactly once
// and settles in Success or Error. params, when non-nil, replace the current
// parameters first. A validation failure leaves the state untouched.
func (m *Machine[P]) Generate(ctx context.Context, params *P) (Snapshot[P], error) {
	m.mu.Lock()
	if err := m.busyLocked("generate"); err != nil {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, err
	}
	if params != nil {
		m.params = *params
	}
	if m.mode.Validate != nil {
		if err := m.mode.Validate(m.image, m.params); err != nil {
			snap := m.snapshotLocked()
			m.mu.Unlock()
			log.Debug().Str("mode", m.mode.Name).Err(err).Msg("[Workflow] validation failed")
			return snap, err
		}
	}

	req := Request[P]{Params: m.params, Progress: m.setSubject}
	if m.image != nil {
		req.Image = *m.image
	}

	m.state = StateProcessing
	m.result = nil
	m.err = nil
	m.subject = ""
	m.statusIdx = 0
	m.status = m.currentMessageLocked()
	snap := m.unlockAndNotify()
	if snap.Status != "" {
		m.emitStatus(snap.Status)
	}

	log.Info().Str("mode", m.mode.Name).Msg("🚀 [Workflow] generation started")
	startTime := time.Now()

	stop := m.startTicker()
	result, runErr := m.run(ctx, req)
	stop()

	var appErr *apperr.Error
	if runErr == nil && (result == nil || len(result.Image.Data) == 0) {
		runErr = apperr.Remote("Image generation failed, no image was returned.", nil)
	}

	m.mu.Lock()
	if runErr != nil {
		appErr = apperr.From(runErr)
		m.state = StateError
		m.err = appErr
	} else {
		m.state = StateSuccess
		m.result = result
	}
	m.status = ""
	snap = m.unlockAndNotify()

	if runErr != nil {
		log.Error().Str("mode", m.mode.Name).Err(runErr).Dur("elapsed", time.Since(startTime)).Msg("❌ [Workflow] generation failed")
		return snap, appErr
	}
	log.Info().Str("mode", m.mode.Name).Dur("elapsed", time.Since(startTime)).Msg("✅ [Workflow] generation completed")
	return snap, nil
}

// Download returns the generated image and its filename. Only valid in Success.
func (m *Machine[P]) Download() (string, model.UploadedImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateSuccess || m.result == nil {
		return "", model.UploadedImage{}, apperr.Validation("There is no generated image to download yet.")
	}
	return m.filenameLocked(), m.result.Image, nil
}

func (m *Machine[P]) filenameLocked() string {
	subject := m.result.Subject
	if subject == "" {
		subject = m.mode.Name
	}
	return utils.DownloadFilename(subject, m.mode.DownloadSuffix)
}

func (m *Machine[P]) mutate(op string, fn func()) (Snapshot[P], error) {
	m.mu.Lock()
	if err := m.busyLocked(op); err != nil {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, err
	}
	fn()
	return m.unlockAndNotify(), nil
}

// run invokes the adapter. A panic settles the run as an unknown error so the
// machine never stays in StateProcessing.
func (m *Machine[P]) run(ctx context.Context, req Request[P]) (result *model.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("mode", m.mode.Name).Interface("panic", r).Msg("💥 [Workflow] adapter panicked")
			result = nil
			err = &apperr.Error{
				Kind:   apperr.KindUnknown,
				Detail: "An unexpected error occurred while generating the image.",
				Err:    fmt.Errorf("adapter panic: %v", r),
			}
		}
	}()
	return m.mode.Run(ctx, req)
}

func (m *Machine[P]) busyLocked(op string) error {
	if m.state == StateProcessing {
		return apperr.Busy("A generation is already in progress, cannot " + op + " now.")
	}
	if m.reserved {
		return apperr.Busy("Another request is still running, cannot " + op + " now.")
	}
	return nil
}

func (m *Machine[P]) setSubject(subject string) {
	m.mu.Lock()
	if m.state != StateProcessing {
		m.mu.Unlock()
		return
	}
	m.subject = subject
	m.statusIdx = 0
	m.status = m.currentMessageLocked()
	msg := m.status
	m.mu.Unlock()

	if msg != "" {
		m.emitStatus(msg)
	}
}

func (m *Machine[P]) messagesLocked() []string {
	if m.mode.StatusMessages == nil {
		return nil
	}
	return m.mode.StatusMessages(m.subject, m.params)
}

func (m *Machine[P]) currentMessageLocked() string {
	msgs := m.messagesLocked()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[m.statusIdx%len(msgs)]
}

// startTicker rotates the status message until the returned stop function
// is called. stop waits for the goroutine so nothing is emitted afterwards.
func (m *Machine[P]) startTicker() (stop func()) {
	if m.mode.StatusMessages == nil {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(m.opts.statusInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.mu.Lock()
				msgs := m.messagesLocked()
				if m.state != StateProcessing || len(msgs) < 2 {
					m.mu.Unlock()
					continue
				}
				m.statusIdx = (m.statusIdx + 1) % len(msgs)
				m.status = msgs[m.statusIdx]
				msg := m.status
				m.mu.Unlock()

				m.emitStatus(msg)
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

// unlockAndNotify must be called with mu held. It releases mu and hands the
// snapshot to the observer after every earlier snapshot has been delivered.
func (m *Machine[P]) unlockAndNotify() Snapshot[P] {
	snap := m.snapshotLocked()
	if m.opts.observer == nil {
		m.mu.Unlock()
		return snap
	}
	ticket := m.ticket
	m.ticket++
	m.mu.Unlock()

	m.notifyMu.Lock()
	for m.delivered != ticket {
		m.notifyCond.Wait()
	}
	m.notifyMu.Unlock()

	defer func() {
		m.notifyMu.Lock()
		m.delivered++
		m.notifyCond.Broadcast()
		m.notifyMu.Unlock()
	}()
	m.opts.observer.StateChanged(m.mode.Name, snap.State, snap)
	return snap
}

func (m *Machine[P]) emitStatus(msg string) {
	if m.opts.observer != nil {
		m.opts.observer.Status(m.mode.Name, msg)
	}
}
