package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-fusion-server/modules/common/apperr"
	"photo-fusion-server/modules/common/hub"
	"photo-fusion-server/modules/common/model"
	"photo-fusion-server/modules/common/stats"
	"photo-fusion-server/modules/common/workflow"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	events map[string][]hub.Event
	closed []string
}

func (f *fakeBroadcaster) Broadcast(sessionID string, ev hub.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events == nil {
		f.events = map[string][]hub.Event{}
	}
	f.events[sessionID] = append(f.events[sessionID], ev)
}

func (f *fakeBroadcaster) CloseSession(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, sessionID)
}

func (f *fakeBroadcaster) closedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.closed...)
}

func (f *fakeBroadcaster) eventsFor(id string) []hub.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hub.Event(nil), f.events[id]...)
}

type echoParams struct {
	Text string `json:"text"`
}

func echoFactory(fail bool) Factory {
	mode := workflow.Mode[echoParams]{
		Name:           "echo",
		Title:          "Echo",
		DownloadSuffix: "echo",
		Validate: func(img *model.UploadedImage, _ echoParams) error {
			if img == nil {
				return apperr.Validation("Please upload an image first.")
			}
			return nil
		},
		Run: func(_ context.Context, req workflow.Request[echoParams]) (*model.Result, error) {
			if fail {
				return nil, apperr.Remote("boom", nil)
			}
			return &model.Result{Image: req.Image, Subject: "echo"}, nil
		},
		StatusMessages: func(string, echoParams) []string { return []string{"Working..."} },
	}
	return func(opts ...workflow.Option) workflow.Page {
		return workflow.AsPage(workflow.NewMachine(mode, opts...))
	}
}

var img = model.UploadedImage{Data: []byte{1}, MimeType: "image/png"}

func TestManager_CreateAndGet(t *testing.T) {
	m := NewManager(time.Hour, &fakeBroadcaster{}, stats.NewMemoryCounter())
	m.Register("echo", echoFactory(false))

	s := m.Create()

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Count())

	_, err = m.Page(s.ID, "echo")
	assert.NoError(t, err)

	_, err = m.Page(s.ID, "nope")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = m.Get("missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	assert.Equal(t, []model.ModeInfo{{Name: "echo", Title: "Echo"}}, m.Modes())
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	m := NewManager(time.Hour, nil, nil)
	m.Register("echo", echoFactory(false))
	a, b := m.Create(), m.Create()

	pa, _ := a.Page("echo")
	_, err := pa.Upload(img)
	require.NoError(t, err)

	pb, _ := b.Page("echo")
	snap := pb.Current().(workflow.Snapshot[echoParams])
	assert.Nil(t, snap.Image)
}

func TestManager_BroadcastsAndRecordsOutcomes(t *testing.T) {
	bc := &fakeBroadcaster{}
	counter := stats.NewMemoryCounter()
	m := NewManager(time.Hour, bc, counter)
	m.Register("echo", echoFactory(false))
	s := m.Create()
	p, _ := s.Page("echo")

	_, err := p.Upload(img)
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), nil)
	require.NoError(t, err)
	_, err = p.SetParams([]byte(`{"text":"again"}`))
	require.NoError(t, err)

	var states []string
	var statuses []string
	for _, ev := range bc.eventsFor(s.ID) {
		switch ev.Type {
		case hub.EventSnapshot:
			states = append(states, ev.State)
		case hub.EventStatus:
			statuses = append(statuses, ev.Message)
		}
	}
	assert.Equal(t, []string{"idle", "processing", "success", "success"}, states)
	assert.Equal(t, []string{"Working..."}, statuses)

	snap, err := counter.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats.ModeStats{Success: 1}, snap["echo"], "only the processing transition counts")
}

// gatedBroadcaster holds the first success snapshot until release is closed.
type gatedBroadcaster struct {
	fakeBroadcaster
	entered  chan struct{}
	release  chan struct{}
	gateOnce sync.Once
}

func (g *gatedBroadcaster) Broadcast(sessionID string, ev hub.Event) {
	g.fakeBroadcaster.Broadcast(sessionID, ev)
	if ev.Type == hub.EventSnapshot && ev.State == "success" {
		g.gateOnce.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
}

func TestManager_RecordsSuccessWhenResetRacesBroadcast(t *testing.T) {
	bc := &gatedBroadcaster{entered: make(chan struct{}), release: make(chan struct{})}
	counter := stats.NewMemoryCounter()
	m := NewManager(time.Hour, bc, counter)
	m.Register("echo", echoFactory(false))
	s := m.Create()
	p, _ := s.Page("echo")
	_, err := p.Upload(img)
	require.NoError(t, err)

	generated := make(chan error, 1)
	go func() {
		_, err := p.Generate(context.Background(), nil)
		generated <- err
	}()
	<-bc.entered

	reset := make(chan error, 1)
	go func() {
		_, err := p.Reset()
		reset <- err
	}()
	require.Eventually(t, func() bool {
		return p.Current().(workflow.Snapshot[echoParams]).State == workflow.StateIdle
	}, time.Second, 5*time.Millisecond)

	close(bc.release)
	require.NoError(t, <-generated)
	require.NoError(t, <-reset)

	var states []string
	for _, ev := range bc.eventsFor(s.ID) {
		if ev.Type == hub.EventSnapshot {
			states = append(states, ev.State)
		}
	}
	assert.Equal(t, []string{"idle", "processing", "success", "idle"}, states)

	snap, err := counter.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats.ModeStats{Success: 1}, snap["echo"])
}

func TestManager_RecordsErrors(t *testing.T) {
	counter := stats.NewMemoryCounter()
	m := NewManager(time.Hour, nil, counter)
	m.Register("echo", echoFactory(true))
	p, _ := m.Create().Page("echo")
	_, _ = p.Upload(img)

	_, err := p.Generate(context.Background(), nil)
	require.Error(t, err)

	snap, _ := counter.Snapshot(context.Background())
	assert.Equal(t, stats.ModeStats{Error: 1}, snap["echo"])
}

func TestManager_Expiry(t *testing.T) {
	bc := &fakeBroadcaster{}
	m := NewManager(40*time.Millisecond, bc, nil)
	m.Register("echo", echoFactory(false))
	s := m.Create()

	require.Eventually(t, func() bool {
		return len(bc.closedIDs()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{s.ID}, bc.closedIDs())
	_, err := m.Get(s.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestManager_Delete(t *testing.T) {
	bc := &fakeBroadcaster{}
	m := NewManager(time.Hour, bc, nil)
	s := m.Create()

	m.Delete(s.ID)

	assert.Zero(t, m.Count())
	assert.Equal(t, []string{s.ID}, bc.closedIDs())
}
