package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/threatwatch-dashboard/internal/alerts"
	"github.com/xela07ax/threatwatch-dashboard/internal/backend"
	"github.com/xela07ax/threatwatch-dashboard/internal/channel"
	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
	"github.com/xela07ax/threatwatch-dashboard/internal/synth"
)

var fixedNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type fetchResult struct {
	data *domain.SessionData
	err  error
}

// stubFetcher блокирует каждый пулл, пока тест не выдаст ответ через respond.
type stubFetcher struct {
	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int
	results     chan fetchResult
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{results: make(chan fetchResult)}
}

func (f *stubFetcher) FetchSessionData(ctx context.Context) (*domain.SessionData, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	select {
	case r := <-f.results:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *stubFetcher) respond(t *testing.T, data *domain.SessionData, err error) {
	t.Helper()
	select {
	case f.results <- fetchResult{data: data, err: err}:
	case <-time.After(2 * time.Second):
		t.Fatal("no pull was waiting for a response")
	}
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type harness struct {
	c       *Coordinator
	fetcher *stubFetcher
	alerts  *alerts.Log
	cancel  context.CancelFunc
	done    chan struct{}
}

func startCoordinator(t *testing.T, poll time.Duration) *harness {
	t.Helper()
	f := newStubFetcher()
	log := alerts.NewLog(alerts.DefaultCapacity, nil)
	c := NewCoordinator(f, synth.DefaultPolicy(), log, nil, nil, Options{
		PollInterval: poll,
		FetchTimeout: 5 * time.Second,
		Clock:        func() time.Time { return fixedNow },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()

	h := &harness{c: c, fetcher: f, alerts: log, cancel: cancel, done: done}
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return !h.c.Snapshot().Fetching }, 2*time.Second, 5*time.Millisecond)
}

func remotePayload() *domain.SessionData {
	sessionID := "session_20260501_090000"
	return &domain.SessionData{
		Stats: domain.SessionStats{
			TotalLogsProcessed:     50,
			TotalAnomaliesDetected: 5,
			NormalActivities:       45,
			ThreatRatePercent:      10,
			SessionID:              &sessionID,
		},
		Charts: domain.ChartDataset{
			Timeline: domain.Timeline{
				Timestamps:    []string{"08:58", "08:59"},
				NormalCounts:  []uint64{20, 25},
				AnomalyCounts: []uint64{2, 3},
			},
			ThreatCategories: domain.ThreatCategories{
				Categories: []string{"Failed Authentication"},
				Counts:     []uint64{5},
			},
			HourlyPattern: domain.HourlyPattern{
				Periods: []string{"06-09"},
				Counts:  []uint64{5},
			},
			SourceKind: domain.SourceRemote,
		},
		LastUpdated: "2026-05-01T09:00:00",
		DataSource:  "session_based_analysis",
		SessionID:   &sessionID,
	}
}

func TestCoordinator_SuccessfulPullAdoptsRemoteVerbatim(t *testing.T) {
	h := startCoordinator(t, time.Hour)
	payload := remotePayload()

	h.fetcher.respond(t, payload, nil)
	h.waitIdle(t)

	v := h.c.Snapshot()
	assert.Equal(t, domain.SourceRemote, v.Source)
	assert.Equal(t, domain.ConnConnected, v.Connection)
	require.NotNil(t, v.Charts)
	require.NotNil(t, v.Session)
	assert.Equal(t, payload.Charts, *v.Charts)
	assert.Equal(t, payload.Stats, *v.Session)
	assert.Equal(t, payload.LastUpdated, v.LastUpdated)
	assert.Equal(t, "session_based_analysis", v.DataSource)
	assert.Equal(t, payload.SessionID, v.SessionID)
	assert.Empty(t, v.LastError)
	assert.Equal(t, 1, h.fetcher.callCount())
}

func TestCoordinator_FailedPullSynthesizesFromCurrentLocalStats(t *testing.T) {
	h := startCoordinator(t, time.Hour)
	local := domain.LocalStats{TotalLogs: 100, NormalCount: 90, SuspiciousCount: 10}

	// Mount-пулл в полете: LocalStats меняются до того, как он упадет
	require.NoError(t, h.c.UpdateLocalStats(context.Background(), local))
	h.fetcher.respond(t, nil, &backend.TransportError{Op: "pull", Err: errors.New("connection refused")})
	h.waitIdle(t)

	v := h.c.Snapshot()
	assert.Equal(t, domain.SourceSynthesized, v.Source)
	assert.Equal(t, domain.ConnError, v.Connection)
	require.NotNil(t, v.Charts)
	assert.Equal(t, synth.Synthesize(local, fixedNow), *v.Charts)
	assert.Equal(t, uint64(90), v.Charts.Timeline.NormalCounts[9])
	assert.Equal(t, uint64(10), v.Charts.Timeline.AnomalyCounts[9])
	assert.Equal(t, []uint64{4, 3, 2, 1}, v.Charts.ThreatCategories.Counts)
	assert.Equal(t, []uint64{2, 1, 1, 1, 1, 1, 1, 1}, v.Charts.HourlyPattern.Counts)
	assert.Equal(t, uint64(100), v.Session.TotalLogsProcessed)
	assert.Contains(t, v.LastError, "connection refused")
	assert.Empty(t, v.DataSource)
	assert.Nil(t, v.SessionID)

	list := h.alerts.List()
	require.NotEmpty(t, list)
	assert.Equal(t, domain.AlertError, list[0].Kind)
}

func TestCoordinator_TriggerDuringFetchIsDropped(t *testing.T) {
	h := startCoordinator(t, time.Hour)
	h.fetcher.respond(t, remotePayload(), nil)
	h.waitIdle(t)

	require.True(t, h.c.Trigger(TriggerTimer))
	accepted, err := h.c.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, accepted, "manual refresh right after a timer tick must be dropped")

	require.Eventually(t, func() bool { return h.fetcher.callCount() == 2 }, time.Second, 5*time.Millisecond)
	h.fetcher.respond(t, remotePayload(), nil)
	h.waitIdle(t)

	assert.Equal(t, 2, h.fetcher.callCount(), "mount + timer only")
	h.fetcher.mu.Lock()
	assert.Equal(t, 1, h.fetcher.maxInFlight)
	h.fetcher.mu.Unlock()
}

func TestCoordinator_PushStatsUpdateIssuesExactlyOnePull(t *testing.T) {
	h := startCoordinator(t, time.Hour)
	h.fetcher.respond(t, remotePayload(), nil)
	h.waitIdle(t)

	h.c.Deliver(channel.Event{Kind: channel.MessageReceived, Message: channel.Message{Type: channel.KindStatsUpdate}})

	require.Eventually(t, func() bool { return h.fetcher.callCount() == 2 }, time.Second, 5*time.Millisecond)
	h.fetcher.respond(t, remotePayload(), nil)
	h.waitIdle(t)

	// Следующий ручной refresh принимается: значит, лишних пуллов в полете нет
	accepted, err := h.c.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, accepted)
	h.fetcher.respond(t, remotePayload(), nil)
	assert.Equal(t, 3, h.fetcher.callCount())
}

func TestCoordinator_UnknownPushKindIsIgnored(t *testing.T) {
	h := startCoordinator(t, time.Hour)
	h.fetcher.respond(t, remotePayload(), nil)
	h.waitIdle(t)
	before := len(h.alerts.List())

	h.c.Deliver(channel.Event{Kind: channel.MessageReceived, Message: channel.Message{Type: "unknown_kind"}})

	// Очередь упорядочена: если бы сообщение запустило пулл, refresh был бы отброшен
	accepted, err := h.c.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, accepted)
	h.fetcher.respond(t, remotePayload(), nil)
	h.waitIdle(t)

	assert.Equal(t, 2, h.fetcher.callCount())
	assert.Len(t, h.alerts.List(), before)
	assert.Equal(t, domain.ConnConnected, h.c.Snapshot().Connection)
}

func TestCoordinator_LocalStatsResynthesizeOnlyWhenSynthesized(t *testing.T) {
	h := startCoordinator(t, time.Hour)
	ctx := context.Background()

	h.fetcher.respond(t, nil, errors.New("boom"))
	h.waitIdle(t)
	require.Equal(t, domain.SourceSynthesized, h.c.Snapshot().Source)

	local := domain.LocalStats{TotalLogs: 11, NormalCount: 8, SuspiciousCount: 3}
	require.NoError(t, h.c.UpdateLocalStats(ctx, local))

	v := h.c.Snapshot()
	assert.Equal(t, synth.Synthesize(local, fixedNow), *v.Charts)
	assert.Equal(t, local, v.Local)
	assert.Equal(t, 1, h.fetcher.callCount(), "resynthesis must not touch the network")

	// После успешного пулла локальные данные не перекрывают Remote
	accepted, err := h.c.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, accepted)
	payload := remotePayload()
	h.fetcher.respond(t, payload, nil)
	h.waitIdle(t)

	require.NoError(t, h.c.UpdateLocalStats(ctx, domain.LocalStats{TotalLogs: 1, SuspiciousCount: 1}))
	v = h.c.Snapshot()
	assert.Equal(t, domain.SourceRemote, v.Source)
	assert.Equal(t, payload.Charts, *v.Charts)
	assert.Equal(t, uint64(1), v.Local.TotalLogs)
}

func TestCoordinator_RecoveryAfterFailure(t *testing.T) {
	h := startCoordinator(t, time.Hour)

	h.fetcher.respond(t, nil, errors.New("down"))
	h.waitIdle(t)
	// Повторный сбой не плодит одинаковые уведомления
	_, err := h.c.Refresh(context.Background())
	require.NoError(t, err)
	h.fetcher.respond(t, nil, errors.New("still down"))
	h.waitIdle(t)
	require.Len(t, h.alerts.List(), 1)

	_, err = h.c.Refresh(context.Background())
	require.NoError(t, err)
	h.fetcher.respond(t, remotePayload(), nil)
	h.waitIdle(t)

	v := h.c.Snapshot()
	assert.Equal(t, domain.SourceRemote, v.Source)
	assert.Equal(t, domain.ConnConnected, v.Connection)
	assert.Empty(t, v.LastError)

	list := h.alerts.List()
	require.Len(t, list, 2)
	assert.Equal(t, domain.AlertSuccess, list[0].Kind)
}

func TestCoordinator_TimerTriggersPulls(t *testing.T) {
	h := startCoordinator(t, 20*time.Millisecond)

	h.fetcher.respond(t, remotePayload(), nil)
	require.Eventually(t, func() bool { return h.fetcher.callCount() >= 2 }, 2*time.Second, 5*time.Millisecond)
	h.fetcher.respond(t, remotePayload(), nil)
}

func TestCoordinator_ChannelEvents(t *testing.T) {
	h := startCoordinator(t, time.Hour)
	h.fetcher.respond(t, remotePayload(), nil)
	h.waitIdle(t)

	h.c.Deliver(channel.Event{Kind: channel.StateChanged, State: domain.ConnDisconnected})
	require.Eventually(t, func() bool {
		return h.c.Snapshot().Connection == domain.ConnDisconnected
	}, time.Second, 5*time.Millisecond)

	h.c.Deliver(channel.Event{Kind: channel.MessageReceived, Message: channel.Message{
		Type: channel.KindTrainingComplete,
		Data: []byte(`{"samples":5000,"message":"AI model training completed successfully"}`),
	}})
	h.c.Deliver(channel.Event{Kind: channel.MessageReceived, Message: channel.Message{
		Type: channel.KindSessionDetectionComplete,
		Data: []byte(`{"anomalies_found":4}`),
	}})

	require.Eventually(t, func() bool { return h.fetcher.callCount() == 2 }, time.Second, 5*time.Millisecond)
	h.fetcher.respond(t, remotePayload(), nil)
	h.waitIdle(t)

	list := h.alerts.List()
	require.Len(t, list, 3)
	assert.Equal(t, domain.AlertWarning, list[0].Kind)
	assert.Equal(t, "Session analysis complete: 4 threats found", list[0].Message)
	assert.Equal(t, domain.AlertSuccess, list[1].Kind)
	assert.Equal(t, "AI model training completed successfully", list[1].Message)
	assert.Equal(t, domain.AlertWarning, list[2].Kind)
	assert.Equal(t, "Live updates disconnected", list[2].Message)
}

func TestCoordinator_TeardownDiscardsInFlightResult(t *testing.T) {
	h := startCoordinator(t, time.Hour)
	require.Eventually(t, func() bool { return h.fetcher.callCount() == 1 }, time.Second, 5*time.Millisecond)

	h.cancel()
	<-h.done

	v := h.c.Snapshot()
	assert.True(t, v.Fetching)
	assert.Equal(t, domain.SourceNone, v.Source)

	_, err := h.c.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, h.c.UpdateLocalStats(context.Background(), domain.LocalStats{}), ErrStopped)
}

// gatedFetcher держит пулл до release и сообщает, был ли его контекст отменен к моменту ответа.
type gatedFetcher struct {
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
	once    sync.Once
}

func (f *gatedFetcher) FetchSessionData(ctx context.Context) (*domain.SessionData, error) {
	f.once.Do(func() { close(f.started) })
	<-f.release
	f.ctxErr <- ctx.Err()
	return remotePayload(), nil
}

func TestCoordinator_TeardownLetsInFlightPullFinish(t *testing.T) {
	f := &gatedFetcher{started: make(chan struct{}), release: make(chan struct{}), ctxErr: make(chan error, 1)}
	c := NewCoordinator(f, synth.DefaultPolicy(), nil, nil, nil, Options{
		PollInterval: time.Hour,
		FetchTimeout: 5 * time.Second,
		Clock:        func() time.Time { return fixedNow },
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { defer close(done); _ = c.Run(ctx) }()

	<-f.started
	cancel()
	<-done
	close(f.release)

	select {
	case err := <-f.ctxErr:
		assert.NoError(t, err, "teardown must not cancel the pull in flight")
	case <-time.After(2 * time.Second):
		t.Fatal("pull did not finish")
	}

	// Результат пришел после teardown и не применяется
	assert.Never(t, func() bool { return c.Snapshot().Source != domain.SourceNone }, 100*time.Millisecond, 10*time.Millisecond)
}

type recordingPublisher struct {
	mu    sync.Mutex
	views []domain.View
}

func (p *recordingPublisher) PublishView(v domain.View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views = append(p.views, v)
}

func TestCoordinator_PublishesSnapshots(t *testing.T) {
	f := newStubFetcher()
	pub := &recordingPublisher{}
	c := NewCoordinator(f, synth.DefaultPolicy(), nil, nil, nil, Options{
		PollInterval: time.Hour,
		Publisher:    pub,
		Clock:        func() time.Time { return fixedNow },
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { defer close(done); _ = c.Run(ctx) }()
	defer func() { cancel(); <-done }()

	f.respond(t, remotePayload(), nil)
	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.views) >= 2 && pub.views[len(pub.views)-1].Source == domain.SourceRemote
	}, time.Second, 5*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.True(t, pub.views[0].Fetching)
	assert.False(t, pub.views[len(pub.views)-1].Fetching)
}
