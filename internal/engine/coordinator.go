package engine

/*
Coordinator — единственный владелец авторитетного View дашборда.

- Все триггеры (mount, таймер, push, ручной refresh, внешний запрос) и результаты сети
  сходятся в одну входящую очередь и обрабатываются одной горутиной в порядке поступления.
- Одновременно в полете не больше одного пулла: триггер во время Fetching отбрасывается,
  без очереди и без склейки.
- Успех пулла: источник Remote, статистика и графики заменяются целиком, связь Connected.
- Сбой пулла: связь Error, графики синтезируются из актуальных LocalStats, источник Synthesized.
- Изменение LocalStats пересинтезирует графики без сети, но только если источник Synthesized.
- Teardown = отмена контекста: таймер останавливается, пулл в полете доживает до конца,
  но его результат выбрасывается.
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/threatwatch-dashboard/internal/channel"
	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
	"github.com/xela07ax/threatwatch-dashboard/internal/synth"
)

// ErrStopped — координатор не запущен или уже остановлен.
var ErrStopped = errors.New("coordinator is not running")

type Fetcher interface {
	FetchSessionData(ctx context.Context) (*domain.SessionData, error)
}

type Synthesizer interface {
	Synthesize(local domain.LocalStats, now time.Time) domain.ChartDataset
}

type AlertRecorder interface {
	Record(kind domain.AlertKind, message string) domain.Alert
}

// ViewPublisher получает каждый новый снимок (fan-out внешним рендерерам).
type ViewPublisher interface {
	PublishView(domain.View)
}

type Trigger string

const (
	TriggerMount    Trigger = "mount"
	TriggerTimer    Trigger = "timer"
	TriggerPush     Trigger = "push"
	TriggerManual   Trigger = "manual"
	TriggerExternal Trigger = "external"
)

type Options struct {
	PollInterval time.Duration
	FetchTimeout time.Duration
	InboxSize    int
	Publisher    ViewPublisher
	Clock        func() time.Time
}

type inboundKind int

const (
	inTrigger inboundKind = iota
	inFetchDone
	inChannel
	inLocalStats
)

type inbound struct {
	kind    inboundKind
	trigger Trigger
	reply   chan bool

	data *domain.SessionData
	err  error
	took time.Duration

	event channel.Event

	local domain.LocalStats
	ack   chan struct{}
}

type Coordinator struct {
	fetcher Fetcher
	synth   Synthesizer
	alerts  AlertRecorder
	metrics *Metrics
	logger  *zap.Logger
	opts    Options

	inbox   chan inbound
	stopped chan struct{}
	once    sync.Once

	mu   sync.RWMutex
	view domain.View

	// Состояние ниже трогает только горутина Run
	fetching       bool
	lastPullFailed bool
}

func NewCoordinator(fetcher Fetcher, synthesizer Synthesizer, alerts AlertRecorder, metrics *Metrics, logger *zap.Logger, opts Options) *Coordinator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 64
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Coordinator{
		fetcher: fetcher,
		synth:   synthesizer,
		alerts:  alerts,
		metrics: metrics,
		logger:  logger.Named("coordinator"),
		opts:    opts,
		inbox:   make(chan inbound, opts.InboxSize),
		stopped: make(chan struct{}),
		view:    domain.View{Connection: domain.ConnConnecting},
	}
	metrics.setConnection(domain.ConnConnecting)
	metrics.setSource(domain.SourceNone)
	return c
}

// Run — цикл координатора. Блокируется до отмены ctx; вызывать один раз.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.once.Do(func() { close(c.stopped) })

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	c.logger.Info("coordinator started", zap.Duration("poll_interval", c.opts.PollInterval))
	c.handleTrigger(ctx, TriggerMount, nil)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopping by context...")
			return nil
		case <-ticker.C:
			c.handleTrigger(ctx, TriggerTimer, nil)
		case in := <-c.inbox:
			c.dispatch(ctx, in)
		}
	}
}

// Snapshot — копия текущего View для рендереров.
func (c *Coordinator) Snapshot() domain.View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view.Clone()
}

// Trigger ставит триггер в очередь без ожидания. false — очередь переполнена.
func (c *Coordinator) Trigger(t Trigger) bool {
	select {
	case c.inbox <- inbound{kind: inTrigger, trigger: t}:
		return true
	default:
		c.metrics.TriggersTotal.WithLabelValues(string(t), "shed").Inc()
		c.logger.Warn("inbox overflow, trigger shed", zap.String("trigger", string(t)))
		return false
	}
}

// Refresh — ручное обновление. Возвращает false, если пулл уже в полете и триггер отброшен.
func (c *Coordinator) Refresh(ctx context.Context) (bool, error) {
	reply := make(chan bool, 1)
	if err := c.enqueue(ctx, inbound{kind: inTrigger, trigger: TriggerManual, reply: reply}); err != nil {
		return false, err
	}
	select {
	case accepted := <-reply:
		return accepted, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-c.stopped:
		return false, ErrStopped
	}
}

// UpdateLocalStats заменяет LocalStats результатом теста детекции и ждет применения.
func (c *Coordinator) UpdateLocalStats(ctx context.Context, local domain.LocalStats) error {
	ack := make(chan struct{})
	if err := c.enqueue(ctx, inbound{kind: inLocalStats, local: local, ack: ack}); err != nil {
		return err
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}
}

// Deliver реализует channel.Sink: события канала попадают в ту же очередь, что и триггеры.
func (c *Coordinator) Deliver(ev channel.Event) {
	select {
	case c.inbox <- inbound{kind: inChannel, event: ev}:
	case <-c.stopped:
	default:
		c.logger.Warn("inbox overflow, channel event shed", zap.Int("kind", int(ev.Kind)))
	}
}

func (c *Coordinator) enqueue(ctx context.Context, in inbound) error {
	select {
	case c.inbox <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}
}

func (c *Coordinator) dispatch(ctx context.Context, in inbound) {
	switch in.kind {
	case inTrigger:
		c.handleTrigger(ctx, in.trigger, in.reply)
	case inFetchDone:
		c.handleFetchDone(in)
	case inChannel:
		c.handleChannel(ctx, in.event)
	case inLocalStats:
		c.handleLocalStats(in.local)
		close(in.ack)
	}
}

func (c *Coordinator) handleTrigger(ctx context.Context, t Trigger, reply chan bool) {
	accepted := !c.fetching
	if accepted {
		c.startFetch(ctx, t)
		c.metrics.TriggersTotal.WithLabelValues(string(t), "accepted").Inc()
	} else {
		// Пулл уже в полете: триггер теряется, это допустимо
		c.metrics.TriggersTotal.WithLabelValues(string(t), "dropped").Inc()
		c.logger.Debug("trigger dropped while fetching", zap.String("trigger", string(t)))
	}
	if reply != nil {
		reply <- accepted
	}
}

func (c *Coordinator) startFetch(ctx context.Context, t Trigger) {
	c.fetching = true
	c.update(func(v *domain.View) { v.Fetching = true })
	c.logger.Debug("pull started", zap.String("trigger", string(t)))

	go func() {
		// Teardown не обрывает пулл: он доживает до FetchTimeout, а результат выбрасывается
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FetchTimeout)
		defer cancel()

		start := time.Now()
		data, err := c.fetcher.FetchSessionData(fetchCtx)
		res := inbound{kind: inFetchDone, data: data, err: err, took: time.Since(start)}

		if ctx.Err() != nil {
			c.logger.Debug("discarding pull result after teardown")
			return
		}
		// Результат нельзя терять, иначе координатор навсегда останется в Fetching
		select {
		case c.inbox <- res:
		case <-ctx.Done():
			c.logger.Debug("discarding pull result after teardown")
		}
	}()
}

func (c *Coordinator) handleFetchDone(in inbound) {
	c.fetching = false
	c.metrics.PullDuration.Observe(in.took.Seconds())

	if in.err == nil && in.data == nil {
		in.err = errors.New("empty pull result")
	}
	if in.err != nil {
		c.applyFailure(in.err)
		return
	}
	c.applySuccess(in.data)
}

func (c *Coordinator) applySuccess(data *domain.SessionData) {
	c.metrics.PullsTotal.WithLabelValues("success").Inc()

	stats := data.Stats
	charts := data.Charts.Clone()
	charts.SourceKind = domain.SourceRemote

	c.update(func(v *domain.View) {
		v.Session = &stats
		v.Charts = &charts
		v.Source = domain.SourceRemote
		v.Connection = domain.ConnConnected
		v.Fetching = false
		v.LastUpdated = data.LastUpdated
		v.DataSource = data.DataSource
		v.SessionID = data.SessionID
		v.LastError = ""
	})
	c.metrics.setConnection(domain.ConnConnected)
	c.metrics.setSource(domain.SourceRemote)

	if c.lastPullFailed {
		c.record(domain.AlertSuccess, "Connection to detection service restored")
	}
	c.lastPullFailed = false

	c.logger.Info("session data updated",
		zap.Uint64("total_logs", stats.TotalLogsProcessed),
		zap.Uint64("anomalies", stats.TotalAnomaliesDetected))
}

func (c *Coordinator) applyFailure(err error) {
	c.metrics.PullsTotal.WithLabelValues("failure").Inc()

	now := c.opts.Clock()
	c.update(func(v *domain.View) {
		charts := c.synth.Synthesize(v.Local, now)
		stats := synth.SessionStats(v.Local)
		v.Session = &stats
		v.Charts = &charts
		v.Source = domain.SourceSynthesized
		v.Connection = domain.ConnError
		v.Fetching = false
		v.LastUpdated = now.UTC().Format(time.RFC3339)
		v.DataSource = ""
		v.SessionID = nil
		v.LastError = err.Error()
	})
	c.metrics.setConnection(domain.ConnError)
	c.metrics.setSource(domain.SourceSynthesized)

	if !c.lastPullFailed {
		c.record(domain.AlertError, fmt.Sprintf("Detection service unreachable, showing locally derived data (%v)", err))
	}
	c.lastPullFailed = true

	c.logger.Warn("pull failed, falling back to synthesized data", zap.Error(err))
}

func (c *Coordinator) handleLocalStats(local domain.LocalStats) {
	now := c.opts.Clock()
	var resynthesized bool
	c.update(func(v *domain.View) {
		v.Local = local
		// Локальная правда важнее устаревшего синтеза, но не перекрывает Remote
		if v.Source != domain.SourceSynthesized {
			return
		}
		charts := c.synth.Synthesize(local, now)
		stats := synth.SessionStats(local)
		v.Charts = &charts
		v.Session = &stats
		v.LastUpdated = now.UTC().Format(time.RFC3339)
		resynthesized = true
	})
	c.logger.Debug("local stats updated",
		zap.Uint64("total", local.TotalLogs),
		zap.Uint64("suspicious", local.SuspiciousCount),
		zap.Bool("resynthesized", resynthesized))
}

func (c *Coordinator) handleChannel(ctx context.Context, ev channel.Event) {
	switch ev.Kind {
	case channel.StateChanged:
		c.update(func(v *domain.View) { v.Connection = ev.State })
		c.metrics.setConnection(ev.State)

		switch ev.State {
		case domain.ConnConnected:
			c.record(domain.AlertInfo, "Live updates connected")
		case domain.ConnDisconnected:
			c.record(domain.AlertWarning, "Live updates disconnected")
		case domain.ConnError:
			msg := "Live update channel error"
			if ev.Err != nil {
				msg = fmt.Sprintf("%s: %v", msg, ev.Err)
			}
			c.record(domain.AlertError, msg)
		}

	case channel.MessageReceived:
		msg := ev.Message
		c.metrics.PushMessages.WithLabelValues(msg.Type).Inc()
		c.alertForMessage(msg)
		if msg.TriggersRefresh() {
			c.handleTrigger(ctx, TriggerPush, nil)
		}
	}
}

func (c *Coordinator) alertForMessage(msg channel.Message) {
	switch msg.Type {
	case channel.KindTrainingComplete:
		var s channel.TrainingSummary
		_ = json.Unmarshal(msg.Data, &s)
		text := s.Message
		if text == "" {
			text = "AI model training completed"
		}
		c.record(domain.AlertSuccess, text)

	case channel.KindSessionDetectionComplete:
		var s channel.DetectionSummary
		_ = json.Unmarshal(msg.Data, &s)
		text := s.Message
		if text == "" {
			text = fmt.Sprintf("Session analysis complete: %d threats found", s.AnomaliesFound)
		}
		kind := domain.AlertSuccess
		if s.AnomaliesFound > 0 {
			kind = domain.AlertWarning
		}
		c.record(kind, text)
	}
}

func (c *Coordinator) record(kind domain.AlertKind, msg string) {
	if c.alerts == nil {
		return
	}
	c.alerts.Record(kind, msg)
}

// update — единственная точка записи View. Снимок публикуется после применения.
func (c *Coordinator) update(fn func(v *domain.View)) {
	c.mu.Lock()
	fn(&c.view)
	snap := c.view.Clone()
	c.mu.Unlock()

	if c.opts.Publisher != nil {
		c.opts.Publisher.PublishView(snap)
	}
}
