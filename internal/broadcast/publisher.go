package broadcast

/*
Publisher раздает снимки View и уведомления внешним рендерерам.

- Неблокирующая запись: координатор никогда не ждет Redis, при переполнении очереди
  сообщение сбрасывается (Load Shedding) с записью в лог.
- Drain при остановке: Stop закрывает вход, воркер дочитывает очередь и только потом выходит.
*/

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

// Sink — куда физически уходят сообщения (Redis Pub/Sub, тестовый буфер).
type Sink interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type envelope struct {
	channel string
	payload any
}

type Publisher struct {
	ch           chan envelope
	sink         Sink
	viewChannel  string
	alertChannel string
	logger       *zap.Logger
	wg           sync.WaitGroup
	isClosed     atomic.Bool
	mu           sync.RWMutex // защищает закрытие ch от конкурентной записи
	timeout      time.Duration
}

func NewPublisher(sink Sink, viewChannel, alertChannel string, buffer int, logger *zap.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		ch:           make(chan envelope, buffer),
		sink:         sink,
		viewChannel:  viewChannel,
		alertChannel: alertChannel,
		logger:       logger.With(zap.String("mod", "broadcast")),
		timeout:      2 * time.Second,
	}
}

func (p *Publisher) Start() {
	p.wg.Add(1)
	go p.worker()
}

// Stop «запирает» вход и ждет, пока воркер все допишет.
func (p *Publisher) Stop() {
	if !p.isClosed.CompareAndSwap(false, true) {
		return
	}
	p.logger.Info("stopping publisher: closing channel and draining queue...")
	p.mu.Lock()
	close(p.ch)
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Info("publisher stopped gracefully")
}

// PublishView реализует engine.ViewPublisher.
func (p *Publisher) PublishView(v domain.View) {
	p.enqueue(envelope{channel: p.viewChannel, payload: v})
}

// PublishAlert подключается к alerts.Log через OnRecord.
func (p *Publisher) PublishAlert(a domain.Alert) {
	p.enqueue(envelope{channel: p.alertChannel, payload: a})
}

func (p *Publisher) enqueue(e envelope) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.isClosed.Load() {
		p.logger.Warn("message dropped: publisher is stopping", zap.String("chan", e.channel))
		return
	}

	select {
	case p.ch <- e:
	default:
		p.logger.Error("broadcast_buffer_overflow", zap.String("chan", e.channel))
	}
}

func (p *Publisher) worker() {
	defer p.wg.Done()

	for e := range p.ch {
		payload, err := json.Marshal(e.payload)
		if err != nil {
			p.logger.Error("broadcast marshal failed", zap.String("chan", e.channel), zap.Error(err))
			continue
		}

		// Background: основной контекст к моменту drain может быть уже закрыт
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.sink.Publish(ctx, e.channel, payload); err != nil {
			p.logger.Warn("broadcast publish failed", zap.String("chan", e.channel), zap.Error(err))
		}
		cancel()
	}
	p.logger.Info("broadcast worker finished")
}
