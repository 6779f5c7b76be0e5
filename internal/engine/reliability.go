package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/threatwatch-dashboard/internal/backend"
	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

// ReliabilityConfig — параметры обертки вокруг пулла.
type ReliabilityConfig struct {
	RetryAttempts uint
	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration
	CBFailures    uint32 // порог подряд идущих ошибок для размыкания
	RateLimit     float64
	RateBurst     int
	CallTimeout   time.Duration
}

// ReliableFetcher — Rate Limiter -> Circuit Breaker -> Retry вокруг Fetcher.
// Пулл идемпотентен, поэтому повтор безопасен; битый ответ не повторяем.
type ReliableFetcher struct {
	next    Fetcher
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	cfg     ReliabilityConfig
	logger  *zap.Logger
}

func NewReliableFetcher(next Fetcher, cfg ReliabilityConfig, metrics *Metrics, logger *zap.Logger) *ReliableFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.CBFailures == 0 {
		cfg.CBFailures = 5
	}
	logger = logger.Named("reliability")

	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "detection-service",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.CBFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if metrics != nil {
				metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &ReliableFetcher{
		next:    next,
		cb:      cb,
		limiter: rate.NewLimiter(limit, burst),
		cfg:     cfg,
		logger:  logger,
	}
}

func (f *ReliableFetcher) FetchSessionData(ctx context.Context) (*domain.SessionData, error) {
	// 1. Rate Limiter
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	res, err := f.cb.Execute(func() (interface{}, error) {
		var data *domain.SessionData

		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(f.cfg.RetryAttempts),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Сервис сам сказал, когда приходить (Retry-After)
				var tErr *backend.ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			callCtx := ctx
			if f.cfg.CallTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, f.cfg.CallTimeout)
				defer cancel()
			}

			var callErr error
			data, callErr = f.next.FetchSessionData(callCtx)
			if backend.IsProtocol(callErr) {
				return retry.Unrecoverable(callErr)
			}
			return callErr
		})
		return data, retryErr
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Для координатора это такой же транспортный сбой
			return nil, &backend.TransportError{Op: "pull", Err: err}
		}
		return nil, err
	}
	return res.(*domain.SessionData), nil
}
