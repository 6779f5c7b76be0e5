// Package channel держит push-канал к сервису детекции и только сообщает о переходах состояния.
// Автоматического переподключения по умолчанию нет: это явная политика (ReconnectPolicy).
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

const maxMessageSize = 512 * 1024

// ErrClosed — сервер закрыл канал штатно.
var ErrClosed = errors.New("push channel closed")

// ReconnectPolicy — внешняя политика переподключения. Нулевое значение: не переподключаться.
type ReconnectPolicy struct {
	Enabled  bool
	Attempts uint
	Delay    time.Duration // базовая задержка экспоненциального бэкоффа
}

type Client struct {
	url       string
	dialer    *websocket.Dialer
	sink      Sink
	reconnect ReconnectPolicy
	logger    *zap.Logger
}

func NewClient(wsURL string, sink Sink, policy ReconnectPolicy, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url: wsURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		sink:      sink,
		reconnect: policy,
		logger:    logger.Named("push-channel"),
	}
}

// WSURL строит ws(s):// адрес от HTTP-origin сервиса.
func WSURL(base *url.URL, path string) string {
	u := *base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = ""
	return u.String()
}

// Run держит канал до отмены ctx. Без политики переподключения возвращается
// после первого закрытия или сбоя. Отмена ctx — штатное завершение (nil).
func (c *Client) Run(ctx context.Context) error {
	if !c.reconnect.Enabled {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(c.reconnect.Attempts),
		retry.DelayType(retry.BackOffDelay),
	}
	if c.reconnect.Delay > 0 {
		opts = append(opts, retry.Delay(c.reconnect.Delay))
	}
	err := retry.New(opts...).Do(func() error {
		return c.session(ctx)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// session — одно подключение: Connecting -> Connected -> (Disconnected | Error).
func (c *Client) session(ctx context.Context) error {
	c.emitState(domain.ConnConnecting, nil)

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		err = fmt.Errorf("dial %s: %w", c.url, err)
		c.logger.Warn("push channel connect failed", zap.Error(err))
		c.emitState(domain.ConnError, err)
		return err
	}
	conn.SetReadLimit(maxMessageSize)
	c.logger.Info("push channel connected", zap.String("url", c.url))
	c.emitState(domain.ConnConnected, nil)

	// ReadMessage не принимает контекст: при отмене закрываем соединение сами
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("push channel closed on teardown")
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("push channel closed by server")
				c.emitState(domain.ConnDisconnected, nil)
				return ErrClosed
			}
			c.logger.Warn("push channel fault", zap.Error(err))
			c.emitState(domain.ConnError, err)
			return fmt.Errorf("read: %w", err)
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		// Битое сообщение — ProtocolError, не повод рвать канал
		c.logger.Warn("ignoring malformed push message", zap.Error(err), zap.Int("bytes", len(data)))
		return
	}
	if !Recognized(msg.Type) {
		c.logger.Debug("ignoring unrecognized push message", zap.String("type", msg.Type))
		return
	}
	c.sink.Deliver(Event{Kind: MessageReceived, Message: msg})
}

func (c *Client) emitState(s domain.ConnectionState, err error) {
	c.sink.Deliver(Event{Kind: StateChanged, State: s, Err: err})
}
