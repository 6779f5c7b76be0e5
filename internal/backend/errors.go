package backend

import (
	"errors"
	"fmt"
	"time"
)

// TransportError — сервис недоступен или ответил не-2xx.
type TransportError struct {
	Op         string
	StatusCode int // 0, если ответа не было вовсе
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError — ответ получен, но его форма не распознана (битый JSON и т.п.).
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: malformed payload: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ThrottleError — 429 с заголовком Retry-After.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error { return e.Cause }

func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}

func IsProtocol(err error) bool {
	var p *ProtocolError
	return errors.As(err, &p)
}
