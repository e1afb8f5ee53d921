package feed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/marketstate"
	"github.com/wonny/riptide/pkg/logger"
)

// Stream consumes the vendor quote websocket and applies snapshots to
// the state book. It reconnects with capped backoff; out-of-order
// frames are counted and dropped, the book's guard decides.
type Stream struct {
	url  string
	book *marketstate.Book
	log  *logger.Logger

	dialer *websocket.Dialer
}

// NewStream creates a stream consumer for one websocket endpoint.
func NewStream(url string, book *marketstate.Book, log *logger.Logger) *Stream {
	return &Stream{
		url:    url,
		book:   book,
		log:    log,
		dialer: websocket.DefaultDialer,
	}
}

// Run consumes frames until the context ends. Each connection failure
// backs off and redials; the method only returns on cancellation.
func (s *Stream) Run(ctx context.Context) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.consume(ctx)
		if errors.Is(err, context.Canceled) {
			return err
		}

		s.log.WithError(err).WithField("backoff", backoff.String()).Warn("Quote stream dropped, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *Stream) consume(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.WithField("url", s.url).Info("Quote stream connected")

	// Close the socket when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return context.Canceled
			}
			return err
		}

		var q wireQuote
		if err := json.Unmarshal(msg, &q); err != nil {
			s.log.WithError(err).Debug("Malformed quote frame dropped")
			continue
		}

		if err := s.book.Apply(q.toSnapshot("ws")); err != nil {
			if errors.Is(err, contracts.ErrOutOfOrder) {
				s.log.WithField("symbol", q.Symbol).Debug("Out-of-order frame rejected")
				continue
			}
			s.log.WithError(err).WithField("symbol", q.Symbol).Debug("Quote frame rejected")
		}
	}
}
