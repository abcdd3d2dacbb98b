// Package feed streams candidate pair addresses from a websocket endpoint and
// dispatches them to the trade workflow.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 16 * time.Second
)

// Stream connects to a websocket endpoint that announces pair addresses.
type Stream struct {
	logger *slog.Logger
	url    string
	dialer *websocket.Dialer

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewStream creates a new Stream for url.
func NewStream(logger *slog.Logger, url string) *Stream {
	return &Stream{
		logger:         logger,
		url:            url,
		dialer:         websocket.DefaultDialer,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
}

// message is either a single announcement or a batch.
type message struct {
	PairAddress string   `json:"pairAddress"`
	Pairs       []string `json:"pairs"`
}

// ParseMessage extracts the pair addresses announced in raw.
func ParseMessage(raw []byte) ([]string, error) {
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	var pairs []string
	for _, p := range append([]string{msg.PairAddress}, msg.Pairs...) {
		if p = strings.TrimSpace(p); p != "" {
			pairs = append(pairs, p)
		}
	}
	if len(pairs) == 0 {
		return nil, errors.New("message carries no pair address")
	}
	return pairs, nil
}

// Run streams pair addresses into pairChan until ctx is cancelled, reconnecting
// with exponential backoff when the connection fails.
func (s *Stream) Run(ctx context.Context, pairChan chan<- string) error {
	backoff := s.initialBackoff
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("FeedStream: context cancelled, shutting down")
			return nil
		default:
		}

		// Dial the feed
		s.logger.Info("FeedStream: connecting to WebSocket", "url", s.url, "backoff", backoff)
		c, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			s.logger.Error("FeedStream: WebSocket connection failed", "error", err)
			// Wait, then retry with a doubled backoff
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff *= 2
				if backoff > s.maxBackoff {
					backoff = s.maxBackoff
				}
			}
			continue
		}

		// Reset backoff on successful connection
		backoff = s.initialBackoff
		s.logger.Info("FeedStream: connected successfully")

		// Read until the connection drops, then reconnect
		if err := s.readLoop(ctx, c, pairChan); err != nil {
			s.logger.Error("FeedStream: failed to read message", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		return nil
	}
}

// readLoop returns nil when ctx is cancelled and the read error otherwise.
func (s *Stream) readLoop(ctx context.Context, c *websocket.Conn, pairChan chan<- string) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-stop:
		}
	}()
	defer c.Close()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("FeedStream: context cancelled, closing connection")
				return nil
			}
			return err
		}

		// Parse the message
		pairs, err := ParseMessage(raw)
		if err != nil {
			s.logger.Warn("FeedStream: failed to parse message", "error", err)
			continue
		}

		for _, pair := range pairs {
			select {
			case pairChan <- pair:
				s.logger.Debug("FeedStream: sent pair", "pair", pair)
			case <-ctx.Done():
				s.logger.Info("FeedStream: context cancelled while sending pair")
				return nil
			}
		}
	}
}
