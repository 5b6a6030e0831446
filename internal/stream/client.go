package stream

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/GoPolymarket/polydesk/internal/pkg/bus"
	"github.com/GoPolymarket/polydesk/internal/pkg/logger"
	"github.com/GoPolymarket/polydesk/internal/pkg/metrics"
	"github.com/gorilla/websocket"
)

const (
	DefaultPingInterval   = 30 * time.Second
	DefaultReconnectDelay = 3 * time.Second
	DefaultMaxReconnects  = 5
)

type Config struct {
	URL                  string
	PingInterval         time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnects
	}
	return c
}

// Stream maintains at most one live connection per session. Only the
// stream writes to the socket; consumers read via handler
// registration on the bus.
type Stream struct {
	cfg Config
	bus *bus.Bus

	mu             sync.Mutex
	conn           *websocket.Conn
	connected      bool
	closed         bool
	attempts       int
	channels       map[string]struct{}
	reconnectTimer *time.Timer
	connGen        uint64
}

func New(cfg Config) *Stream {
	return &Stream{
		cfg:      cfg.withDefaults(),
		bus:      bus.New(),
		channels: make(map[string]struct{}),
	}
}

// On registers a handler for a frame type. The returned capability
// unregisters it.
func (s *Stream) On(frameType string, h func(raw json.RawMessage)) func() {
	return s.bus.Subscribe(frameType, func(payload any) {
		if raw, ok := payload.(json.RawMessage); ok {
			h(raw)
		}
	})
}

// OnNotification registers a typed notification handler.
func (s *Stream) OnNotification(h func(Notification)) func() {
	return s.bus.Subscribe(FrameNotification, func(payload any) {
		if raw, ok := payload.(json.RawMessage); ok {
			var frame notificationFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				return
			}
			h(frame.Data)
		}
	})
}

// Start opens the connection. A failed initial dial follows the same
// reconnect policy as a dropped socket.
func (s *Stream) Start() {
	s.mu.Lock()
	s.closed = false
	s.attempts = 0
	s.mu.Unlock()
	s.dial()
}

// Stop tears the stream down: cancels any pending reconnect and
// closes with the normal-closure code to suppress auto-reconnect.
func (s *Stream) Stop() {
	s.mu.Lock()
	s.closed = true
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.connGen++
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
	s.bus.Close()
}

// Reconnect resets the attempt budget and dials again. This is the
// only way back once the bound is exhausted.
func (s *Stream) Reconnect() {
	s.mu.Lock()
	if s.closed || s.connected {
		s.mu.Unlock()
		return
	}
	s.attempts = 0
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	s.mu.Unlock()
	s.dial()
}

func (s *Stream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Subscribe adds a channel (e.g. "orderbook:<market_id>") and sends
// the subscribe frame if the socket is live. Subscriptions are
// replayed after every reconnect.
func (s *Stream) Subscribe(channel string) error {
	s.mu.Lock()
	s.channels[channel] = struct{}{}
	conn := s.conn
	live := s.connected
	s.mu.Unlock()

	if !live || conn == nil {
		return nil
	}
	return s.writeJSON(subscribeFrame{Type: FrameSubscribe, Channel: channel})
}

func (s *Stream) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return websocket.ErrCloseSent
	}
	return s.conn.WriteJSON(v)
}

func (s *Stream) dial() {
	s.mu.Lock()
	if s.closed || s.connected {
		s.mu.Unlock()
		return
	}
	url := s.cfg.URL
	s.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		logger.Error("Stream dial failed", "url", url, "error", err)
		s.scheduleReconnect()
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.connected = true
	s.attempts = 0 // successful open resets the budget
	s.connGen++
	gen := s.connGen
	channels := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		channels = append(channels, ch)
	}
	s.mu.Unlock()

	logger.Info("Stream connected", "url", url)

	for _, ch := range channels {
		if err := s.writeJSON(subscribeFrame{Type: FrameSubscribe, Channel: ch}); err != nil {
			logger.Error("Failed to resubscribe", "channel", ch, "error", err)
		}
	}

	go s.heartbeat(gen)
	go s.readLoop(conn, gen)
}

// heartbeat sends an application-level ping frame. A write failure is
// a connectivity signal only; the read loop surfaces the actual
// disconnect.
func (s *Stream) heartbeat(gen uint64) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		stale := s.connGen != gen || !s.connected
		s.mu.Unlock()
		if stale {
			return
		}
		if err := s.writeJSON(pingFrame{Type: FramePing}); err != nil {
			logger.Warn("Heartbeat write failed", "error", err)
			return
		}
	}
}

func (s *Stream) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.handleClose(gen, err)
			return
		}
		s.dispatch(message)
	}
}

func (s *Stream) dispatch(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil || env.Type == "" {
		// Unrecognized frame shapes are dropped.
		return
	}
	if env.Type == FramePong {
		return
	}
	s.bus.Publish(env.Type, json.RawMessage(message))
}

func (s *Stream) handleClose(gen uint64, err error) {
	s.mu.Lock()
	if s.connGen != gen {
		// A newer connection already superseded this one.
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.connected = false
	closed := s.closed
	s.mu.Unlock()

	if closed || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		logger.Info("Stream closed cleanly")
		return
	}

	logger.Warn("Stream disconnected", "error", err)
	s.scheduleReconnect()
}

func (s *Stream) scheduleReconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.attempts >= s.cfg.MaxReconnectAttempts {
		s.mu.Unlock()
		logger.Error("Reconnect budget exhausted; waiting for explicit Reconnect()",
			"attempts", s.cfg.MaxReconnectAttempts)
		return
	}
	s.attempts++
	attempt := s.attempts
	delay := s.cfg.ReconnectDelay
	s.reconnectTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		s.reconnectTimer = nil
		s.mu.Unlock()
		s.dial()
	})
	s.mu.Unlock()

	metrics.StreamReconnects.Inc()
	logger.Info("Reconnect scheduled", "attempt", attempt, "delay", delay)
}
