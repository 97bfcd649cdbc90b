package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"hybrid-mm-engine/internal/domain"
)

// StreamConfig configures kline stream behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing control frames.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// KlineStream subscribes to the exchange kline websocket for one
// symbol/interval and emits only closed bars. Reconnects with
// exponential backoff; the bar channel stays open across reconnects.
type KlineStream struct {
	endpoint string
	config   StreamConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	bars chan domain.Bar

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// StreamEndpoint builds the kline stream URL for a symbol/interval.
func StreamEndpoint(baseWS, symbol, interval string) string {
	return fmt.Sprintf("%s/ws/%s@kline_%s", baseWS, strings.ToLower(symbol), interval)
}

// NewKlineStream connects to the endpoint and starts reading.
func NewKlineStream(ctx context.Context, endpoint string, config *StreamConfig) (*KlineStream, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &KlineStream{
		endpoint: endpoint,
		config:   cfg,
		bars:     make(chan domain.Bar, 64),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// Bars returns the channel of closed bars. Closed on stream shutdown.
func (s *KlineStream) Bars() <-chan domain.Bar {
	return s.bars
}

// connect establishes the websocket connection.
func (s *KlineStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// Close shuts down the stream and closes the bar channel.
func (s *KlineStream) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.bars)
	return nil
}

// readLoop reads messages and dispatches closed bars.
func (s *KlineStream) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = s.config.ReconnectDelay

		bar, ok := parseKlineEvent(message)
		if !ok {
			continue
		}

		// Block until we can send - never drop closed bars
		select {
		case s.bars <- bar:
		case <-s.done:
			return
		}
	}
}

// reconnect waits and re-establishes the connection. The stream URL
// carries the subscription, so no resubscribe handshake is needed.
func (s *KlineStream) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Reconnect failure is retried on the next read error.
	_ = s.connect(ctx)
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *KlineStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}

// Kline event wire types.

type klineEvent struct {
	EventType string       `json:"e"`
	Symbol    string       `json:"s"`
	Kline     klinePayload `json:"k"`
}

type klinePayload struct {
	OpenTimeMs int64  `json:"t"`
	Symbol     string `json:"s"`
	Open       string `json:"o"`
	High       string `json:"h"`
	Low        string `json:"l"`
	Close      string `json:"c"`
	Volume     string `json:"v"`
	IsClosed   bool   `json:"x"`
}

// parseKlineEvent decodes a kline event and returns the bar if the
// candle is closed. Open candles and non-kline messages are dropped.
func parseKlineEvent(message []byte) (domain.Bar, bool) {
	var ev klineEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return domain.Bar{}, false
	}
	if ev.EventType != "kline" || !ev.Kline.IsClosed {
		return domain.Bar{}, false
	}

	open, err1 := strconv.ParseFloat(ev.Kline.Open, 64)
	high, err2 := strconv.ParseFloat(ev.Kline.High, 64)
	low, err3 := strconv.ParseFloat(ev.Kline.Low, 64)
	closePrice, err4 := strconv.ParseFloat(ev.Kline.Close, 64)
	volume, err5 := strconv.ParseFloat(ev.Kline.Volume, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return domain.Bar{}, false
	}

	bar := domain.Bar{
		Symbol:      ev.Kline.Symbol,
		TimestampMs: ev.Kline.OpenTimeMs,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closePrice,
		Volume:      volume,
	}
	if err := bar.Validate(); err != nil {
		return domain.Bar{}, false
	}
	return bar, true
}
