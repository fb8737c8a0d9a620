package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"covered-call-lab/internal/domain"
)

// WSFeedConfig configures the streaming feed client.
type WSFeedConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff between attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the record channel capacity; absorbs bursts.
	Buffer int
}

// DefaultWSFeedConfig returns the default feed configuration.
func DefaultWSFeedConfig() WSFeedConfig {
	return WSFeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            1024,
	}
}

// WSFeed streams raw options-activity records over a websocket,
// reconnecting with exponential backoff when the connection drops.
type WSFeed struct {
	endpoint string
	config   WSFeedConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	records chan *domain.RawActivityRecord

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// feedFrame is one message from the activity feed. Frames that are not
// flow events (heartbeats, vendor status) are ignored.
type feedFrame struct {
	Type string                    `json:"type"`
	Data *domain.RawActivityRecord `json:"data"`
}

// NewWSFeed connects to the feed endpoint and starts streaming.
func NewWSFeed(ctx context.Context, endpoint string, config *WSFeedConfig) (*WSFeed, error) {
	cfg := DefaultWSFeedConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultWSFeedConfig().Buffer
	}

	f := &WSFeed{
		endpoint: endpoint,
		config:   cfg,
		records:  make(chan *domain.RawActivityRecord, cfg.Buffer),
		done:     make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	return f, nil
}

// Records returns the stream of activity records. The channel is
// closed when the feed is closed.
func (f *WSFeed) Records() <-chan *domain.RawActivityRecord {
	return f.records
}

// connect establishes the websocket connection.
func (f *WSFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.conn = conn
	return nil
}

// Close closes the connection and the record channel.
func (f *WSFeed) Close() error {
	if f.closed.Swap(true) {
		return nil // Already closed
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	close(f.records)
	return nil
}

// readLoop reads frames and dispatches flow records.
func (f *WSFeed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			if !f.reconnecting.Swap(true) {
				go f.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > f.config.MaxReconnectDelay {
				reconnectDelay = f.config.MaxReconnectDelay
			}

			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = f.config.ReconnectDelay

		f.handleMessage(message)
	}
}

// reconnect waits out the backoff delay and redials.
func (f *WSFeed) reconnect(delay time.Duration) {
	defer f.reconnecting.Store(false)

	if f.closed.Load() {
		return
	}

	select {
	case <-f.done:
		return
	case <-time.After(delay):
	}

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}
}

// handleMessage parses one frame and forwards flow records.
func (f *WSFeed) handleMessage(message []byte) {
	var frame feedFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		log.Printf("[feed] malformed frame: %v", err)
		return
	}

	if frame.Type != "flow" || frame.Data == nil {
		return
	}

	// Block until we can send; the buffer absorbs bursts and the feed
	// never drops records on its own.
	select {
	case f.records <- frame.Data:
	case <-f.done:
	}
}

// pingLoop keeps the connection alive.
func (f *WSFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			f.connMu.Unlock()
		}
	}
}
