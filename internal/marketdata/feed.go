package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solana-token-trader/internal/domain"
)

// FeedConfig configures ListingFeed behavior.
type FeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the capacity of the listings channel.
	Buffer int
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            256,
	}
}

const (
	msgSubscribeListing = "SUBSCRIBE_TOKEN_NEW_LISTING"
	msgListingData      = "TOKEN_NEW_LISTING_DATA"
)

type feedMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	Address          string `json:"address"`
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	Liquidity        number `json:"liquidity"`
	LiquidityAddedAt number `json:"liquidityAddedAt"`
}

// ListingFeed streams newly listed tokens from the Birdeye websocket.
type ListingFeed struct {
	endpoint string
	config   FeedConfig
	logger   zerolog.Logger
	now      func() time.Time

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	listings chan domain.TokenSnapshot
	dropped  atomic.Int64

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// FeedURL appends the API key to the websocket endpoint.
func FeedURL(endpoint, apiKey string) string {
	if endpoint == "" {
		endpoint = DefaultBirdeyeWSURL
	}
	u, err := url.Parse(endpoint)
	if err != nil || apiKey == "" {
		return endpoint
	}
	q := u.Query()
	q.Set("x-api-key", apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// NewListingFeed connects to endpoint, subscribes to new listings and starts the read loop.
func NewListingFeed(ctx context.Context, endpoint string, config *FeedConfig, logger zerolog.Logger) (*ListingFeed, error) {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultFeedConfig().Buffer
	}

	f := &ListingFeed{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger.With().Str("component", "listing_feed").Logger(),
		now:      time.Now,
		listings: make(chan domain.TokenSnapshot, cfg.Buffer),
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

// connect dials and sends the subscription message.
func (f *ListingFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	if f.closed.Load() {
		return fmt.Errorf("feed closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{"echo-protocol"},
	}
	header := http.Header{"Origin": {"ws://public-api.birdeye.so"}}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, header)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
	sub := map[string]interface{}{"type": msgSubscribeListing, "meme_platform_enabled": false}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("write subscribe: %w", err)
	}

	f.conn = conn
	return nil
}

// Listings returns the channel of new listings. It is closed by Close.
func (f *ListingFeed) Listings() <-chan domain.TokenSnapshot {
	return f.listings
}

// Drain returns every listing currently buffered without blocking.
func (f *ListingFeed) Drain() []domain.TokenSnapshot {
	var out []domain.TokenSnapshot
	for {
		select {
		case t, ok := <-f.listings:
			if !ok {
				return out
			}
			out = append(out, t)
		default:
			return out
		}
	}
}

// Dropped returns the number of listings discarded because the buffer was full.
func (f *ListingFeed) Dropped() int64 {
	return f.dropped.Load()
}

// Close closes the connection and the listings channel.
func (f *ListingFeed) Close() error {
	if f.closed.Swap(true) {
		return nil
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
	close(f.listings)
	return nil
}

// readLoop reads messages and reconnects with exponential backoff on error.
func (f *ListingFeed) readLoop() {
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
				f.logger.Warn().Err(err).Dur("delay", reconnectDelay).Msg("listing feed disconnected, reconnecting")
				f.wg.Add(1)
				go f.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
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

		reconnectDelay = f.config.ReconnectDelay
		f.handleMessage(message)
	}
}

// reconnect replaces the connection and resubscribes.
func (f *ListingFeed) reconnect(delay time.Duration) {
	defer f.wg.Done()
	defer f.reconnecting.Store(false)

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
		// Retried on the next read error.
		f.logger.Warn().Err(err).Msg("listing feed reconnect failed")
		return
	}
	f.logger.Info().Msg("listing feed reconnected")
}

func (f *ListingFeed) handleMessage(message []byte) {
	var msg feedMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		f.logger.Debug().Err(err).Msg("ignoring malformed feed message")
		return
	}
	if msg.Type != msgListingData || len(msg.Data) == 0 {
		return
	}

	var d listingData
	if err := json.Unmarshal(msg.Data, &d); err != nil || d.Address == "" {
		f.logger.Debug().Msg("ignoring listing without address")
		return
	}

	snap := domain.TokenSnapshot{
		Address:          d.Address,
		Name:             d.Name,
		Symbol:           d.Symbol,
		LiquidityUSD:     d.Liquidity.Float(),
		LiquidityInvalid: d.Liquidity.invalid,
		FetchedAt:        f.now(),
		Source:           "feed",
	}
	if d.LiquidityAddedAt.present && !d.LiquidityAddedAt.invalid && d.LiquidityAddedAt.value > 0 {
		snap.ListedAt = time.Unix(int64(d.LiquidityAddedAt.value), 0).UTC()
	}

	select {
	case f.listings <- snap:
	default:
		f.dropped.Add(1)
		f.logger.Warn().Str("token", d.Address).Msg("listing buffer full, dropping")
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (f *ListingFeed) pingLoop() {
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
				// Failures surface as read errors.
				_ = f.conn.WriteMessage(websocket.PingMessage, nil)
			}
			f.connMu.Unlock()
		}
	}
}
