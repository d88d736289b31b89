// Package notify delivers trade and status alerts to Telegram.
//
// Alerts are formatted by the helpers in format.go and queued on a Notifier.
// Delivery happens on a single worker goroutine so the trading loop never
// waits on the chat API; a full queue drops the message.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-token-trader/internal/observability"
)

// DefaultQueueSize bounds the pending messages.
const DefaultQueueSize = 100

// DefaultSendTimeout bounds a single delivery.
const DefaultSendTimeout = 30 * time.Second

// Options configures Notifier.
type Options struct {
	Sender      Sender
	QueueSize   int
	SendTimeout time.Duration
	Logger      zerolog.Logger
}

// Notifier queues messages and delivers them in order.
type Notifier struct {
	sender  Sender
	timeout time.Duration
	logger  zerolog.Logger

	queue chan string

	mu      sync.Mutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewNotifier creates a notifier. A nil Sender makes every Enqueue a no-op.
func NewNotifier(opts Options) *Notifier {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	return &Notifier{
		sender:  opts.Sender,
		timeout: opts.SendTimeout,
		logger:  opts.Logger.With().Str("component", "notify").Logger(),
		queue:   make(chan string, opts.QueueSize),
	}
}

// Enabled reports whether messages are delivered anywhere.
func (n *Notifier) Enabled() bool {
	return n != nil && n.sender != nil
}

// Start launches the delivery worker. It stops when ctx is cancelled or Close is called.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started || n.closed {
		return
	}
	n.started = true
	ctx, n.cancel = context.WithCancel(ctx)

	n.wg.Add(1)
	go n.run(ctx)
}

// Enqueue queues text without blocking. It returns false when the message
// was dropped because the queue is full, the notifier is closed or no
// sender is configured.
func (n *Notifier) Enqueue(text string) bool {
	if !n.Enabled() || text == "" {
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false
	}
	select {
	case n.queue <- text:
		return true
	default:
		observability.RecordNotification(false, true)
		n.logger.Warn().Int("queue_size", cap(n.queue)).Msg("notification queue full, dropping message")
		return false
	}
}

// Pending returns the number of queued messages.
func (n *Notifier) Pending() int {
	return len(n.queue)
}

// Close stops accepting messages, delivers what is queued and waits for the worker.
// Delivery of the remaining messages is bounded by ctx.
func (n *Notifier) Close(ctx context.Context) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	started := n.started
	n.mu.Unlock()

	if !started {
		return
	}

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		n.cancel()
		<-done
	}
}

func (n *Notifier) run(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case text, ok := <-n.queue:
			if !ok {
				return
			}
			n.deliver(ctx, text)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.sender.SendMessage(sendCtx, text); err != nil {
		observability.RecordNotification(false, false)
		n.logger.Error().Err(err).Msg("failed to send notification")
		return
	}
	observability.RecordNotification(true, false)
}
