package invalidation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/saviornt/CacheManager/internal/config"
	"github.com/saviornt/CacheManager/internal/types"
)

// Callback handles one delivered invalidation event.
type Callback func(Event)

// Manager publishes this node's invalidation events and dispatches
// remote ones to registered callbacks. Events published by this node
// are discarded on receipt so local deletes are not applied twice.
type Manager struct {
	pubsub  PubSub
	logger  *slog.Logger
	channel string
	nodeID  string

	resubscribeDelay time.Duration

	cbMu      sync.RWMutex
	callbacks map[EventType][]Callback
	catchAll  []Callback

	histMu      sync.Mutex
	history     []Event
	historySize int

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool

	published atomic.Int64
	received  atomic.Int64
	discarded atomic.Int64
}

func NewManager(pubsub PubSub, cfg config.InvalidationConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Channel == "" {
		cfg.Channel = "cache:invalidation"
	}
	if cfg.ResubscribeDelay <= 0 {
		cfg.ResubscribeDelay = time.Second
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}

	return &Manager{
		pubsub:           pubsub,
		logger:           logger.With("component", "invalidation"),
		channel:          cfg.Channel,
		nodeID:           uuid.NewString(),
		resubscribeDelay: cfg.ResubscribeDelay,
		callbacks:        make(map[EventType][]Callback),
		historySize:      cfg.HistorySize,
	}
}

// NodeID returns this node's origin identity.
func (m *Manager) NodeID() string { return m.nodeID }

// On registers a callback for one event type.
func (m *Manager) On(t EventType, cb Callback) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks[t] = append(m.callbacks[t], cb)
}

// OnAll registers a catch-all callback invoked for every event type.
func (m *Manager) OnAll(cb Callback) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.catchAll = append(m.catchAll, cb)
}

// Start attaches the listener. It fails if the initial subscription
// cannot be established; later failures resubscribe with backoff.
func (m *Manager) Start(ctx context.Context) error {
	if m.started.Swap(true) {
		return nil
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	sub, err := m.pubsub.Subscribe(ctx, m.channel)
	if err != nil {
		m.started.Store(false)
		cancel()
		return fmt.Errorf("%w: subscribe %s: %w", types.ErrInvalidation, m.channel, err)
	}

	m.wg.Add(1)
	go m.listen(listenCtx, sub)

	m.logger.Info("Invalidation listener started",
		"channel", m.channel,
		"node_id", m.nodeID,
	)
	return nil
}

// Stop detaches the listener and waits for it to exit.
func (m *Manager) Stop() {
	if !m.started.Swap(false) {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.logger.Info("Invalidation listener stopped")
}

func (m *Manager) listen(ctx context.Context, sub Subscription) {
	defer m.wg.Done()
	defer func() {
		if sub != nil {
			_ = sub.Close()
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		payload, err := sub.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			m.logger.Warn("Invalidation receive failed, resubscribing",
				"error", err,
				"delay", m.resubscribeDelay,
			)
			_ = sub.Close()
			sub = nil

			// Keep retrying until a subscription is live again; the
			// loop must never fall through to Receive without one.
			for sub == nil {
				select {
				case <-ctx.Done():
					return
				case <-time.After(m.resubscribeDelay):
				}

				next, serr := m.pubsub.Subscribe(ctx, m.channel)
				if serr != nil {
					m.logger.Warn("Resubscribe failed, retrying",
						"error", serr,
						"delay", m.resubscribeDelay,
					)
					continue
				}
				sub = next
			}
			continue
		}

		m.handle(payload)
	}
}

func (m *Manager) handle(payload []byte) {
	event, err := decodeEvent(payload)
	if err != nil {
		m.logger.Debug("Dropping malformed invalidation event", "error", err)
		return
	}

	if event.NodeID == m.nodeID {
		m.discarded.Add(1)
		return
	}

	m.received.Add(1)
	m.record(event)

	m.cbMu.RLock()
	typed := m.callbacks[event.Type]
	catchAll := m.catchAll
	m.cbMu.RUnlock()

	for _, cb := range typed {
		cb(event)
	}
	for _, cb := range catchAll {
		cb(event)
	}
}

func (m *Manager) record(event Event) {
	m.histMu.Lock()
	defer m.histMu.Unlock()

	m.history = append(m.history, event)
	if len(m.history) > m.historySize {
		m.history = m.history[len(m.history)-m.historySize:]
	}
}

// History returns the retained events, oldest first.
func (m *Manager) History() []Event {
	m.histMu.Lock()
	defer m.histMu.Unlock()

	out := make([]Event, len(m.history))
	copy(out, m.history)
	return out
}

// PublishKey announces that a single key was invalidated.
func (m *Manager) PublishKey(ctx context.Context, key, reason string) error {
	return m.publish(ctx, Event{Type: EventKey, Key: key, Reason: reason})
}

// PublishPattern announces that keys matching a pattern were invalidated.
func (m *Manager) PublishPattern(ctx context.Context, pattern, reason string) error {
	return m.publish(ctx, Event{Type: EventPattern, Pattern: pattern, Reason: reason})
}

// PublishNamespace announces that a whole namespace was cleared.
func (m *Manager) PublishNamespace(ctx context.Context, namespace, reason string) error {
	return m.publish(ctx, Event{Type: EventNamespace, Namespace: namespace, Reason: reason})
}

// PublishAll announces a full invalidation.
func (m *Manager) PublishAll(ctx context.Context, reason string) error {
	return m.publish(ctx, Event{Type: EventAll, Reason: reason})
}

func (m *Manager) publish(ctx context.Context, event Event) error {
	event.Timestamp = time.Now().UTC()
	event.NodeID = m.nodeID

	payload, err := event.encode()
	if err != nil {
		return err
	}

	if err := m.pubsub.Publish(ctx, m.channel, payload); err != nil {
		return fmt.Errorf("%w: publish %s: %w", types.ErrInvalidation, m.channel, err)
	}

	m.published.Add(1)
	return nil
}

// Stats returns publish/receive counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Published: m.published.Load(),
		Received:  m.received.Load(),
		Discarded: m.discarded.Load(),
	}
}

// Stats holds invalidation traffic counters.
type Stats struct {
	Published int64
	Received  int64
	Discarded int64
}
