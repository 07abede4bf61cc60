package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wtm-app/decoder-bot/internal/connectivity"
	"github.com/wtm-app/decoder-bot/internal/interpreter"
	"github.com/wtm-app/decoder-bot/internal/models"
	"github.com/wtm-app/decoder-bot/internal/storage"
)

// ResultSink commits a successful analysis: history prepend, quota
// increment, persistence. The orchestrator provides it so drained and
// directly-submitted results go through the same mutation path.
type ResultSink interface {
	CommitResult(result models.AnalysisResult) error
}

// Manager owns the durable FIFO queue of not-yet-submitted analyses and
// drains it one item at a time whenever the monitor reports online.
//
// The drain is a two-state machine: idle, or exactly one head submission in
// flight (the shared Flight guard). A drain attempt is triggered by any
// connectivity transition, by a new enqueue, and after each attempt
// completes. A failed attempt leaves the head in place; there is no timed
// retry, so a permanently failing head blocks the rest until the next
// trigger resolves it.
type Manager struct {
	store   storage.Store
	interp  interpreter.Interpreter
	monitor connectivity.Monitor
	flight  *Flight
	sink    ResultSink
	logger  *zap.Logger

	mu    sync.Mutex
	items []models.QueuedAnalysis

	kick chan struct{}

	// OnDrained, when set, is called after a queued item has been
	// successfully submitted and committed.
	OnDrained func(item models.QueuedAnalysis, result models.AnalysisResult)
}

func NewManager(store storage.Store, interp interpreter.Interpreter, monitor connectivity.Monitor, flight *Flight, sink ResultSink, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		store:   store,
		interp:  interp,
		monitor: monitor,
		flight:  flight,
		sink:    sink,
		logger:  logger,
		kick:    make(chan struct{}, 1),
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	doc, ok, err := m.store.Get(storage.KeyQueue)
	if err != nil {
		return fmt.Errorf("failed to load queue: %w", err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(doc, &m.items); err != nil {
		return fmt.Errorf("failed to decode queue: %w", err)
	}
	return nil
}

// persist writes the whole queue document. Callers hold m.mu.
func (m *Manager) persist() error {
	doc, err := json.Marshal(m.items)
	if err != nil {
		return fmt.Errorf("failed to encode queue: %w", err)
	}
	if err := m.store.Set(storage.KeyQueue, doc); err != nil {
		return fmt.Errorf("failed to persist queue: %w", err)
	}
	return nil
}

// Enqueue appends a request to the tail of the queue and triggers a drain
// attempt in case we are already online.
func (m *Manager) Enqueue(request models.AnalysisRequest) (models.QueuedAnalysis, error) {
	item := models.QueuedAnalysis{
		ID:         uuid.New().String(),
		Request:    request,
		EnqueuedAt: time.Now(),
	}

	m.mu.Lock()
	m.items = append(m.items, item)
	err := m.persist()
	if err != nil {
		// Roll back so the in-memory queue matches the store.
		m.items = m.items[:len(m.items)-1]
	}
	m.mu.Unlock()

	if err != nil {
		return models.QueuedAnalysis{}, err
	}

	m.logger.Info("Queued analysis for later submission",
		zap.String("queued_id", item.ID),
		zap.String("mode", string(request.Mode)))
	m.Kick()
	return item, nil
}

// Len returns the number of queued analyses.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Items returns a copy of the queue, head first.
func (m *Manager) Items() []models.QueuedAnalysis {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.QueuedAnalysis, len(m.items))
	copy(out, m.items)
	return out
}

// Kick requests a drain attempt. Safe to call from any goroutine; coalesces
// with an already-pending request.
func (m *Manager) Kick() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// Run processes drain triggers until ctx is canceled. All drains happen on
// this goroutine, so queue order can never be violated by racing drains.
func (m *Manager) Run(ctx context.Context) {
	events := m.monitor.Subscribe()
	m.Kick()

	for {
		select {
		case <-ctx.Done():
			return
		case <-events:
			// The received value can be stale: the subscriber channel
			// coalesces, so a fast offline/online flap delivers only the
			// first transition. drain re-checks Online itself.
			m.drain(ctx)
		case <-m.kick:
			m.drain(ctx)
		}
	}
}

// drain submits queued items head first until the queue is empty, we go
// offline, a submission fails, or another submission holds the flight slot.
func (m *Manager) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil || !m.monitor.Online() {
			return
		}

		m.mu.Lock()
		if len(m.items) == 0 {
			m.mu.Unlock()
			return
		}
		head := m.items[0]
		m.mu.Unlock()

		if !m.flight.TryAcquire() {
			// A direct submit is in flight; it will kick us when done.
			return
		}
		ok := m.submitHead(ctx, head)
		m.flight.Release()
		if !ok {
			return
		}
	}
}

// submitHead attempts the head item. The item is removed only after the
// result has been committed, so a crash or failure anywhere leaves it
// queued. Returns false if the attempt failed and the drain should stop.
func (m *Manager) submitHead(ctx context.Context, head models.QueuedAnalysis) bool {
	result, err := m.interp.Interpret(ctx, head.Request)
	if err != nil {
		// Background retries must not interrupt the user; the head
		// stays for the next trigger.
		m.logger.Warn("Queued analysis submission failed, will retry on next trigger",
			zap.Error(err),
			zap.String("queued_id", head.ID))
		return false
	}

	if err := m.sink.CommitResult(result); err != nil {
		m.logger.Error("Failed to commit drained analysis, keeping it queued",
			zap.Error(err),
			zap.String("queued_id", head.ID))
		return false
	}

	m.mu.Lock()
	// The head cannot have moved: enqueues only append and this goroutine
	// is the only remover.
	if len(m.items) > 0 && m.items[0].ID == head.ID {
		m.items = m.items[1:]
		if err := m.persist(); err != nil {
			m.logger.Error("Failed to persist queue after drain", zap.Error(err))
		}
	}
	m.mu.Unlock()

	m.logger.Info("Drained queued analysis",
		zap.String("queued_id", head.ID),
		zap.String("result_id", result.ID))

	if m.OnDrained != nil {
		m.OnDrained(head, result)
	}
	return true
}
