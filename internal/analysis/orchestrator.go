package analysis

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wtm-app/decoder-bot/internal/connectivity"
	"github.com/wtm-app/decoder-bot/internal/interpreter"
	"github.com/wtm-app/decoder-bot/internal/models"
	"github.com/wtm-app/decoder-bot/internal/queue"
	"github.com/wtm-app/decoder-bot/internal/quota"
	"github.com/wtm-app/decoder-bot/internal/storage"
)

// MaxHistoryItems bounds the analysis history; the oldest entries are
// dropped silently.
const MaxHistoryItems = 100

// RawInput is what the front-end hands to Submit.
type RawInput struct {
	Text  string
	Mode  models.Mode
	Image *models.MediaPayload
	Audio *models.MediaPayload
}

// Orchestrator is the entry point of the analysis lifecycle. It owns the
// history and settings state, gates submissions on the quota, routes them
// to the interpreter or the pending queue depending on connectivity, and is
// the single place where a successful result mutates state (CommitResult),
// whether it arrived directly or through a queue drain.
type Orchestrator struct {
	store   storage.Store
	interp  interpreter.Interpreter
	monitor connectivity.Monitor
	flight  *queue.Flight
	queue   *queue.Manager
	logger  *zap.Logger

	mu       sync.Mutex
	history  []models.AnalysisResult
	settings models.UserSettings
	library  []models.CustomLibraryItem
	subs     []chan struct{}

	onDrained func(item models.QueuedAnalysis, result models.AnalysisResult)
}

func NewOrchestrator(store storage.Store, interp interpreter.Interpreter, monitor connectivity.Monitor, logger *zap.Logger) (*Orchestrator, error) {
	o := &Orchestrator{
		store:   store,
		interp:  interp,
		monitor: monitor,
		flight:  queue.NewFlight(),
		logger:  logger,
	}
	if err := o.load(); err != nil {
		return nil, err
	}

	qm, err := queue.NewManager(store, interp, monitor, o.flight, o, logger)
	if err != nil {
		return nil, err
	}
	qm.OnDrained = func(item models.QueuedAnalysis, result models.AnalysisResult) {
		o.notify()
		o.mu.Lock()
		handler := o.onDrained
		o.mu.Unlock()
		if handler != nil {
			handler(item, result)
		}
	}
	o.queue = qm
	return o, nil
}

// Queue exposes the pending queue manager so the host can run its drain
// loop.
func (o *Orchestrator) Queue() *queue.Manager {
	return o.queue
}

// SetDrainHandler registers a callback for queued analyses completed in the
// background, e.g. to deliver the breakdown to the chat that asked for it.
func (o *Orchestrator) SetDrainHandler(handler func(item models.QueuedAnalysis, result models.AnalysisResult)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onDrained = handler
}

// Submit runs one input through the full lifecycle: validation, quota gate,
// then either a synchronous interpretation (online) or a durable enqueue
// (offline). A direct failure mutates nothing; the caller decides whether
// to resubmit.
func (o *Orchestrator) Submit(ctx context.Context, input RawInput) Outcome {
	if !input.Mode.Valid() {
		return Outcome{Kind: OutcomeInvalid}
	}
	request := models.AnalysisRequest{
		Text:        input.Text,
		Mode:        input.Mode,
		DetailLevel: o.Settings().AnalysisDetail,
		Image:       input.Image,
		Audio:       input.Audio,
	}
	if strings.TrimSpace(request.Text) == "" && request.Image == nil && request.Audio == nil {
		return Outcome{Kind: OutcomeInvalid}
	}

	settings := o.Settings()
	if !quota.CanAnalyze(settings.Tier, settings.AnalysesCount) {
		o.logger.Info("Analysis rejected by quota",
			zap.String("tier", string(settings.Tier)),
			zap.Int("count", settings.AnalysesCount))
		return Outcome{Kind: OutcomeQuotaExceeded}
	}

	if !o.monitor.Online() {
		item, err := o.queue.Enqueue(request)
		if err != nil {
			return Outcome{Kind: OutcomeFailed, Err: err}
		}
		o.notify()
		return Outcome{Kind: OutcomeQueued, Queued: &item}
	}

	// Direct path. Holds the shared flight slot across the call so a queue
	// drain can never run concurrently.
	o.flight.Acquire()
	// Another submission may have committed while we waited for the slot,
	// so the quota is checked again before spending a call on it.
	settings = o.Settings()
	if !quota.CanAnalyze(settings.Tier, settings.AnalysesCount) {
		o.flight.Release()
		o.queue.Kick()
		return Outcome{Kind: OutcomeQuotaExceeded}
	}
	result, err := o.interp.Interpret(ctx, request)
	if err == nil {
		err = o.CommitResult(result)
	}
	o.flight.Release()
	// The queue may have been waiting for the flight slot.
	o.queue.Kick()

	if err != nil {
		o.logger.Error("Direct analysis failed", zap.Error(err), zap.String("mode", string(request.Mode)))
		return Outcome{Kind: OutcomeFailed, Err: err}
	}
	return Outcome{Kind: OutcomeCompleted, Result: &result}
}

// CommitResult is the single mutation entry point for successful analyses,
// shared by the direct path and the queue drain: prepend to the bounded
// history, count it against the quota, persist both documents. State is
// only swapped in after both writes succeed.
func (o *Orchestrator) CommitResult(result models.AnalysisResult) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	history := make([]models.AnalysisResult, 0, len(o.history)+1)
	history = append(history, result)
	history = append(history, o.history...)
	if len(history) > MaxHistoryItems {
		history = history[:MaxHistoryItems]
	}
	settings := o.settings
	settings.AnalysesCount++

	if err := persistJSON(o.store, storage.KeyHistory, history); err != nil {
		return err
	}
	if err := persistJSON(o.store, storage.KeySettings, settings); err != nil {
		return err
	}

	o.history = history
	o.settings = settings
	o.notifyLocked()
	return nil
}

// ClearHistory wipes the history and nothing else.
func (o *Orchestrator) ClearHistory() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := persistJSON(o.store, storage.KeyHistory, []models.AnalysisResult{}); err != nil {
		return err
	}
	o.history = nil
	o.notifyLocked()
	return nil
}

// History returns the results newest first, read-only.
func (o *Orchestrator) History() []models.AnalysisResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.AnalysisResult, len(o.history))
	copy(out, o.history)
	return out
}

func (o *Orchestrator) Settings() models.UserSettings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settings
}

func (o *Orchestrator) QueueLen() int {
	return o.queue.Len()
}

func (o *Orchestrator) Online() bool {
	return o.monitor.Online()
}

// SetTier changes the subscription tier (upgrade/downgrade action).
func (o *Orchestrator) SetTier(tier models.Tier) error {
	return o.updateSettings(func(s *models.UserSettings) { s.Tier = tier })
}

// SetDefaultMode changes the mode preselected for new inputs.
func (o *Orchestrator) SetDefaultMode(mode models.Mode) error {
	return o.updateSettings(func(s *models.UserSettings) { s.DefaultMode = mode })
}

// SetAnalysisDetail changes the verbosity requested from the interpreter.
func (o *Orchestrator) SetAnalysisDetail(level models.DetailLevel) error {
	return o.updateSettings(func(s *models.UserSettings) { s.AnalysisDetail = level })
}

// ResetQuota zeroes the analyses counter (explicit reset action).
func (o *Orchestrator) ResetQuota() error {
	return o.updateSettings(func(s *models.UserSettings) { s.AnalysesCount = 0 })
}

func (o *Orchestrator) updateSettings(mutate func(*models.UserSettings)) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	settings := o.settings
	mutate(&settings)
	if err := persistJSON(o.store, storage.KeySettings, settings); err != nil {
		return err
	}
	o.settings = settings
	o.notifyLocked()
	return nil
}

// Subscribe returns a change-notification channel: one (coalesced) signal
// per state mutation. Readers re-query the projections they care about.
func (o *Orchestrator) Subscribe() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan struct{}, 1)
	o.subs = append(o.subs, ch)
	return ch
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notifyLocked()
}

func (o *Orchestrator) notifyLocked() {
	for _, ch := range o.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (o *Orchestrator) load() error {
	if err := loadJSON(o.store, storage.KeyHistory, &o.history); err != nil {
		return err
	}
	if len(o.history) > MaxHistoryItems {
		o.history = o.history[:MaxHistoryItems]
	}

	var settings *models.UserSettings
	if err := loadJSON(o.store, storage.KeySettings, &settings); err != nil {
		return err
	}
	if settings != nil {
		o.settings = *settings
	} else {
		o.settings = models.DefaultSettings()
	}

	return loadJSON(o.store, storage.KeyCustomLibrary, &o.library)
}
