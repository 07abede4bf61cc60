package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wtm-app/decoder-bot/internal/connectivity"
	"github.com/wtm-app/decoder-bot/internal/interpreter"
	"github.com/wtm-app/decoder-bot/internal/models"
	"github.com/wtm-app/decoder-bot/internal/quota"
	"github.com/wtm-app/decoder-bot/internal/storage"
)

type stubInterpreter struct {
	mu    sync.Mutex
	err   error
	calls int
	gate  chan struct{} // if set, Interpret blocks until it receives
}

func (s *stubInterpreter) Interpret(ctx context.Context, request models.AnalysisRequest) (models.AnalysisResult, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	err := s.err
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return models.AnalysisResult{}, err
	}
	return models.AnalysisResult{
		ID:              uuid.New().String(),
		Timestamp:       time.Now(),
		Mode:            request.Mode,
		OriginalMessage: request.Text,
		WhatWasSaid:     "stubbed breakdown",
		HiddenRules:     []string{"reply within a day"},
		ClarityScore:    models.ClarityScore{Score: 2, Explanation: "stub"},
		ConfidenceLevel: models.ConfidenceHigh,
	}, nil
}

func (s *stubInterpreter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestOrchestrator(t *testing.T, store storage.Store, interp interpreter.Interpreter, monitor connectivity.Monitor) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(store, interp, monitor, zap.NewNop())
	require.NoError(t, err)
	return o
}

func textInput(text string) RawInput {
	return RawInput{Text: text, Mode: models.ModeWork}
}

func TestSubmitValidation(t *testing.T) {
	o := newTestOrchestrator(t, storage.NewMemoryStore(), &stubInterpreter{}, connectivity.NewManualMonitor(true))

	assert.Equal(t, OutcomeInvalid, o.Submit(context.Background(), RawInput{Text: "hi"}).Kind) // missing mode
	assert.Equal(t, OutcomeInvalid, o.Submit(context.Background(), textInput("")).Kind)
	assert.Equal(t, OutcomeInvalid, o.Submit(context.Background(), textInput("   \n")).Kind)

	// Media-only input is fine.
	out := o.Submit(context.Background(), RawInput{
		Mode:  models.ModeSocial,
		Image: &models.MediaPayload{Data: "aGk=", MimeType: "image/png"},
	})
	assert.Equal(t, OutcomeCompleted, out.Kind)
}

func TestSubmitDirectSuccess(t *testing.T) {
	store := storage.NewMemoryStore()
	o := newTestOrchestrator(t, store, &stubInterpreter{}, connectivity.NewManualMonitor(true))

	out := o.Submit(context.Background(), textInput("Can you help?"))
	require.Equal(t, OutcomeCompleted, out.Kind)
	require.NotNil(t, out.Result)
	assert.Equal(t, "Can you help?", out.Result.OriginalMessage)

	assert.Len(t, o.History(), 1)
	assert.Equal(t, 1, o.Settings().AnalysesCount)
	assert.Equal(t, 0, o.QueueLen())

	// Both documents reached the store.
	_, ok, err := store.Get(storage.KeyHistory)
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = store.Get(storage.KeySettings)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSubmitDirectFailureMutatesNothing(t *testing.T) {
	interp := &stubInterpreter{err: &interpreter.NetworkError{Err: errors.New("tcp reset")}}
	o := newTestOrchestrator(t, storage.NewMemoryStore(), interp, connectivity.NewManualMonitor(true))

	out := o.Submit(context.Background(), textInput("hello?"))
	require.Equal(t, OutcomeFailed, out.Kind)

	var netErr *interpreter.NetworkError
	assert.True(t, errors.As(out.Err, &netErr))
	assert.Empty(t, o.History())
	assert.Equal(t, 0, o.Settings().AnalysesCount)
	assert.Equal(t, 0, o.QueueLen(), "direct failures are not auto-queued")
}

func TestSubmitMalformedResponseNotPersisted(t *testing.T) {
	interp := &stubInterpreter{err: &interpreter.MalformedResponseError{Reason: "missing clarityScore"}}
	o := newTestOrchestrator(t, storage.NewMemoryStore(), interp, connectivity.NewManualMonitor(true))

	out := o.Submit(context.Background(), textInput("hmm"))
	require.Equal(t, OutcomeFailed, out.Kind)
	var malformed *interpreter.MalformedResponseError
	assert.True(t, errors.As(out.Err, &malformed))
	assert.Empty(t, o.History())
}

func TestSubmitQuotaExceeded(t *testing.T) {
	store := storage.NewMemoryStore()
	o := newTestOrchestrator(t, store, &stubInterpreter{}, connectivity.NewManualMonitor(true))
	require.NoError(t, o.SetTier(models.TierFree))

	for i := 0; i < quota.FreeTierLimit; i++ {
		out := o.Submit(context.Background(), textInput(fmt.Sprintf("message %d", i)))
		require.Equal(t, OutcomeCompleted, out.Kind)
	}

	out := o.Submit(context.Background(), textInput("test"))
	assert.Equal(t, OutcomeQuotaExceeded, out.Kind)
	assert.Len(t, o.History(), quota.FreeTierLimit)
	assert.Equal(t, quota.FreeTierLimit, o.Settings().AnalysesCount)
	assert.Equal(t, 0, o.QueueLen())

	// Upgrading lifts the gate.
	require.NoError(t, o.SetTier(models.TierPlus))
	out = o.Submit(context.Background(), textInput("one more"))
	assert.Equal(t, OutcomeCompleted, out.Kind)
}

func TestConcurrentSubmitsCannotExceedQuota(t *testing.T) {
	gate := make(chan struct{})
	interp := &stubInterpreter{gate: gate}
	o := newTestOrchestrator(t, storage.NewMemoryStore(), interp, connectivity.NewManualMonitor(true))
	require.NoError(t, o.SetTier(models.TierFree))

	// One analysis left before the free limit.
	for i := 0; i < quota.FreeTierLimit-1; i++ {
		require.NoError(t, o.CommitResult(models.AnalysisResult{
			ID:              fmt.Sprintf("warmup-%d", i),
			Mode:            models.ModeWork,
			ClarityScore:    models.ClarityScore{Score: 1},
			ConfidenceLevel: models.ConfidenceHigh,
		}))
	}

	// The bot spawns a goroutine per message, so two submissions can race
	// for the last quota slot.
	outcomes := make(chan OutcomeKind, 2)
	for i := 0; i < 2; i++ {
		go func(n int) {
			outcomes <- o.Submit(context.Background(), textInput(fmt.Sprintf("racer %d", n))).Kind
		}(i)
	}

	require.Eventually(t, func() bool { return interp.callCount() == 1 }, 3*time.Second, 10*time.Millisecond)
	close(gate)

	kinds := make(map[OutcomeKind]int)
	for i := 0; i < 2; i++ {
		select {
		case kind := <-outcomes:
			kinds[kind]++
		case <-time.After(3 * time.Second):
			t.Fatal("submission never returned")
		}
	}

	assert.Equal(t, 1, kinds[OutcomeCompleted])
	assert.Equal(t, 1, kinds[OutcomeQuotaExceeded])
	assert.Equal(t, quota.FreeTierLimit, o.Settings().AnalysesCount)
	assert.Equal(t, 1, interp.callCount())
}

func TestOfflineSubmitQueuesThenDrains(t *testing.T) {
	store := storage.NewMemoryStore()
	monitor := connectivity.NewManualMonitor(false)
	o := newTestOrchestrator(t, store, &stubInterpreter{}, monitor)

	out := o.Submit(context.Background(), textInput("Can you help?"))
	require.Equal(t, OutcomeQueued, out.Kind)
	require.NotNil(t, out.Queued)
	assert.Equal(t, 1, o.QueueLen())
	assert.Empty(t, o.History())
	assert.Equal(t, 0, o.Settings().AnalysesCount)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Queue().Run(ctx)

	monitor.SetOnline(true)

	require.Eventually(t, func() bool { return o.QueueLen() == 0 }, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(o.History()) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, o.Settings().AnalysesCount)
	assert.Equal(t, "Can you help?", o.History()[0].OriginalMessage)
}

func TestDrainHandlerDelivery(t *testing.T) {
	monitor := connectivity.NewManualMonitor(false)
	o := newTestOrchestrator(t, storage.NewMemoryStore(), &stubInterpreter{}, monitor)

	delivered := make(chan models.QueuedAnalysis, 1)
	o.SetDrainHandler(func(item models.QueuedAnalysis, result models.AnalysisResult) {
		delivered <- item
	})

	out := o.Submit(context.Background(), textInput("background me"))
	require.Equal(t, OutcomeQueued, out.Kind)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Queue().Run(ctx)
	monitor.SetOnline(true)

	select {
	case item := <-delivered:
		assert.Equal(t, out.Queued.ID, item.ID)
	case <-time.After(3 * time.Second):
		t.Fatal("drain handler never called")
	}
}

func TestHistoryBound(t *testing.T) {
	o := newTestOrchestrator(t, storage.NewMemoryStore(), &stubInterpreter{}, connectivity.NewManualMonitor(true))

	for i := 0; i < 105; i++ {
		require.NoError(t, o.CommitResult(models.AnalysisResult{
			ID:              fmt.Sprintf("result-%d", i),
			Mode:            models.ModeWork,
			ClarityScore:    models.ClarityScore{Score: 1},
			ConfidenceLevel: models.ConfidenceHigh,
		}))
	}

	history := o.History()
	require.Len(t, history, MaxHistoryItems)
	// Newest first, oldest five dropped.
	assert.Equal(t, "result-104", history[0].ID)
	assert.Equal(t, "result-5", history[MaxHistoryItems-1].ID)
	assert.Equal(t, 105, o.Settings().AnalysesCount)
}

func TestClearHistory(t *testing.T) {
	store := storage.NewMemoryStore()
	monitor := connectivity.NewManualMonitor(true)
	o := newTestOrchestrator(t, store, &stubInterpreter{}, monitor)

	require.Equal(t, OutcomeCompleted, o.Submit(context.Background(), textInput("a")).Kind)
	require.NoError(t, o.ClearHistory())

	assert.Empty(t, o.History())
	// Quota state is untouched by a history wipe.
	assert.Equal(t, 1, o.Settings().AnalysesCount)

	doc, ok, err := store.Get(storage.KeyHistory)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, "[]", string(doc))
}

func TestStateSurvivesRestart(t *testing.T) {
	store := storage.NewMemoryStore()
	monitor := connectivity.NewManualMonitor(true)
	o := newTestOrchestrator(t, store, &stubInterpreter{}, monitor)

	require.Equal(t, OutcomeCompleted, o.Submit(context.Background(), textInput("persist me")).Kind)
	require.NoError(t, o.SetTier(models.TierPro))
	require.NoError(t, o.SetAnalysisDetail(models.DetailConcise))

	reloaded := newTestOrchestrator(t, store, &stubInterpreter{}, monitor)
	require.Len(t, reloaded.History(), 1)
	assert.Equal(t, "persist me", reloaded.History()[0].OriginalMessage)
	assert.Equal(t, models.TierPro, reloaded.Settings().Tier)
	assert.Equal(t, models.DetailConcise, reloaded.Settings().AnalysisDetail)
	assert.Equal(t, 1, reloaded.Settings().AnalysesCount)
}

func TestResetQuota(t *testing.T) {
	o := newTestOrchestrator(t, storage.NewMemoryStore(), &stubInterpreter{}, connectivity.NewManualMonitor(true))

	require.Equal(t, OutcomeCompleted, o.Submit(context.Background(), textInput("a")).Kind)
	require.Equal(t, 1, o.Settings().AnalysesCount)

	require.NoError(t, o.ResetQuota())
	assert.Equal(t, 0, o.Settings().AnalysesCount)
	// History is not a quota concern.
	assert.Len(t, o.History(), 1)
}

func TestSubscribeNotifiedOnCommit(t *testing.T) {
	o := newTestOrchestrator(t, storage.NewMemoryStore(), &stubInterpreter{}, connectivity.NewManualMonitor(true))
	changes := o.Subscribe()

	require.Equal(t, OutcomeCompleted, o.Submit(context.Background(), textInput("ping")).Kind)

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no change notification after commit")
	}
}

func TestLibraryCRUD(t *testing.T) {
	store := storage.NewMemoryStore()
	o := newTestOrchestrator(t, store, &stubInterpreter{}, connectivity.NewManualMonitor(true))

	first, err := o.AddLibraryItem(models.CustomLibraryItem{Title: "Tone indicators", Type: "url", URL: "https://example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := o.AddLibraryItem(models.CustomLibraryItem{Title: "Email etiquette", Type: "url", URL: "https://example.org"})
	require.NoError(t, err)

	items := o.LibraryItems()
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID, "newest first")

	require.NoError(t, o.DeleteLibraryItem(first.ID))
	require.Len(t, o.LibraryItems(), 1)

	// Unknown id is a no-op.
	require.NoError(t, o.DeleteLibraryItem("nope"))

	reloaded := newTestOrchestrator(t, store, &stubInterpreter{}, connectivity.NewManualMonitor(true))
	require.Len(t, reloaded.LibraryItems(), 1)
	assert.Equal(t, "Email etiquette", reloaded.LibraryItems()[0].Title)
}

func TestDiscoveredRulesDeduplicated(t *testing.T) {
	o := newTestOrchestrator(t, storage.NewMemoryStore(), &stubInterpreter{}, connectivity.NewManualMonitor(true))

	require.NoError(t, o.CommitResult(models.AnalysisResult{
		ID: "r1", Mode: models.ModeWork, OriginalMessage: "no rush",
		HiddenRules:     []string{"'no rush' still means soon", "acknowledge receipt"},
		ClarityScore:    models.ClarityScore{Score: 4},
		ConfidenceLevel: models.ConfidenceHigh,
	}))
	require.NoError(t, o.CommitResult(models.AnalysisResult{
		ID: "r2", Mode: models.ModeSocial, OriginalMessage: "K",
		HiddenRules:     []string{"acknowledge receipt", "short replies can read as cold"},
		ClarityScore:    models.ClarityScore{Score: 5},
		ConfidenceLevel: models.ConfidenceLow,
	}))

	rules := o.DiscoveredRules()
	require.Len(t, rules, 3)

	bySource := make(map[string]string)
	for _, r := range rules {
		bySource[r.Rule] = r.Source
	}
	// First (newest) occurrence wins as the source.
	assert.Equal(t, "K", bySource["acknowledge receipt"])
	assert.Equal(t, "no rush", bySource["'no rush' still means soon"])
}
