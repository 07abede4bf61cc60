package connectivity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualMonitorTransitions(t *testing.T) {
	m := NewManualMonitor(false)
	assert.False(t, m.Online())

	events := m.Subscribe()

	m.SetOnline(true)
	assert.True(t, m.Online())
	select {
	case state := <-events:
		assert.True(t, state)
	case <-time.After(time.Second):
		t.Fatal("no transition event received")
	}

	// Setting the same state again is not a transition.
	m.SetOnline(true)
	select {
	case <-events:
		t.Fatal("unexpected event for a non-transition")
	default:
	}

	m.SetOnline(false)
	require.False(t, m.Online())
	select {
	case state := <-events:
		assert.False(t, state)
	case <-time.After(time.Second):
		t.Fatal("no transition event received")
	}
}

func TestManualMonitorSlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewManualMonitor(false)
	_ = m.Subscribe() // never drained

	// Buffered at 1; further flips must not block even with no reader.
	m.SetOnline(true)
	m.SetOnline(false)
	m.SetOnline(true)
	assert.True(t, m.Online())
}
