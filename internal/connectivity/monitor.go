package connectivity

import (
	"sync"
)

// Monitor tracks whether the process currently appears to be online.
// "Online" is a liveness hint, not a guarantee: the remote service may still
// be unreachable, so consumers must tolerate failures while online.
type Monitor interface {
	Online() bool
	// Subscribe returns a channel receiving the new state on every
	// transition. Slow subscribers miss intermediate transitions rather
	// than blocking the monitor.
	Subscribe() <-chan bool
}

// ManualMonitor is a Monitor whose state is flipped by the host (or by
// tests) via SetOnline.
type ManualMonitor struct {
	mu     sync.Mutex
	online bool
	subs   []chan bool
}

func NewManualMonitor(online bool) *ManualMonitor {
	return &ManualMonitor{online: online}
}

func (m *ManualMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *ManualMonitor) Subscribe() <-chan bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan bool, 1)
	m.subs = append(m.subs, ch)
	return ch
}

// SetOnline records the new state and notifies subscribers if it changed.
func (m *ManualMonitor) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.online == online {
		return
	}
	m.online = online
	for _, ch := range m.subs {
		select {
		case ch <- online:
		default:
		}
	}
}
