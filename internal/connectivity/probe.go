package connectivity

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ProbeMonitor polls a well-known URL to estimate connectivity. Any HTTP
// response at all counts as online; only a transport failure counts as
// offline.
type ProbeMonitor struct {
	*ManualMonitor

	url      string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger
}

func NewProbeMonitor(url string, interval time.Duration, logger *zap.Logger) *ProbeMonitor {
	return &ProbeMonitor{
		// Assume online until the first probe says otherwise, matching
		// how browsers report navigator.onLine at startup.
		ManualMonitor: NewManualMonitor(true),
		url:           url,
		interval:      interval,
		client:        &http.Client{Timeout: 10 * time.Second},
		logger:        logger,
	}
}

// Run probes until ctx is canceled. It performs one probe immediately so the
// state is settled before the first tick.
func (m *ProbeMonitor) Run(ctx context.Context) {
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *ProbeMonitor) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.url, nil)
	if err != nil {
		m.logger.Error("Failed to build probe request", zap.Error(err), zap.String("url", m.url))
		return
	}

	resp, err := m.client.Do(req)
	if err != nil {
		if m.Online() {
			m.logger.Info("Connectivity lost", zap.Error(err))
		}
		m.SetOnline(false)
		return
	}
	resp.Body.Close()

	if !m.Online() {
		m.logger.Info("Connectivity regained")
	}
	m.SetOnline(true)
}
