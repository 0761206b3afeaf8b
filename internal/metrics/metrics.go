package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex          sync.RWMutex
	connections    int64
	rewritten      int64
	routed         map[string]int64
	dialFailures   map[string]int64
	bytesToBackend map[string]int64
	bytesToClient  map[string]int64
	relayTimes     map[string][]time.Duration
	startTime      time.Time
}

type Snapshot struct {
	TotalConnections  int64                     `json:"total_connections"`
	RewrittenRequests int64                     `json:"rewritten_requests"`
	Uptime            time.Duration             `json:"uptime"`
	Backends          map[string]BackendMetrics `json:"backends"`
}

type BackendMetrics struct {
	Routed         int64         `json:"routed"`
	DialFailures   int64         `json:"dial_failures"`
	BytesToBackend int64         `json:"bytes_to_backend"`
	BytesToClient  int64         `json:"bytes_to_client"`
	AvgRelay       time.Duration `json:"avg_relay"`
	P50Relay       time.Duration `json:"p50_relay"`
	P95Relay       time.Duration `json:"p95_relay"`
	P99Relay       time.Duration `json:"p99_relay"`
}

func (m *Metrics) IncrementConnections() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.connections++
}

func (m *Metrics) IncrementRewritten() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rewritten++
}

func (m *Metrics) RecordRouted(backend string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.routed[backend]++
}

func (m *Metrics) RecordDialFailure(backend string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.dialFailures[backend]++
}

func (m *Metrics) RecordRelay(backend string, duration time.Duration, toBackend, toClient int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.bytesToBackend[backend] += toBackend
	m.bytesToClient[backend] += toClient

	m.relayTimes[backend] = append(m.relayTimes[backend], duration)
	if len(m.relayTimes[backend]) > 1000 {
		m.relayTimes[backend] = m.relayTimes[backend][1:]
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalConnections:  m.connections,
		RewrittenRequests: m.rewritten,
		Uptime:            time.Since(m.startTime),
		Backends:          make(map[string]BackendMetrics),
	}

	allBackends := make(map[string]bool)
	for backend := range m.routed {
		allBackends[backend] = true
	}
	for backend := range m.dialFailures {
		allBackends[backend] = true
	}
	for backend := range m.relayTimes {
		allBackends[backend] = true
	}

	for backend := range allBackends {
		bm := BackendMetrics{
			Routed:         m.routed[backend],
			DialFailures:   m.dialFailures[backend],
			BytesToBackend: m.bytesToBackend[backend],
			BytesToClient:  m.bytesToClient[backend],
		}

		durations := m.relayTimes[backend]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			bm.AvgRelay = average(sorted)
			bm.P50Relay = percentile(sorted, 0.50)
			bm.P95Relay = percentile(sorted, 0.95)
			bm.P99Relay = percentile(sorted, 0.99)
		}

		snap.Backends[backend] = bm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		routed:         make(map[string]int64),
		dialFailures:   make(map[string]int64),
		bytesToBackend: make(map[string]int64),
		bytesToClient:  make(map[string]int64),
		relayTimes:     make(map[string][]time.Duration),
		startTime:      time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
