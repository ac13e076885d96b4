package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	SourcesFetched     int64
	SourceErrors       int64
	ArticlesFetched    int64
	DuplicatesFiltered int64
	RankFallbacks      int64
	ScriptFallbacks    int64
	BriefingsGenerated int64
	BriefingsFailed    int64

	// Timings
	LastRunDuration    time.Duration
	TotalRunDuration   time.Duration
	AverageRunDuration time.Duration
	RunCount           int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddSourcesFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourcesFetched += int64(n)
}

func (m *Metrics) IncrementSourceErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceErrors++
}

func (m *Metrics) AddArticlesFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesFetched += int64(n)
}

func (m *Metrics) AddDuplicatesFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += int64(n)
}

func (m *Metrics) IncrementRankFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RankFallbacks++
}

func (m *Metrics) IncrementScriptFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ScriptFallbacks++
}

func (m *Metrics) IncrementBriefingsGenerated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BriefingsGenerated++
}

func (m *Metrics) IncrementBriefingsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BriefingsFailed++
}

func (m *Metrics) RecordRunDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = duration
	m.TotalRunDuration += duration
	m.RunCount++

	if m.RunCount > 0 {
		m.AverageRunDuration = m.TotalRunDuration / time.Duration(m.RunCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"sources_fetched":         m.SourcesFetched,
		"source_errors":           m.SourceErrors,
		"articles_fetched":        m.ArticlesFetched,
		"duplicates_filtered":     m.DuplicatesFiltered,
		"rank_fallbacks":          m.RankFallbacks,
		"script_fallbacks":        m.ScriptFallbacks,
		"briefings_generated":     m.BriefingsGenerated,
		"briefings_failed":        m.BriefingsFailed,
		"last_run_duration_ms":    m.LastRunDuration.Milliseconds(),
		"average_run_duration_ms": m.AverageRunDuration.Milliseconds(),
		"last_run_time":           m.LastRunTime.Format(time.RFC3339),
		"last_error_time":         m.LastErrorTime.Format(time.RFC3339),
		"last_error":              m.LastError,
		"is_healthy":              m.IsHealthy,
	}
}
