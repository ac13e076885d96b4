package ai

import (
	"fmt"
	"sync"
	"time"

	"dailybrief/internal/logger"
)

// Budget caps AI usage per concern and overall, resetting daily. A limit of
// zero means unlimited for that concern.
type Budget struct {
	mu          sync.Mutex
	rankCount   int
	scriptCount int
	speechCount int
	totalCount  int
	maxRank     int
	maxScript   int
	maxSpeech   int
	maxTotal    int
	resetTime   time.Time
}

func NewBudget(maxRank, maxScript, maxSpeech, maxTotal int) *Budget {
	return &Budget{
		maxRank:   maxRank,
		maxScript: maxScript,
		maxSpeech: maxSpeech,
		maxTotal:  maxTotal,
		resetTime: time.Now().Add(24 * time.Hour),
	}
}

// CanRank reports whether a ranking request fits in the budget.
func (b *Budget) CanRank() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkReset()
	return b.allowed(b.rankCount, b.maxRank, "rank")
}

// CanScript reports whether a script request fits in the budget.
func (b *Budget) CanScript() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkReset()
	return b.allowed(b.scriptCount, b.maxScript, "script")
}

// CanSpeech reports whether a synthesis request fits in the budget.
func (b *Budget) CanSpeech() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkReset()
	return b.allowed(b.speechCount, b.maxSpeech, "speech")
}

// RecordRank consumes one ranking request.
func (b *Budget) RecordRank() error { return b.record(&b.rankCount, b.maxRank, "rank") }

// RecordScript consumes one script request.
func (b *Budget) RecordScript() error { return b.record(&b.scriptCount, b.maxScript, "script") }

// RecordSpeech consumes one synthesis request.
func (b *Budget) RecordSpeech() error { return b.record(&b.speechCount, b.maxSpeech, "speech") }

func (b *Budget) record(count *int, max int, concern string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if max > 0 && *count >= max {
		return fmt.Errorf("%s budget exceeded (%d/%d)", concern, *count, max)
	}
	if b.maxTotal > 0 && b.totalCount >= b.maxTotal {
		return fmt.Errorf("total AI budget exceeded (%d/%d)", b.totalCount, b.maxTotal)
	}

	*count++
	b.totalCount++
	return nil
}

func (b *Budget) allowed(count, max int, concern string) bool {
	if max > 0 && count >= max {
		logger.Warn("AI budget reached", "concern", concern, "used", count, "limit", max)
		return false
	}
	if b.maxTotal > 0 && b.totalCount >= b.maxTotal {
		logger.Warn("total AI budget reached", "used", b.totalCount, "limit", b.maxTotal)
		return false
	}
	return true
}

// GetStats returns current budget usage.
func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	return map[string]interface{}{
		"rank_used":    b.rankCount,
		"rank_limit":   b.maxRank,
		"script_used":  b.scriptCount,
		"script_limit": b.maxScript,
		"speech_used":  b.speechCount,
		"speech_limit": b.maxSpeech,
		"total_used":   b.totalCount,
		"total_limit":  b.maxTotal,
		"reset_time":   b.resetTime,
	}
}

func (b *Budget) checkReset() {
	if time.Now().After(b.resetTime) {
		logger.Info("resetting AI budget counters")
		b.rankCount = 0
		b.scriptCount = 0
		b.speechCount = 0
		b.totalCount = 0
		b.resetTime = time.Now().Add(24 * time.Hour)
	}
}
