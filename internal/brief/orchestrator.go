// Package brief orchestrates the briefing pipeline: fetch, select, script,
// audio, persist. One run at a time; concurrent requests are rejected, not
// queued.
package brief

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dailybrief/internal/ai"
	"dailybrief/internal/fetch"
	"dailybrief/internal/logger"
	"dailybrief/internal/metrics"
	"dailybrief/internal/model"
)

// Sentinel errors callers can branch on.
var (
	ErrGenerationInFlight = errors.New("briefing generation already in progress")
	ErrNoSources          = errors.New("no sources produced any articles")
	ErrNoArticles         = errors.New("no articles survived selection")
)

// LengthPreset bundles the article count and spoken duration of one
// briefing size.
type LengthPreset struct {
	Articles      int
	TargetMinutes int
}

var lengthPresets = map[string]LengthPreset{
	"quick":    {Articles: 5, TargetMinutes: 7},
	"balanced": {Articles: 10, TargetMinutes: 15},
	"deep":     {Articles: 15, TargetMinutes: 25},
}

// PresetFor returns the preset for a length name, defaulting to balanced.
func PresetFor(length string) LengthPreset {
	if p, ok := lengthPresets[strings.ToLower(length)]; ok {
		return p
	}
	return lengthPresets["balanced"]
}

// Request describes one generation run. Zero values fall back to the
// configured defaults.
type Request struct {
	Type         string
	Length       string
	ArticleCount int
	ForceRefresh bool
}

// Fetcher is the fetch stage as the orchestrator sees it.
type Fetcher interface {
	FetchAll(ctx context.Context, opts fetch.Options) ([]model.Article, []fetch.SourceError)
}

// Selecter is the selection stage as the orchestrator sees it.
type Selecter interface {
	Select(ctx context.Context, articles []model.Article, count int, interests []string) *model.SelectionResult
}

// BriefingStore persists finished briefings.
type BriefingStore interface {
	SaveBriefing(ctx context.Context, b *model.Briefing) (int64, error)
}

// Options configures an Orchestrator.
type Options struct {
	Fetcher     Fetcher
	Selector    Selecter
	Writer      ai.ScriptWriter      // nil forces the template script
	Synthesizer ai.SpeechSynthesizer // nil skips the audio stage
	Store       BriefingStore        // nil skips persistence
	Budget      *ai.Budget

	PackIDs     []string
	CustomFeeds []model.ContentSource
	Interests   []string
	Language    string
	AudioDir    string
	Length      string
}

type Orchestrator struct {
	opts Options
	log  *slog.Logger
	now  func() time.Time

	mu         sync.Mutex
	generating bool
	status     Status
	progress   int
	runID      string

	subMu     sync.Mutex
	subs      []chan StatusEvent
	callbacks []func(Status, int)
}

func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		opts:   opts,
		log:    logger.With("brief"),
		now:    time.Now,
		status: StatusIdle,
	}
}

// IsGenerating reports whether a run is in flight.
func (o *Orchestrator) IsGenerating() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generating
}

// Status returns the current lifecycle state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Progress returns the current progress milestone, 0 to 100.
func (o *Orchestrator) Progress() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Subscribe returns a channel of status events. Slow subscribers lose
// events rather than stalling the pipeline.
func (o *Orchestrator) Subscribe() <-chan StatusEvent {
	ch := make(chan StatusEvent, 16)
	o.subMu.Lock()
	o.subs = append(o.subs, ch)
	o.subMu.Unlock()
	return ch
}

// OnStatusChange registers a callback invoked on every status or progress
// change. It runs on the pipeline goroutine, so keep it fast.
func (o *Orchestrator) OnStatusChange(fn func(Status, int)) {
	o.subMu.Lock()
	o.callbacks = append(o.callbacks, fn)
	o.subMu.Unlock()
}

// Generate runs the full pipeline and returns the persisted briefing. A run
// already in flight yields ErrGenerationInFlight immediately.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*model.Briefing, error) {
	o.mu.Lock()
	if o.generating {
		o.mu.Unlock()
		return nil, ErrGenerationInFlight
	}
	o.generating = true
	o.runID = uuid.NewString()
	o.mu.Unlock()

	started := o.now()
	defer func() {
		o.mu.Lock()
		o.generating = false
		o.mu.Unlock()
		// Each run is independent; the machine rests at Idle between runs.
		o.setStatus(StatusIdle, progressIdle)
		metrics.Global.RecordRunDuration(o.now().Sub(started))
	}()

	briefing, err := o.run(ctx, req)
	if err != nil {
		o.setStatus(StatusError, progressIdle)
		metrics.Global.IncrementBriefingsFailed()
		metrics.Global.SetError(err.Error())
		o.log.Error("briefing generation failed", "error", err)
		return nil, err
	}

	o.setStatus(StatusReady, progressReady)
	metrics.Global.IncrementBriefingsGenerated()
	metrics.Global.SetLastRun()
	return briefing, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request) (*model.Briefing, error) {
	length := req.Length
	if length == "" {
		length = o.opts.Length
	}
	preset := PresetFor(length)
	count := req.ArticleCount
	if count < 1 {
		count = preset.Articles
	}
	briefingType := req.Type
	if briefingType == "" {
		briefingType = "daily"
	}

	o.setStatus(StatusFetching, progressFetching)
	articles, failures := o.opts.Fetcher.FetchAll(ctx, fetch.Options{
		PackIDs:      o.opts.PackIDs,
		CustomFeeds:  o.opts.CustomFeeds,
		ForceRefresh: req.ForceRefresh,
	})
	for _, f := range failures {
		o.log.Warn("source failed during run", "source", f.Source, "error", f.Err)
	}
	if len(articles) == 0 {
		return nil, ErrNoSources
	}

	o.setStatus(StatusSelecting, progressSelecting)
	selection := o.opts.Selector.Select(ctx, articles, count, o.opts.Interests)
	if len(selection.Articles) == 0 {
		return nil, ErrNoArticles
	}
	if selection.Fallback {
		o.log.Info("selection used score order", "articles", len(selection.Articles))
	} else {
		o.log.Info("selection used AI ranking", "articles", len(selection.Articles), "rationale", selection.Rationale)
	}

	o.setStatus(StatusGenerating, progressScript)
	script := o.writeScript(ctx, selection.Articles, briefingType, preset.TargetMinutes)

	o.publishProgress(progressAudio)
	audioPath, duration := o.renderAudio(ctx, script, briefingType)

	o.publishProgress(progressPersist)

	briefing := &model.Briefing{
		Date:        o.now().Format("2006-01-02"),
		Type:        briefingType,
		ArticleIDs:  articleIDs(selection.Articles),
		Script:      script,
		AudioPath:   audioPath,
		Duration:    duration,
		Status:      "ready",
		GeneratedAt: o.now(),
	}

	if o.opts.Store != nil {
		id, err := o.opts.Store.SaveBriefing(ctx, briefing)
		if err != nil {
			return nil, fmt.Errorf("failed to persist briefing: %w", err)
		}
		briefing.ID = id
	}

	return briefing, nil
}

// writeScript runs the AI writer when it can, else the template. A briefing
// always gets a script.
func (o *Orchestrator) writeScript(ctx context.Context, articles []model.Article, briefingType string, minutes int) string {
	if o.opts.Writer == nil {
		return fallbackScript(articles, briefingType, o.now())
	}
	if o.opts.Budget != nil {
		if !o.opts.Budget.CanScript() {
			o.log.Warn("script budget exhausted, using template")
			metrics.Global.IncrementScriptFallbacks()
			return fallbackScript(articles, briefingType, o.now())
		}
		if err := o.opts.Budget.RecordScript(); err != nil {
			o.log.Warn("script budget exhausted, using template", "error", err)
			metrics.Global.IncrementScriptFallbacks()
			return fallbackScript(articles, briefingType, o.now())
		}
	}

	script, err := o.opts.Writer.WriteScript(ctx, ai.ScriptRequest{
		Articles:      articles,
		BriefingType:  briefingType,
		TargetMinutes: minutes,
		Language:      o.opts.Language,
	})
	if err != nil || strings.TrimSpace(script) == "" {
		o.log.Warn("AI script generation failed, using template", "error", err)
		metrics.Global.IncrementScriptFallbacks()
		return fallbackScript(articles, briefingType, o.now())
	}
	return ensureScriptFraming(script, briefingType, o.now())
}

// renderAudio synthesizes and writes the audio file. Audio is best-effort;
// a failure leaves the briefing text-only.
func (o *Orchestrator) renderAudio(ctx context.Context, script, briefingType string) (string, int) {
	duration := EstimateDuration(script)
	if o.opts.Synthesizer == nil {
		return "", duration
	}
	if o.opts.Budget != nil {
		if !o.opts.Budget.CanSpeech() {
			o.log.Warn("speech budget exhausted, skipping audio")
			return "", duration
		}
		if err := o.opts.Budget.RecordSpeech(); err != nil {
			o.log.Warn("speech budget exhausted, skipping audio", "error", err)
			return "", duration
		}
	}

	audio, err := o.opts.Synthesizer.Synthesize(ctx, script, "")
	if err != nil {
		o.log.Warn("speech synthesis failed, keeping text-only briefing", "error", err)
		return "", duration
	}

	dir := o.opts.AudioDir
	if dir == "" {
		dir = "audio"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		o.log.Warn("could not create audio dir", "dir", dir, "error", err)
		return "", duration
	}

	name := fmt.Sprintf("briefing_%s_%s.mp3", o.now().Format("20060102_150405"), briefingType)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		o.log.Warn("could not write audio file", "path", path, "error", err)
		return "", duration
	}

	o.log.Info("audio written", "path", path, "bytes", len(audio), "duration_s", duration)
	return path, duration
}

// setStatus transitions the state machine and notifies observers. An illegal
// transition is a programming error; it is logged and applied anyway so the
// pipeline never wedges.
func (o *Orchestrator) setStatus(status Status, progress int) {
	o.mu.Lock()
	if o.status != status && !canTransition(o.status, status) {
		o.log.Warn("unexpected status transition", "from", o.status, "to", status)
	}
	o.status = status
	o.progress = progress
	runID := o.runID
	o.mu.Unlock()

	o.notify(runID, status, progress)
}

// publishProgress moves the progress marker without a state change.
func (o *Orchestrator) publishProgress(progress int) {
	o.mu.Lock()
	o.progress = progress
	status := o.status
	runID := o.runID
	o.mu.Unlock()

	o.notify(runID, status, progress)
}

func (o *Orchestrator) notify(runID string, status Status, progress int) {
	event := StatusEvent{RunID: runID, Status: status, Progress: progress, At: o.now()}

	o.subMu.Lock()
	subs := make([]chan StatusEvent, len(o.subs))
	copy(subs, o.subs)
	callbacks := make([]func(Status, int), len(o.callbacks))
	copy(callbacks, o.callbacks)
	o.subMu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default: // drop rather than block the pipeline
		}
	}
	for _, fn := range callbacks {
		fn(status, progress)
	}
}

func articleIDs(articles []model.Article) []string {
	ids := make([]string, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}
	return ids
}
