package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/happykoalaa/koala-counseling-server/internal/audio"
	"github.com/happykoalaa/koala-counseling-server/internal/metrics"
	"github.com/happykoalaa/koala-counseling-server/internal/quota"
	"github.com/happykoalaa/koala-counseling-server/internal/simulate"
	"github.com/happykoalaa/koala-counseling-server/internal/speech"
	"github.com/happykoalaa/koala-counseling-server/internal/store"
	"github.com/happykoalaa/koala-counseling-server/internal/translate"
)

// Mode identifies how a transcript was produced.
type Mode string

const (
	ModeAI         Mode = "AI"
	ModeSimulation Mode = "SIMULATION"
)

// Priority is the triage flag derived from the student's reported mood.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// highPriorityMoods is the fixed symbol set that triggers a high-priority
// counseling record.
var highPriorityMoods = map[string]bool{
	simulate.MoodSad:     true,
	simulate.MoodAngry:   true,
	simulate.MoodAnxious: true,
}

// PriorityFor classifies a mood symbol.
func PriorityFor(mood string) Priority {
	if highPriorityMoods[mood] {
		return PriorityHigh
	}
	return PriorityNormal
}

// ErrMissingAudio is returned when a request carries no audio payload.
var ErrMissingAudio = errors.New("audio payload is required")

// QuotaExceededError rejects a request before any provider call. It carries
// the usage snapshot so callers can report current consumption.
type QuotaExceededError struct {
	Usage quota.Snapshot
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily speech quota exceeded: %.2f of %.1f minutes used",
		e.Usage.SpeechMinutesUsed, e.Usage.SpeechMinutesLimit)
}

// PersistenceError wraps a storage failure. Unlike AI-path failures it is
// surfaced to the caller.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist counseling record: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Request is one inbound counseling voice submission.
type Request struct {
	Student  string
	Mood     string
	Language string
	Audio    *audio.Input
}

// Result is the structured outcome returned to the HTTP layer.
type Result struct {
	OriginalText   string
	TranslatedText string
	Priority       Priority
	Mode           Mode
	Usage          quota.Snapshot
	Timestamp      time.Time
}

// Backend bundles the configured AI provider clients. A nil Backend on the
// orchestrator means the service runs purely in simulation mode.
type Backend struct {
	Speech    *speech.Client
	Translate *translate.Client
}

// RecordStore is the persistence collaborator consumed by the orchestrator.
type RecordStore interface {
	Append(ctx context.Context, rec store.Record) error
}

// Config contains orchestrator configuration.
type Config struct {
	// CallTimeout bounds each external provider call so a hung provider
	// degrades to simulation instead of blocking the handler.
	CallTimeout time.Duration
}

// Orchestrator runs submissions through the counseling pipeline.
type Orchestrator struct {
	logger  *slog.Logger
	usage   *quota.Tracker
	backend *Backend
	records RecordStore
	metrics *metrics.Metrics
	timeout time.Duration

	now func() time.Time
}

// New creates an orchestrator. backend may be nil (simulation mode).
func New(cfg Config, logger *slog.Logger, usage *quota.Tracker, backend *Backend,
	records RecordStore, m *metrics.Metrics) *Orchestrator {

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}

	return &Orchestrator{
		logger:  logger,
		usage:   usage,
		backend: backend,
		records: records,
		metrics: m,
		timeout: cfg.CallTimeout,
		now:     time.Now,
	}
}

// AIReady reports whether the AI provider clients are configured.
func (o *Orchestrator) AIReady() bool {
	return o.backend != nil
}

// Process runs one submission through the pipeline and returns the result.
// AI-path failures are logged and absorbed by the simulation fallback;
// quota denial, missing audio, and storage failures are returned.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*Result, error) {
	started := o.now()
	o.metrics.AudioRequests.Inc()

	if req.Audio == nil || len(req.Audio.Data) == 0 {
		return nil, ErrMissingAudio
	}

	o.usage.CheckAndReset()
	if !o.usage.CanTranscribe() {
		o.metrics.QuotaRejections.Inc()
		snap := o.usage.Snapshot()
		o.logger.Warn("request rejected by daily speech quota",
			slog.String("student", req.Student),
			slog.Float64("speech_minutes_used", snap.SpeechMinutesUsed),
		)
		return nil, &QuotaExceededError{Usage: snap}
	}

	original, translated, mode := o.produceTranscript(ctx, req)

	priority := PriorityFor(req.Mood)

	rec := store.Record{
		ID:             uuid.NewString(),
		Student:        req.Student,
		Mood:           req.Mood,
		Language:       req.Language,
		OriginalText:   original,
		TranslatedText: translated,
		CreatedAt:      started.UTC(),
		Priority:       string(priority),
	}
	if err := o.records.Append(ctx, rec); err != nil {
		o.metrics.PersistenceFailures.Inc()
		o.logger.Error("record persistence failed",
			slog.String("record_id", rec.ID),
			slog.String("error", err.Error()),
		)
		return nil, &PersistenceError{Err: err}
	}
	o.metrics.RecordsPersisted.Inc()

	snap := o.usage.Snapshot()
	o.metrics.RecordUsage(snap.SpeechMinutesUsed, snap.TranslateCharsUsed)
	o.metrics.ProcessingDuration.Observe(o.now().Sub(started).Seconds())

	o.logger.Info("audio processed",
		slog.String("record_id", rec.ID),
		slog.String("language", req.Language),
		slog.String("priority", string(priority)),
		slog.String("mode", string(mode)),
	)

	return &Result{
		OriginalText:   original,
		TranslatedText: translated,
		Priority:       priority,
		Mode:           mode,
		Usage:          snap,
		Timestamp:      started.UTC(),
	}, nil
}

// produceTranscript tries the AI path when a backend is configured and falls
// back to the simulation generator on any provider failure.
func (o *Orchestrator) produceTranscript(ctx context.Context, req Request) (string, string, Mode) {
	if o.backend != nil {
		original, translated, err := o.attemptAI(ctx, req)
		if err == nil {
			o.metrics.AIResponses.Inc()
			return original, translated, ModeAI
		}
		o.logger.Warn("AI pipeline failed, falling back to simulation",
			slog.String("student", req.Student),
			slog.String("language", req.Language),
			slog.String("error", err.Error()),
		)
	}

	o.metrics.SimulationFallbacks.Inc()
	sim := simulate.Generate(req.Student, req.Mood, req.Language)
	return sim.Original, sim.Translated, ModeSimulation
}

// attemptAI runs transcription then translation, each under a bounded
// timeout. Korean submissions skip translation.
func (o *Orchestrator) attemptAI(ctx context.Context, req Request) (string, string, error) {
	sttCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	original, err := o.backend.Speech.Transcribe(sttCtx, *req.Audio)
	if err != nil {
		o.metrics.TranscriptionFailures.Inc()
		return "", "", fmt.Errorf("transcribe: %w", err)
	}

	if req.Language == "korean" {
		return original, original, nil
	}

	trCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	translated, err := o.backend.Translate.Translate(trCtx, original, "ko")
	if err != nil {
		o.metrics.TranslationFailures.Inc()
		return "", "", fmt.Errorf("translate: %w", err)
	}

	return original, translated, nil
}
