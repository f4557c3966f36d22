package quota

import (
	"sync"
	"time"
)

const (
	// SpeechDailyLimitMinutes is the daily ceiling on transcribed audio.
	SpeechDailyLimitMinutes = 2.0

	// speechSafetyThreshold stops transcription before the last call can
	// overshoot the 2.0 minute ceiling. Both constants are intentional.
	speechSafetyThreshold = 1.8

	// TranslateDailyLimitChars is the daily ceiling on translated characters.
	TranslateDailyLimitChars = 15000
)

// Snapshot is a point-in-time view of today's usage against the limits.
type Snapshot struct {
	SpeechMinutesUsed   float64 `json:"speech_minutes_used"`
	SpeechMinutesLimit  float64 `json:"speech_minutes_limit"`
	TranslateCharsUsed  int     `json:"translate_chars_used"`
	TranslateCharsLimit int     `json:"translate_chars_limit"`
	ResetDate           string  `json:"reset_date"`
}

// Tracker holds the process-wide daily usage counters. Counter access is
// guarded by a mutex; the check-then-consume sequence across two calls is
// still racy under concurrent requests, so the daily cap is best-effort.
type Tracker struct {
	mu                 sync.Mutex
	speechMinutesUsed  float64
	translateCharsUsed int
	lastResetDate      string

	now func() time.Time
}

// NewTracker creates a tracker with zeroed counters dated today.
func NewTracker() *Tracker {
	t := &Tracker{now: time.Now}
	t.lastResetDate = t.today()
	return t
}

func (t *Tracker) today() string {
	return t.now().UTC().Format("2006-01-02")
}

// resetLocked zeroes both counters when the stored date is stale.
// Callers must hold t.mu.
func (t *Tracker) resetLocked() {
	today := t.today()
	if t.lastResetDate != today {
		t.speechMinutesUsed = 0
		t.translateCharsUsed = 0
		t.lastResetDate = today
	}
}

// CheckAndReset rolls the counters over at the day boundary. Calling it
// twice on the same date is a no-op the second time.
func (t *Tracker) CheckAndReset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

// CanTranscribe reports whether another transcription call is allowed today.
// It does not consume anything.
func (t *Tracker) CanTranscribe() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	return t.speechMinutesUsed <= speechSafetyThreshold
}

// CanTranslate reports whether translating chars more characters stays
// within today's budget. It does not consume anything.
func (t *Tracker) CanTranslate(chars int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	return t.translateCharsUsed+chars <= TranslateDailyLimitChars
}

// ConsumeSpeech adds minutes to today's speech counter.
func (t *Tracker) ConsumeSpeech(minutes float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	t.speechMinutesUsed += minutes
}

// ConsumeTranslate adds chars to today's translation counter.
func (t *Tracker) ConsumeTranslate(chars int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	t.translateCharsUsed += chars
}

// Snapshot returns today's usage for reporting. It applies the lazy day
// rollover first, so a stale tracker reports zeroed counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	return Snapshot{
		SpeechMinutesUsed:   t.speechMinutesUsed,
		SpeechMinutesLimit:  SpeechDailyLimitMinutes,
		TranslateCharsUsed:  t.translateCharsUsed,
		TranslateCharsLimit: TranslateDailyLimitChars,
		ResetDate:           t.lastResetDate,
	}
}
