package simulate

import (
	"strings"
	"testing"
)

func TestGenerateKoreanIsIdentity(t *testing.T) {
	for _, mood := range []string{MoodSad, MoodAngry, MoodAnxious, MoodHappy, "🤖"} {
		r := Generate("지민", mood, "korean")
		if r.Original != r.Translated {
			t.Errorf("mood %s: korean original and translation differ: %q vs %q",
				mood, r.Original, r.Translated)
		}
	}
}

func TestGenerateRussianSad(t *testing.T) {
	r := Generate("Min", MoodSad, "russian")

	if !strings.Contains(r.Original, "Min") {
		t.Errorf("original does not embed the student name: %q", r.Original)
	}
	if !strings.Contains(r.Original, "мне грустно") {
		t.Errorf("original missing Russian sad phrase: %q", r.Original)
	}
	if !strings.Contains(r.Translated, "Min") {
		t.Errorf("translation does not embed the student name: %q", r.Translated)
	}
	if !strings.Contains(r.Translated, "슬퍼요") {
		t.Errorf("translation missing Korean sad phrase: %q", r.Translated)
	}
}

func TestGenerateMoodPhrases(t *testing.T) {
	tests := []struct {
		name     string
		mood     string
		language string
		phrase   string
	}{
		{"vietnamese angry", MoodAngry, "vietnamese", "em tức giận"},
		{"vietnamese anxious", MoodAnxious, "vietnamese", "em lo lắng"},
		{"chinese happy", MoodHappy, "chinese", "我很开心"},
		{"russian anxious", MoodAnxious, "russian", "я волнуюсь"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Generate("Lan", tt.mood, tt.language)
			if !strings.Contains(r.Original, tt.phrase) {
				t.Errorf("original %q missing phrase %q", r.Original, tt.phrase)
			}
		})
	}
}

func TestGenerateUnrecognizedMoodFallsBackToNeutral(t *testing.T) {
	r := Generate("Anna", "🙃", "russian")
	if !strings.Contains(r.Original, "всё нормально") {
		t.Errorf("original %q missing neutral phrase", r.Original)
	}
	if !strings.Contains(r.Translated, "그냥 그래요") {
		t.Errorf("translation %q missing Korean neutral phrase", r.Translated)
	}
}

func TestGenerateUnrecognizedLanguageFallsBackToKorean(t *testing.T) {
	r := Generate("Bold", MoodSad, "mongolian")
	if r.Original != r.Translated {
		t.Errorf("fallback language should behave like korean: %q vs %q",
			r.Original, r.Translated)
	}
	if !strings.Contains(r.Original, "슬퍼요") {
		t.Errorf("fallback original %q missing Korean sad phrase", r.Original)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := Generate("Hoa", MoodAnxious, "vietnamese")
	b := Generate("Hoa", MoodAnxious, "vietnamese")
	if a != b {
		t.Errorf("same inputs produced different results: %+v vs %+v", a, b)
	}
}
