package simulate

import "fmt"

// Recognized mood symbols from the intake form.
const (
	MoodSad     = "😢"
	MoodAngry   = "😡"
	MoodAnxious = "😰"
	MoodHappy   = "😊"
)

// Result carries a generated transcript pair: the student's utterance in the
// source language and its Korean rendering.
type Result struct {
	Original   string
	Translated string
}

// moodKey normalizes a mood symbol to a phrase-table key. Anything outside
// the four recognized symbols maps to the neutral phrase.
func moodKey(mood string) string {
	switch mood {
	case MoodSad, MoodAngry, MoodAnxious, MoodHappy:
		return mood
	default:
		return "neutral"
	}
}

// moodPhrases maps language tag -> mood key -> mood phrase in that language.
var moodPhrases = map[string]map[string]string{
	"korean": {
		MoodSad:     "슬퍼요",
		MoodAngry:   "화가 나요",
		MoodAnxious: "불안해요",
		MoodHappy:   "기뻐요",
		"neutral":   "그냥 그래요",
	},
	"russian": {
		MoodSad:     "мне грустно",
		MoodAngry:   "я злюсь",
		MoodAnxious: "я волнуюсь",
		MoodHappy:   "я рад",
		"neutral":   "всё нормально",
	},
	"vietnamese": {
		MoodSad:     "em buồn",
		MoodAngry:   "em tức giận",
		MoodAnxious: "em lo lắng",
		MoodHappy:   "em vui",
		"neutral":   "em bình thường",
	},
	"chinese": {
		MoodSad:     "我很伤心",
		MoodAngry:   "我很生气",
		MoodAnxious: "我很紧张",
		MoodHappy:   "我很开心",
		"neutral":   "我还好",
	},
}

// templates maps language tag -> sentence template taking the student name
// and the mood phrase.
var templates = map[string]string{
	"korean":     "안녕하세요, 제 이름은 %s입니다. 오늘은 %s.",
	"russian":    "Здравствуйте, меня зовут %s. Сегодня %s.",
	"vietnamese": "Xin chào, em tên là %s. Hôm nay %s.",
	"chinese":    "你好，我叫%s。今天%s。",
}

// Generate builds a deterministic transcript pair for the given student,
// mood symbol, and language tag. Unrecognized language tags fall back to the
// Korean template; for korean the original and translation are identical.
func Generate(student, mood, language string) Result {
	key := moodKey(mood)

	koreanPhrase := moodPhrases["korean"][key]
	translated := fmt.Sprintf(templates["korean"], student, koreanPhrase)

	tmpl, ok := templates[language]
	if !ok || language == "korean" {
		return Result{Original: translated, Translated: translated}
	}

	original := fmt.Sprintf(tmpl, student, moodPhrases[language][key])
	return Result{Original: original, Translated: translated}
}
