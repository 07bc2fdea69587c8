package generation

import (
	"strings"
	"unicode/utf8"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
)

// Confidence bounds.
const (
	MaxConfidence          = 0.95
	MaxRuleBasedConfidence = 0.3
)

var keywordGroups = [][]string{
	{"정책", "가이드라인"},
	{"Meta", "Facebook", "Instagram"},
	{"광고", "advertising"},
}

var uncertaintyPhrases = []string{"모르겠습니다", "확실하지 않습니다", "추측", "아마도"}

// Confidence scores an LLM answer: the mean similarity of its sources,
// adjusted by answer length, domain keywords and hedging, clamped to [0, 0.95].
func Confidence(text string, sources []answer.EnrichedSource) float64 {
	if len(sources) == 0 {
		return 0
	}
	var sum float64
	for i := range sources {
		sum += sources[i].Similarity
	}
	score := sum / float64(len(sources))

	switch n := utf8.RuneCountInString(text); {
	case n >= 200:
		score += 0.05
	case n < 50:
		score -= 0.1
	}

	var bonus float64
	for _, group := range keywordGroups {
		if containsAny(text, group) {
			bonus += 0.05
		}
	}
	score += min(bonus, 0.1)

	if containsAny(text, uncertaintyPhrases) {
		score -= 0.15
	}

	return clamp(score, 0, MaxConfidence)
}

// RuleBasedConfidence scores a template answer from the top similarity, capped at 0.3.
func RuleBasedConfidence(topSimilarity float64) float64 {
	return clamp(0.1+0.2*topSimilarity, 0, MaxRuleBasedConfidence)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
