package generation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
)

// MinAnswerRunes is the shortest answer accepted from a backend.
const MinAnswerRunes = 10

// ValidateAnswer rejects answers that are too short or are an error apology
// rendered as text by the backend.
func ValidateAnswer(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyAnswer
	}
	if n := utf8.RuneCountInString(text); n < MinAnswerRunes {
		return fmt.Errorf("answer too short (%d runes): %w", n, domain.ErrEmptyAnswer)
	}
	if strings.Contains(text, "죄송합니다") && strings.Contains(text, "오류") {
		return fmt.Errorf("answer is an error apology: %w", domain.ErrEmptyAnswer)
	}
	return nil
}
