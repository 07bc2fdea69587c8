package generation

import (
	"fmt"
	"strings"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
)

// DefaultExcerptRunes bounds each source excerpt in the prompt context.
const DefaultExcerptRunes = 300

// DefaultSystemPrompt instructs the model to answer in structured Korean.
const DefaultSystemPrompt = `당신은 Meta(Facebook, Instagram) 광고 정책과 가이드라인에 대한 전문가입니다.

중요: 반드시 한국어로만 답변하세요.

주어진 문서 내용을 바탕으로 사용자의 질문에 정확하고 전문적인 답변을 제공해주세요.

답변 가이드라인:
1. 주어진 문서 내용만을 바탕으로 답변하세요
2. 정확하고 구체적인 정보를 제공하세요
3. 관련 정책이나 가이드라인이 있다면 명시하세요
4. 답변할 수 없는 내용은 솔직히 말씀하세요
5. 필요시 단계별 설명이나 예시를 포함하세요

답변 형식:
**핵심 답변**
[질문에 대한 핵심 답변]

**상세 설명**
[구체적인 설명]

**관련 정책**
[관련 정책이나 주의사항]

**실무 가이드라인**
[필요시 실무 가이드라인]`

// BuildContext renders sources as numbered, titled excerpts.
func BuildContext(sources []answer.EnrichedSource, excerptRunes int) string {
	if excerptRunes <= 0 {
		excerptRunes = DefaultExcerptRunes
	}
	var b strings.Builder
	for i := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[출처 %d] %s\n%s", i+1, sources[i].Title, truncateRunes(sources[i].Content, excerptRunes))
	}
	return b.String()
}

// BuildPrompt combines the rendered context and the user question.
func BuildPrompt(query, contextText string) string {
	return "문서 내용:\n" + contextText +
		"\n\n사용자 질문: " + query +
		"\n\n위 문서 내용을 바탕으로 전문적이고 정확한 답변을 제공해주세요."
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
