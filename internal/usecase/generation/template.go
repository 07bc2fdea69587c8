package generation

import (
	"strings"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
)

// lowSimilarity marks a top hit too weak to present as a direct answer.
const lowSimilarity = 0.5

type category struct {
	name     string
	header   string
	keywords []string
}

// categories are checked in order; the first match picks the header.
var categories = []category{
	{"policy", "Meta 광고 정책 안내", []string{"정책", "승인", "거부", "금지", "policy"}},
	{"budget", "광고 예산 안내", []string{"예산", "입찰", "비용", "budget", "bid"}},
	{"creative", "광고 소재 안내", []string{"소재", "이미지", "동영상", "크리에이티브", "creative"}},
	{"targeting", "광고 타겟팅 안내", []string{"타겟", "타깃", "오디언스", "targeting", "audience"}},
	{"optimization", "광고 성과 최적화 안내", []string{"최적화", "전환", "성과", "optimization"}},
	{"meta", "Facebook/Instagram 광고 안내", []string{"facebook", "instagram", "페이스북", "인스타그램", "meta"}},
}

const defaultHeader = "Meta 광고 FAQ 안내"

// Categorize returns the keyword category of query, or "general".
func Categorize(query string) string {
	if c, ok := matchCategory(query); ok {
		return c.name
	}
	return "general"
}

func matchCategory(query string) (category, bool) {
	q := strings.ToLower(query)
	for _, c := range categories {
		if containsAny(q, c.keywords) {
			return c, true
		}
	}
	return category{}, false
}

// RuleBasedAnswer renders the top source verbatim under a category header
// with a disclaimer that no model produced it. sources must not be empty.
func RuleBasedAnswer(query string, sources []answer.EnrichedSource) string {
	header := defaultHeader
	if c, ok := matchCategory(query); ok {
		header = c.header
	}
	top := sources[0]

	var b strings.Builder
	b.WriteString("**" + header + "**\n\n")
	b.WriteString("현재 AI 답변 생성 서비스를 사용할 수 없어 가장 관련성 높은 문서 내용을 그대로 안내해드립니다.\n")
	if top.Similarity < lowSimilarity {
		b.WriteString("질문과 관련된 정보를 찾았지만, 정확한 답변을 위해 더 구체적인 질문을 해주시면 도움이 될 것 같습니다.\n")
	}
	b.WriteString("\n[출처] " + top.Title + "\n")
	b.WriteString(top.Content)

	if len(sources) > 1 {
		b.WriteString("\n\n추가 참고 문서:")
		for _, s := range sources[1:min(len(sources), 3)] {
			b.WriteString("\n- " + s.Title)
		}
	}
	return b.String()
}
