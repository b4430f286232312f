package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
)

const normalizeTimeout = 20 * time.Second

// normalizePromptTemplate instructs the model to reduce a question to its
// intent as a single noun phrase, in one output line.
const normalizePromptTemplate = `다음 사용자의 질문을 '의도' 기준으로 정규화해.

규칙(아주 중요):
- 존댓말/반말, 문장 끝 어미(뭐야/뭐야?, 뭐임? 등)는 무시.
- "나", "너", "이 사람", "저 사람", "그 사람" 같은 주어/대명사는 제거.
- "이 사람 이름", "너 이름", "그 사람의 이름" → "이름"
- "이 사람 좋아하는 것", "너가 좋아하는 것", "이 사람이 좋아하는 것" → "좋아하는 것"
- 최종 결과는 "이름", "좋아하는 것", "성별", "직장" 같은
  핵심 명사구 하나만 남기도록 최대한 단순하게 만든다.
- 예시 없이, 결과 문장 한 줄만 출력해.

예시:
- "이사람의 이름이 뭐야?" -> "이름"
- "나 이사람의 이름은?" -> "이름"
- "이 사람 이름 알려줘" -> "이름"
- "너 이름 뭐야?" -> "이름"

- "너가 좋아하는 것은 뭐야?" -> "좋아하는 것"
- "이 사람 좋아하는 것?" -> "좋아하는 것"
- "이 사람이 뭘 좋아해?" -> "좋아하는 것"

- "코드미가 뭐야?" -> "코드미"
- "코드미 알아?" -> "코드미"
- "코드잇은 알아?" -> "코드잇"

사용자 질문: "%s"`

// pronounPrefixes are leading subjects stripped from normalized questions.
var pronounPrefixes = []string{
	"나 ",
	"너 ",
	"이 사람 ",
	"저 사람 ",
	"그 사람 ",
	"이사람 ",
	"저사람 ",
	"그사람 ",
}

var (
	nonWordPattern    = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SemanticNormalizer reduces a question to its intent for analytics grouping.
// Normalize is total: any model or parsing failure falls back to a rule-based
// normalization, never an error.
type SemanticNormalizer struct {
	chat ChatClient
}

func NewSemanticNormalizer(chat ChatClient) *SemanticNormalizer {
	return &SemanticNormalizer{chat: chat}
}

func (n *SemanticNormalizer) Normalize(ctx context.Context, question string) string {
	fallback := simpleNormalize(question)

	ctx, cancel := context.WithTimeout(ctx, normalizeTimeout)
	defer cancel()

	raw, err := n.chat.Complete(ctx, "", fmt.Sprintf(normalizePromptTemplate, question), 0, 64)
	if err != nil {
		log.Printf("question normalization failed, using fallback: %v", err)
		return fallback
	}

	line := firstLine(raw)
	if line == "" {
		return fallback
	}

	normalized := postprocessNormalized(line)
	if normalized == "" {
		return fallback
	}
	return normalized
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	line = strings.TrimSpace(line)
	line = strings.Trim(line, `"'`)
	return strings.TrimSpace(line)
}

// postprocessNormalized applies rule-based cleanup on top of the model output:
// leading pronoun removal and canonicalization of the frequent name and
// favorite-thing intents.
func postprocessNormalized(s string) string {
	s = strings.TrimSpace(s)

	for _, p := range pronounPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(strings.TrimPrefix(s, p))
		}
	}

	// Spaced pronouns can survive the first pass when stacked.
	for _, p := range []string{"이 사람 ", "그 사람 ", "저 사람 "} {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(strings.TrimPrefix(s, p))
		}
	}

	if strings.HasSuffix(s, "이름") && s != "이름" {
		s = "이름"
	}
	if strings.Contains(s, "좋아하는 것") && s != "좋아하는 것" {
		s = "좋아하는 것"
	}

	return strings.TrimSpace(s)
}

// simpleNormalize is the rule-only fallback: lowercase, strip punctuation,
// collapse whitespace.
func simpleNormalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = nonWordPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
