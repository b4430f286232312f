package service

import (
	"strings"

	"github.com/dobbyjj/codeme/internal/domain"
)

// noAnswerPhrases are fragments that mark an answer as a refusal. Answers are
// Korean by default, so the list is mostly Korean with a couple of English
// fallbacks for models that ignore the language instruction.
var noAnswerPhrases = []string{
	"잘 모르",
	"모르겠",
	"알 수 없",
	"정보가 없",
	"정보가 부족",
	"찾을 수 없",
	"확실하지 않",
	"답변할 수 없",
	"답변드릴 수 없",
	"i don't know",
	"i do not know",
	"not sure",
}

// PhraseClassifier labels completed interactions for analytics only. The
// answer text shown to the user is never altered by classification.
type PhraseClassifier struct{}

func NewPhraseClassifier() *PhraseClassifier {
	return &PhraseClassifier{}
}

// Classify returns NO_ANSWER when the search produced no hits or the answer
// reads as a refusal, SUCCESS otherwise.
func (c *PhraseClassifier) Classify(hitCount int, answer string) domain.QAStatus {
	if hitCount == 0 {
		return domain.QAStatusNoAnswer
	}

	lowered := strings.ToLower(answer)
	for _, phrase := range noAnswerPhrases {
		if strings.Contains(lowered, phrase) {
			return domain.QAStatusNoAnswer
		}
	}
	return domain.QAStatusSuccess
}
