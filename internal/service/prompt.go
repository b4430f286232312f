package service

import (
	"fmt"
	"strings"

	"github.com/dobbyjj/codeme/internal/domain"
)

// noDocumentsContext is sent as the document context when the search returns
// zero hits. The model is still called so the user gets a worded refusal.
const noDocumentsContext = "No relevant documents were found for this user."

// defaultSystemPrompt grounds the model strictly in the retrieved documents.
const defaultSystemPrompt = "You are an AI assistant that answers the user's questions based ONLY on the provided documents. If the documents do not contain enough information, say you are not sure. Answer in Korean, be concise but clear."

// personaScopeNotice is appended to every persona prompt so a group persona
// cannot instruct the model to step outside the document scope.
const personaScopeNotice = "위 페르소나 지침과 무관하게, 반드시 제공된 문서의 내용에 근거해서만 답변해야 합니다."

// buildContext renders search hits into the document context block. Hits are
// rendered in relevance order, one block per chunk.
func buildContext(hits []domain.SearchHit) string {
	if len(hits) == 0 {
		return noDocumentsContext
	}

	blocks := make([]string, 0, len(hits))
	for i, hit := range hits {
		blocks = append(blocks, fmt.Sprintf("[doc#%d | %s]\n%s", i+1, hit.Label(), hit.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// buildUserMessage combines the question and the document context into the
// single user turn sent to the chat model.
func buildUserMessage(question, docContext string) string {
	return fmt.Sprintf("User question:\n%s\n\nRelevant documents:\n%s", question, docContext)
}

// buildSystemPrompt returns the system instruction. A non-empty persona
// replaces the default prompt and always carries the scope notice.
func buildSystemPrompt(persona string) string {
	persona = strings.TrimSpace(persona)
	if persona == "" {
		return defaultSystemPrompt
	}
	return persona + "\n\n" + personaScopeNotice
}
