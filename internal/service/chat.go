package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/dobbyjj/codeme/internal/search"
	"github.com/dobbyjj/codeme/internal/telemetry"
)

const (
	synthTemperature = 0.2
	synthMaxTokens   = 512
	defaultTopK      = 5
)

// EmbeddingClient produces a query embedding.
type EmbeddingClient interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChatClient runs one chat completion.
type ChatClient interface {
	Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
}

// SearchClient runs one scoped vector search.
type SearchClient interface {
	Search(ctx context.Context, q search.Query) ([]domain.SearchHit, error)
}

// AnswerClassifier labels a completed interaction for analytics.
type AnswerClassifier interface {
	Classify(hitCount int, answer string) domain.QAStatus
}

// QuestionNormalizer reduces a question to its intent. Implementations are
// total and never fail.
type QuestionNormalizer interface {
	Normalize(ctx context.Context, question string) string
}

// UUIDGenerator generates unique identifiers.
type UUIDGenerator interface {
	NewString() string
}

type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

var _ UUIDGenerator = (*DefaultUUIDGenerator)(nil)

// AskInput describes an authenticated question. When GroupID is set it wins
// over DocumentID; an unset scope searches all of the user's documents.
type AskInput struct {
	Question   string
	DocumentID string
	GroupID    string
	TopK       int
}

// Source is one retrieved chunk surfaced alongside the answer.
type Source struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	ChunkID    *int    `json:"chunk_id,omitempty"`
	Score      float64 `json:"score"`
}

// AskResult is the outcome of one question-answering interaction.
type AskResult struct {
	Answer             string          `json:"answer"`
	Status             domain.QAStatus `json:"status"`
	NormalizedQuestion string          `json:"normalized_question"`
	Sources            []Source        `json:"sources"`
	Model              string          `json:"model"`
	LatencyMs          int             `json:"latency_ms"`
}

// ChatService orchestrates the question-answering pipeline: embed the
// question, search the caller's scope, synthesize an answer grounded in the
// hits, classify and normalize for analytics, then log the interaction.
// Pipeline steps run strictly in sequence; an upstream failure before
// synthesis fails the whole request. Logging is best-effort and never fails
// a response that was already produced.
type ChatService struct {
	embedder   EmbeddingClient
	searcher   SearchClient
	chat       ChatClient
	classifier AnswerClassifier
	normalizer QuestionNormalizer
	groupRepo  GroupRepository
	linkRepo   LinkRepository
	txRunner   TxRunner
	uuidGen    UUIDGenerator
	model      string
}

func NewChatService(
	embedder EmbeddingClient,
	searcher SearchClient,
	chat ChatClient,
	classifier AnswerClassifier,
	normalizer QuestionNormalizer,
	groupRepo GroupRepository,
	linkRepo LinkRepository,
	txRunner TxRunner,
	model string,
) *ChatService {
	return &ChatService{
		embedder:   embedder,
		searcher:   searcher,
		chat:       chat,
		classifier: classifier,
		normalizer: normalizer,
		groupRepo:  groupRepo,
		linkRepo:   linkRepo,
		txRunner:   txRunner,
		uuidGen:    &DefaultUUIDGenerator{},
		model:      model,
	}
}

func NewChatServiceWithUUIDGen(
	embedder EmbeddingClient,
	searcher SearchClient,
	chat ChatClient,
	classifier AnswerClassifier,
	normalizer QuestionNormalizer,
	groupRepo GroupRepository,
	linkRepo LinkRepository,
	txRunner TxRunner,
	model string,
	uuidGen UUIDGenerator,
) *ChatService {
	svc := NewChatService(embedder, searcher, chat, classifier, normalizer, groupRepo, linkRepo, txRunner, model)
	svc.uuidGen = uuidGen
	return svc
}

// AskAsUser answers a question for an authenticated user within their own
// corpus. A group scope must belong to the caller; a foreign group is
// indistinguishable from a missing one.
func (s *ChatService) AskAsUser(ctx context.Context, userID string, input AskInput) (*AskResult, error) {
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "question is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "chat.ask", telemetry.SpanAttributes{
		UserID:    userID,
		GroupID:   input.GroupID,
		Operation: "ask_as_user",
	})
	defer span.End()

	documentID := input.DocumentID
	persona := ""
	if input.GroupID != "" {
		group, err := s.groupRepo.GetByID(ctx, input.GroupID)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		if group.UserID != userID {
			return nil, domain.ErrGroupNotFound
		}
		persona = group.PersonaPrompt
		// Group scope subsumes any document filter.
		documentID = ""
	}

	result, qaLog, err := s.answer(ctx, userID, question, documentID, input.GroupID, persona, input.TopK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	s.writeLog(ctx, qaLog, "")
	return result, nil
}

// AskViaLink answers a question through a share link. Missing, inactive and
// expired links all fail identically so callers cannot probe link state.
// The access counter and the interaction log commit atomically.
func (s *ChatService) AskViaLink(ctx context.Context, linkID, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "question is required")
	}

	link, err := s.linkRepo.GetByID(ctx, linkID)
	if err != nil {
		return nil, domain.ErrLinkNotFound
	}
	if !link.IsUsable(time.Now().UTC()) {
		return nil, domain.ErrLinkNotFound
	}

	ctx, span := telemetry.StartSpan(ctx, "chat.ask_via_link", telemetry.SpanAttributes{
		UserID:    link.UserID,
		GroupID:   link.GroupID,
		LinkID:    link.ID,
		Operation: "ask_via_link",
	})
	defer span.End()

	persona := ""
	if link.GroupID != "" {
		// The link owner may have deleted the group since sharing; the
		// document scope still works, only the persona is gone.
		if group, gerr := s.groupRepo.GetByID(ctx, link.GroupID); gerr == nil {
			persona = group.PersonaPrompt
		}
	}

	result, qaLog, err := s.answer(ctx, link.UserID, question, link.DocumentID, link.GroupID, persona, 0)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	qaLog.LinkID = link.ID

	s.writeLog(ctx, qaLog, link.ID)
	return result, nil
}

// answer runs the pipeline through synthesis and classification and builds
// the not-yet-persisted interaction log.
func (s *ChatService) answer(ctx context.Context, ownerID, question, documentID, groupID, persona string, topK int) (*AskResult, *domain.QALog, error) {
	start := time.Now()

	if topK <= 0 {
		topK = defaultTopK
	}

	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, nil, err
	}

	hits, err := s.searcher.Search(ctx, search.Query{
		Vector:      vector,
		OwnerUserID: ownerID,
		GroupID:     groupID,
		DocumentID:  documentID,
		TopK:        topK,
	})
	if err != nil {
		return nil, nil, err
	}

	answer, err := s.chat.Complete(ctx,
		buildSystemPrompt(persona),
		buildUserMessage(question, buildContext(hits)),
		synthTemperature, synthMaxTokens)
	if err != nil {
		return nil, nil, err
	}

	status := s.classifier.Classify(len(hits), answer)
	normalized := s.normalizer.Normalize(ctx, question)
	latencyMs := int(time.Since(start).Milliseconds())

	sources := make([]Source, 0, len(hits))
	for _, hit := range hits {
		sources = append(sources, Source{
			DocumentID: hit.DocumentID,
			Title:      hit.Label(),
			ChunkID:    hit.ChunkID,
			Score:      hit.Score,
		})
	}

	result := &AskResult{
		Answer:             answer,
		Status:             status,
		NormalizedQuestion: normalized,
		Sources:            sources,
		Model:              s.model,
		LatencyMs:          latencyMs,
	}

	qaLog := &domain.QALog{
		ID:                 s.uuidGen.NewString(),
		UserID:             ownerID,
		DocumentID:         documentID,
		Question:           question,
		Answer:             answer,
		Model:              s.model,
		LatencyMs:          &latencyMs,
		Status:             status,
		NormalizedQuestion: normalized,
		CreatedAt:          time.Now().UTC(),
	}

	return result, qaLog, nil
}

// writeLog persists the interaction log, and for link access the access
// counter bump, in one transaction. Failure is reported to telemetry and
// swallowed: the answer was already produced and must reach the caller.
func (s *ChatService) writeLog(ctx context.Context, qaLog *domain.QALog, linkID string) {
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if linkID != "" {
			if err := repos.Links().IncrementAccess(ctx, linkID, time.Now().UTC()); err != nil {
				return err
			}
		}
		return repos.QALogs().Create(ctx, qaLog)
	})
	if err != nil {
		log.Printf("failed to write qa log %s: %v", qaLog.ID, err)
		telemetry.CaptureError(ctx, err)
	}
}
