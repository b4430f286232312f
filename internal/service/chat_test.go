package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/dobbyjj/codeme/internal/pagination"
	"github.com/dobbyjj/codeme/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUUIDGenerator struct {
	uuids     []string
	callCount int
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		id := m.uuids[m.callCount]
		m.callCount++
		return id
	}
	return "generated-uuid"
}

type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockSearchClient struct {
	mock.Mock
}

func (m *MockSearchClient) Search(ctx context.Context, q search.Query) ([]domain.SearchHit, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchHit), args.Error(1)
}

type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	args := m.Called(ctx, system, user, temperature, maxTokens)
	return args.String(0), args.Error(1)
}

type MockNormalizer struct {
	mock.Mock
}

func (m *MockNormalizer) Normalize(ctx context.Context, question string) string {
	args := m.Called(ctx, question)
	return args.String(0)
}

type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Create(ctx context.Context, group *domain.DocumentGroup) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) GetByID(ctx context.Context, id string) (*domain.DocumentGroup, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentGroup), args.Error(1)
}

func (m *MockGroupRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.DocumentGroup, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DocumentGroup), args.Error(1)
}

func (m *MockGroupRepository) Update(ctx context.Context, group *domain.DocumentGroup) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Create(ctx context.Context, link *domain.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockLinkRepository) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) FindActiveByTarget(ctx context.Context, userID, documentID, groupID string) (*domain.Link, error) {
	args := m.Called(ctx, userID, documentID, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.Link, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) Deactivate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLinkRepository) IncrementAccess(ctx context.Context, id string, accessedAt time.Time) error {
	args := m.Called(ctx, id, accessedAt)
	return args.Error(0)
}

func (m *MockLinkRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockQALogRepository struct {
	mock.Mock
}

func (m *MockQALogRepository) Create(ctx context.Context, qaLog *domain.QALog) error {
	args := m.Called(ctx, qaLog)
	return args.Error(0)
}

func (m *MockQALogRepository) ListByUserID(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) ([]*domain.QALog, error) {
	args := m.Called(ctx, userID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QALog), args.Error(1)
}

func (m *MockQALogRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// fakeTxRunner executes the closure against the given repositories, or fails
// without running it when err is set.
type fakeTxRunner struct {
	links  LinkRepository
	qaLogs QALogRepository
	err    error
	calls  int
}

type fakeTxRepos struct {
	links  LinkRepository
	qaLogs QALogRepository
}

func (r *fakeTxRepos) Links() LinkRepository   { return r.links }
func (r *fakeTxRepos) QALogs() QALogRepository { return r.qaLogs }

func (t *fakeTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.calls++
	if t.err != nil {
		return t.err
	}
	return fn(&fakeTxRepos{links: t.links, qaLogs: t.qaLogs})
}

type chatFixture struct {
	embedder   *MockEmbeddingClient
	searcher   *MockSearchClient
	chat       *MockChatClient
	normalizer *MockNormalizer
	groupRepo  *MockGroupRepository
	linkRepo   *MockLinkRepository
	qaLogRepo  *MockQALogRepository
	txRunner   *fakeTxRunner
	svc        *ChatService
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		embedder:   new(MockEmbeddingClient),
		searcher:   new(MockSearchClient),
		chat:       new(MockChatClient),
		normalizer: new(MockNormalizer),
		groupRepo:  new(MockGroupRepository),
		linkRepo:   new(MockLinkRepository),
		qaLogRepo:  new(MockQALogRepository),
	}
	f.txRunner = &fakeTxRunner{links: f.linkRepo, qaLogs: f.qaLogRepo}
	f.svc = NewChatServiceWithUUIDGen(
		f.embedder, f.searcher, f.chat, NewPhraseClassifier(), f.normalizer,
		f.groupRepo, f.linkRepo, f.txRunner, "gpt-4o-mini",
		NewMockUUIDGenerator("log-1", "log-2"),
	)
	return f
}

func TestChatService_AskAsUser_Success(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()

	hits := []domain.SearchHit{
		{DocumentID: "doc-1", Title: "자기소개서", Content: "저는 홍길동입니다.", Score: 1.8},
	}

	f.embedder.On("EmbedQuery", mock.Anything, "이름이 뭐야?").Return([]float32{0.1, 0.2}, nil)
	f.searcher.On("Search", mock.Anything, mock.MatchedBy(func(q search.Query) bool {
		return q.OwnerUserID == "user-1" && q.GroupID == "" && q.DocumentID == "" && q.TopK == defaultTopK
	})).Return(hits, nil)
	f.chat.On("Complete", mock.Anything, defaultSystemPrompt, mock.MatchedBy(func(user string) bool {
		return strings.Contains(user, "이름이 뭐야?") && strings.Contains(user, "저는 홍길동입니다.")
	}), float32(synthTemperature), synthMaxTokens).Return("홍길동입니다.", nil)
	f.normalizer.On("Normalize", mock.Anything, "이름이 뭐야?").Return("이름")
	f.qaLogRepo.On("Create", mock.Anything, mock.MatchedBy(func(l *domain.QALog) bool {
		return l.UserID == "user-1" && l.Status == domain.QAStatusSuccess && l.NormalizedQuestion == "이름"
	})).Return(nil)

	result, err := f.svc.AskAsUser(ctx, "user-1", AskInput{Question: "이름이 뭐야?"})

	require.NoError(t, err)
	assert.Equal(t, "홍길동입니다.", result.Answer)
	assert.Equal(t, domain.QAStatusSuccess, result.Status)
	assert.Equal(t, "이름", result.NormalizedQuestion)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "doc-1", result.Sources[0].DocumentID)
	assert.Equal(t, "gpt-4o-mini", result.Model)
	f.qaLogRepo.AssertExpectations(t)
}

func TestChatService_AskAsUser_ZeroHits(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()

	f.embedder.On("EmbedQuery", mock.Anything, "이 사람 이름이 뭐야?").Return([]float32{0.1}, nil)
	f.searcher.On("Search", mock.Anything, mock.Anything).Return([]domain.SearchHit{}, nil)
	f.chat.On("Complete", mock.Anything, defaultSystemPrompt, mock.MatchedBy(func(user string) bool {
		return strings.Contains(user, noDocumentsContext)
	}), float32(synthTemperature), synthMaxTokens).Return("잘 모르겠습니다.", nil)
	f.normalizer.On("Normalize", mock.Anything, "이 사람 이름이 뭐야?").Return("이름")
	f.qaLogRepo.On("Create", mock.Anything, mock.MatchedBy(func(l *domain.QALog) bool {
		return l.Status == domain.QAStatusNoAnswer && l.NormalizedQuestion == "이름"
	})).Return(nil)

	result, err := f.svc.AskAsUser(ctx, "user-1", AskInput{Question: "이 사람 이름이 뭐야?"})

	require.NoError(t, err)
	assert.Equal(t, "잘 모르겠습니다.", result.Answer)
	assert.Equal(t, domain.QAStatusNoAnswer, result.Status)
	assert.Empty(t, result.Sources)
	f.chat.AssertExpectations(t)
	f.qaLogRepo.AssertExpectations(t)
}

func TestChatService_AskAsUser_GroupPersona(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()

	group := &domain.DocumentGroup{
		ID:            "group-1",
		UserID:        "user-1",
		Name:          "이력서",
		PersonaPrompt: "너는 이 문서의 주인공처럼 친근하게 답하는 비서야.",
	}

	f.groupRepo.On("GetByID", ctx, "group-1").Return(group, nil)
	f.embedder.On("EmbedQuery", mock.Anything, "경력이 어떻게 돼?").Return([]float32{0.3}, nil)
	f.searcher.On("Search", mock.Anything, mock.MatchedBy(func(q search.Query) bool {
		// Group scope wins; the document filter must not leak through.
		return q.GroupID == "group-1" && q.DocumentID == ""
	})).Return([]domain.SearchHit{{DocumentID: "doc-1", Content: "5년차 백엔드"}}, nil)
	f.chat.On("Complete", mock.Anything,
		group.PersonaPrompt+"\n\n"+personaScopeNotice,
		mock.Anything, float32(synthTemperature), synthMaxTokens).Return("5년차 백엔드 개발자입니다.", nil)
	f.normalizer.On("Normalize", mock.Anything, "경력이 어떻게 돼?").Return("경력")
	f.qaLogRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.AskAsUser(ctx, "user-1", AskInput{
		Question:   "경력이 어떻게 돼?",
		GroupID:    "group-1",
		DocumentID: "doc-9",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.QAStatusSuccess, result.Status)
	f.chat.AssertExpectations(t)
}

func TestChatService_AskAsUser_ForeignGroup(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()

	f.groupRepo.On("GetByID", ctx, "group-1").Return(&domain.DocumentGroup{
		ID:     "group-1",
		UserID: "someone-else",
		Name:   "남의 그룹",
	}, nil)

	_, err := f.svc.AskAsUser(ctx, "user-1", AskInput{Question: "질문", GroupID: "group-1"})

	assert.Equal(t, domain.ErrGroupNotFound, err)
	f.embedder.AssertNotCalled(t, "EmbedQuery", mock.Anything, mock.Anything)
}

func TestChatService_AskAsUser_EmptyQuestion(t *testing.T) {
	f := newChatFixture()

	_, err := f.svc.AskAsUser(context.Background(), "user-1", AskInput{Question: "   "})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestChatService_AskAsUser_EmbedFailure(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()

	upstream := domain.NewUpstreamError("Azure OpenAI embedding", 502, "bad gateway")
	f.embedder.On("EmbedQuery", mock.Anything, "질문").Return(nil, upstream)

	_, err := f.svc.AskAsUser(ctx, "user-1", AskInput{Question: "질문"})

	assert.Equal(t, upstream, err)
	f.searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.txRunner.calls)
}

func TestChatService_AskAsUser_LogFailureDoesNotFailAnswer(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	f.txRunner.err = errors.New("db down")

	f.embedder.On("EmbedQuery", mock.Anything, "질문").Return([]float32{0.1}, nil)
	f.searcher.On("Search", mock.Anything, mock.Anything).Return([]domain.SearchHit{{DocumentID: "d1", Content: "내용"}}, nil)
	f.chat.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("답변입니다.", nil)
	f.normalizer.On("Normalize", mock.Anything, "질문").Return("질문")

	result, err := f.svc.AskAsUser(ctx, "user-1", AskInput{Question: "질문"})

	require.NoError(t, err)
	assert.Equal(t, "답변입니다.", result.Answer)
	assert.Equal(t, 1, f.txRunner.calls)
}

func TestChatService_AskViaLink_Success(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()

	link := &domain.Link{
		ID:         "lnk_abcd1234",
		UserID:     "owner-1",
		DocumentID: "doc-1",
		IsActive:   true,
	}

	f.linkRepo.On("GetByID", ctx, "lnk_abcd1234").Return(link, nil)
	f.embedder.On("EmbedQuery", mock.Anything, "이름이 뭐야?").Return([]float32{0.1}, nil)
	f.searcher.On("Search", mock.Anything, mock.MatchedBy(func(q search.Query) bool {
		return q.OwnerUserID == "owner-1" && q.DocumentID == "doc-1" && q.GroupID == ""
	})).Return([]domain.SearchHit{{DocumentID: "doc-1", Content: "저는 홍길동입니다."}}, nil)
	f.chat.On("Complete", mock.Anything, defaultSystemPrompt, mock.Anything,
		float32(synthTemperature), synthMaxTokens).Return("홍길동입니다.", nil)
	f.normalizer.On("Normalize", mock.Anything, "이름이 뭐야?").Return("이름")
	f.linkRepo.On("IncrementAccess", mock.Anything, "lnk_abcd1234", mock.Anything).Return(nil)
	f.qaLogRepo.On("Create", mock.Anything, mock.MatchedBy(func(l *domain.QALog) bool {
		return l.LinkID == "lnk_abcd1234" && l.UserID == "owner-1"
	})).Return(nil)

	result, err := f.svc.AskViaLink(ctx, "lnk_abcd1234", "이름이 뭐야?")

	require.NoError(t, err)
	assert.Equal(t, "홍길동입니다.", result.Answer)
	f.linkRepo.AssertExpectations(t)
	f.qaLogRepo.AssertExpectations(t)
}

func TestChatService_AskViaLink_InactiveLink(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()

	f.linkRepo.On("GetByID", ctx, "lnk_dead").Return(&domain.Link{
		ID:         "lnk_dead",
		UserID:     "owner-1",
		DocumentID: "doc-1",
		IsActive:   false,
	}, nil)

	_, err := f.svc.AskViaLink(ctx, "lnk_dead", "질문")

	assert.Equal(t, domain.ErrLinkNotFound, err)
	f.embedder.AssertNotCalled(t, "EmbedQuery", mock.Anything, mock.Anything)
}

func TestChatService_AskViaLink_ExpiredLink(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()

	past := time.Now().UTC().Add(-time.Hour)
	f.linkRepo.On("GetByID", ctx, "lnk_old").Return(&domain.Link{
		ID:         "lnk_old",
		UserID:     "owner-1",
		DocumentID: "doc-1",
		IsActive:   true,
		ExpiresAt:  &past,
	}, nil)

	_, err := f.svc.AskViaLink(ctx, "lnk_old", "질문")

	assert.Equal(t, domain.ErrLinkNotFound, err)
}

func TestChatService_AskViaLink_UnknownLink(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()

	f.linkRepo.On("GetByID", ctx, "lnk_none").Return(nil, domain.ErrLinkNotFound)

	_, err := f.svc.AskViaLink(ctx, "lnk_none", "질문")

	assert.Equal(t, domain.ErrLinkNotFound, err)
}

func TestChatService_AskViaLink_MissingGroupSkipsPersona(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()

	link := &domain.Link{
		ID:       "lnk_grp",
		UserID:   "owner-1",
		GroupID:  "group-gone",
		IsActive: true,
	}

	f.linkRepo.On("GetByID", ctx, "lnk_grp").Return(link, nil)
	f.groupRepo.On("GetByID", mock.Anything, "group-gone").Return(nil, domain.ErrGroupNotFound)
	f.embedder.On("EmbedQuery", mock.Anything, "질문").Return([]float32{0.1}, nil)
	f.searcher.On("Search", mock.Anything, mock.Anything).Return([]domain.SearchHit{{Content: "내용"}}, nil)
	f.chat.On("Complete", mock.Anything, defaultSystemPrompt, mock.Anything,
		float32(synthTemperature), synthMaxTokens).Return("답", nil)
	f.normalizer.On("Normalize", mock.Anything, "질문").Return("질문")
	f.linkRepo.On("IncrementAccess", mock.Anything, "lnk_grp", mock.Anything).Return(nil)
	f.qaLogRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.AskViaLink(ctx, "lnk_grp", "질문")

	require.NoError(t, err)
	f.chat.AssertExpectations(t)
}
