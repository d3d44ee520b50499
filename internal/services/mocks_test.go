package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Birzhan20/neuro-search-core/internal/models"
	"github.com/Birzhan20/neuro-search-core/internal/repositories"
)

// ============================================================================
// Mock collaborators
// ============================================================================

type MockVectorRepository struct {
	mock.Mock
}

func (m *MockVectorRepository) EnsureCollection(ctx context.Context, dimension int) error {
	args := m.Called(ctx, dimension)
	return args.Error(0)
}

func (m *MockVectorRepository) UpsertChunks(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error {
	args := m.Called(ctx, chunks, embeddings)
	return args.Error(0)
}

func (m *MockVectorRepository) Search(ctx context.Context, vector []float32, limit int) ([]models.RetrievalMatch, error) {
	args := m.Called(ctx, vector, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RetrievalMatch), args.Error(1)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, messages []models.ChatMessage) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(path string) ([]models.DocumentUnit, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DocumentUnit), args.Error(1)
}

// ============================================================================
// Stateful in-memory fakes
// ============================================================================

// fakeChatRepo is an in-memory ChatRepository used where tests need real
// append/list behavior rather than canned expectations.
type fakeChatRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]bool
	messages map[uuid.UUID][]models.Message

	appendErr error
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		sessions: map[uuid.UUID]bool{},
		messages: map[uuid.UUID][]models.Message{},
	}
}

func (f *fakeChatRepo) GetOrCreateSession(_ context.Context, sessionID string) (uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sessionID != "" {
		if sid, err := uuid.Parse(sessionID); err == nil && f.sessions[sid] {
			return sid, false, nil
		}
	}

	sid := uuid.New()
	f.sessions[sid] = true
	return sid, true, nil
}

func (f *fakeChatRepo) AppendMessage(_ context.Context, sessionID uuid.UUID, role, content string) error {
	if f.appendErr != nil {
		return f.appendErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[sessionID] = append(f.messages[sessionID], models.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	})
	return nil
}

func (f *fakeChatRepo) ListRecentMessages(_ context.Context, sessionID uuid.UUID, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msgs := f.messages[sessionID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *fakeChatRepo) all(sessionID uuid.UUID) []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message(nil), f.messages[sessionID]...)
}

// fakeStatusRepo collects recorded task outcomes.
type fakeStatusRepo struct {
	mu       sync.Mutex
	recorded []repositories.TaskStatus
}

func (f *fakeStatusRepo) Record(_ context.Context, status repositories.TaskStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, status)
	return nil
}

func (f *fakeStatusRepo) Get(_ context.Context, taskID string) (*repositories.TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.recorded {
		if f.recorded[i].TaskID == taskID {
			return &f.recorded[i], nil
		}
	}
	return nil, repositories.ErrNotFound
}
