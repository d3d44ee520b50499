package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Birzhan20/neuro-search-core/internal/metrics"
	"github.com/Birzhan20/neuro-search-core/internal/models"
	"github.com/Birzhan20/neuro-search-core/internal/repositories"
)

// Fixed answer texts. The boundary contract is that a caller always gets an
// answer string, so internal faults degrade to failureAnswer instead of
// propagating.
const (
	noResultsAnswer = "No relevant information found in documents."
	failureAnswer   = "Error processing request."
)

const contextSeparator = "\n---\n"

const systemPromptHeader = "You are a corporate AI assistant. " +
	"Answer strictly based on the provided context. " +
	"If information is missing, say 'No information found'.\n\nContext:\n"

// RAGService is the query pipeline: resolve the session, record the question,
// retrieve matching chunks, generate a grounded answer and persist the turn.
type RAGService struct {
	chatRepo     repositories.ChatRepository
	vectorRepo   repositories.VectorRepository
	embedder     Embedder
	generator    Generator
	topK         int
	historyLimit int
	logger       *slog.Logger
}

// NewRAGService creates the query pipeline.
func NewRAGService(
	chatRepo repositories.ChatRepository,
	vectorRepo repositories.VectorRepository,
	embedder Embedder,
	generator Generator,
	topK int,
	historyLimit int,
	logger *slog.Logger,
) *RAGService {
	if topK <= 0 {
		topK = 3
	}
	if historyLimit <= 0 {
		historyLimit = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RAGService{
		chatRepo:     chatRepo,
		vectorRepo:   vectorRepo,
		embedder:     embedder,
		generator:    generator,
		topK:         topK,
		historyLimit: historyLimit,
		logger:       logger.With("component", "rag-service"),
	}
}

// Answer runs the full query pipeline. It never returns an error: every
// internal fault is logged, counted and converted into a response carrying
// failureAnswer and no sources. The returned session id is the resolved one
// whenever resolution succeeded.
func (s *RAGService) Answer(ctx context.Context, query, sessionID string) (resp models.ChatResponse) {
	start := time.Now()
	defer func() {
		metrics.RequestLatency.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			s.logger.Error("panic in query pipeline", "panic", r)
			metrics.RequestCount.WithLabelValues(metrics.StatusError).Inc()
			resp = failureResponse(sessionID)
		}
	}()

	sid, isNew, err := s.chatRepo.GetOrCreateSession(ctx, sessionID)
	if err != nil {
		return s.fail(sessionID, "failed to resolve session", err)
	}
	if isNew {
		s.logger.Info("created session", "session_id", sid)
	}
	resolvedID := sid.String()

	// The question is recorded before any retrieval work so it survives
	// whatever fails later.
	if err := s.chatRepo.AppendMessage(ctx, sid, models.RoleUser, query); err != nil {
		return s.fail(resolvedID, "failed to record question", err)
	}

	history, err := s.loadHistory(ctx, sid)
	if err != nil {
		return s.fail(resolvedID, "failed to load history", err)
	}

	searchStart := time.Now()
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return s.fail(resolvedID, "failed to embed query",
			fmt.Errorf("%w: %v", repositories.ErrRetrieval, err))
	}
	matches, err := s.vectorRepo.Search(ctx, vector, s.topK)
	metrics.VectorSearchLatency.Observe(time.Since(searchStart).Seconds())
	if err != nil {
		return s.fail(resolvedID, "vector search failed",
			fmt.Errorf("%w: %v", repositories.ErrRetrieval, err))
	}

	if len(matches) == 0 {
		if err := s.chatRepo.AppendMessage(ctx, sid, models.RoleAssistant, noResultsAnswer); err != nil {
			return s.fail(resolvedID, "failed to record answer", err)
		}
		metrics.RequestCount.WithLabelValues(metrics.StatusNoResults).Inc()
		s.logger.Info("no matches for query", "session_id", sid)
		return models.ChatResponse{
			Answer:    noResultsAnswer,
			Sources:   []models.Source{},
			SessionID: resolvedID,
		}
	}

	prompt := systemPromptHeader + buildContext(matches)
	messages := buildMessages(prompt, history, query)

	llmStart := time.Now()
	answer, err := s.generator.Generate(ctx, messages)
	metrics.LLMLatency.Observe(time.Since(llmStart).Seconds())
	if err != nil {
		return s.fail(resolvedID, "generation failed",
			fmt.Errorf("%w: %v", repositories.ErrGeneration, err))
	}

	if err := s.chatRepo.AppendMessage(ctx, sid, models.RoleAssistant, answer); err != nil {
		return s.fail(resolvedID, "failed to record answer", err)
	}

	metrics.RequestCount.WithLabelValues(metrics.StatusSuccess).Inc()
	s.logger.Info("query processed", "session_id", sid,
		"sources", len(matches), "elapsed", time.Since(start))

	return models.ChatResponse{
		Answer:    answer,
		Sources:   buildSources(matches),
		SessionID: resolvedID,
	}
}

// loadHistory returns prior turns oldest-first, excluding the question that
// was just recorded.
func (s *RAGService) loadHistory(ctx context.Context, sid uuid.UUID) ([]models.Message, error) {
	msgs, err := s.chatRepo.ListRecentMessages(ctx, sid, s.historyLimit)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		msgs = msgs[:len(msgs)-1]
	}
	return msgs, nil
}

func (s *RAGService) fail(sessionID, msg string, err error) models.ChatResponse {
	s.logger.Error(msg, "err", err)
	metrics.RequestCount.WithLabelValues(metrics.StatusError).Inc()
	return failureResponse(sessionID)
}

func failureResponse(sessionID string) models.ChatResponse {
	return models.ChatResponse{
		Answer:    failureAnswer,
		Sources:   []models.Source{},
		SessionID: sessionID,
	}
}

// buildContext renders the matches, best first, into the grounding block fed
// to the model.
func buildContext(matches []models.RetrievalMatch) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("Document: %s (page %d)\n%s", m.SourceID, m.Page, m.Text)
	}
	return strings.Join(parts, contextSeparator)
}

func buildMessages(systemPrompt string, history []models.Message, query string) []models.ChatMessage {
	messages := make([]models.ChatMessage, 0, len(history)+2)
	messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		role := models.RoleAssistant
		if m.Role == models.RoleUser {
			role = models.RoleUser
		}
		messages = append(messages, models.ChatMessage{Role: role, Content: m.Content})
	}
	return append(messages, models.ChatMessage{Role: models.RoleUser, Content: query})
}

func buildSources(matches []models.RetrievalMatch) []models.Source {
	sources := make([]models.Source, len(matches))
	for i, m := range matches {
		sources[i] = models.Source{
			DocName: filepath.Base(m.SourceID),
			Page:    m.Page,
			Score:   m.Score,
		}
	}
	return sources
}
