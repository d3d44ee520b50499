package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/Birzhan20/neuro-search-core/internal/chunker"
	"github.com/Birzhan20/neuro-search-core/internal/metrics"
	"github.com/Birzhan20/neuro-search-core/internal/models"
	"github.com/Birzhan20/neuro-search-core/internal/repositories"
)

// embedBatchSize bounds how many chunk texts go to the embedding endpoint in
// one call.
const embedBatchSize = 32

// DocumentLoader reads a file into ordered document units.
type DocumentLoader interface {
	Load(path string) ([]models.DocumentUnit, error)
}

// DocumentService is the ingestion pipeline: load a file, chunk it, embed the
// chunks and upsert them into the vector index as one batch.
//
// The pipeline makes no dedup guarantee: re-ingesting a file adds a second
// copy of its chunks.
type DocumentService struct {
	loader     DocumentLoader
	splitter   *chunker.Splitter
	embedder   Embedder
	vectorRepo repositories.VectorRepository
	statusRepo repositories.TaskStatusRepository
	pool       *ants.Pool
	logger     *slog.Logger
}

// NewDocumentService creates the ingestion pipeline. pool may be nil, in which
// case embedding batches run on the calling goroutine.
func NewDocumentService(
	loader DocumentLoader,
	splitter *chunker.Splitter,
	embedder Embedder,
	vectorRepo repositories.VectorRepository,
	statusRepo repositories.TaskStatusRepository,
	pool *ants.Pool,
	logger *slog.Logger,
) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		loader:     loader,
		splitter:   splitter,
		embedder:   embedder,
		vectorRepo: vectorRepo,
		statusRepo: statusRepo,
		pool:       pool,
		logger:     logger.With("component", "document-service"),
	}
}

// Process ingests the file named by the task. The returned error is one of
// the classified failures (ErrNotFound, ErrUnsupportedFormat, ErrProcessing);
// the outcome is recorded to the task status store and metrics either way.
// Tasks are not retried here: the caller acknowledges regardless.
func (s *DocumentService) Process(ctx context.Context, task models.IngestionTask) error {
	s.logger.Info("processing task", "task_id", task.TaskID, "file_path", task.FilePath)

	err := s.ingest(ctx, task.FilePath)
	s.recordOutcome(ctx, task, err)

	if err != nil {
		s.logger.Error("task failed", "task_id", task.TaskID, "err", err)
		return err
	}

	s.logger.Info("task completed", "task_id", task.TaskID)
	return nil
}

func (s *DocumentService) ingest(ctx context.Context, filePath string) error {
	units, err := s.loader.Load(filePath)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) || errors.Is(err, repositories.ErrUnsupportedFormat) {
			return err
		}
		return fmt.Errorf("%w: %v", repositories.ErrProcessing, err)
	}

	var chunks []models.Chunk
	for _, unit := range units {
		chunks = append(chunks, s.splitter.Split(unit.Text, unit.Source, unit.Page)...)
	}
	if len(chunks) == 0 {
		s.logger.Warn("document produced no chunks", "file_path", filePath)
		return nil
	}

	s.logger.Info("vectorizing chunks", "file_path", filePath, "chunks", len(chunks))

	embeddings, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("%w: %v", repositories.ErrProcessing, err)
	}

	if err := s.vectorRepo.UpsertChunks(ctx, chunks, embeddings); err != nil {
		return fmt.Errorf("%w: %v", repositories.ErrProcessing, err)
	}

	return nil
}

// embedChunks embeds chunk texts in order-preserving batches. Batches are
// submitted to the worker pool so a large document cannot monopolize the
// caller's goroutine.
func (s *DocumentService) embedChunks(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings := make([][]float32, len(texts))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batchStart, batchEnd := start, end
		wg.Add(1)
		s.submit(func() {
			defer wg.Done()

			vectors, err := s.embedder.EmbedDocuments(ctx, texts[batchStart:batchEnd])
			if err != nil {
				setErr(err)
				return
			}
			if len(vectors) != batchEnd-batchStart {
				setErr(fmt.Errorf("embedder returned %d vectors for %d texts",
					len(vectors), batchEnd-batchStart))
				return
			}
			copy(embeddings[batchStart:batchEnd], vectors)
		})
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return embeddings, nil
}

func (s *DocumentService) submit(fn func()) {
	if s.pool == nil {
		fn()
		return
	}
	if err := s.pool.Submit(fn); err != nil {
		// Pool released or overloaded; run inline rather than losing the batch.
		fn()
	}
}

func (s *DocumentService) recordOutcome(ctx context.Context, task models.IngestionTask, err error) {
	status := repositories.TaskStatus{
		TaskID:   task.TaskID,
		FilePath: task.FilePath,
		Status:   repositories.TaskStatusCompleted,
	}

	switch {
	case err == nil:
		metrics.DocumentsProcessed.WithLabelValues(metrics.DocStatusSuccess).Inc()
	case errors.Is(err, repositories.ErrNotFound):
		metrics.DocumentsProcessed.WithLabelValues(metrics.DocStatusNotFound).Inc()
		status.Status = repositories.TaskStatusFailed
		status.Reason = err.Error()
	case errors.Is(err, repositories.ErrUnsupportedFormat):
		metrics.DocumentsProcessed.WithLabelValues(metrics.DocStatusUnsupported).Inc()
		status.Status = repositories.TaskStatusFailed
		status.Reason = err.Error()
	default:
		metrics.DocumentsProcessed.WithLabelValues(metrics.DocStatusError).Inc()
		status.Status = repositories.TaskStatusFailed
		status.Reason = err.Error()
	}

	if s.statusRepo == nil {
		return
	}
	if recordErr := s.statusRepo.Record(ctx, status); recordErr != nil {
		s.logger.Warn("failed to record task status", "task_id", task.TaskID, "err", recordErr)
	}
}
