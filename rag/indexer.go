/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package rag

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/walterneylp/voltdocs19022026-sub000/logs"
	"github.com/walterneylp/voltdocs19022026-sub000/metrics"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

// DocumentSource lists the documents of a tenant with their extracted text.
type DocumentSource interface {
	ListDocuments(ctx context.Context, tenantID string) ([]models.Document, error)
}

// ChunkStore persists document chunks and their embeddings.
type ChunkStore interface {
	// ReplaceDocumentChunks swaps every chunk of a document atomically.
	ReplaceDocumentChunks(ctx context.Context, tenantID, documentID string, chunks []models.DocumentChunk) error
	// PruneDocuments drops the chunks of tenant documents not in keep.
	PruneDocuments(ctx context.Context, tenantID string, keep []string) (int64, error)
	ListChunks(ctx context.Context, tenantID string) ([]models.DocumentChunk, error)
}

// IndexStats reports what a rebuild wrote.
type IndexStats struct {
	Documents int `json:"documents" structs:"documents"`
	Chunks    int `json:"chunks" structs:"chunks"`
}

// Indexer rebuilds the chunk index of a tenant.
type Indexer struct {
	Documents DocumentSource
	Chunks    ChunkStore
	Embedder  Embedder
	BatchSize int
	Limiter   *rate.Limiter
}

// NewIndexer limits embedding calls to rps requests per second.
func NewIndexer(documents DocumentSource, chunks ChunkStore, embedder Embedder, batchSize int, rps float64) *Indexer {
	if batchSize <= 0 {
		batchSize = 32
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Indexer{
		Documents: documents,
		Chunks:    chunks,
		Embedder:  embedder,
		BatchSize: batchSize,
		Limiter:   rate.NewLimiter(limit, 1),
	}
}

// Rebuild chunks and embeds the tenant documents. With documentIDs only
// those documents are rebuilt; without, every document is and chunks of
// documents that no longer exist are pruned.
func (ix *Indexer) Rebuild(ctx context.Context, tenantID string, documentIDs ...string) (IndexStats, error) {
	stats := IndexStats{}

	documents, err := ix.Documents.ListDocuments(ctx, tenantID)
	if err != nil {
		return stats, errors.Wrap(err, "list documents")
	}

	keep := make([]string, 0, len(documents))
	for _, document := range documents {
		// documents without extracted text have nothing to embed
		if strings.TrimSpace(document.ContentText) == "" {
			continue
		}
		keep = append(keep, document.ID)
		if len(documentIDs) > 0 && !slices.Contains(documentIDs, document.ID) {
			continue
		}

		chunks, err := ix.indexDocument(ctx, document)
		if err != nil {
			return stats, errors.Wrapf(err, "index document %s", document.ID)
		}
		stats.Documents++
		stats.Chunks += chunks
	}

	if len(documentIDs) == 0 {
		pruned, err := ix.Chunks.PruneDocuments(ctx, tenantID, keep)
		if err != nil {
			return stats, errors.Wrap(err, "prune chunks")
		}
		if pruned > 0 {
			logs.Log(fmt.Sprintf("[INFO][INDEX] Pruned %d chunk(s) of removed documents for tenant %s", pruned, tenantID))
		}
	}

	logs.Log(fmt.Sprintf("[INFO][INDEX] Indexed %d document(s), %d chunk(s) for tenant %s", stats.Documents, stats.Chunks, tenantID))
	return stats, nil
}

func (ix *Indexer) indexDocument(ctx context.Context, document models.Document) (int, error) {
	texts := Chunk(document.ContentText, ChunkSize, ChunkOverlap)

	chunks := make([]models.DocumentChunk, 0, len(texts))
	for start := 0; start < len(texts); start += ix.BatchSize {
		batch := texts[start:min(start+ix.BatchSize, len(texts))]

		vectors, err := ix.embed(ctx, batch)
		if err != nil {
			return 0, err
		}
		for i, text := range batch {
			chunks = append(chunks, models.DocumentChunk{
				TenantID:   document.TenantID,
				DocumentID: document.ID,
				ChunkIndex: start + i,
				Content:    text,
				Embedding:  vectors[i],
			})
		}
	}

	if err := ix.Chunks.ReplaceDocumentChunks(ctx, document.TenantID, document.ID, chunks); err != nil {
		return 0, err
	}
	metrics.IndexedChunks.Add(float64(len(chunks)))
	return len(chunks), nil
}

func (ix *Indexer) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if ix.Limiter != nil {
		if err := ix.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	vectors, err := ix.Embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(inputs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(vectors))
	}
	return vectors, nil
}
