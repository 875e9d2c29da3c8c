/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package rag

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/walterneylp/voltdocs19022026-sub000/pasta1"
)

// Searcher ranks the indexed chunks of a tenant by cosine similarity to a
// query embedding.
type Searcher struct {
	Chunks   ChunkStore
	Embedder Embedder
}

func NewSearcher(chunks ChunkStore, embedder Embedder) *Searcher {
	return &Searcher{Chunks: chunks, Embedder: embedder}
}

func (s *Searcher) Search(ctx context.Context, tenantID, query string, topK int) ([]pasta1.ChunkMatch, error) {
	if topK <= 0 {
		return nil, nil
	}

	vectors, err := s.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, errors.Wrap(err, "embed query")
	}
	if len(vectors) != 1 {
		return nil, errors.New("embeddings provider returned no query vector")
	}

	chunks, err := s.Chunks.ListChunks(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "list chunks")
	}

	matches := make([]pasta1.ChunkMatch, 0, len(chunks))
	for _, chunk := range chunks {
		matches = append(matches, pasta1.ChunkMatch{
			DocumentID: chunk.DocumentID,
			ChunkIndex: chunk.ChunkIndex,
			Content:    chunk.Content,
			Similarity: Cosine(vectors[0], chunk.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}
