/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

type fakeDocuments struct {
	documents []models.Document
}

func (f *fakeDocuments) ListDocuments(ctx context.Context, tenantID string) ([]models.Document, error) {
	return f.documents, nil
}

type fakeChunks struct {
	mutex  sync.Mutex
	chunks map[string][]models.DocumentChunk
	pruned []string
}

func newFakeChunks() *fakeChunks {
	return &fakeChunks{chunks: make(map[string][]models.DocumentChunk)}
}

func (f *fakeChunks) ReplaceDocumentChunks(ctx context.Context, tenantID, documentID string, chunks []models.DocumentChunk) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.chunks[documentID] = chunks
	return nil
}

func (f *fakeChunks) PruneDocuments(ctx context.Context, tenantID string, keep []string) (int64, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	var pruned int64
	for documentID, chunks := range f.chunks {
		found := false
		for _, id := range keep {
			found = found || id == documentID
		}
		if !found {
			pruned += int64(len(chunks))
			f.pruned = append(f.pruned, documentID)
			delete(f.chunks, documentID)
		}
	}
	return pruned, nil
}

func (f *fakeChunks) ListChunks(ctx context.Context, tenantID string) ([]models.DocumentChunk, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	all := []models.DocumentChunk{}
	for _, chunks := range f.chunks {
		all = append(all, chunks...)
	}
	return all, nil
}

// keywordEmbedder maps a text onto two axes: "laudo" and everything else.
type keywordEmbedder struct {
	calls  int
	failOn string
}

func (k *keywordEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	k.calls++
	vectors := make([][]float32, 0, len(inputs))
	for _, input := range inputs {
		if k.failOn != "" && strings.Contains(input, k.failOn) {
			return nil, errors.New("provider unavailable")
		}
		if strings.Contains(input, "laudo") {
			vectors = append(vectors, []float32{1, 0})
		} else {
			vectors = append(vectors, []float32{0, 1})
		}
	}
	return vectors, nil
}

func TestChunk(t *testing.T) {
	assert.Nil(t, Chunk("   ", ChunkSize, ChunkOverlap))
	assert.Equal(t, []string{"a b c"}, Chunk(" a \n b\tc ", ChunkSize, ChunkOverlap))

	text := strings.Repeat("ç", 2000)
	chunks := Chunk(text, 800, 120)
	require.Len(t, chunks, 3)
	assert.Equal(t, 800, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 800, utf8.RuneCountInString(chunks[1]))
	// 2000 - 2*680 = 640 runes left for the last window
	assert.Equal(t, 640, utf8.RuneCountInString(chunks[2]))
}

func TestChunkOverlap(t *testing.T) {
	chunks := Chunk("abcdefghij", 4, 2)
	assert.Equal(t, []string{"abcd", "cdef", "efgh", "ghij"}, chunks)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestRebuildAndSearch(t *testing.T) {
	documents := &fakeDocuments{documents: []models.Document{
		{ID: "d1", TenantID: "t1", ContentText: "laudo de inspeção das instalações"},
		{ID: "d2", TenantID: "t1", ContentText: "treinamento NR-10 básico"},
		{ID: "d3", TenantID: "t1", ContentText: ""},
	}}
	chunks := newFakeChunks()
	chunks.chunks["gone"] = []models.DocumentChunk{{DocumentID: "gone"}}
	// d3 lost its extracted text since the last rebuild
	chunks.chunks["d3"] = []models.DocumentChunk{{DocumentID: "d3"}}
	embedder := &keywordEmbedder{}

	indexer := NewIndexer(documents, chunks, embedder, 1, 0)
	stats, err := indexer.Rebuild(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, IndexStats{Documents: 2, Chunks: 2}, stats)
	assert.ElementsMatch(t, []string{"gone", "d3"}, chunks.pruned)
	assert.NotContains(t, chunks.chunks, "d3")
	assert.Equal(t, 2, embedder.calls)

	searcher := NewSearcher(chunks, embedder)
	matches, err := searcher.Search(context.Background(), "t1", "laudo elétrico", 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "d1", matches[0].DocumentID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
	assert.InDelta(t, 0.0, matches[1].Similarity, 1e-9)

	matches, err = searcher.Search(context.Background(), "t1", "laudo", 1)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRebuildSelectedDocuments(t *testing.T) {
	documents := &fakeDocuments{documents: []models.Document{
		{ID: "d1", TenantID: "t1", ContentText: "laudo"},
		{ID: "d2", TenantID: "t1", ContentText: "treinamento"},
	}}
	chunks := newFakeChunks()
	chunks.chunks["other"] = []models.DocumentChunk{{DocumentID: "other"}}

	stats, err := NewIndexer(documents, chunks, &keywordEmbedder{}, 8, 10).Rebuild(context.Background(), "t1", "d2")
	require.NoError(t, err)

	assert.Equal(t, IndexStats{Documents: 1, Chunks: 1}, stats)
	assert.Empty(t, chunks.pruned)
	assert.Contains(t, chunks.chunks, "d2")
	assert.NotContains(t, chunks.chunks, "d1")
}

func TestRebuildSkipsDocumentsWithoutText(t *testing.T) {
	documents := &fakeDocuments{documents: []models.Document{
		{ID: "d1", TenantID: "t1", ContentText: "  \n "},
		{ID: "d2", TenantID: "t1", ContentText: "treinamento"},
	}}
	chunks := newFakeChunks()
	embedder := &keywordEmbedder{}

	stats, err := NewIndexer(documents, chunks, embedder, 8, 0).Rebuild(context.Background(), "t1", "d1", "d2")
	require.NoError(t, err)

	assert.Equal(t, IndexStats{Documents: 1, Chunks: 1}, stats)
	assert.Equal(t, 1, embedder.calls)
	assert.NotContains(t, chunks.chunks, "d1")
	assert.Contains(t, chunks.chunks, "d2")
}

func TestRebuildStopsOnEmbeddingError(t *testing.T) {
	documents := &fakeDocuments{documents: []models.Document{
		{ID: "d1", TenantID: "t1", ContentText: "falha"},
	}}

	_, err := NewIndexer(documents, newFakeChunks(), &keywordEmbedder{failOn: "falha"}, 8, 0).Rebuild(context.Background(), "t1")
	assert.ErrorContains(t, err, "provider unavailable")
}

func TestSearchPropagatesEmbeddingError(t *testing.T) {
	searcher := NewSearcher(newFakeChunks(), &keywordEmbedder{failOn: "laudo"})
	_, err := searcher.Search(context.Background(), "t1", "laudo", 5)
	assert.Error(t, err)
}
