/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package pasta1

import (
	"context"
	"fmt"
	"strings"

	"github.com/walterneylp/voltdocs19022026-sub000/logs"
	"github.com/walterneylp/voltdocs19022026-sub000/metrics"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

const (
	RAGTopK                = 5
	RAGSimilarityThreshold = 0.75
)

type exclusionKey struct {
	itemID     string
	documentID string
}

// snapshot is the read-only tenant state shared by every item of a run.
type snapshot struct {
	tenantID   string
	documents  []models.Document
	byID       map[string]models.Document
	haystacks  map[string]string
	evidence   map[string][]models.AuditItemEvidence
	exclusions map[exclusionKey]struct{}
	company    *models.CompanyProfile
}

func newSnapshot(tenantID string, documents []models.Document, evidence []models.AuditItemEvidence,
	exclusions []models.AuditItemEvidenceExclusion, company *models.CompanyProfile) *snapshot {
	snap := &snapshot{
		tenantID:   tenantID,
		documents:  documents,
		byID:       make(map[string]models.Document, len(documents)),
		haystacks:  make(map[string]string, len(documents)),
		evidence:   make(map[string][]models.AuditItemEvidence),
		exclusions: make(map[exclusionKey]struct{}, len(exclusions)),
		company:    company,
	}
	for _, document := range documents {
		snap.byID[document.ID] = document
		snap.haystacks[document.ID] = DocumentHaystack(document)
	}
	for _, link := range evidence {
		snap.evidence[link.ItemID] = append(snap.evidence[link.ItemID], link)
	}
	for _, exclusion := range exclusions {
		snap.exclusions[exclusionKey{exclusion.ItemID, exclusion.DocumentID}] = struct{}{}
	}
	return snap
}

func (s *snapshot) excluded(itemID, documentID string) bool {
	_, ok := s.exclusions[exclusionKey{itemID, documentID}]
	return ok
}

// itemEvidence is everything found for one checklist item.
type itemEvidence struct {
	documents []models.Document
	chunks    []ChunkMatch
	newLinks  []models.AuditItemEvidence
}

// MatchDocuments returns the documents whose title, category or file name
// contains any of the keywords.
func MatchDocuments(keywords []string, documents []models.Document) []models.Document {
	matches := []models.Document{}
	for _, document := range documents {
		haystack := DocumentHaystack(document)
		for _, keyword := range keywords {
			if ContainsKeyword(haystack, keyword) {
				matches = append(matches, document)
				break
			}
		}
	}
	return matches
}

// itemQuery is the descriptive text embedded for the similarity fallback.
func itemQuery(item Item) string {
	parts := []string{item.Name, item.Category}
	parts = append(parts, item.ExpectedEvidence...)
	parts = append(parts, item.Keywords...)
	return strings.Join(parts, " ")
}

func (e *Engine) collectEvidence(ctx context.Context, item Item, snap *snapshot) itemEvidence {
	found := itemEvidence{}
	linked := make(map[string]struct{})

	for _, link := range snap.evidence[item.ItemID] {
		document, ok := snap.byID[link.DocumentID]
		if !ok {
			continue
		}
		if _, seen := linked[document.ID]; seen {
			continue
		}
		linked[document.ID] = struct{}{}
		found.documents = append(found.documents, document)
	}

	candidates := []string{}
	candidateSet := make(map[string]struct{})
	addCandidate := func(documentID string) {
		if _, seen := candidateSet[documentID]; seen {
			return
		}
		if snap.excluded(item.ItemID, documentID) {
			return
		}
		candidateSet[documentID] = struct{}{}
		candidates = append(candidates, documentID)
	}

	for _, document := range MatchDocuments(ItemKeywords(item), snap.documents) {
		addCandidate(document.ID)
	}

	for _, chunk := range e.similarChunks(ctx, item, snap) {
		if _, ok := snap.byID[chunk.DocumentID]; !ok {
			continue
		}
		if snap.excluded(item.ItemID, chunk.DocumentID) {
			continue
		}
		found.chunks = append(found.chunks, chunk)
		addCandidate(chunk.DocumentID)
	}

	for _, documentID := range candidates {
		if _, already := linked[documentID]; already {
			continue
		}
		linked[documentID] = struct{}{}
		found.documents = append(found.documents, snap.byID[documentID])
		found.newLinks = append(found.newLinks, models.AuditItemEvidence{
			TenantID:   snap.tenantID,
			ItemID:     item.ItemID,
			DocumentID: documentID,
			Type:       models.EvidenceTypeAuto,
			Note:       "vinculado automaticamente",
		})
	}

	return found
}

// similarChunks runs the embedding fallback. Any failure means "no extra
// evidence".
func (e *Engine) similarChunks(ctx context.Context, item Item, snap *snapshot) []ChunkMatch {
	if e.Searcher == nil || len(snap.documents) == 0 {
		return nil
	}

	matches, err := e.Searcher.Search(ctx, snap.tenantID, itemQuery(item), RAGTopK)
	if err != nil {
		metrics.RAGFailures.Inc()
		logs.Log(fmt.Sprintf("[WARNING][PASTA1] similarity search ignored for item %s: %v", item.ItemID, err))
		return nil
	}

	accepted := []ChunkMatch{}
	for _, match := range matches {
		if match.Similarity >= RAGSimilarityThreshold {
			accepted = append(accepted, match)
		}
	}
	return accepted
}
