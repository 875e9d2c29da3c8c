/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package pasta1

import (
	"context"
	"errors"
	"time"

	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

var (
	ErrUnknownItem       = errors.New("unknown checklist item")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrEvidenceNotFound  = errors.New("evidence not found")
	ErrDuplicateEvidence = errors.New("document already linked to item")
	ErrIndexUnavailable  = errors.New("document index not configured")
	ErrInvalidEvidence   = errors.New("evidence type must be Manual or Auto")
)

// Repository is the persistence the engine needs. Lookups of a single row
// return nil without error when the row does not exist.
type Repository interface {
	GetConfigMeta(ctx context.Context, engine string) (*models.AuditConfigMeta, error)
	ListConfigItems(ctx context.Context, engine string) ([]models.AuditConfigItem, error)
	// ReplaceConfig swaps every item of meta.Engine and the meta row atomically.
	ReplaceConfig(ctx context.Context, meta models.AuditConfigMeta, items []models.AuditConfigItem) error

	ListDocuments(ctx context.Context, tenantID string) ([]models.Document, error)
	GetDocument(ctx context.Context, tenantID, documentID string) (*models.Document, error)
	LatestCompanyProfile(ctx context.Context, tenantID string) (*models.CompanyProfile, error)

	ListEvidence(ctx context.Context, tenantID, itemID string) ([]models.AuditItemEvidence, error)
	GetEvidence(ctx context.Context, tenantID string, id int64) (*models.AuditItemEvidence, error)
	// CreateEvidence returns ErrDuplicateEvidence when the link already exists.
	CreateEvidence(ctx context.Context, evidence models.AuditItemEvidence) (int64, error)
	// InsertAutoEvidence skips links that already exist and returns how many were added.
	InsertAutoEvidence(ctx context.Context, evidence []models.AuditItemEvidence) (int, error)
	// DeleteEvidence removes the link and, when exclude is set, records an
	// exclusion in the same transaction.
	DeleteEvidence(ctx context.Context, evidence models.AuditItemEvidence, exclude bool) error
	ListExclusions(ctx context.Context, tenantID string) ([]models.AuditItemEvidenceExclusion, error)

	CreateRun(ctx context.Context, run models.AuditRun) error
	FinishRun(ctx context.Context, runID, status, message string, finishedAt time.Time) error
	InsertResults(ctx context.Context, results []models.AuditResult) error
	LatestRun(ctx context.Context, tenantID, engine string) (*models.AuditRun, error)
	ListRuns(ctx context.Context, tenantID, engine string, limit int) ([]models.AuditRun, error)
	ListResults(ctx context.Context, runID string) ([]models.AuditResult, error)
	FailStaleRuns(ctx context.Context, startedBefore time.Time, message string) (int64, error)
}

// ChunkMatch is a chunk of a tenant document returned by similarity search.
type ChunkMatch struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// ChunkSearcher finds the chunks most similar to a query.
type ChunkSearcher interface {
	Search(ctx context.Context, tenantID, query string, topK int) ([]ChunkMatch, error)
}
