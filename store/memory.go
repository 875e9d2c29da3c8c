/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/walterneylp/voltdocs19022026-sub000/models"
	"github.com/walterneylp/voltdocs19022026-sub000/pasta1"
)

type linkKey struct {
	tenantID   string
	itemID     string
	documentID string
}

// MemoryRepository keeps audit data in process memory. It backs the memory
// store driver and the tests.
type MemoryRepository struct {
	mutex sync.RWMutex

	metas      map[string]models.AuditConfigMeta
	items      map[string][]models.AuditConfigItem
	documents  []models.Document
	companies  []models.CompanyProfile
	profiles   map[string]models.UserProfile
	evidence   []models.AuditItemEvidence
	exclusions map[linkKey]models.AuditItemEvidenceExclusion
	runs       []models.AuditRun
	results    map[string][]models.AuditResult

	nextEvidenceID int64
	nextCompanyID  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		metas:      make(map[string]models.AuditConfigMeta),
		items:      make(map[string][]models.AuditConfigItem),
		profiles:   make(map[string]models.UserProfile),
		exclusions: make(map[linkKey]models.AuditItemEvidenceExclusion),
		results:    make(map[string][]models.AuditResult),
	}
}

func (m *MemoryRepository) GetConfigMeta(ctx context.Context, engine string) (*models.AuditConfigMeta, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	meta, ok := m.metas[engine]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

func (m *MemoryRepository) ListConfigItems(ctx context.Context, engine string) ([]models.AuditConfigItem, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return append([]models.AuditConfigItem{}, m.items[engine]...), nil
}

func (m *MemoryRepository) ReplaceConfig(ctx context.Context, meta models.AuditConfigMeta, items []models.AuditConfigItem) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stored := make([]models.AuditConfigItem, 0, len(items))
	for _, item := range items {
		item.Engine = meta.Engine
		item.ConfigHash = meta.ConfigHash
		stored = append(stored, item)
	}
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Position < stored[j].Position })

	m.items[meta.Engine] = stored
	m.metas[meta.Engine] = meta
	return nil
}

func (m *MemoryRepository) ListDocuments(ctx context.Context, tenantID string) ([]models.Document, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	documents := []models.Document{}
	for _, document := range m.documents {
		if document.TenantID == tenantID {
			documents = append(documents, document)
		}
	}
	sort.SliceStable(documents, func(i, j int) bool { return documents[i].CreatedAt.Before(documents[j].CreatedAt) })
	return documents, nil
}

func (m *MemoryRepository) GetDocument(ctx context.Context, tenantID, documentID string) (*models.Document, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, document := range m.documents {
		if document.TenantID == tenantID && document.ID == documentID {
			found := document
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) LatestCompanyProfile(ctx context.Context, tenantID string) (*models.CompanyProfile, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var latest *models.CompanyProfile
	for i := range m.companies {
		profile := m.companies[i]
		if profile.TenantID != tenantID {
			continue
		}
		if latest == nil || !profile.CreatedAt.Before(latest.CreatedAt) {
			latest = &profile
		}
	}
	return latest, nil
}

// CreateDocument registers a document.
func (m *MemoryRepository) CreateDocument(ctx context.Context, document models.Document) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if document.CreatedAt.IsZero() {
		document.CreatedAt = time.Now().UTC()
	}
	m.documents = append(m.documents, document)
	return nil
}

// CreateCompanyProfile stores a new company profile version.
func (m *MemoryRepository) CreateCompanyProfile(ctx context.Context, profile models.CompanyProfile) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.nextCompanyID++
	profile.ID = m.nextCompanyID
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	m.companies = append(m.companies, profile)
	return profile.ID, nil
}

func (m *MemoryRepository) ListEvidence(ctx context.Context, tenantID, itemID string) ([]models.AuditItemEvidence, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	evidence := []models.AuditItemEvidence{}
	for _, link := range m.evidence {
		if link.TenantID != tenantID {
			continue
		}
		if itemID != "" && link.ItemID != itemID {
			continue
		}
		evidence = append(evidence, link)
	}
	return evidence, nil
}

func (m *MemoryRepository) GetEvidence(ctx context.Context, tenantID string, id int64) (*models.AuditItemEvidence, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, link := range m.evidence {
		if link.TenantID == tenantID && link.ID == id {
			found := link
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) CreateEvidence(ctx context.Context, evidence models.AuditItemEvidence) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.linked(keyOf(evidence)) {
		return 0, pasta1.ErrDuplicateEvidence
	}
	return m.appendEvidence(evidence), nil
}

func (m *MemoryRepository) InsertAutoEvidence(ctx context.Context, evidence []models.AuditItemEvidence) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	inserted := 0
	for _, link := range evidence {
		key := keyOf(link)
		if m.linked(key) {
			continue
		}
		if _, excluded := m.exclusions[key]; excluded {
			continue
		}
		m.appendEvidence(link)
		inserted++
	}
	return inserted, nil
}

func (m *MemoryRepository) DeleteEvidence(ctx context.Context, evidence models.AuditItemEvidence, exclude bool) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if exclude {
		key := keyOf(evidence)
		if _, ok := m.exclusions[key]; !ok {
			m.exclusions[key] = models.AuditItemEvidenceExclusion{
				TenantID:   evidence.TenantID,
				ItemID:     evidence.ItemID,
				DocumentID: evidence.DocumentID,
				CreatedAt:  time.Now().UTC(),
			}
		}
	}

	kept := m.evidence[:0]
	for _, link := range m.evidence {
		if link.TenantID == evidence.TenantID && link.ID == evidence.ID {
			continue
		}
		kept = append(kept, link)
	}
	m.evidence = kept
	return nil
}

func (m *MemoryRepository) ListExclusions(ctx context.Context, tenantID string) ([]models.AuditItemEvidenceExclusion, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	exclusions := []models.AuditItemEvidenceExclusion{}
	for _, exclusion := range m.exclusions {
		if exclusion.TenantID == tenantID {
			exclusions = append(exclusions, exclusion)
		}
	}
	return exclusions, nil
}

func (m *MemoryRepository) CreateRun(ctx context.Context, run models.AuditRun) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.runs = append(m.runs, run)
	return nil
}

func (m *MemoryRepository) FinishRun(ctx context.Context, runID, status, message string, finishedAt time.Time) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i := range m.runs {
		if m.runs[i].ID == runID {
			finished := finishedAt
			m.runs[i].Status = status
			m.runs[i].Error = message
			m.runs[i].FinishedAt = &finished
		}
	}
	return nil
}

func (m *MemoryRepository) InsertResults(ctx context.Context, results []models.AuditResult) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, result := range results {
		m.results[result.RunID] = append(m.results[result.RunID], result)
	}
	return nil
}

func (m *MemoryRepository) LatestRun(ctx context.Context, tenantID, engine string) (*models.AuditRun, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var latest *models.AuditRun
	for i := range m.runs {
		run := m.runs[i]
		if run.TenantID != tenantID || run.Engine != engine || run.Status != models.RunStatusFinished {
			continue
		}
		if latest == nil || !run.StartedAt.Before(latest.StartedAt) {
			latest = &run
		}
	}
	return latest, nil
}

func (m *MemoryRepository) ListRuns(ctx context.Context, tenantID, engine string, limit int) ([]models.AuditRun, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	runs := []models.AuditRun{}
	for _, run := range m.runs {
		if run.TenantID == tenantID && run.Engine == engine {
			runs = append(runs, run)
		}
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *MemoryRepository) ListResults(ctx context.Context, runID string) ([]models.AuditResult, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return append([]models.AuditResult{}, m.results[runID]...), nil
}

func (m *MemoryRepository) FailStaleRuns(ctx context.Context, startedBefore time.Time, message string) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var failed int64
	now := time.Now().UTC()
	for i := range m.runs {
		if m.runs[i].Status == models.RunStatusRunning && m.runs[i].StartedAt.Before(startedBefore) {
			m.runs[i].Status = models.RunStatusFailed
			m.runs[i].Error = message
			m.runs[i].FinishedAt = &now
			failed++
		}
	}
	return failed, nil
}

// ResolveProfile maps an authenticated user to its tenant and role.
func (m *MemoryRepository) ResolveProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	profile, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

// CreateProfile inserts or updates the profile of a user.
func (m *MemoryRepository) CreateProfile(ctx context.Context, profile models.UserProfile) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.profiles[profile.UserID] = profile
	return nil
}

func keyOf(evidence models.AuditItemEvidence) linkKey {
	return linkKey{tenantID: evidence.TenantID, itemID: evidence.ItemID, documentID: evidence.DocumentID}
}

func (m *MemoryRepository) linked(key linkKey) bool {
	for _, link := range m.evidence {
		if keyOf(link) == key {
			return true
		}
	}
	return false
}

func (m *MemoryRepository) appendEvidence(evidence models.AuditItemEvidence) int64 {
	m.nextEvidenceID++
	evidence.ID = m.nextEvidenceID
	if evidence.CreatedAt.IsZero() {
		evidence.CreatedAt = time.Now().UTC()
	}
	m.evidence = append(m.evidence, evidence)
	return evidence.ID
}
