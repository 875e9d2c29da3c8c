/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package pasta1_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walterneylp/voltdocs19022026-sub000/models"
	"github.com/walterneylp/voltdocs19022026-sub000/pasta1"
	"github.com/walterneylp/voltdocs19022026-sub000/store"
)

const tenant = "tenant-a"

type fakeSearcher struct {
	matches map[string][]pasta1.ChunkMatch
	err     error

	mutex sync.Mutex
	calls int
}

// Search returns the matches registered for the first marker found in the query.
func (f *fakeSearcher) Search(ctx context.Context, tenantID, query string, topK int) ([]pasta1.ChunkMatch, error) {
	f.mutex.Lock()
	f.calls++
	f.mutex.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for marker, matches := range f.matches {
		if strings.Contains(query, marker) {
			return matches, nil
		}
	}
	return nil, nil
}

type failingResultsRepo struct {
	*store.MemoryRepository
}

func (f failingResultsRepo) InsertResults(ctx context.Context, results []models.AuditResult) error {
	return errors.New("disk full")
}

func newEngine(t *testing.T) (*pasta1.Engine, *store.MemoryRepository) {
	t.Helper()
	definition, err := pasta1.DefaultDefinition()
	require.NoError(t, err)

	repo := store.NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateDocument(ctx, models.Document{
		ID: "d1", TenantID: tenant, Title: "Diagrama unifilar", Category: "Projetos", FileName: "unifilar_geral.pdf",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, repo.CreateDocument(ctx, models.Document{
		ID: "d2", TenantID: tenant, Title: "Foto painel", Category: "Geral", FileName: "img001.jpg",
		CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, repo.CreateDocument(ctx, models.Document{
		ID: "other", TenantID: "tenant-b", Title: "Diagrama unifilar", FileName: "unifilar.pdf",
	}))
	_, err = repo.CreateCompanyProfile(ctx, models.CompanyProfile{
		TenantID: tenant, RazaoSocial: "Volt Engenharia Ltda", CNPJ: "12.345.678/0001-90",
		Endereco: "Rua A, 100", ResponsavelTecnico: "Eng. Maria", Email: "contato@volt.com.br",
	})
	require.NoError(t, err)

	return pasta1.NewEngine(repo, definition), repo
}

func resultFor(t *testing.T, results []models.AuditResult, itemID string) models.AuditResult {
	t.Helper()
	for _, result := range results {
		if result.ItemID == itemID {
			return result
		}
	}
	t.Fatalf("no result for item %s", itemID)
	return models.AuditResult{}
}

func TestSyncConfigIsIdempotent(t *testing.T) {
	engine, repo := newEngine(t)
	ctx := context.Background()

	meta, items, err := engine.SyncConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.Definition.Hash, meta.ConfigHash)
	assert.Len(t, items, len(engine.Definition.Items))

	stored, err := repo.GetConfigMeta(ctx, pasta1.EngineName)
	require.NoError(t, err)

	again, itemsAgain, err := engine.SyncConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored.UpdatedAt, again.UpdatedAt)
	assert.Equal(t, items, itemsAgain)
	for i, item := range itemsAgain {
		assert.Equal(t, i, item.Position)
		assert.Equal(t, meta.ConfigHash, item.ConfigHash)
	}
}

func TestSyncConfigReplacesStaleConfig(t *testing.T) {
	engine, repo := newEngine(t)
	ctx := context.Background()

	stale := models.AuditConfigMeta{
		Engine:     pasta1.EngineName,
		ConfigHash: "stale-hash",
		Version:    "stale-version",
		UpdatedAt:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.ReplaceConfig(ctx, stale, []models.AuditConfigItem{
		{ItemID: "1.1", Position: 0, Name: "renamed"},
		{ItemID: "9.9", Position: 1, Name: "dropped item"},
	}))

	meta, items, err := engine.SyncConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.Definition.Hash, meta.ConfigHash)
	assert.Equal(t, engine.Definition.Version, meta.Version)
	assert.True(t, meta.UpdatedAt.After(stale.UpdatedAt))

	stored, err := repo.GetConfigMeta(ctx, pasta1.EngineName)
	require.NoError(t, err)
	assert.Equal(t, *meta, *stored)

	storedItems, err := repo.ListConfigItems(ctx, pasta1.EngineName)
	require.NoError(t, err)
	assert.Equal(t, items, storedItems)
	require.Len(t, storedItems, len(engine.Definition.Items))
	for i, item := range storedItems {
		assert.Equal(t, engine.Definition.Items[i].ItemID, item.ItemID)
		assert.NotEqual(t, "9.9", item.ItemID)
		assert.Equal(t, meta.ConfigHash, item.ConfigHash)
	}
	assert.NotEqual(t, "renamed", storedItems[0].Name)
}

func TestRunAuditScoresEveryItemInOrder(t *testing.T) {
	engine, repo := newEngine(t)
	ctx := context.Background()

	var notified *models.AuditRun
	engine.Notify = func(run models.AuditRun, results []models.AuditResult) {
		notified = &run
	}

	run, results, err := engine.RunAudit(ctx, tenant)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusFinished, run.Status)
	assert.NotNil(t, run.FinishedAt)
	require.NotNil(t, notified)
	assert.Equal(t, run.ID, notified.ID)

	require.Len(t, results, len(engine.Definition.Items))
	for i, result := range results {
		assert.Equal(t, engine.Definition.Items[i].ItemID, result.ItemID)
		assert.Equal(t, run.ID, result.RunID)
	}

	company := resultFor(t, results, "1.1")
	assert.Equal(t, 100, company.Score)
	assert.Equal(t, pasta1.StatusAttended, company.Status)
	assert.Empty(t, company.Missing)

	// unifilar and diagrama of three keywords: 60 + round(2/3*30)
	diagram := resultFor(t, results, "1.2")
	assert.Equal(t, 80, diagram.Score)
	assert.Equal(t, pasta1.StatusAttended, diagram.Status)
	assert.Equal(t, []string{"Especificação do sistema de aterramento"}, diagram.Missing)
	assert.Equal(t, []string{"Diagrama unifilar (Projetos)"}, diagram.Evidence)

	pending := resultFor(t, results, "1.8")
	assert.Equal(t, 0, pending.Score)
	assert.Equal(t, pasta1.StatusPending, pending.Status)
	assert.NotEmpty(t, pending.Recommendations)

	links, err := repo.ListEvidence(ctx, tenant, "1.2")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "d1", links[0].DocumentID)
	assert.Equal(t, models.EvidenceTypeAuto, links[0].Type)

	latest, latestResults, err := engine.LatestResults(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, results, latestResults)
}

func TestRerunDoesNotDuplicateAutoLinks(t *testing.T) {
	engine, repo := newEngine(t)
	ctx := context.Background()

	_, _, err := engine.RunAudit(ctx, tenant)
	require.NoError(t, err)
	_, _, err = engine.RunAudit(ctx, tenant)
	require.NoError(t, err)

	links, err := repo.ListEvidence(ctx, tenant, "")
	require.NoError(t, err)
	assert.Len(t, links, 1)

	runs, err := engine.ListRuns(ctx, tenant, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRemovingAutoLinkExcludesDocument(t *testing.T) {
	engine, repo := newEngine(t)
	ctx := context.Background()

	_, _, err := engine.RunAudit(ctx, tenant)
	require.NoError(t, err)

	links, err := engine.ListEvidence(ctx, tenant, "1.2")
	require.NoError(t, err)
	require.Len(t, links, 1)

	require.NoError(t, engine.RemoveEvidence(ctx, tenant, links[0].ID))

	exclusions, err := repo.ListExclusions(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, exclusions, 1)
	assert.Equal(t, "d1", exclusions[0].DocumentID)

	_, results, err := engine.RunAudit(ctx, tenant)
	require.NoError(t, err)

	diagram := resultFor(t, results, "1.2")
	assert.Equal(t, 0, diagram.Score)
	assert.Equal(t, pasta1.StatusPending, diagram.Status)

	links, err = engine.ListEvidence(ctx, tenant, "1.2")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestManualLinkCountsAsEvidence(t *testing.T) {
	engine, repo := newEngine(t)
	ctx := context.Background()

	evidence, err := engine.AddEvidence(ctx, tenant, models.EvidenceJson{ItemID: "1.8", DocumentID: "d2", Note: "foto do ensaio"})
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceTypeManual, evidence.Type)
	assert.NotZero(t, evidence.ID)

	_, results, err := engine.RunAudit(ctx, tenant)
	require.NoError(t, err)

	insulation := resultFor(t, results, "1.8")
	assert.Equal(t, 60, insulation.Score)
	assert.Equal(t, pasta1.StatusPartial, insulation.Status)

	require.NoError(t, engine.RemoveEvidence(ctx, tenant, evidence.ID))
	exclusions, err := repo.ListExclusions(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, exclusions)

	_, results, err = engine.RunAudit(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 0, resultFor(t, results, "1.8").Score)
}

func TestAddEvidenceValidation(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()

	_, err := engine.AddEvidence(ctx, tenant, models.EvidenceJson{ItemID: "9.9", DocumentID: "d1"})
	assert.ErrorIs(t, err, pasta1.ErrUnknownItem)

	_, err = engine.AddEvidence(ctx, tenant, models.EvidenceJson{ItemID: "1.2", DocumentID: "other"})
	assert.ErrorIs(t, err, pasta1.ErrDocumentNotFound)

	_, err = engine.AddEvidence(ctx, tenant, models.EvidenceJson{ItemID: "1.2", DocumentID: "d1"})
	require.NoError(t, err)
	_, err = engine.AddEvidence(ctx, tenant, models.EvidenceJson{ItemID: "1.2", DocumentID: "d1"})
	assert.ErrorIs(t, err, pasta1.ErrDuplicateEvidence)

	assert.ErrorIs(t, engine.RemoveEvidence(ctx, tenant, 999), pasta1.ErrEvidenceNotFound)
	assert.ErrorIs(t, engine.RemoveEvidence(ctx, "tenant-b", 1), pasta1.ErrEvidenceNotFound)

	_, err = engine.ListEvidence(ctx, tenant, "9.9")
	assert.ErrorIs(t, err, pasta1.ErrUnknownItem)
}

func TestEvidenceTypeIsNormalized(t *testing.T) {
	engine, repo := newEngine(t)
	ctx := context.Background()

	_, err := engine.AddEvidence(ctx, tenant, models.EvidenceJson{ItemID: "1.2", DocumentID: "d1", Type: "imported-from-legacy"})
	assert.ErrorIs(t, err, pasta1.ErrInvalidEvidence)

	manual, err := engine.AddEvidence(ctx, tenant, models.EvidenceJson{ItemID: "1.8", DocumentID: "d2", Type: " manual "})
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceTypeManual, manual.Type)

	auto, err := engine.AddEvidence(ctx, tenant, models.EvidenceJson{ItemID: "1.2", DocumentID: "d1", Type: "auto"})
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceTypeAuto, auto.Type)

	require.NoError(t, engine.RemoveEvidence(ctx, tenant, auto.ID))
	exclusions, err := repo.ListExclusions(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, exclusions, 1)
	assert.Equal(t, "d1", exclusions[0].DocumentID)
	assert.Equal(t, "1.2", exclusions[0].ItemID)
}

func TestSimilarityMatchesAboveThresholdBecomeEvidence(t *testing.T) {
	engine, repo := newEngine(t)
	ctx := context.Background()

	searcher := &fakeSearcher{matches: map[string][]pasta1.ChunkMatch{
		"SPDA": {
			{DocumentID: "d2", ChunkIndex: 0, Content: "Medição da resistência de aterramento do SPDA", Similarity: 0.91},
			{DocumentID: "d1", ChunkIndex: 3, Content: "para-raios", Similarity: 0.40},
			{DocumentID: "unknown", ChunkIndex: 0, Content: "spda para-raios", Similarity: 0.99},
		},
	}}
	engine.Searcher = searcher

	_, results, err := engine.RunAudit(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, len(engine.Definition.Items), searcher.calls)

	// spda and resistência de aterramento from the accepted chunk
	lightning := resultFor(t, results, "1.4")
	assert.Equal(t, 80, lightning.Score)
	require.Len(t, lightning.Evidence, 2)
	assert.Equal(t, "Foto painel (Geral)", lightning.Evidence[0])
	assert.True(t, strings.HasPrefix(lightning.Evidence[1], "trecho 0.91:"))

	links, err := repo.ListEvidence(ctx, tenant, "1.4")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "d2", links[0].DocumentID)
}

func TestSimilarityFailureIsIgnored(t *testing.T) {
	engine, _ := newEngine(t)
	engine.Searcher = &fakeSearcher{err: errors.New("embeddings provider down")}

	run, results, err := engine.RunAudit(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFinished, run.Status)
	assert.Equal(t, 80, resultFor(t, results, "1.2").Score)
}

func TestFailedRunIsClosed(t *testing.T) {
	definition, err := pasta1.DefaultDefinition()
	require.NoError(t, err)
	memory := store.NewMemoryRepository()
	engine := pasta1.NewEngine(failingResultsRepo{memory}, definition)
	ctx := context.Background()

	notified := false
	engine.Notify = func(models.AuditRun, []models.AuditResult) { notified = true }

	_, _, err = engine.RunAudit(ctx, tenant)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, notified)

	runs, err := engine.ListRuns(ctx, tenant, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "disk full")
	assert.NotNil(t, runs[0].FinishedAt)

	// failed runs are not reported as latest results
	latest, results, err := engine.LatestResults(ctx, tenant)
	require.NoError(t, err)
	assert.Nil(t, latest)
	assert.Empty(t, results)
}

func TestSweepStaleRuns(t *testing.T) {
	engine, repo := newEngine(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateRun(ctx, models.AuditRun{
		ID: "stale", TenantID: tenant, Engine: pasta1.EngineName,
		Status: models.RunStatusRunning, StartedAt: time.Now().UTC().Add(-2 * time.Hour),
	}))
	require.NoError(t, repo.CreateRun(ctx, models.AuditRun{
		ID: "fresh", TenantID: tenant, Engine: pasta1.EngineName,
		Status: models.RunStatusRunning, StartedAt: time.Now().UTC(),
	}))

	swept, err := engine.SweepStaleRuns(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	runs, err := engine.ListRuns(ctx, tenant, 10)
	require.NoError(t, err)
	statuses := map[string]string{}
	for _, run := range runs {
		statuses[run.ID] = run.Status
	}
	assert.Equal(t, models.RunStatusFailed, statuses["stale"])
	assert.Equal(t, models.RunStatusRunning, statuses["fresh"])
}

func TestLatestResultsWithoutRuns(t *testing.T) {
	engine, _ := newEngine(t)

	run, results, err := engine.LatestResults(context.Background(), tenant)
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
