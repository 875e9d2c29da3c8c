/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package pasta1

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walterneylp/voltdocs19022026-sub000/logs"
	"github.com/walterneylp/voltdocs19022026-sub000/metrics"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

const maxExcerpts = 10

// RunNotifier is called after a run has been closed as finalizado.
type RunNotifier func(run models.AuditRun, results []models.AuditResult)

// Engine runs the Pasta 1 audit for a tenant.
type Engine struct {
	Repo       Repository
	Searcher   ChunkSearcher
	Definition *Definition
	MaxScorers int
	Notify     RunNotifier

	now func() time.Time
}

// NewEngine builds an engine without similarity search; set Searcher to
// enable the embedding fallback.
func NewEngine(repo Repository, definition *Definition) *Engine {
	return &Engine{
		Repo:       repo,
		Definition: definition,
		MaxScorers: 8,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SyncConfig stores the loaded definition when its hash differs from the
// stored one and returns the active config.
func (e *Engine) SyncConfig(ctx context.Context) (*models.AuditConfigMeta, []models.AuditConfigItem, error) {
	meta, err := e.Repo.GetConfigMeta(ctx, e.Definition.Engine)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load config meta")
	}

	if meta != nil && meta.ConfigHash == e.Definition.Hash {
		items, err := e.Repo.ListConfigItems(ctx, e.Definition.Engine)
		if err != nil {
			return nil, nil, errors.Wrap(err, "load config items")
		}
		return meta, items, nil
	}

	updated := models.AuditConfigMeta{
		Engine:     e.Definition.Engine,
		ConfigHash: e.Definition.Hash,
		Version:    e.Definition.Version,
		UpdatedAt:  e.now(),
	}
	items := e.Definition.ConfigRows()
	if err := e.Repo.ReplaceConfig(ctx, updated, items); err != nil {
		return nil, nil, errors.Wrap(err, "replace config")
	}

	logs.Log(fmt.Sprintf("[INFO][PASTA1] Config synced: version %s hash %s (%d items)", updated.Version, updated.ConfigHash, len(items)))
	return &updated, items, nil
}

// RunAudit scores every checklist item for the tenant and records the run.
func (e *Engine) RunAudit(ctx context.Context, tenantID string) (*models.AuditRun, []models.AuditResult, error) {
	meta, _, err := e.SyncConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	run := models.AuditRun{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Engine:     e.Definition.Engine,
		ConfigHash: meta.ConfigHash,
		Status:     models.RunStatusRunning,
		StartedAt:  e.now(),
	}
	if err := e.Repo.CreateRun(ctx, run); err != nil {
		return nil, nil, errors.Wrap(err, "create run")
	}
	logs.Log(fmt.Sprintf("[INFO][PASTA1] Run %s started for tenant %s", run.ID, tenantID))

	results, err := e.executeRun(ctx, run)
	if err != nil {
		e.failRun(run, err)
		return nil, nil, err
	}

	finishedAt := e.now()
	if err := e.Repo.FinishRun(ctx, run.ID, models.RunStatusFinished, "", finishedAt); err != nil {
		e.failRun(run, err)
		return nil, nil, errors.Wrap(err, "finish run")
	}
	run.Status = models.RunStatusFinished
	run.FinishedAt = &finishedAt

	metrics.Runs.WithLabelValues(models.RunStatusFinished).Inc()
	metrics.RunDuration.Observe(finishedAt.Sub(run.StartedAt).Seconds())
	logs.Log(fmt.Sprintf("[INFO][PASTA1] Run %s finished with %d results", run.ID, len(results)))

	if e.Notify != nil {
		e.Notify(run, results)
	}

	return &run, results, nil
}

func (e *Engine) executeRun(ctx context.Context, run models.AuditRun) ([]models.AuditResult, error) {
	snap, err := e.loadSnapshot(ctx, run.TenantID)
	if err != nil {
		return nil, err
	}

	items := e.Definition.Items
	results := make([]models.AuditResult, len(items))
	links := make([][]models.AuditItemEvidence, len(items))

	group, groupCtx := errgroup.WithContext(ctx)
	if e.MaxScorers > 0 {
		group.SetLimit(e.MaxScorers)
	}
	for i := range items {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			result, newLinks := e.assessItem(groupCtx, items[i], snap)
			result.RunID = run.ID
			results[i] = result
			links[i] = newLinks
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, errors.Wrap(err, "score items")
	}

	autoLinks := []models.AuditItemEvidence{}
	for _, itemLinks := range links {
		autoLinks = append(autoLinks, itemLinks...)
	}
	if len(autoLinks) > 0 {
		inserted, err := e.Repo.InsertAutoEvidence(ctx, autoLinks)
		if err != nil {
			return nil, errors.Wrap(err, "insert automatic evidence")
		}
		metrics.AutoLinks.Add(float64(inserted))
	}

	createdAt := e.now()
	for i := range results {
		results[i].CreatedAt = createdAt
	}
	if err := e.Repo.InsertResults(ctx, results); err != nil {
		return nil, errors.Wrap(err, "insert results")
	}

	return results, nil
}

func (e *Engine) loadSnapshot(ctx context.Context, tenantID string) (*snapshot, error) {
	documents, err := e.Repo.ListDocuments(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "load documents")
	}
	evidence, err := e.Repo.ListEvidence(ctx, tenantID, "")
	if err != nil {
		return nil, errors.Wrap(err, "load evidence")
	}
	exclusions, err := e.Repo.ListExclusions(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "load exclusions")
	}
	company, err := e.Repo.LatestCompanyProfile(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "load company profile")
	}
	return newSnapshot(tenantID, documents, evidence, exclusions, company), nil
}

// failRun closes a run as falhou. It uses its own context so a cancelled
// request still records the failure.
func (e *Engine) failRun(run models.AuditRun, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics.Runs.WithLabelValues(models.RunStatusFailed).Inc()
	logs.Log(fmt.Sprintf("[ERROR][PASTA1] Run %s failed: %v", run.ID, cause))
	if err := e.Repo.FinishRun(ctx, run.ID, models.RunStatusFailed, cause.Error(), e.now()); err != nil {
		logs.Log(fmt.Sprintf("[ERROR][PASTA1] Unable to close failed run %s: %v", run.ID, err))
	}
}

func (e *Engine) assessItem(ctx context.Context, item Item, snap *snapshot) (models.AuditResult, []models.AuditItemEvidence) {
	found := e.collectEvidence(ctx, item, snap)

	result := models.AuditResult{
		ItemID:          item.ItemID,
		Missing:         []string{},
		Recommendations: []string{},
		Evidence:        evidenceExcerpts(found),
	}

	if item.ItemID == CompanyProfileItemID {
		score, missing := ScoreCompanyProfile(snap.company, item.RequiredFields)
		result.Score = score
		result.Status = StatusForScore(score)
		result.Missing = missing
		result.Recommendations = companyRecommendations(snap.company, missing)
		return result, found.newLinks
	}

	haystacks := make([]string, 0, len(found.documents)+len(found.chunks))
	for _, document := range found.documents {
		haystacks = append(haystacks, snap.haystacks[document.ID])
	}
	for _, chunk := range found.chunks {
		haystacks = append(haystacks, Normalize(chunk.Content))
	}

	keywords := ItemKeywords(item)
	matched := 0
	for _, keyword := range keywords {
		if anyContains(haystacks, keyword) {
			matched++
		}
	}

	hasEvidence := len(found.documents) > 0
	result.Score = ScoreEvidence(hasEvidence, matched, len(keywords))
	result.Status = StatusForScore(result.Score)

	for _, expected := range item.ExpectedEvidence {
		if !anyContains(haystacks, expected) {
			result.Missing = append(result.Missing, expected)
		}
	}
	if item.MinEvidence > len(found.documents) {
		result.Missing = append(result.Missing,
			fmt.Sprintf("mínimo de %d evidência(s), encontrada(s) %d", item.MinEvidence, len(found.documents)))
	}
	result.Recommendations = evidenceRecommendations(item, result.Status, result.Missing)

	return result, found.newLinks
}

func anyContains(haystacks []string, keyword string) bool {
	for _, haystack := range haystacks {
		if ContainsKeyword(haystack, keyword) {
			return true
		}
	}
	return false
}

func evidenceExcerpts(found itemEvidence) []string {
	excerpts := []string{}
	for _, document := range found.documents {
		if len(excerpts) == maxExcerpts {
			return excerpts
		}
		label := document.Title
		if label == "" {
			label = document.FileName
		}
		if document.Category != "" {
			label += " (" + document.Category + ")"
		}
		excerpts = append(excerpts, label)
	}
	for _, chunk := range found.chunks {
		if len(excerpts) == maxExcerpts {
			return excerpts
		}
		excerpts = append(excerpts, fmt.Sprintf("trecho %.2f: %s", chunk.Similarity, snippet(chunk.Content, 160)))
	}
	return excerpts
}

func snippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "…"
}

func companyRecommendations(profile *models.CompanyProfile, missing []string) []string {
	if profile == nil {
		return []string{"Cadastrar os dados da empresa antes da auditoria."}
	}
	if len(missing) == 0 {
		return []string{"Manter o cadastro da empresa atualizado."}
	}
	recommendations := []string{}
	for _, field := range missing {
		recommendations = append(recommendations, "Completar o cadastro da empresa: "+field+".")
	}
	return recommendations
}

func evidenceRecommendations(item Item, status string, missing []string) []string {
	switch status {
	case StatusAttended:
		if len(missing) == 0 {
			return []string{"Manter as evidências atualizadas para a próxima auditoria."}
		}
	case StatusPending:
		return []string{fmt.Sprintf("Anexar documentos que comprovem o item %s: %s.", item.ItemID, item.Name)}
	case StatusInconclusive:
		return []string{"Revisar manualmente as evidências vinculadas ao item."}
	}

	recommendations := []string{}
	for _, entry := range missing {
		recommendations = append(recommendations, "Complementar evidências: "+entry+".")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Revisar a cobertura das palavras-chave nas evidências.")
	}
	return recommendations
}

// LatestResults returns the tenant's most recent run and its results, or a
// nil run when none exists.
func (e *Engine) LatestResults(ctx context.Context, tenantID string) (*models.AuditRun, []models.AuditResult, error) {
	run, err := e.Repo.LatestRun(ctx, tenantID, e.Definition.Engine)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load latest run")
	}
	if run == nil {
		return nil, []models.AuditResult{}, nil
	}

	results, err := e.Repo.ListResults(ctx, run.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load results")
	}
	e.sortResults(results)
	return run, results, nil
}

// ListRuns returns the tenant's run history, newest first.
func (e *Engine) ListRuns(ctx context.Context, tenantID string, limit int) ([]models.AuditRun, error) {
	if limit <= 0 {
		limit = 50
	}
	limit = min(limit, 200)
	runs, err := e.Repo.ListRuns(ctx, tenantID, e.Definition.Engine, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	return runs, nil
}

// SweepStaleRuns closes runs left in executando for longer than timeout.
func (e *Engine) SweepStaleRuns(ctx context.Context, timeout time.Duration) (int64, error) {
	cutoff := e.now().Add(-timeout)
	swept, err := e.Repo.FailStaleRuns(ctx, cutoff, "execução interrompida")
	if err != nil {
		return 0, errors.Wrap(err, "sweep stale runs")
	}
	if swept > 0 {
		metrics.Runs.WithLabelValues(models.RunStatusFailed).Add(float64(swept))
		logs.Log(fmt.Sprintf("[WARNING][PASTA1] Marked %d stale run(s) as %s", swept, models.RunStatusFailed))
	}
	return swept, nil
}

// sortResults orders results like the checklist; unknown items go last.
func (e *Engine) sortResults(results []models.AuditResult) {
	position := func(itemID string) int {
		if p, ok := e.Definition.index[itemID]; ok {
			return p
		}
		return len(e.Definition.Items)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return position(results[i].ItemID) < position(results[j].ItemID)
	})
}
