/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

import (
	"encoding/json"
	"time"
)

const (
	RunStatusRunning  = "executando"
	RunStatusFinished = "finalizado"
	RunStatusFailed   = "falhou"

	EvidenceTypeAuto   = "Auto"
	EvidenceTypeManual = "Manual"
)

// AuditConfigItem is one checklist item of a stored config version.
type AuditConfigItem struct {
	Engine           string          `json:"engine" structs:"engine"`
	ItemID           string          `json:"item_id" structs:"item_id"`
	Position         int             `json:"position" structs:"position"`
	Category         string          `json:"category" structs:"category"`
	Name             string          `json:"name" structs:"name"`
	MinEvidence      int             `json:"min_evidence" structs:"min_evidence"`
	RequiredFields   []string        `json:"required_fields" structs:"required_fields"`
	ExpectedEvidence []string        `json:"expected_evidence" structs:"expected_evidence"`
	Keywords         []string        `json:"keywords" structs:"keywords"`
	Raw              json.RawMessage `json:"raw" structs:"raw"`
	ConfigHash       string          `json:"config_hash" structs:"config_hash"`
}

// AuditConfigMeta records the active config hash of an engine.
type AuditConfigMeta struct {
	Engine     string    `json:"engine" structs:"engine"`
	ConfigHash string    `json:"config_hash" structs:"config_hash"`
	Version    string    `json:"version" structs:"version"`
	UpdatedAt  time.Time `json:"updated_at" structs:"updated_at"`
}

type AuditRun struct {
	ID         string     `json:"id" structs:"id"`
	TenantID   string     `json:"tenant_id" structs:"tenant_id"`
	Engine     string     `json:"engine" structs:"engine"`
	ConfigHash string     `json:"config_hash" structs:"config_hash"`
	Status     string     `json:"status" structs:"status"`
	Error      string     `json:"error,omitempty" structs:"error"`
	StartedAt  time.Time  `json:"started_at" structs:"started_at"`
	FinishedAt *time.Time `json:"finished_at" structs:"finished_at"`
}

type AuditResult struct {
	RunID           string    `json:"run_id" structs:"run_id"`
	ItemID          string    `json:"item_id" structs:"item_id"`
	Score           int       `json:"score" structs:"score"`
	Status          string    `json:"status" structs:"status"`
	Missing         []string  `json:"missing" structs:"missing"`
	Recommendations []string  `json:"recommendations" structs:"recommendations"`
	Evidence        []string  `json:"evidence" structs:"evidence"`
	CreatedAt       time.Time `json:"created_at" structs:"created_at"`
}

// AuditItemEvidence links a checklist item to a tenant document.
type AuditItemEvidence struct {
	ID         int64     `json:"id" structs:"id"`
	TenantID   string    `json:"tenant_id" structs:"tenant_id"`
	ItemID     string    `json:"item_id" structs:"item_id"`
	DocumentID string    `json:"document_id" structs:"document_id"`
	Type       string    `json:"type" structs:"type"`
	Note       string    `json:"note" structs:"note"`
	CreatedAt  time.Time `json:"created_at" structs:"created_at"`
}

// AuditItemEvidenceExclusion stops the auto-linker from re-adding a removed link.
type AuditItemEvidenceExclusion struct {
	TenantID   string    `json:"tenant_id" structs:"tenant_id"`
	ItemID     string    `json:"item_id" structs:"item_id"`
	DocumentID string    `json:"document_id" structs:"document_id"`
	CreatedAt  time.Time `json:"created_at" structs:"created_at"`
}

type EvidenceJson struct {
	ItemID     string `json:"item_id" binding:"required"`
	DocumentID string `json:"document_id" binding:"required"`
	Type       string `json:"type"`
	Note       string `json:"note"`
}
