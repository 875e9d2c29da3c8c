/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

import (
	"time"
)

type Document struct {
	ID          string    `json:"id" structs:"id"`
	TenantID    string    `json:"tenant_id" structs:"tenant_id"`
	Title       string    `json:"title" structs:"title"`
	Category    string    `json:"category" structs:"category"`
	FileName    string    `json:"file_name" structs:"file_name"`
	ContentText string    `json:"-" structs:"-"`
	CreatedAt   time.Time `json:"created_at" structs:"created_at"`
}

// CompanyProfile holds the registration data checked by checklist item 1.1.
type CompanyProfile struct {
	ID                 int64     `json:"id" structs:"id"`
	TenantID           string    `json:"tenant_id" structs:"tenant_id"`
	RazaoSocial        string    `json:"razao_social" structs:"razao_social"`
	CNPJ               string    `json:"cnpj" structs:"cnpj"`
	Endereco           string    `json:"endereco" structs:"endereco"`
	ResponsavelTecnico string    `json:"responsavel_tecnico" structs:"responsavel_tecnico"`
	Email              string    `json:"email" structs:"email"`
	Telefone           string    `json:"telefone" structs:"telefone"`
	CreatedAt          time.Time `json:"created_at" structs:"created_at"`
}

type DocumentChunk struct {
	TenantID   string    `json:"tenant_id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding"`
}

// UserProfile resolves an authenticated subject to its tenant.
type UserProfile struct {
	UserID   string `json:"user_id" structs:"user_id"`
	TenantID string `json:"tenant_id" structs:"tenant_id"`
	Role     string `json:"role" structs:"role"`
}
