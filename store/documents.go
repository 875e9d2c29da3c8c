/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

const documentColumns = "id, tenant_id, title, category, file_name, content_text, created_at"

func scanDocument(scanner interface{ Scan(...any) error }) (models.Document, error) {
	var document models.Document
	var contentText sql.NullString
	err := scanner.Scan(&document.ID, &document.TenantID, &document.Title, &document.Category,
		&document.FileName, &contentText, &document.CreatedAt)
	document.ContentText = contentText.String
	return document, err
}

// ListDocuments returns every document of the tenant.
func (r *SQLRepository) ListDocuments(ctx context.Context, tenantID string) ([]models.Document, error) {
	database, err := r.database()
	if err != nil {
		return nil, err
	}

	rows, err := database.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE tenant_id = ? ORDER BY created_at, id", tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "select documents")
	}
	defer rows.Close()

	documents := []models.Document{}
	for rows.Next() {
		document, err := scanDocument(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan documents")
		}
		documents = append(documents, document)
	}
	return documents, rows.Err()
}

// GetDocument returns a tenant document, nil when it does not exist.
func (r *SQLRepository) GetDocument(ctx context.Context, tenantID, documentID string) (*models.Document, error) {
	database, err := r.database()
	if err != nil {
		return nil, err
	}

	document, err := scanDocument(database.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE tenant_id = ? AND id = ?", tenantID, documentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select document")
	}
	return &document, nil
}

// LatestCompanyProfile returns the newest company profile of the tenant.
func (r *SQLRepository) LatestCompanyProfile(ctx context.Context, tenantID string) (*models.CompanyProfile, error) {
	database, err := r.database()
	if err != nil {
		return nil, err
	}

	profile := models.CompanyProfile{}
	err = database.QueryRowContext(ctx, `
		SELECT id, tenant_id, razao_social, cnpj, endereco, responsavel_tecnico, email, telefone, created_at
		FROM company_profiles
		WHERE tenant_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, tenantID,
	).Scan(&profile.ID, &profile.TenantID, &profile.RazaoSocial, &profile.CNPJ, &profile.Endereco,
		&profile.ResponsavelTecnico, &profile.Email, &profile.Telefone, &profile.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select company_profiles")
	}
	return &profile, nil
}

// CreateDocument registers a document.
func (r *SQLRepository) CreateDocument(ctx context.Context, document models.Document) error {
	database, err := r.database()
	if err != nil {
		return err
	}

	_, err = database.ExecContext(ctx,
		"INSERT INTO documents ("+documentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		document.ID, document.TenantID, document.Title, document.Category, document.FileName,
		document.ContentText, createdAt(document.CreatedAt))
	return errors.Wrap(err, "insert document")
}

// CreateCompanyProfile stores a new company profile version.
func (r *SQLRepository) CreateCompanyProfile(ctx context.Context, profile models.CompanyProfile) (int64, error) {
	database, err := r.database()
	if err != nil {
		return 0, err
	}

	result, err := database.ExecContext(ctx, `
		INSERT INTO company_profiles (tenant_id, razao_social, cnpj, endereco, responsavel_tecnico, email, telefone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.TenantID, profile.RazaoSocial, profile.CNPJ, profile.Endereco, profile.ResponsavelTecnico,
		profile.Email, profile.Telefone, createdAt(profile.CreatedAt))
	if err != nil {
		return 0, errors.Wrap(err, "insert company profile")
	}
	return result.LastInsertId()
}
