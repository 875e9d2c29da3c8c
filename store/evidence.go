/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/walterneylp/voltdocs19022026-sub000/logs"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
	"github.com/walterneylp/voltdocs19022026-sub000/pasta1"
)

const evidenceColumns = "id, tenant_id, item_id, document_id, type, note, created_at"

func scanEvidence(scanner interface{ Scan(...any) error }) (models.AuditItemEvidence, error) {
	var evidence models.AuditItemEvidence
	var note sql.NullString
	err := scanner.Scan(&evidence.ID, &evidence.TenantID, &evidence.ItemID, &evidence.DocumentID,
		&evidence.Type, &note, &evidence.CreatedAt)
	evidence.Note = note.String
	return evidence, err
}

// ListEvidence returns the tenant links of one item, or of every item when
// itemID is empty.
func (r *SQLRepository) ListEvidence(ctx context.Context, tenantID, itemID string) ([]models.AuditItemEvidence, error) {
	database, err := r.database()
	if err != nil {
		return nil, err
	}

	query := "SELECT " + evidenceColumns + " FROM audit_item_evidence WHERE tenant_id = ?"
	args := []any{tenantID}
	if itemID != "" {
		query += " AND item_id = ?"
		args = append(args, itemID)
	}
	query += " ORDER BY id"

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select audit_item_evidence")
	}
	defer rows.Close()

	evidence := []models.AuditItemEvidence{}
	for rows.Next() {
		link, err := scanEvidence(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan audit_item_evidence")
		}
		evidence = append(evidence, link)
	}
	return evidence, rows.Err()
}

// GetEvidence returns one tenant link, nil when it does not exist.
func (r *SQLRepository) GetEvidence(ctx context.Context, tenantID string, id int64) (*models.AuditItemEvidence, error) {
	database, err := r.database()
	if err != nil {
		return nil, err
	}

	evidence, err := scanEvidence(database.QueryRowContext(ctx,
		"SELECT "+evidenceColumns+" FROM audit_item_evidence WHERE tenant_id = ? AND id = ?", tenantID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select audit_item_evidence")
	}
	return &evidence, nil
}

// CreateEvidence inserts a single link.
func (r *SQLRepository) CreateEvidence(ctx context.Context, evidence models.AuditItemEvidence) (int64, error) {
	database, err := r.database()
	if err != nil {
		return 0, err
	}

	result, err := database.ExecContext(ctx,
		"INSERT INTO audit_item_evidence (tenant_id, item_id, document_id, type, note, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		evidence.TenantID, evidence.ItemID, evidence.DocumentID, evidence.Type, evidence.Note, createdAt(evidence.CreatedAt))
	if isDuplicateKey(err) {
		return 0, pasta1.ErrDuplicateEvidence
	}
	if err != nil {
		return 0, errors.Wrap(err, "insert audit_item_evidence")
	}
	return result.LastInsertId()
}

// InsertAutoEvidence bulk-inserts automatic links, ignoring links that
// already exist and links covered by an exclusion.
func (r *SQLRepository) InsertAutoEvidence(ctx context.Context, evidence []models.AuditItemEvidence) (int, error) {
	if len(evidence) == 0 {
		return 0, nil
	}

	database, err := r.database()
	if err != nil {
		return 0, err
	}

	args := make([]any, 0, len(evidence)*6)
	for _, link := range evidence {
		args = append(args, link.TenantID, link.ItemID, link.DocumentID, link.Type, link.Note, createdAt(link.CreatedAt))
	}

	// exclusions may have been written after the run snapshot was taken
	query := `
		INSERT IGNORE INTO audit_item_evidence (tenant_id, item_id, document_id, type, note, created_at)
		SELECT candidate.tenant_id, candidate.item_id, candidate.document_id, candidate.type, candidate.note, candidate.created_at
		FROM (` + valuesTable(len(evidence)) + `) AS candidate
		WHERE NOT EXISTS (
			SELECT 1 FROM audit_item_evidence_exclusions x
			WHERE x.tenant_id = candidate.tenant_id AND x.item_id = candidate.item_id AND x.document_id = candidate.document_id
		)`

	result, err := database.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "insert automatic evidence")
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	logs.Log(fmt.Sprintf("[INFO][STORE] Inserted %d automatic evidence link(s) of %d candidate(s)", inserted, len(evidence)))
	return int(inserted), nil
}

// DeleteEvidence removes a link and optionally records an exclusion for it.
func (r *SQLRepository) DeleteEvidence(ctx context.Context, evidence models.AuditItemEvidence, exclude bool) error {
	database, err := r.database()
	if err != nil {
		return err
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin evidence transaction")
	}
	defer tx.Rollback()

	if exclude {
		if _, err := tx.ExecContext(ctx, `
			INSERT IGNORE INTO audit_item_evidence_exclusions (tenant_id, item_id, document_id, created_at)
			VALUES (?, ?, ?, ?)`,
			evidence.TenantID, evidence.ItemID, evidence.DocumentID, time.Now().UTC()); err != nil {
			return errors.Wrap(err, "insert audit_item_evidence_exclusions")
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM audit_item_evidence WHERE tenant_id = ? AND id = ?", evidence.TenantID, evidence.ID); err != nil {
		return errors.Wrap(err, "delete audit_item_evidence")
	}

	return tx.Commit()
}

// ListExclusions returns every exclusion of the tenant.
func (r *SQLRepository) ListExclusions(ctx context.Context, tenantID string) ([]models.AuditItemEvidenceExclusion, error) {
	database, err := r.database()
	if err != nil {
		return nil, err
	}

	rows, err := database.QueryContext(ctx,
		"SELECT tenant_id, item_id, document_id, created_at FROM audit_item_evidence_exclusions WHERE tenant_id = ?", tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "select audit_item_evidence_exclusions")
	}
	defer rows.Close()

	exclusions := []models.AuditItemEvidenceExclusion{}
	for rows.Next() {
		var exclusion models.AuditItemEvidenceExclusion
		if err := rows.Scan(&exclusion.TenantID, &exclusion.ItemID, &exclusion.DocumentID, &exclusion.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan audit_item_evidence_exclusions")
		}
		exclusions = append(exclusions, exclusion)
	}
	return exclusions, rows.Err()
}

// valuesTable renders "SELECT ? ... UNION ALL SELECT ? ..." with named
// columns in the first row.
func valuesTable(count int) string {
	rows := make([]string, 0, count)
	for i := range count {
		if i == 0 {
			rows = append(rows, "SELECT ? AS tenant_id, ? AS item_id, ? AS document_id, ? AS type, ? AS note, ? AS created_at")
			continue
		}
		rows = append(rows, "SELECT ?, ?, ?, ?, ?, ?")
	}
	return strings.Join(rows, " UNION ALL ")
}

func createdAt(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now().UTC()
	}
	return value
}
