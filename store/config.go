/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

// GetConfigMeta returns the active config meta of an engine, nil when none.
func (r *SQLRepository) GetConfigMeta(ctx context.Context, engine string) (*models.AuditConfigMeta, error) {
	database, err := r.database()
	if err != nil {
		return nil, err
	}

	meta := models.AuditConfigMeta{}
	err = database.QueryRowContext(ctx,
		"SELECT engine, config_hash, version, updated_at FROM audit_config_meta WHERE engine = ?", engine,
	).Scan(&meta.Engine, &meta.ConfigHash, &meta.Version, &meta.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select audit_config_meta")
	}
	return &meta, nil
}

// ListConfigItems returns the stored items of an engine in checklist order.
func (r *SQLRepository) ListConfigItems(ctx context.Context, engine string) ([]models.AuditConfigItem, error) {
	database, err := r.database()
	if err != nil {
		return nil, err
	}

	rows, err := database.QueryContext(ctx, `
		SELECT engine, item_id, position, category, name, min_evidence,
			required_fields, expected_evidence, keywords, raw, config_hash
		FROM audit_config_items
		WHERE engine = ?
		ORDER BY position`, engine)
	if err != nil {
		return nil, errors.Wrap(err, "select audit_config_items")
	}
	defer rows.Close()

	items := []models.AuditConfigItem{}
	for rows.Next() {
		var item models.AuditConfigItem
		var requiredFields, expectedEvidence, keywords, raw []byte
		if err := rows.Scan(&item.Engine, &item.ItemID, &item.Position, &item.Category, &item.Name,
			&item.MinEvidence, &requiredFields, &expectedEvidence, &keywords, &raw, &item.ConfigHash); err != nil {
			return nil, errors.Wrap(err, "scan audit_config_items")
		}
		if item.RequiredFields, err = decodeList(requiredFields); err != nil {
			return nil, errors.Wrap(err, "decode required_fields")
		}
		if item.ExpectedEvidence, err = decodeList(expectedEvidence); err != nil {
			return nil, errors.Wrap(err, "decode expected_evidence")
		}
		if item.Keywords, err = decodeList(keywords); err != nil {
			return nil, errors.Wrap(err, "decode keywords")
		}
		item.Raw = json.RawMessage(raw)
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReplaceConfig deletes and reinserts the engine items and upserts the meta
// row inside one transaction.
func (r *SQLRepository) ReplaceConfig(ctx context.Context, meta models.AuditConfigMeta, items []models.AuditConfigItem) error {
	database, err := r.database()
	if err != nil {
		return err
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin config transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM audit_config_items WHERE engine = ?", meta.Engine); err != nil {
		return errors.Wrap(err, "delete audit_config_items")
	}

	insert := `
		INSERT INTO audit_config_items (
			engine, item_id, position, category, name, min_evidence,
			required_fields, expected_evidence, keywords, raw, config_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, item := range items {
		requiredFields, err := encodeList(item.RequiredFields)
		if err != nil {
			return err
		}
		expectedEvidence, err := encodeList(item.ExpectedEvidence)
		if err != nil {
			return err
		}
		keywords, err := encodeList(item.Keywords)
		if err != nil {
			return err
		}
		raw := string(item.Raw)
		if raw == "" {
			raw = "{}"
		}

		if _, err := tx.ExecContext(ctx, insert, meta.Engine, item.ItemID, item.Position, item.Category, item.Name,
			item.MinEvidence, requiredFields, expectedEvidence, keywords, raw, meta.ConfigHash); err != nil {
			return errors.Wrapf(err, "insert audit_config_items %s", item.ItemID)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO audit_config_meta (engine, config_hash, version, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE config_hash = VALUES(config_hash), version = VALUES(version), updated_at = VALUES(updated_at)`,
		meta.Engine, meta.ConfigHash, meta.Version, meta.UpdatedAt); err != nil {
		return errors.Wrap(err, "upsert audit_config_meta")
	}

	return tx.Commit()
}
