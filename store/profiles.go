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

// ResolveProfile maps an authenticated user to its tenant and role, nil when
// the user has no profile.
func (r *SQLRepository) ResolveProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	database, err := r.database()
	if err != nil {
		return nil, err
	}

	profile := models.UserProfile{}
	err = database.QueryRowContext(ctx,
		"SELECT user_id, tenant_id, role FROM profiles WHERE user_id = ?", userID,
	).Scan(&profile.UserID, &profile.TenantID, &profile.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select profiles")
	}
	return &profile, nil
}

// CreateProfile inserts or updates the profile of a user.
func (r *SQLRepository) CreateProfile(ctx context.Context, profile models.UserProfile) error {
	database, err := r.database()
	if err != nil {
		return err
	}

	_, err = database.ExecContext(ctx, `
		INSERT INTO profiles (user_id, tenant_id, role) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE tenant_id = VALUES(tenant_id), role = VALUES(role)`,
		profile.UserID, profile.TenantID, profile.Role)
	return errors.Wrap(err, "upsert profiles")
}
