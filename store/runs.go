/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

const runColumns = "id, tenant_id, engine, config_hash, status, error, started_at, finished_at"

func scanRun(scanner interface{ Scan(...any) error }) (models.AuditRun, error) {
	var run models.AuditRun
	var message sql.NullString
	var finishedAt sql.NullTime
	err := scanner.Scan(&run.ID, &run.TenantID, &run.Engine, &run.ConfigHash, &run.Status,
		&message, &run.StartedAt, &finishedAt)
	run.Error = message.String
	if finishedAt.Valid {
		finished := finishedAt.Time
		run.FinishedAt = &finished
	}
	return run, err
}

// CreateRun inserts a run in the executando state.
func (r *SQLRepository) CreateRun(ctx context.Context, run models.AuditRun) error {
	database, err := r.database()
	if err != nil {
		return err
	}

	_, err = database.ExecContext(ctx, `
		INSERT INTO audit_runs (id, tenant_id, engine, config_hash, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.TenantID, run.Engine, run.ConfigHash, run.Status, run.StartedAt)
	return errors.Wrap(err, "insert audit_runs")
}

// FinishRun closes a run with its final status.
func (r *SQLRepository) FinishRun(ctx context.Context, runID, status, message string, finishedAt time.Time) error {
	database, err := r.database()
	if err != nil {
		return err
	}

	var errorColumn sql.NullString
	if message != "" {
		errorColumn = sql.NullString{String: message, Valid: true}
	}

	_, err = database.ExecContext(ctx,
		"UPDATE audit_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?",
		status, errorColumn, finishedAt, runID)
	return errors.Wrap(err, "update audit_runs")
}

// InsertResults stores the item results of a run in one transaction.
func (r *SQLRepository) InsertResults(ctx context.Context, results []models.AuditResult) error {
	if len(results) == 0 {
		return nil
	}

	database, err := r.database()
	if err != nil {
		return err
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin results transaction")
	}
	defer tx.Rollback()

	statement, err := tx.PrepareContext(ctx, `
		INSERT INTO audit_results (run_id, item_id, score, status, missing, recommendations, evidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare audit_results")
	}
	defer statement.Close()

	for _, result := range results {
		missing, err := encodeList(result.Missing)
		if err != nil {
			return err
		}
		recommendations, err := encodeList(result.Recommendations)
		if err != nil {
			return err
		}
		evidence, err := encodeList(result.Evidence)
		if err != nil {
			return err
		}

		if _, err := statement.ExecContext(ctx, result.RunID, result.ItemID, result.Score, result.Status,
			missing, recommendations, evidence, createdAt(result.CreatedAt)); err != nil {
			return errors.Wrapf(err, "insert audit_results %s", result.ItemID)
		}
	}

	return tx.Commit()
}

// LatestRun returns the newest finished run of the tenant, nil when none.
func (r *SQLRepository) LatestRun(ctx context.Context, tenantID, engine string) (*models.AuditRun, error) {
	database, err := r.database()
	if err != nil {
		return nil, err
	}

	run, err := scanRun(database.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM audit_runs
		WHERE tenant_id = ? AND engine = ? AND status = ?
		ORDER BY started_at DESC, finished_at DESC
		LIMIT 1`, tenantID, engine, models.RunStatusFinished))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select audit_runs")
	}
	return &run, nil
}

// ListRuns returns the newest runs of the tenant in any state.
func (r *SQLRepository) ListRuns(ctx context.Context, tenantID, engine string, limit int) ([]models.AuditRun, error) {
	database, err := r.database()
	if err != nil {
		return nil, err
	}

	rows, err := database.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM audit_runs
		WHERE tenant_id = ? AND engine = ?
		ORDER BY started_at DESC
		LIMIT ?`, tenantID, engine, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select audit_runs")
	}
	defer rows.Close()

	runs := []models.AuditRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan audit_runs")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListResults returns the results of a run.
func (r *SQLRepository) ListResults(ctx context.Context, runID string) ([]models.AuditResult, error) {
	database, err := r.database()
	if err != nil {
		return nil, err
	}

	rows, err := database.QueryContext(ctx, `
		SELECT run_id, item_id, score, status, missing, recommendations, evidence, created_at
		FROM audit_results
		WHERE run_id = ?
		ORDER BY id`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "select audit_results")
	}
	defer rows.Close()

	results := []models.AuditResult{}
	for rows.Next() {
		var result models.AuditResult
		var missing, recommendations, evidence []byte
		if err := rows.Scan(&result.RunID, &result.ItemID, &result.Score, &result.Status,
			&missing, &recommendations, &evidence, &result.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan audit_results")
		}
		if result.Missing, err = decodeList(missing); err != nil {
			return nil, errors.Wrap(err, "decode missing")
		}
		if result.Recommendations, err = decodeList(recommendations); err != nil {
			return nil, errors.Wrap(err, "decode recommendations")
		}
		if result.Evidence, err = decodeList(evidence); err != nil {
			return nil, errors.Wrap(err, "decode evidence")
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// FailStaleRuns closes every run still executando that started before the
// given instant.
func (r *SQLRepository) FailStaleRuns(ctx context.Context, startedBefore time.Time, message string) (int64, error) {
	database, err := r.database()
	if err != nil {
		return 0, err
	}

	result, err := database.ExecContext(ctx, `
		UPDATE audit_runs
		SET status = ?, error = ?, finished_at = ?
		WHERE status = ? AND started_at < ?`,
		models.RunStatusFailed, message, time.Now().UTC(), models.RunStatusRunning, startedBefore)
	if err != nil {
		return 0, errors.Wrap(err, "update stale audit_runs")
	}
	return result.RowsAffected()
}
