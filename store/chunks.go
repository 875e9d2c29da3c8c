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

	"github.com/walterneylp/voltdocs19022026-sub000/db"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

// ChunkRepository stores document chunks in the Postgres index database.
type ChunkRepository struct {
	conn func() *sql.DB
}

func NewChunkRepository() *ChunkRepository {
	return &ChunkRepository{conn: db.GetIndexDB}
}

func NewChunkRepositoryWithDB(database *sql.DB) *ChunkRepository {
	return &ChunkRepository{conn: func() *sql.DB { return database }}
}

func (r *ChunkRepository) database() (*sql.DB, error) {
	database := r.conn()
	if database == nil {
		return nil, errDatabaseNotInitialized
	}
	return database, nil
}

// ReplaceDocumentChunks swaps every chunk of a document in one transaction.
func (r *ChunkRepository) ReplaceDocumentChunks(ctx context.Context, tenantID, documentID string, chunks []models.DocumentChunk) error {
	database, err := r.database()
	if err != nil {
		return err
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin chunks transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM document_chunks WHERE tenant_id = $1 AND document_id = $2", tenantID, documentID); err != nil {
		return errors.Wrap(err, "delete document_chunks")
	}

	for _, chunk := range chunks {
		embedding, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return errors.Wrap(err, "encode embedding")
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_chunks (tenant_id, document_id, chunk_index, content, embedding)
			VALUES ($1, $2, $3, $4, $5::jsonb)`,
			tenantID, documentID, chunk.ChunkIndex, chunk.Content, string(embedding)); err != nil {
			return errors.Wrapf(err, "insert document_chunks %d", chunk.ChunkIndex)
		}
	}

	return tx.Commit()
}

// PruneDocuments drops the chunks of tenant documents not in keep.
func (r *ChunkRepository) PruneDocuments(ctx context.Context, tenantID string, keep []string) (int64, error) {
	database, err := r.database()
	if err != nil {
		return 0, err
	}

	if keep == nil {
		keep = []string{}
	}
	result, err := database.ExecContext(ctx,
		"DELETE FROM document_chunks WHERE tenant_id = $1 AND NOT (document_id = ANY($2))", tenantID, keep)
	if err != nil {
		return 0, errors.Wrap(err, "prune document_chunks")
	}
	return result.RowsAffected()
}

// ListChunks returns every chunk of the tenant with its embedding.
func (r *ChunkRepository) ListChunks(ctx context.Context, tenantID string) ([]models.DocumentChunk, error) {
	database, err := r.database()
	if err != nil {
		return nil, err
	}

	rows, err := database.QueryContext(ctx, `
		SELECT tenant_id, document_id, chunk_index, content, embedding::text
		FROM document_chunks
		WHERE tenant_id = $1
		ORDER BY document_id, chunk_index`, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "select document_chunks")
	}
	defer rows.Close()

	chunks := []models.DocumentChunk{}
	for rows.Next() {
		var chunk models.DocumentChunk
		var embedding string
		if err := rows.Scan(&chunk.TenantID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.Content, &embedding); err != nil {
			return nil, errors.Wrap(err, "scan document_chunks")
		}
		if err := json.Unmarshal([]byte(embedding), &chunk.Embedding); err != nil {
			return nil, errors.Wrap(err, "decode embedding")
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
