/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walterneylp/voltdocs19022026-sub000/configuration"
	"github.com/walterneylp/voltdocs19022026-sub000/db"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
	"github.com/walterneylp/voltdocs19022026-sub000/pasta1"
)

func TestValuesTable(t *testing.T) {
	assert.Equal(t, "SELECT ? AS tenant_id, ? AS item_id, ? AS document_id, ? AS type, ? AS note, ? AS created_at",
		valuesTable(1))

	three := valuesTable(3)
	assert.Equal(t, 2, strings.Count(three, " UNION ALL "))
	assert.Equal(t, 18, strings.Count(three, "?"))
}

func TestListEncoding(t *testing.T) {
	encoded, err := encodeList(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", encoded)

	decoded, err := decodeList(nil)
	require.NoError(t, err)
	assert.NotNil(t, decoded)
	assert.Empty(t, decoded)

	decoded, err = decodeList([]byte(`["CNPJ","endereço"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"CNPJ", "endereço"}, decoded)

	_, err = decodeList([]byte(`{`))
	assert.Error(t, err)
}

func TestRepositoryWithoutDatabase(t *testing.T) {
	repo := NewSQLRepositoryWithDB(nil)

	_, err := repo.ListDocuments(context.Background(), "t1")
	assert.ErrorIs(t, err, errDatabaseNotInitialized)
}

// TestSQLRepository runs against a real MariaDB selected with
// VOLTDOCS_TEST_MARIADB_HOST.
func TestSQLRepository(t *testing.T) {
	host := os.Getenv("VOLTDOCS_TEST_MARIADB_HOST")
	if host == "" {
		t.Skip("VOLTDOCS_TEST_MARIADB_HOST not set")
	}

	previous := configuration.Config
	t.Cleanup(func() { configuration.Config = previous })
	configuration.Config.MariaDBHost = host
	configuration.Config.MariaDBPort = envOr("VOLTDOCS_TEST_MARIADB_PORT", "3306")
	configuration.Config.MariaDBUser = envOr("VOLTDOCS_TEST_MARIADB_USER", "root")
	configuration.Config.MariaDBPassword = envOr("VOLTDOCS_TEST_MARIADB_PASSWORD", "root")
	configuration.Config.MariaDBDatabase = envOr("VOLTDOCS_TEST_MARIADB_DATABASE", "voltdocs_test")

	require.NoError(t, db.Init())
	defer db.Close()

	repo := NewSQLRepository()
	ctx := context.Background()
	tenantID := "test-" + uuid.NewString()
	documentID := uuid.NewString()

	require.NoError(t, repo.CreateDocument(ctx, models.Document{
		ID: documentID, TenantID: tenantID, Title: "Diagrama unifilar", FileName: "unifilar.pdf",
	}))

	inserted, err := repo.InsertAutoEvidence(ctx, []models.AuditItemEvidence{
		{TenantID: tenantID, ItemID: "1.2", DocumentID: documentID, Type: models.EvidenceTypeAuto},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	_, err = repo.CreateEvidence(ctx, models.AuditItemEvidence{TenantID: tenantID, ItemID: "1.2", DocumentID: documentID})
	assert.ErrorIs(t, err, pasta1.ErrDuplicateEvidence)

	links, err := repo.ListEvidence(ctx, tenantID, "1.2")
	require.NoError(t, err)
	require.Len(t, links, 1)

	require.NoError(t, repo.DeleteEvidence(ctx, links[0], true))
	inserted, err = repo.InsertAutoEvidence(ctx, []models.AuditItemEvidence{
		{TenantID: tenantID, ItemID: "1.2", DocumentID: documentID, Type: models.EvidenceTypeAuto},
	})
	require.NoError(t, err)
	assert.Zero(t, inserted)

	run := models.AuditRun{
		ID: uuid.NewString(), TenantID: tenantID, Engine: pasta1.EngineName,
		Status: models.RunStatusRunning, StartedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.CreateRun(ctx, run))
	require.NoError(t, repo.InsertResults(ctx, []models.AuditResult{
		{RunID: run.ID, ItemID: "1.2", Score: 60, Status: pasta1.StatusPartial, Missing: []string{"Diagrama unifilar"}},
	}))
	require.NoError(t, repo.FinishRun(ctx, run.ID, models.RunStatusFinished, "", time.Now().UTC()))

	latest, err := repo.LatestRun(ctx, tenantID, pasta1.EngineName)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, run.ID, latest.ID)

	results, err := repo.ListResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"Diagrama unifilar"}, results[0].Missing)
	assert.Empty(t, results[0].Evidence)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
