/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("VOLTDOCS_SECRET", "")

	err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VOLTDOCS_SECRET")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VOLTDOCS_SECRET", "test-secret")

	require.NoError(t, Load())
	assert.Equal(t, "127.0.0.1:8080", Config.ListenAddress)
	assert.Equal(t, "sub", Config.IdentityClaim)
	assert.Equal(t, "mysql", Config.StoreDriver)
	assert.Equal(t, 30*time.Minute, Config.RunTimeout)
	assert.Equal(t, 8, Config.MaxScorers)
	assert.False(t, Config.MQTTEnabled)
	assert.False(t, IsIndexConfigured())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("VOLTDOCS_SECRET", "test-secret")
	t.Setenv("VOLTDOCS_LISTEN_ADDRESS", "0.0.0.0:9000")
	t.Setenv("VOLTDOCS_STORE_DRIVER", "memory")
	t.Setenv("VOLTDOCS_RUN_TIMEOUT", "5m")
	t.Setenv("VOLTDOCS_MQTT_HOST", "broker")
	t.Setenv("VOLTDOCS_INDEX_PGSQL_HOST", "pg")
	t.Setenv("VOLTDOCS_INDEX_PGSQL_USER", "rag")
	t.Setenv("VOLTDOCS_INDEX_PGSQL_DB", "chunks")

	require.NoError(t, Load())
	assert.Equal(t, "0.0.0.0:9000", Config.ListenAddress)
	assert.Equal(t, "memory", Config.StoreDriver)
	assert.Equal(t, 5*time.Minute, Config.RunTimeout)
	assert.True(t, Config.MQTTEnabled)
	assert.True(t, IsIndexConfigured())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voltdocs.yaml")
	err := os.WriteFile(path, []byte("secret: from-file\nmax_scorers: 3\nchecklist_file: /etc/voltdocs/pasta1.json\n"), 0o600)
	require.NoError(t, err)

	t.Setenv("VOLTDOCS_SECRET", "")
	t.Setenv("VOLTDOCS_CONFIG_FILE", path)

	require.NoError(t, Load())
	assert.Equal(t, "from-file", Config.Secret)
	assert.Equal(t, 3, Config.MaxScorers)
	assert.Equal(t, "/etc/voltdocs/pasta1.json", Config.ChecklistFile)
}
