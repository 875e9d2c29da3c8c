/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package configuration

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Configuration struct {
	ListenAddress string `mapstructure:"listen_address"`
	Secret        string `mapstructure:"secret"`
	IdentityClaim string `mapstructure:"identity_claim"`
	RolesFile     string `mapstructure:"roles_file"`

	StoreDriver     string `mapstructure:"store_driver"`
	MariaDBHost     string `mapstructure:"mariadb_host"`
	MariaDBPort     string `mapstructure:"mariadb_port"`
	MariaDBUser     string `mapstructure:"mariadb_user"`
	MariaDBPassword string `mapstructure:"mariadb_password"`
	MariaDBDatabase string `mapstructure:"mariadb_database"`

	IndexPgSQLHost     string `mapstructure:"index_pgsql_host"`
	IndexPgSQLPort     string `mapstructure:"index_pgsql_port"`
	IndexPgSQLUser     string `mapstructure:"index_pgsql_user"`
	IndexPgSQLPassword string `mapstructure:"index_pgsql_password"`
	IndexPgSQLDB       string `mapstructure:"index_pgsql_db"`

	EmbeddingsBaseURL   string  `mapstructure:"embeddings_base_url"`
	EmbeddingsAPIKey    string  `mapstructure:"embeddings_api_key"`
	EmbeddingsModel     string  `mapstructure:"embeddings_model"`
	EmbeddingsBatchSize int     `mapstructure:"embeddings_batch_size"`
	EmbeddingsRPS       float64 `mapstructure:"embeddings_rps"`

	ChecklistFile string        `mapstructure:"checklist_file"`
	RunTimeout    time.Duration `mapstructure:"run_timeout"`
	MaxScorers    int           `mapstructure:"max_scorers"`

	MQTTEnabled     bool   `mapstructure:"-"`
	MQTTHost        string `mapstructure:"mqtt_host"`
	MQTTPort        string `mapstructure:"mqtt_port"`
	MQTTUsername    string `mapstructure:"mqtt_username"`
	MQTTPassword    string `mapstructure:"mqtt_password"`
	MQTTTopicPrefix string `mapstructure:"mqtt_topic_prefix"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

var Config = Configuration{}

var defaults = map[string]any{
	"listen_address":        "127.0.0.1:8080",
	"identity_claim":        "sub",
	"store_driver":          "mysql",
	"mariadb_host":          "127.0.0.1",
	"mariadb_port":          "3306",
	"mariadb_user":          "voltdocs",
	"mariadb_database":      "voltdocs",
	"index_pgsql_port":      "5432",
	"embeddings_base_url":   "https://api.openai.com/v1",
	"embeddings_model":      "text-embedding-3-small",
	"embeddings_batch_size": 32,
	"embeddings_rps":        2.0,
	"run_timeout":           "30m",
	"max_scorers":           8,
	"mqtt_port":             "1883",
	"mqtt_topic_prefix":     "voltdocs",
	"log_level":             "info",
	"log_format":            "console",
}

// Init reads configuration from VOLTDOCS_* environment variables and, when
// VOLTDOCS_CONFIG_FILE is set, from that file. A missing secret is fatal.
func Init() {
	if err := Load(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// Load fills Config and reports configuration errors instead of exiting.
func Load() error {
	v := viper.New()
	v.SetEnvPrefix("VOLTDOCS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// AutomaticEnv only resolves keys viper already knows about
	for _, key := range []string{"secret", "roles_file", "mariadb_password", "index_pgsql_host",
		"index_pgsql_user", "index_pgsql_password", "index_pgsql_db", "embeddings_api_key",
		"checklist_file", "mqtt_host", "mqtt_username", "mqtt_password"} {
		v.SetDefault(key, "")
	}

	if path := os.Getenv("VOLTDOCS_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return errors.New("unable to read VOLTDOCS_CONFIG_FILE: " + err.Error())
		}
	}

	loaded := Configuration{}
	if err := v.Unmarshal(&loaded); err != nil {
		return errors.New("unable to decode configuration: " + err.Error())
	}

	if loaded.Secret == "" {
		return errors.New("VOLTDOCS_SECRET variable is empty")
	}

	if loaded.MaxScorers <= 0 {
		loaded.MaxScorers = 1
	}

	loaded.MQTTEnabled = loaded.MQTTHost != "" && loaded.MQTTPort != ""

	Config = loaded
	return nil
}

// IsIndexConfigured reports whether the chunk index database is configured.
func IsIndexConfigured() bool {
	return Config.IndexPgSQLHost != "" &&
		Config.IndexPgSQLPort != "" &&
		Config.IndexPgSQLDB != "" &&
		Config.IndexPgSQLUser != ""
}

// IsEmbeddingsConfigured reports whether an embeddings provider can be reached.
func IsEmbeddingsConfigured() bool {
	return Config.EmbeddingsBaseURL != "" && Config.EmbeddingsModel != ""
}
