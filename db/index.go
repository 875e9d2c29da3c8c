/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/walterneylp/voltdocs19022026-sub000/configuration"
	"github.com/walterneylp/voltdocs19022026-sub000/logs"
)

var (
	// Access the chunk index with GetIndexDB() to ensure proper initialization and reconnection.
	IndexDB          *sql.DB
	indexSqlOpenFunc = sql.Open
)

func indexDSN() string {
	pgURL := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(configuration.Config.IndexPgSQLUser, configuration.Config.IndexPgSQLPassword),
		Host:   fmt.Sprintf("%s:%s", configuration.Config.IndexPgSQLHost, configuration.Config.IndexPgSQLPort),
		Path:   configuration.Config.IndexPgSQLDB,
	}
	return pgURL.String()
}

// InitIndex initializes the chunk index connection pool and its schema.
func InitIndex() error {
	if !configuration.IsIndexConfigured() {
		err := fmt.Errorf("missing index database configuration")
		logs.Log("[ERROR][INDEX-DB] " + err.Error())
		return err
	}

	var err error
	IndexDB, err = indexSqlOpenFunc("pgx", indexDSN())
	if err != nil {
		logs.Log("[CRITICAL][INDEX-DB] Failed to open database connection: " + err.Error())
		return err
	}

	IndexDB.SetMaxOpenConns(10)
	IndexDB.SetMaxIdleConns(2)
	IndexDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := IndexDB.PingContext(ctx); err != nil {
		logs.Log("[CRITICAL][INDEX-DB] Failed to ping database: " + err.Error())
		_ = IndexDB.Close()
		IndexDB = nil
		return err
	}

	if err := migrate(IndexDB, "postgres", indexMigrations, "migrations/index"); err != nil {
		logs.Log("[CRITICAL][INDEX-DB] Failed to apply migrations: " + err.Error())
		_ = IndexDB.Close()
		IndexDB = nil
		return err
	}

	logs.Log("[INFO][INDEX-DB] Database connection established successfully")
	return nil
}

// CloseIndex gracefully closes the chunk index connection pool.
func CloseIndex() error {
	if IndexDB != nil {
		return IndexDB.Close()
	}
	return nil
}

// GetIndexDB returns a ready-to-use index DB connection, initializing it on demand.
func GetIndexDB() *sql.DB {
	if IndexDB == nil {
		if err := InitIndex(); err != nil {
			logs.Log("[CRITICAL][INDEX-DB] Failed to initialize database: " + err.Error())
		}
		return IndexDB
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := IndexDB.PingContext(ctx); err != nil {
		logs.Log("[WARNING][INDEX-DB] Lost DB connection, attempting reconnect: " + err.Error())
		if err := InitIndex(); err != nil {
			logs.Log("[CRITICAL][INDEX-DB] Failed to reconnect database: " + err.Error())
		}
	}

	return IndexDB
}
