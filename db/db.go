/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/walterneylp/voltdocs19022026-sub000/configuration"
	"github.com/walterneylp/voltdocs19022026-sub000/logs"
)

var (
	DB          *sql.DB
	sqlOpenFunc = sql.Open
)

// mysqlDSN builds the MariaDB connection string from the configuration.
func mysqlDSN() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
		configuration.Config.MariaDBUser,
		configuration.Config.MariaDBPassword,
		configuration.Config.MariaDBHost,
		configuration.Config.MariaDBPort,
		configuration.Config.MariaDBDatabase,
	)
}

// Init initializes the database connection pool with the configured MariaDB settings.
// It performs health checks and applies pending migrations.
func Init() error {
	var err error
	DB, err = sqlOpenFunc("mysql", mysqlDSN())
	if err != nil {
		logs.Log("[CRITICAL][DB] Failed to open database connection: " + err.Error())
		return err
	}

	// Configure connection pool
	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(5)
	DB.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection with a few retries to tolerate transient DB startup
	var pingErr error
	for attempt := 0; attempt < 5; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		pingErr = DB.PingContext(ctx)
		cancel()
		if pingErr == nil {
			break
		}
		time.Sleep(250 * time.Millisecond)
	}
	if pingErr != nil {
		logs.Log("[CRITICAL][DB] Failed to ping database: " + pingErr.Error())
		_ = DB.Close()
		DB = nil
		return pingErr
	}

	logs.Log("[INFO][DB] Database connection established successfully")

	if err := migrate(DB, "mysql", mariadbMigrations, "migrations/mariadb"); err != nil {
		logs.Log("[CRITICAL][DB] Failed to apply migrations: " + err.Error())
		return err
	}

	logs.Log("[INFO][DB] Schema is up to date")
	return nil
}

// Close gracefully closes the database connection pool.
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// GetDB returns the shared pool, initializing it on demand.
func GetDB() *sql.DB {
	if DB == nil {
		if err := Init(); err != nil {
			logs.Log("[CRITICAL][DB] Failed to initialize database: " + err.Error())
		}
	}
	return DB
}

// HealthCheck performs a health check on the database connection.
func HealthCheck() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return DB.PingContext(ctx)
}
