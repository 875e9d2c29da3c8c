/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/mariadb/*.sql
var mariadbMigrations embed.FS

//go:embed migrations/index/*.sql
var indexMigrations embed.FS

// goose keeps dialect and base FS as package state
var gooseMutex sync.Mutex

// migrate executes all pending goose migrations found in dir.
func migrate(database *sql.DB, dialect string, migrations fs.FS, dir string) error {
	gooseMutex.Lock()
	defer gooseMutex.Unlock()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if err := goose.Up(database, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}
