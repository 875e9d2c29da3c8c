/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/walterneylp/voltdocs19022026-sub000/db"
)

var errDatabaseNotInitialized = errors.New("database not initialized")

// SQLRepository stores audit data in MariaDB.
type SQLRepository struct {
	conn func() *sql.DB
}

// NewSQLRepository uses the shared connection pool from the db package.
func NewSQLRepository() *SQLRepository {
	return &SQLRepository{conn: db.GetDB}
}

// NewSQLRepositoryWithDB binds the repository to an explicit pool.
func NewSQLRepositoryWithDB(database *sql.DB) *SQLRepository {
	return &SQLRepository{conn: func() *sql.DB { return database }}
}

func (r *SQLRepository) database() (*sql.DB, error) {
	database := r.conn()
	if database == nil {
		return nil, errDatabaseNotInitialized
	}
	return database, nil
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeList(raw []byte) ([]string, error) {
	values := []string{}
	if len(raw) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}
