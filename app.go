/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/walterneylp/voltdocs19022026-sub000/configuration"
	"github.com/walterneylp/voltdocs19022026-sub000/db"
	"github.com/walterneylp/voltdocs19022026-sub000/logs"
	"github.com/walterneylp/voltdocs19022026-sub000/methods"
	"github.com/walterneylp/voltdocs19022026-sub000/middleware"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
	"github.com/walterneylp/voltdocs19022026-sub000/pasta1"
	"github.com/walterneylp/voltdocs19022026-sub000/rag"
	"github.com/walterneylp/voltdocs19022026-sub000/store"
)

const (
	driverMySQL  = "mysql"
	driverMemory = "memory"
)

// repository is what the service needs from a store driver.
type repository interface {
	pasta1.Repository
	middleware.ProfileResolver
	CreateProfile(ctx context.Context, profile models.UserProfile) error
}

type application struct {
	driver    string
	repo      repository
	engine    *pasta1.Engine
	indexer   *rag.Indexer
	reindexer *rag.Scheduler
	roles     *middleware.RoleManager
}

// newApplication opens the configured store and wires the engine, the
// similarity index and the request handlers.
func newApplication() (*application, error) {
	app := &application{driver: configuration.Config.StoreDriver}

	switch app.driver {
	case driverMemory:
		logs.Log("[WARNING][STORE] Using the memory store, data is lost on exit")
		app.repo = store.NewMemoryRepository()
	case driverMySQL, "":
		app.driver = driverMySQL
		if err := db.Init(); err != nil {
			return nil, errors.Wrap(err, "init database")
		}
		app.repo = store.NewSQLRepository()
	default:
		return nil, fmt.Errorf("unknown store driver %q", app.driver)
	}

	definition, err := pasta1.LoadDefinition(configuration.Config.ChecklistFile)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.engine = pasta1.NewEngine(app.repo, definition)
	app.engine.MaxScorers = configuration.Config.MaxScorers

	if err := app.initIndex(); err != nil {
		// similarity search is optional; keyword matching still works
		logs.Log("[WARNING][INDEX] Similarity index disabled: " + err.Error())
	}

	app.roles, err = middleware.NewRoleManager(configuration.Config.RolesFile)
	if err != nil {
		app.Close()
		return nil, err
	}

	middleware.SetProfileResolver(app.repo)
	methods.SetPasta1Engine(app.engine)
	if app.indexer != nil {
		methods.SetIndexRebuilder(app.indexer)
	} else {
		methods.SetIndexRebuilder(nil)
	}

	return app, nil
}

func (a *application) initIndex() error {
	if !configuration.IsIndexConfigured() || !configuration.IsEmbeddingsConfigured() {
		logs.Log("[INFO][INDEX] Similarity index not configured")
		return nil
	}
	if err := db.InitIndex(); err != nil {
		return err
	}

	chunks := store.NewChunkRepository()
	embedder := rag.NewOpenAIEmbedder(configuration.Config.EmbeddingsBaseURL,
		configuration.Config.EmbeddingsAPIKey, configuration.Config.EmbeddingsModel)

	a.indexer = rag.NewIndexer(a.repo, chunks, embedder,
		configuration.Config.EmbeddingsBatchSize, configuration.Config.EmbeddingsRPS)
	a.reindexer = rag.NewScheduler(a.indexer, 10*time.Minute)
	a.engine.Searcher = rag.NewSearcher(chunks, embedder)
	return nil
}

func (a *application) usesDatabase() bool {
	return a.driver == driverMySQL
}

// Close releases the database pools.
func (a *application) Close() {
	if a.reindexer != nil {
		a.reindexer.Stop()
	}
	if a.indexer != nil {
		if err := db.CloseIndex(); err != nil {
			logs.Log("[WARNING][INDEX] " + err.Error())
		}
	}
	if a.usesDatabase() {
		if err := db.Close(); err != nil {
			logs.Log("[WARNING][DB] " + err.Error())
		}
	}
}
